package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CodigoQR is an issuable access code. Usos never exceeds MaxUsos: the counter
// only moves through a conditional UPDATE (see repository.CodigoRepository).
type CodigoQR struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Codigo    string     `gorm:"type:varchar(80);uniqueIndex;not null"`
	Categoria string     `gorm:"type:varchar(20);not null"`
	MaxUsos   int        `gorm:"not null"`
	Usos      int        `gorm:"not null;default:0;check:chk_codigos_qr_usos,usos <= max_usos"`
	PersonaID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time

	Persona *Persona `gorm:"foreignKey:PersonaID"`
}

func (CodigoQR) TableName() string { return "codigos_qr" }

func (c *CodigoQR) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Restantes is the number of admissions left on the code.
func (c *CodigoQR) Restantes() int {
	if r := c.MaxUsos - c.Usos; r > 0 {
		return r
	}
	return 0
}
