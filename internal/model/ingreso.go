package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ingreso is an immutable record of one successful scan at the gate.
// Rows are never updated; they are only removed by the administrative purge.
type Ingreso struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CodigoQRID uuid.UUID `gorm:"column:codigo_qr_id;type:uuid;index;not null"`
	Fecha      time.Time `gorm:"index;not null"`

	CodigoQR *CodigoQR `gorm:"foreignKey:CodigoQRID"`
}

func (Ingreso) TableName() string { return "ingresos" }

func (i *Ingreso) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
