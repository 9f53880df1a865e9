package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categoria values shared by Persona and CodigoQR. CategoriaAdicional is only
// used on codes sold through a caja session.
const (
	CategoriaEstudiante = "estudiante"
	CategoriaFamiliar   = "familiar"
	CategoriaVisitante  = "visitante"
	CategoriaAdicional  = "adicional"
)

// Persona is an attendee. Cedula is unique when present; imports look it up
// to avoid duplicates.
type Persona struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"not null"`
	Apellido  *string
	Cedula    *string `gorm:"type:varchar(20);uniqueIndex"`
	Email     *string
	Categoria string `gorm:"type:varchar(20);not null"`
	Activo    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Codigos []CodigoQR `gorm:"foreignKey:PersonaID"`
}

func (Persona) TableName() string { return "personas" }

func (p *Persona) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NombreCompleto joins nombre and apellido.
func (p *Persona) NombreCompleto() string {
	if p.Apellido == nil || *p.Apellido == "" {
		return p.Nombre
	}
	return p.Nombre + " " + *p.Apellido
}
