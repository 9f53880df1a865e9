package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Estado: "en_progreso" | "completada" | "interrumpida" | "error"
const (
	ImportacionEnProgreso   = "en_progreso"
	ImportacionCompletada   = "completada"
	ImportacionInterrumpida = "interrumpida"
	ImportacionError        = "error"
)

// Importacion logs one bulk import run. Errores holds the per-row failures
// as a JSON list of {fila, email, motivo}.
type Importacion struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Archivo      string    `gorm:"not null"`
	Operador     string    `gorm:"type:varchar(200);not null"`
	Total        int       `gorm:"not null;default:0"`
	Exitosos     int       `gorm:"not null;default:0"`
	Fallidos     int       `gorm:"not null;default:0"`
	Estado       string    `gorm:"type:varchar(20);not null"`
	Errores      datatypes.JSON
	IniciadaEn   time.Time `gorm:"not null"`
	FinalizadaEn *time.Time
}

func (Importacion) TableName() string { return "importaciones" }

func (i *Importacion) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
