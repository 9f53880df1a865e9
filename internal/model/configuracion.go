package model

import "time"

// Configuration keys.
const (
	ClavePrecioEntrada  = "precio_entrada"
	ClaveLimiteEntradas = "limite_entradas"
)

// Configuracion is a key-value row. Last writer wins.
type Configuracion struct {
	Clave     string `gorm:"type:varchar(60);primaryKey"`
	Valor     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Configuracion) TableName() string { return "configuraciones" }
