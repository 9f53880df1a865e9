package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SesionCaja is an operator's cash register period for walk-in ticket sales.
// At most one open session exists per OperadorApertura (partial unique index
// idx_sesiones_caja_abierta_operador). Once closed the row is immutable;
// totals are always derived from its Ventas.
type SesionCaja struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Abierta          bool      `gorm:"not null;default:true;index"`
	OperadorApertura string    `gorm:"type:varchar(200);not null;index"`
	AbiertaEn        time.Time `gorm:"not null"`
	OperadorCierre   *string   `gorm:"type:varchar(200)"`
	CerradaEn        *time.Time

	Ventas []VentaAdicional `gorm:"foreignKey:SesionCajaID;constraint:OnDelete:CASCADE"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

func (s *SesionCaja) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// VentaAdicional is one walk-in ticket sale. Created only while its session is
// open; afterwards only EnviadoEmail changes.
type VentaAdicional struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CodigoQRID     uuid.UUID       `gorm:"column:codigo_qr_id;type:uuid;index;not null"`
	SesionCajaID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cantidad       int             `gorm:"not null"`
	EmailDestino   *string
	EnviadoEmail   bool `gorm:"not null;default:false"`
	CreatedAt      time.Time

	CodigoQR *CodigoQR `gorm:"foreignKey:CodigoQRID"`
}

func (VentaAdicional) TableName() string { return "ventas_adicionales" }

func (v *VentaAdicional) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Total is PrecioUnitario * Cantidad.
func (v *VentaAdicional) Total() decimal.Decimal {
	return v.PrecioUnitario.Mul(decimal.NewFromInt(int64(v.Cantidad)))
}
