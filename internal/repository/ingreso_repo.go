package repository

import (
	"context"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngresoRow is one redemption joined with its code and owner.
// EsVenta is true when the code was sold through a caja session.
type IngresoRow struct {
	CodigoQRID uuid.UUID `gorm:"column:codigo_qr_id"`
	Fecha      time.Time `gorm:"column:fecha"`
	Codigo     string    `gorm:"column:codigo"`
	Categoria  string    `gorm:"column:categoria"`
	Nombre     *string   `gorm:"column:nombre"`
	Apellido   *string   `gorm:"column:apellido"`
	EsVenta    bool      `gorm:"column:es_venta"`
}

type IngresoRepository interface {
	// ListConCodigo returns redemptions in [desde, hasta) ordered by fecha ASC.
	// Nil bounds are open.
	ListConCodigo(ctx context.Context, desde, hasta *time.Time) ([]IngresoRow, error)
	Count(ctx context.Context, desde, hasta *time.Time) (int64, error)
}

type ingresoRepo struct{ db *gorm.DB }

func NewIngresoRepository(db *gorm.DB) IngresoRepository { return &ingresoRepo{db: db} }

func (r *ingresoRepo) ListConCodigo(ctx context.Context, desde, hasta *time.Time) ([]IngresoRow, error) {
	var rows []IngresoRow
	q := r.db.WithContext(ctx).Table("ingresos AS i").
		Select(`i.codigo_qr_id, i.fecha, c.codigo, c.categoria, p.nombre, p.apellido,
			EXISTS (SELECT 1 FROM ventas_adicionales v WHERE v.codigo_qr_id = i.codigo_qr_id) AS es_venta`).
		Joins("JOIN codigos_qr c ON c.id = i.codigo_qr_id").
		Joins("LEFT JOIN personas p ON p.id = c.persona_id")
	if desde != nil {
		q = q.Where("i.fecha >= ?", *desde)
	}
	if hasta != nil {
		q = q.Where("i.fecha < ?", *hasta)
	}
	err := q.Order("i.fecha ASC").Scan(&rows).Error
	return rows, err
}

func (r *ingresoRepo) Count(ctx context.Context, desde, hasta *time.Time) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Ingreso{})
	if desde != nil {
		q = q.Where("fecha >= ?", *desde)
	}
	if hasta != nil {
		q = q.Where("fecha < ?", *hasta)
	}
	err := q.Count(&n).Error
	return n, err
}
