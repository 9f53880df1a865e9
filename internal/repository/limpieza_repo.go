package repository

import (
	"context"

	"gorm.io/gorm"
)

// PurgeTables lists every domain table in foreign-key safe deletion order.
var PurgeTables = []string{
	"ingresos",
	"ventas_adicionales",
	"codigos_qr",
	"personas",
	"sesiones_caja",
	"importaciones",
}

type LimpiezaRepository interface {
	Counts(ctx context.Context) (map[string]int64, error)
	// PurgeAll empties PurgeTables in one transaction and returns the rows
	// deleted per table. Configuration rows are kept.
	PurgeAll(ctx context.Context) (map[string]int64, error)
}

type limpiezaRepo struct{ db *gorm.DB }

func NewLimpiezaRepository(db *gorm.DB) LimpiezaRepository { return &limpiezaRepo{db: db} }

func (r *limpiezaRepo) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(PurgeTables))
	for _, t := range PurgeTables {
		var n int64
		if err := r.db.WithContext(ctx).Table(t).Count(&n).Error; err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, nil
}

func (r *limpiezaRepo) PurgeAll(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(PurgeTables))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range PurgeTables {
			res := tx.Exec("DELETE FROM " + t)
			if res.Error != nil {
				return res.Error
			}
			out[t] = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
