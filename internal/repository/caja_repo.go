package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TotalesSesion aggregates the sales of one session.
type TotalesSesion struct {
	SesionCajaID uuid.UUID       `gorm:"column:sesion_caja_id"`
	Tickets      int64           `gorm:"column:tickets"`
	Recaudado    decimal.Decimal `gorm:"column:recaudado"`
}

type CajaRepository interface {
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionAbiertaPorOperador(ctx context.Context, operador string) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// CerrarSesion flips abierta=false only if the row is still open.
	// Returns ErrSesionCerrada when another close won.
	CerrarSesion(ctx context.Context, id uuid.UUID, operador string, cerradaEn time.Time) error
	ListSesionesAbiertas(ctx context.Context) ([]model.SesionCaja, error)
	ListSesionesCerradas(ctx context.Context, limit int) ([]model.SesionCaja, error)
	// DeleteSesionCerrada removes a closed session, its sales, and the codes
	// (plus their ingresos) that no other sale references.
	DeleteSesionCerrada(ctx context.Context, id uuid.UUID) error
	CreateVenta(ctx context.Context, v *model.VentaAdicional) error
	// CreateVentaConCodigo issues the code and records the sale under a row
	// lock on the session and on limite_entradas, so concurrent sales never
	// push the sold total past the configured limit.
	CreateVentaConCodigo(ctx context.Context, c *model.CodigoQR, v *model.VentaAdicional) error
	ListVentas(ctx context.Context, sesionCajaID uuid.UUID) ([]model.VentaAdicional, error)
	ListVentasRecientes(ctx context.Context, sesionCajaID uuid.UUID, limit int) ([]model.VentaAdicional, error)
	SumVentasPorSesion(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]TotalesSesion, error)
	TotalVendidas(ctx context.Context) (int64, error)
	MarcarEnviado(ctx context.Context, ventaID uuid.UUID) error
	// ListVentasSinEnviar returns sales with a destination email that was not
	// delivered yet and were created before the given instant.
	ListVentasSinEnviar(ctx context.Context, antes time.Time, limit int) ([]model.VentaAdicional, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaPorOperador(ctx context.Context, operador string) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Where("operador_apertura = ? AND abierta = ?", operador, true).First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Preload("Ventas", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Ventas.CodigoQR").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, id uuid.UUID, operador string, cerradaEn time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND abierta = ?", id, true).
		Updates(map[string]any{
			"abierta":         false,
			"operador_cierre": operador,
			"cerrada_en":      cerradaEn,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSesionCerrada
	}
	return nil
}

func (r *cajaRepo) ListSesionesAbiertas(ctx context.Context) ([]model.SesionCaja, error) {
	var sesiones []model.SesionCaja
	err := r.db.WithContext(ctx).Where("abierta = ?", true).Order("abierta_en ASC").Find(&sesiones).Error
	return sesiones, err
}

func (r *cajaRepo) ListSesionesCerradas(ctx context.Context, limit int) ([]model.SesionCaja, error) {
	var sesiones []model.SesionCaja
	err := r.db.WithContext(ctx).Where("abierta = ?", false).
		Order("cerrada_en DESC").
		Limit(limit).
		Find(&sesiones).Error
	return sesiones, err
}

func (r *cajaRepo) DeleteSesionCerrada(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.SesionCaja
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
			return err
		}
		if s.Abierta {
			return ErrSesionAbierta
		}

		var codigoIDs []uuid.UUID
		if err := tx.Model(&model.VentaAdicional{}).
			Where("sesion_caja_id = ?", id).
			Pluck("codigo_qr_id", &codigoIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("sesion_caja_id = ?", id).Delete(&model.VentaAdicional{}).Error; err != nil {
			return err
		}

		if len(codigoIDs) > 0 {
			var borrables []uuid.UUID
			if err := tx.Model(&model.CodigoQR{}).
				Where("id IN ?", codigoIDs).
				Where("id NOT IN (?)", tx.Model(&model.VentaAdicional{}).Select("codigo_qr_id")).
				Pluck("id", &borrables).Error; err != nil {
				return err
			}
			if len(borrables) > 0 {
				if err := tx.Where("codigo_qr_id IN ?", borrables).Delete(&model.Ingreso{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", borrables).Delete(&model.CodigoQR{}).Error; err != nil {
					return err
				}
			}
		}
		return tx.Delete(&model.SesionCaja{}, "id = ?", id).Error
	})
}

func lockSesionAbierta(tx *gorm.DB, id uuid.UUID) error {
	var s model.SesionCaja
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
		return err
	}
	if !s.Abierta {
		return ErrSesionCerrada
	}
	return nil
}

func (r *cajaRepo) CreateVenta(ctx context.Context, v *model.VentaAdicional) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSesionAbierta(tx, v.SesionCajaID); err != nil {
			return err
		}
		return tx.Omit("CodigoQR").Create(v).Error
	})
}

func (r *cajaRepo) CreateVentaConCodigo(ctx context.Context, c *model.CodigoQR, v *model.VentaAdicional) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSesionAbierta(tx, v.SesionCajaID); err != nil {
			return err
		}

		var limite int
		var cfg model.Configuracion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cfg, "clave = ?", model.ClaveLimiteEntradas).Error
		switch {
		case err == nil:
			limite, _ = strconv.Atoi(cfg.Valor)
		case !IsNotFound(err):
			return err
		}

		if limite > 0 {
			var vendidas int64
			if err := tx.Model(&model.VentaAdicional{}).
				Select("COALESCE(SUM(cantidad), 0)").
				Scan(&vendidas).Error; err != nil {
				return err
			}
			if vendidas+int64(v.Cantidad) > int64(limite) {
				return ErrLimiteExcedido
			}
		}

		if err := tx.Create(c).Error; err != nil {
			return err
		}
		v.CodigoQRID = c.ID
		return tx.Omit("CodigoQR").Create(v).Error
	})
}

func (r *cajaRepo) ListVentas(ctx context.Context, sesionCajaID uuid.UUID) ([]model.VentaAdicional, error) {
	var ventas []model.VentaAdicional
	err := r.db.WithContext(ctx).Preload("CodigoQR").
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *cajaRepo) ListVentasRecientes(ctx context.Context, sesionCajaID uuid.UUID, limit int) ([]model.VentaAdicional, error) {
	var ventas []model.VentaAdicional
	err := r.db.WithContext(ctx).Preload("CodigoQR").
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ventas).Error
	return ventas, err
}

func (r *cajaRepo) SumVentasPorSesion(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]TotalesSesion, error) {
	out := make(map[uuid.UUID]TotalesSesion, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []TotalesSesion
	err := r.db.WithContext(ctx).Model(&model.VentaAdicional{}).
		Select("sesion_caja_id, COALESCE(SUM(cantidad), 0) AS tickets, COALESCE(SUM(precio_unitario * cantidad), 0) AS recaudado").
		Where("sesion_caja_id IN ?", ids).
		Group("sesion_caja_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SesionCajaID] = row
	}
	return out, nil
}

func (r *cajaRepo) TotalVendidas(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.VentaAdicional{}).
		Select("COALESCE(SUM(cantidad), 0)").
		Scan(&n).Error
	return n, err
}

func (r *cajaRepo) MarcarEnviado(ctx context.Context, ventaID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.VentaAdicional{}).
		Where("id = ?", ventaID).
		UpdateColumn("enviado_email", true).Error
}

func (r *cajaRepo) ListVentasSinEnviar(ctx context.Context, antes time.Time, limit int) ([]model.VentaAdicional, error) {
	var ventas []model.VentaAdicional
	err := r.db.WithContext(ctx).Preload("CodigoQR").
		Where("enviado_email = ? AND email_destino IS NOT NULL AND email_destino <> '' AND created_at < ?", false, antes).
		Order("created_at ASC").
		Limit(limit).
		Find(&ventas).Error
	return ventas, err
}
