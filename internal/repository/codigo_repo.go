package repository

import (
	"context"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CodigoRepository interface {
	Create(ctx context.Context, c *model.CodigoQR) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CodigoQR, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.CodigoQR, error)
	ListByPersona(ctx context.Context, personaID uuid.UUID) ([]model.CodigoQR, error)
	FindByPersonaCategoria(ctx context.Context, personaID uuid.UUID, categoria string) (*model.CodigoQR, error)
	// RegistrarIngreso increments usos only while usos < max_usos and appends
	// the Ingreso in the same transaction. Returns ErrSinUsos when the
	// conditional update matched no row.
	RegistrarIngreso(ctx context.Context, id uuid.UUID, fecha time.Time) (*model.CodigoQR, error)
	// UpdateMaxUsos sets max_usos only while usos <= maxUsos; ErrUsosInvalidos otherwise.
	UpdateMaxUsos(ctx context.Context, id uuid.UUID, maxUsos int) error
}

type codigoRepo struct{ db *gorm.DB }

func NewCodigoRepository(db *gorm.DB) CodigoRepository { return &codigoRepo{db: db} }

func (r *codigoRepo) Create(ctx context.Context, c *model.CodigoQR) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *codigoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CodigoQR, error) {
	var c model.CodigoQR
	err := r.db.WithContext(ctx).Preload("Persona").First(&c, "id = ?", id).Error
	return &c, err
}

func (r *codigoRepo) FindByCodigo(ctx context.Context, codigo string) (*model.CodigoQR, error) {
	var c model.CodigoQR
	err := r.db.WithContext(ctx).Preload("Persona").Where("codigo = ?", codigo).First(&c).Error
	return &c, err
}

func (r *codigoRepo) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]model.CodigoQR, error) {
	var codigos []model.CodigoQR
	err := r.db.WithContext(ctx).Where("persona_id = ?", personaID).Order("created_at ASC").Find(&codigos).Error
	return codigos, err
}

func (r *codigoRepo) FindByPersonaCategoria(ctx context.Context, personaID uuid.UUID, categoria string) (*model.CodigoQR, error) {
	var c model.CodigoQR
	err := r.db.WithContext(ctx).
		Where("persona_id = ? AND categoria = ?", personaID, categoria).
		Order("created_at ASC").
		First(&c).Error
	return &c, err
}

func (r *codigoRepo) RegistrarIngreso(ctx context.Context, id uuid.UUID, fecha time.Time) (*model.CodigoQR, error) {
	var out model.CodigoQR
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CodigoQR{}).
			Where("id = ? AND usos < max_usos", id).
			UpdateColumn("usos", gorm.Expr("usos + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSinUsos
		}
		if err := tx.Create(&model.Ingreso{CodigoQRID: id, Fecha: fecha}).Error; err != nil {
			return err
		}
		return tx.Preload("Persona").First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *codigoRepo) UpdateMaxUsos(ctx context.Context, id uuid.UUID, maxUsos int) error {
	res := r.db.WithContext(ctx).Model(&model.CodigoQR{}).
		Where("id = ? AND usos <= ?", id, maxUsos).
		UpdateColumn("max_usos", maxUsos)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUsosInvalidos
	}
	return nil
}
