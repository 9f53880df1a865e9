package repository

import (
	"context"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfiguracionRepository interface {
	Get(ctx context.Context, clave string) (*model.Configuracion, error)
	Set(ctx context.Context, clave, valor string) error
	// EnsureDefaults inserts the given keys only where they do not exist yet.
	EnsureDefaults(ctx context.Context, defaults map[string]string) error
}

type configuracionRepo struct{ db *gorm.DB }

func NewConfiguracionRepository(db *gorm.DB) ConfiguracionRepository {
	return &configuracionRepo{db: db}
}

func (r *configuracionRepo) Get(ctx context.Context, clave string) (*model.Configuracion, error) {
	var c model.Configuracion
	err := r.db.WithContext(ctx).First(&c, "clave = ?", clave).Error
	return &c, err
}

func (r *configuracionRepo) Set(ctx context.Context, clave, valor string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clave"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at"}),
	}).Create(&model.Configuracion{Clave: clave, Valor: valor}).Error
}

func (r *configuracionRepo) EnsureDefaults(ctx context.Context, defaults map[string]string) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]model.Configuracion, 0, len(defaults))
	for k, v := range defaults {
		rows = append(rows, model.Configuracion{Clave: k, Valor: v})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
