package repository

import (
	"context"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportacionRepository interface {
	Create(ctx context.Context, i *model.Importacion) error
	Update(ctx context.Context, i *model.Importacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Importacion, error)
}

type importacionRepo struct{ db *gorm.DB }

func NewImportacionRepository(db *gorm.DB) ImportacionRepository { return &importacionRepo{db: db} }

func (r *importacionRepo) Create(ctx context.Context, i *model.Importacion) error {
	return r.db.WithContext(ctx).Create(i).Error
}

func (r *importacionRepo) Update(ctx context.Context, i *model.Importacion) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *importacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Importacion, error) {
	var i model.Importacion
	err := r.db.WithContext(ctx).First(&i, "id = ?", id).Error
	return &i, err
}
