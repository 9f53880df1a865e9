package repository

import (
	"context"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PersonaRepository interface {
	Create(ctx context.Context, p *model.Persona) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Persona, error)
	FindByCedula(ctx context.Context, cedula string) (*model.Persona, error)
	Update(ctx context.Context, p *model.Persona) error
}

type personaRepo struct{ db *gorm.DB }

func NewPersonaRepository(db *gorm.DB) PersonaRepository { return &personaRepo{db: db} }

func (r *personaRepo) Create(ctx context.Context, p *model.Persona) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *personaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Persona, error) {
	var p model.Persona
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *personaRepo) FindByCedula(ctx context.Context, cedula string) (*model.Persona, error) {
	var p model.Persona
	err := r.db.WithContext(ctx).Where("cedula = ?", cedula).First(&p).Error
	return &p, err
}

func (r *personaRepo) Update(ctx context.Context, p *model.Persona) error {
	return r.db.WithContext(ctx).Omit("Codigos").Save(p).Error
}
