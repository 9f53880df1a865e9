package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ConfiguracionService reads and writes the key-value business settings.
// Last writer wins; there is no cache.
type ConfiguracionService interface {
	// Init inserts the defaults that are missing. Called once at startup.
	Init(ctx context.Context) error
	GetDecimal(ctx context.Context, clave string, def decimal.Decimal) (decimal.Decimal, error)
	GetInt(ctx context.Context, clave string, def int) (int, error)
	Set(ctx context.Context, clave, valor string) error
}

type configuracionService struct {
	repo     repository.ConfiguracionRepository
	defaults map[string]string
}

func NewConfiguracionService(repo repository.ConfiguracionRepository, defaults map[string]string) ConfiguracionService {
	return &configuracionService{repo: repo, defaults: defaults}
}

func (s *configuracionService) Init(ctx context.Context) error {
	if err := s.repo.EnsureDefaults(ctx, s.defaults); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	return nil
}

func (s *configuracionService) get(ctx context.Context, clave string) (string, bool, error) {
	c, err := s.repo.Get(ctx, clave)
	if repository.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config %s: %w", clave, err)
	}
	return c.Valor, true, nil
}

func (s *configuracionService) GetDecimal(ctx context.Context, clave string, def decimal.Decimal) (decimal.Decimal, error) {
	v, ok, err := s.get(ctx, clave)
	if err != nil || !ok {
		return def, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Warn().Str("clave", clave).Str("valor", v).Msg("config: not a decimal, using default")
		return def, nil
	}
	return d, nil
}

func (s *configuracionService) GetInt(ctx context.Context, clave string, def int) (int, error) {
	v, ok, err := s.get(ctx, clave)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("clave", clave).Str("valor", v).Msg("config: not an integer, using default")
		return def, nil
	}
	return n, nil
}

func (s *configuracionService) Set(ctx context.Context, clave, valor string) error {
	if err := s.repo.Set(ctx, clave, valor); err != nil {
		return fmt.Errorf("config %s: %w", clave, err)
	}
	return nil
}
