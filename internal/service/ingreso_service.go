package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/rs/zerolog/log"
)

// IngresoService admits people at the gate.
type IngresoService interface {
	// Redeem consumes one use of the code. Fails with not_found for unknown
	// codes and exhausted once usos reached max_usos; failures leave no trace.
	Redeem(ctx context.Context, codigo string) (*dto.IngresoResponse, error)
}

type ingresoService struct {
	codigos repository.CodigoRepository
	now     func() time.Time
}

func NewIngresoService(codigos repository.CodigoRepository) IngresoService {
	return &ingresoService{codigos: codigos, now: time.Now}
}

func (s *ingresoService) Redeem(ctx context.Context, codigo string) (*dto.IngresoResponse, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return nil, apierror.Validation("El código es obligatorio")
	}

	c, err := s.codigos.FindByCodigo(ctx, codigo)
	if repository.IsNotFound(err) {
		return nil, apierror.NotFound("Código QR no válido")
	}
	if err != nil {
		return nil, fmt.Errorf("find code: %w", err)
	}
	if c.Usos >= c.MaxUsos {
		return nil, apierror.Exhausted("El código ya no tiene usos disponibles")
	}

	// RegistrarIngreso re-checks usos < max_usos atomically
	c, err = s.codigos.RegistrarIngreso(ctx, c.ID, s.now())
	if errors.Is(err, repository.ErrSinUsos) {
		return nil, apierror.Exhausted("El código ya no tiene usos disponibles")
	}
	if err != nil {
		return nil, fmt.Errorf("register entry: %w", err)
	}

	restantes := c.Restantes()
	msg := fmt.Sprintf("Ingreso registrado. Quedan %d de %d usos", restantes, c.MaxUsos)
	if restantes == 0 {
		msg = "Ingreso registrado. No quedan usos disponibles"
	}
	resp := &dto.IngresoResponse{
		Success:   true,
		Message:   msg,
		Codigo:    c.Codigo,
		Categoria: c.Categoria,
		Usos:      c.Usos,
		MaxUsos:   c.MaxUsos,
		Restantes: restantes,
	}
	if c.Persona != nil {
		resp.Nombre = c.Persona.NombreCompleto()
	}
	log.Info().Str("codigo", c.Codigo).Int("usos", c.Usos).Int("max_usos", c.MaxUsos).Msg("ingreso registrado")
	return resp, nil
}
