package service

import (
	"context"
	"fmt"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// LimpiezaService reports storage usage and runs the two destructive purges.
// Each purge is authorized by its own bcrypt-hashed confirmation phrase; an
// empty hash disables that purge.
type LimpiezaService interface {
	Estado(ctx context.Context) (*dto.LimpiezaEstadoResponse, error)
	PurgeData(ctx context.Context, confirmacion string) (*dto.PurgeResponse, error)
	PurgeFiles(ctx context.Context, confirmacion string) (*dto.PurgeResponse, error)
}

type limpiezaService struct {
	repo      repository.LimpiezaRepository
	dirs      []string
	dataHash  string
	filesHash string
}

func NewLimpiezaService(repo repository.LimpiezaRepository, dirs []string, dataHash, filesHash string) LimpiezaService {
	return &limpiezaService{repo: repo, dirs: dirs, dataHash: dataHash, filesHash: filesHash}
}

func (s *limpiezaService) Estado(ctx context.Context) (*dto.LimpiezaEstadoResponse, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("limpieza counts: %w", err)
	}
	resp := &dto.LimpiezaEstadoResponse{Registros: counts, Directorios: make([]dto.DirectorioEstado, 0, len(s.dirs))}
	for _, d := range s.dirs {
		st, err := infra.DirStats(d)
		if err != nil {
			log.Warn().Err(err).Str("dir", d).Msg("limpieza: stat failed")
		}
		resp.Directorios = append(resp.Directorios, st)
	}
	return resp, nil
}

func checkPhrase(hash, phrase string) error {
	if hash == "" {
		return apierror.Unauthorized("Operación deshabilitada: no hay frase de confirmación configurada")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(phrase)) != nil {
		return apierror.Unauthorized("Frase de confirmación incorrecta")
	}
	return nil
}

func (s *limpiezaService) PurgeData(ctx context.Context, confirmacion string) (*dto.PurgeResponse, error) {
	if err := checkPhrase(s.dataHash, confirmacion); err != nil {
		return nil, err
	}
	borrados, err := s.repo.PurgeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("purge data: %w", err)
	}
	log.Warn().Interface("borrados", borrados).Msg("limpieza: datos eliminados")
	return &dto.PurgeResponse{Success: true, Borrados: borrados}, nil
}

func (s *limpiezaService) PurgeFiles(ctx context.Context, confirmacion string) (*dto.PurgeResponse, error) {
	if err := checkPhrase(s.filesHash, confirmacion); err != nil {
		return nil, err
	}
	borrados := make(map[string]int64, len(s.dirs))
	for _, d := range s.dirs {
		n, err := infra.EmptyDir(d)
		borrados[d] = int64(n)
		if err != nil {
			return nil, fmt.Errorf("purge %s: %w", d, err)
		}
	}
	log.Warn().Interface("borrados", borrados).Msg("limpieza: archivos eliminados")
	return &dto.PurgeResponse{Success: true, Borrados: borrados}, nil
}
