package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/google/uuid"
)

type DashboardService interface {
	// DailySummary aggregates redemptions of the given local day, or of all
	// time when fecha is nil. Hoy is always today's count.
	DailySummary(ctx context.Context, fecha *time.Time) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	ingresos repository.IngresoRepository
	loc      *time.Location
	now      func() time.Time
}

func NewDashboardService(ingresos repository.IngresoRepository, loc *time.Location) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{ingresos: ingresos, loc: loc, now: time.Now}
}

func (s *dashboardService) dayRange(t time.Time) (time.Time, time.Time) {
	t = t.In(s.loc)
	desde := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	return desde, desde.AddDate(0, 0, 1)
}

type grupoCodigo struct {
	codigo    string
	nombre    string
	categoria string
	usos      int
	ultimo    time.Time
}

func (s *dashboardService) DailySummary(ctx context.Context, fecha *time.Time) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{
		PorCategoria: map[string]int{
			dto.BucketEstudiante: 0,
			dto.BucketFamiliar:   0,
			dto.BucketVisitante:  0,
			dto.BucketAdicional:  0,
		},
		Codigos: []dto.DashboardCodigo{},
	}

	var desde, hasta *time.Time
	if fecha != nil {
		d, h := s.dayRange(*fecha)
		desde, hasta = &d, &h
		f := d.Format("2006-01-02")
		resp.Fecha = &f
	}

	rows, err := s.ingresos.ListConCodigo(ctx, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	grupos := map[uuid.UUID]*grupoCodigo{}
	for _, row := range rows {
		g, seen := grupos[row.CodigoQRID]
		if !seen {
			g = &grupoCodigo{codigo: row.Codigo, nombre: nombreIngreso(row), categoria: row.Categoria}
			if row.EsVenta {
				g.categoria = dto.BucketAdicional
			}
			grupos[row.CodigoQRID] = g
		}
		resp.PorCategoria[bucket(row, !seen)]++
		resp.Total++
		g.usos++
		if row.Fecha.After(g.ultimo) {
			g.ultimo = row.Fecha
		}
	}

	lista := make([]*grupoCodigo, 0, len(grupos))
	for _, g := range grupos {
		lista = append(lista, g)
	}
	sort.SliceStable(lista, func(i, j int) bool {
		if lista[i].ultimo.Equal(lista[j].ultimo) {
			return lista[i].codigo < lista[j].codigo
		}
		return lista[i].ultimo.After(lista[j].ultimo)
	})
	for _, g := range lista {
		resp.Codigos = append(resp.Codigos, dto.DashboardCodigo{
			Codigo:        g.codigo,
			Nombre:        g.nombre,
			Categoria:     g.categoria,
			Usos:          g.usos,
			UltimoIngreso: g.ultimo.In(s.loc).Format(time.RFC3339),
		})
	}

	hd, hh := s.dayRange(s.now())
	if resp.Hoy, err = s.ingresos.Count(ctx, &hd, &hh); err != nil {
		return nil, fmt.Errorf("dashboard today: %w", err)
	}
	return resp, nil
}

// bucket assigns one redemption to a dashboard category. Sold codes are
// always adicional; the first scan of a student code counts as the student,
// later scans of the same code as accompanying family.
func bucket(row repository.IngresoRow, primero bool) string {
	if row.EsVenta {
		return dto.BucketAdicional
	}
	switch row.Categoria {
	case model.CategoriaEstudiante:
		if primero {
			return dto.BucketEstudiante
		}
		return dto.BucketFamiliar
	case model.CategoriaFamiliar:
		return dto.BucketFamiliar
	case model.CategoriaAdicional:
		return dto.BucketAdicional
	default:
		return dto.BucketVisitante
	}
}

func nombreIngreso(row repository.IngresoRow) string {
	var parts []string
	if row.Nombre != nil && *row.Nombre != "" {
		parts = append(parts, *row.Nombre)
	}
	if row.Apellido != nil && *row.Apellido != "" {
		parts = append(parts, *row.Apellido)
	}
	return strings.Join(parts, " ")
}
