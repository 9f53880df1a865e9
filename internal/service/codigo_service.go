package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var prefijos = map[string]string{
	model.CategoriaEstudiante: "EST",
	model.CategoriaFamiliar:   "FAM",
	model.CategoriaVisitante:  "VIS",
	model.CategoriaAdicional:  "ADI",
}

// IssueParams describes a code to issue. Owner is printed in the code
// (usually the cédula); empty means "anon".
type IssueParams struct {
	Categoria string
	MaxUsos   int
	PersonaID *uuid.UUID
	Owner     string
}

type CodigoService interface {
	Issue(ctx context.Context, p IssueParams) (*model.CodigoQR, error)
	SetUsageCap(ctx context.Context, id uuid.UUID, maxUsos int) (*dto.CodigoResponse, error)
	GenerarQR(ctx context.Context, req dto.GenerarQRRequest) (*dto.GenerarQRResponse, error)
	BuscarPorCedula(ctx context.Context, cedula string) (*dto.PersonaCodigosResponse, error)
	ReenviarQR(ctx context.Context, codigoID uuid.UUID) error
}

type codigoService struct {
	codigos    repository.CodigoRepository
	personas   repository.PersonaRepository
	renderer   QRRenderer
	dispatcher Dispatcher
}

func NewCodigoService(
	codigos repository.CodigoRepository,
	personas repository.PersonaRepository,
	renderer QRRenderer,
	dispatcher Dispatcher,
) CodigoService {
	return &codigoService{codigos: codigos, personas: personas, renderer: renderer, dispatcher: dispatcher}
}

// ── Issue ─────────────────────────────────────────────────────────────────────

func (s *codigoService) Issue(ctx context.Context, p IssueParams) (*model.CodigoQR, error) {
	if p.MaxUsos <= 0 {
		return nil, apierror.InvalidCap("max_usos debe ser mayor que cero")
	}
	prefijo, ok := prefijos[p.Categoria]
	if !ok {
		return nil, apierror.Validation(fmt.Sprintf("categoría desconocida: %s", p.Categoria))
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		c := &model.CodigoQR{
			Codigo:    generarCodigo(prefijo, p.Owner),
			Categoria: p.Categoria,
			MaxUsos:   p.MaxUsos,
			PersonaID: p.PersonaID,
		}
		if err = s.codigos.Create(ctx, c); err == nil {
			return c, nil
		}
		if !repository.IsUniqueViolation(err) {
			break
		}
	}
	return nil, fmt.Errorf("issue code: %w", err)
}

// generarCodigo builds PREFIX-owner-<base36 unix nano><4 hex>.
func generarCodigo(prefijo, owner string) string {
	owner = sanitizeOwner(owner)
	if owner == "" {
		owner = "anon"
	}
	var b [2]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s-%s-%s%s", prefijo, owner, strconv.FormatInt(time.Now().UnixNano(), 36), hex.EncodeToString(b[:]))
}

func sanitizeOwner(s string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
		if sb.Len() >= 20 {
			break
		}
	}
	return sb.String()
}

// ── SetUsageCap ───────────────────────────────────────────────────────────────

func (s *codigoService) SetUsageCap(ctx context.Context, id uuid.UUID, maxUsos int) (*dto.CodigoResponse, error) {
	if maxUsos <= 0 {
		return nil, apierror.InvalidCap("max_usos debe ser mayor que cero")
	}
	c, err := s.codigos.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apierror.NotFound("Código no encontrado")
	}
	if err != nil {
		return nil, err
	}

	if err := s.codigos.UpdateMaxUsos(ctx, id, maxUsos); err != nil {
		if errors.Is(err, repository.ErrUsosInvalidos) {
			return nil, apierror.InvalidCap(fmt.Sprintf("max_usos no puede ser menor que los usos registrados (%d)", c.Usos))
		}
		return nil, err
	}

	c, err = s.codigos.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := codigoToResponse(c)
	return &resp, nil
}

// ── GenerarQR ─────────────────────────────────────────────────────────────────

func (s *codigoService) GenerarQR(ctx context.Context, req dto.GenerarQRRequest) (*dto.GenerarQRResponse, error) {
	if req.EsEstudiante {
		return s.generarEstudiante(ctx, req)
	}

	c, err := s.Issue(ctx, IssueParams{Categoria: model.CategoriaVisitante, MaxUsos: req.MaxUsos})
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.Render(c.Codigo, c.Codigo)
	if err != nil {
		return nil, fmt.Errorf("render QR: %w", err)
	}
	return &dto.GenerarQRResponse{
		Success: true,
		Mensaje: "Código de visitante generado",
		Codigo:  c.Codigo,
		Imagen:  infra.DataURL(png),
	}, nil
}

func (s *codigoService) generarEstudiante(ctx context.Context, req dto.GenerarQRRequest) (*dto.GenerarQRResponse, error) {
	cedula := strings.TrimSpace(req.Cedula)
	if cedula == "" {
		return nil, apierror.Validation("La cédula es obligatoria para estudiantes")
	}
	if req.MaxUsos <= 0 {
		return nil, apierror.InvalidCap("max_usos debe ser mayor que cero")
	}
	email := trimPtr(req.Email)

	persona, err := s.personas.FindByCedula(ctx, cedula)
	switch {
	case repository.IsNotFound(err):
		nombre := strings.TrimSpace(req.Nombre)
		if nombre == "" {
			return nil, apierror.Validation("El nombre es obligatorio para registrar un estudiante nuevo")
		}
		persona = &model.Persona{
			Nombre:    nombre,
			Apellido:  trimPtr(&req.Apellido),
			Cedula:    &cedula,
			Email:     email,
			Categoria: model.CategoriaEstudiante,
			Activo:    true,
		}
		if err := s.personas.Create(ctx, persona); err != nil {
			return nil, fmt.Errorf("create persona: %w", err)
		}
	case err != nil:
		return nil, err
	case email != nil && (persona.Email == nil || *persona.Email != *email):
		persona.Email = email
		if err := s.personas.Update(ctx, persona); err != nil {
			return nil, fmt.Errorf("update persona: %w", err)
		}
	}

	c, err := s.Issue(ctx, IssueParams{
		Categoria: model.CategoriaEstudiante,
		MaxUsos:   req.MaxUsos,
		PersonaID: &persona.ID,
		Owner:     cedula,
	})
	if err != nil {
		return nil, err
	}

	mensaje := "Código de estudiante generado"
	if persona.Email != nil {
		if s.enqueueEmail(ctx, c.Codigo, *persona.Email, persona.NombreCompleto()) {
			mensaje = fmt.Sprintf("Código de estudiante generado y enviado a %s", *persona.Email)
		}
	}
	return &dto.GenerarQRResponse{Success: true, Mensaje: mensaje, Codigo: c.Codigo}, nil
}

// enqueueEmail is best-effort: the code stays issued when the queue is down.
func (s *codigoService) enqueueEmail(ctx context.Context, codigo, email, nombre string) bool {
	if s.dispatcher == nil {
		return false
	}
	err := s.dispatcher.EnqueueQREmail(ctx, dto.QREmailJob{Codigo: codigo, Email: email, Nombre: nombre})
	if err != nil {
		log.Warn().Err(err).Str("codigo", codigo).Msg("codigo_service: could not enqueue QR email")
		return false
	}
	return true
}

// ── Gestión ───────────────────────────────────────────────────────────────────

func (s *codigoService) BuscarPorCedula(ctx context.Context, cedula string) (*dto.PersonaCodigosResponse, error) {
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return nil, apierror.Validation("La cédula es obligatoria")
	}
	p, err := s.personas.FindByCedula(ctx, cedula)
	if repository.IsNotFound(err) {
		return nil, apierror.NotFound("No existe una persona con esa cédula")
	}
	if err != nil {
		return nil, err
	}
	codigos, err := s.codigos.ListByPersona(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.PersonaCodigosResponse{
		Persona: dto.PersonaResponse{
			ID:        p.ID.String(),
			Nombre:    p.Nombre,
			Apellido:  p.Apellido,
			Cedula:    p.Cedula,
			Email:     p.Email,
			Categoria: p.Categoria,
			Activo:    p.Activo,
		},
		Codigos: make([]dto.CodigoResponse, 0, len(codigos)),
	}
	for i := range codigos {
		resp.Codigos = append(resp.Codigos, codigoToResponse(&codigos[i]))
	}
	return resp, nil
}

func (s *codigoService) ReenviarQR(ctx context.Context, codigoID uuid.UUID) error {
	c, err := s.codigos.FindByID(ctx, codigoID)
	if repository.IsNotFound(err) {
		return apierror.NotFound("Código no encontrado")
	}
	if err != nil {
		return err
	}
	if c.Persona == nil || c.Persona.Email == nil || *c.Persona.Email == "" {
		return apierror.Validation("El código no tiene un correo asociado")
	}
	if s.dispatcher == nil {
		return apierror.ExternalService("La cola de correos no está disponible", nil)
	}
	job := dto.QREmailJob{Codigo: c.Codigo, Email: *c.Persona.Email, Nombre: c.Persona.NombreCompleto()}
	if err := s.dispatcher.EnqueueQREmail(ctx, job); err != nil {
		return apierror.ExternalService("No se pudo encolar el correo", err)
	}
	return nil
}

func codigoToResponse(c *model.CodigoQR) dto.CodigoResponse {
	return dto.CodigoResponse{
		ID:        c.ID.String(),
		Codigo:    c.Codigo,
		Categoria: c.Categoria,
		Usos:      c.Usos,
		MaxUsos:   c.MaxUsos,
		Restantes: c.Restantes(),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
