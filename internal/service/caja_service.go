package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultClosuresLimit = 20
	maxClosuresLimit     = 100
	overviewVentas       = 20
	overviewCierres      = 10
)

// DefaultPrecio applies when precio_entrada is missing.
var DefaultPrecio = decimal.NewFromInt(5)

type RecordSaleParams struct {
	SesionID uuid.UUID
	CodigoID uuid.UUID
	Precio   decimal.Decimal
	Cantidad int
	Email    *string
}

type GenerateSaleParams struct {
	Cantidad int
	Email    *string
}

// CajaService manages walk-in ticket sales. Each operator owns at most one
// open session; sales are only recorded against open sessions.
type CajaService interface {
	Open(ctx context.Context, operador string) (*dto.SesionCajaResponse, error)
	RecordSale(ctx context.Context, p RecordSaleParams) (*dto.VentaResponse, error)
	GenerateSale(ctx context.Context, operador string, p GenerateSaleParams) (*dto.VentaGeneradaResponse, error)
	// CurrentSession returns the operator's open session (session_not_open if none).
	CurrentSession(ctx context.Context, operador string) (*dto.SesionCajaResponse, error)
	Close(ctx context.Context, sesionID uuid.UUID, operador string) (*dto.ClosureSummary, error)
	ForceClose(ctx context.Context, sesionID uuid.UUID, operador string) (*dto.ClosureSummary, error)
	ListOpen(ctx context.Context) ([]dto.SesionCajaResponse, error)
	ListClosed(ctx context.Context, limit int) ([]dto.SesionCajaResponse, error)
	Detail(ctx context.Context, id uuid.UUID) (*dto.SesionDetalleResponse, error)
	DeleteClosed(ctx context.Context, id uuid.UUID) error
	Overview(ctx context.Context, operador string, verTodas bool) (*dto.CajaOverviewResponse, error)
	UpdatePrice(ctx context.Context, precio decimal.Decimal) error
	UpdateLimit(ctx context.Context, limite int) error
}

type cajaService struct {
	repo       repository.CajaRepository
	config     ConfiguracionService
	renderer   QRRenderer
	dispatcher Dispatcher
	now        func() time.Time
}

func NewCajaService(
	repo repository.CajaRepository,
	config ConfiguracionService,
	renderer QRRenderer,
	dispatcher Dispatcher,
) CajaService {
	return &cajaService{repo: repo, config: config, renderer: renderer, dispatcher: dispatcher, now: time.Now}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *cajaService) Open(ctx context.Context, operador string) (*dto.SesionCajaResponse, error) {
	if operador == "" {
		return nil, apierror.Validation("operador requerido")
	}
	_, err := s.repo.FindSesionAbiertaPorOperador(ctx, operador)
	if err == nil {
		return nil, apierror.AlreadyOpen("Ya tienes una sesión de caja abierta")
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	sesion := &model.SesionCaja{Abierta: true, OperadorApertura: operador, AbiertaEn: s.now()}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		// lost a race against a concurrent open: the partial unique index fired
		if repository.IsUniqueViolation(err) {
			return nil, apierror.AlreadyOpen("Ya tienes una sesión de caja abierta")
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	log.Info().Str("sesion_id", sesion.ID.String()).Str("operador", operador).Msg("caja abierta")
	resp := sesionToResponse(sesion, repository.TotalesSesion{})
	return &resp, nil
}

func (s *cajaService) CurrentSession(ctx context.Context, operador string) (*dto.SesionCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorOperador(ctx, operador)
	if repository.IsNotFound(err) {
		return nil, apierror.SessionNotOpen("No tienes una sesión de caja abierta")
	}
	if err != nil {
		return nil, err
	}
	totales, err := s.repo.SumVentasPorSesion(ctx, []uuid.UUID{sesion.ID})
	if err != nil {
		return nil, err
	}
	resp := sesionToResponse(sesion, totales[sesion.ID])
	return &resp, nil
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func validarVenta(cantidad int, precio decimal.Decimal, email *string) error {
	if cantidad <= 0 {
		return apierror.Validation("La cantidad debe ser mayor que cero")
	}
	if precio.IsNegative() {
		return apierror.Validation("El precio no puede ser negativo")
	}
	if email != nil && !validEmail(*email) {
		return apierror.Validation("formato de email inválido")
	}
	return nil
}

func (s *cajaService) RecordSale(ctx context.Context, p RecordSaleParams) (*dto.VentaResponse, error) {
	email := trimPtr(p.Email)
	if err := validarVenta(p.Cantidad, p.Precio, email); err != nil {
		return nil, err
	}
	v := &model.VentaAdicional{
		CodigoQRID:     p.CodigoID,
		SesionCajaID:   p.SesionID,
		PrecioUnitario: p.Precio,
		Cantidad:       p.Cantidad,
		EmailDestino:   email,
	}
	if err := s.repo.CreateVenta(ctx, v); err != nil {
		switch {
		case errors.Is(err, repository.ErrSesionCerrada):
			return nil, apierror.SessionNotOpen("La sesión de caja no está abierta")
		case repository.IsNotFound(err):
			return nil, apierror.NotFound("Sesión de caja no encontrada")
		}
		return nil, fmt.Errorf("record sale: %w", err)
	}
	resp := ventaToResponse(v)
	return &resp, nil
}

func (s *cajaService) GenerateSale(ctx context.Context, operador string, p GenerateSaleParams) (*dto.VentaGeneradaResponse, error) {
	email := trimPtr(p.Email)
	sesion, err := s.repo.FindSesionAbiertaPorOperador(ctx, operador)
	if repository.IsNotFound(err) {
		return nil, apierror.SessionNotOpen("No tienes una sesión de caja abierta")
	}
	if err != nil {
		return nil, err
	}

	precio, err := s.config.GetDecimal(ctx, model.ClavePrecioEntrada, DefaultPrecio)
	if err != nil {
		return nil, err
	}
	if err := validarVenta(p.Cantidad, precio, email); err != nil {
		return nil, err
	}

	var (
		codigo *model.CodigoQR
		venta  *model.VentaAdicional
	)
	for attempt := 0; attempt < 2; attempt++ {
		codigo = &model.CodigoQR{
			Codigo:    generarCodigo(prefijos[model.CategoriaAdicional], ""),
			Categoria: model.CategoriaAdicional,
			MaxUsos:   p.Cantidad,
		}
		venta = &model.VentaAdicional{
			SesionCajaID:   sesion.ID,
			PrecioUnitario: precio,
			Cantidad:       p.Cantidad,
			EmailDestino:   email,
		}
		err = s.repo.CreateVentaConCodigo(ctx, codigo, venta)
		if err == nil || !repository.IsUniqueViolation(err) {
			break
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrLimiteExcedido):
		limite, _ := s.config.GetInt(ctx, model.ClaveLimiteEntradas, 0)
		return nil, apierror.LimitExceeded(fmt.Sprintf("La venta supera el límite global de %d entradas", limite))
	case errors.Is(err, repository.ErrSesionCerrada):
		return nil, apierror.SessionNotOpen("La sesión de caja no está abierta")
	default:
		return nil, fmt.Errorf("generate sale: %w", err)
	}
	venta.CodigoQR = codigo

	if email != nil && s.dispatcher != nil {
		job := dto.QREmailJob{Codigo: codigo.Codigo, Email: *email, VentaID: venta.ID.String()}
		if err := s.dispatcher.EnqueueQREmail(ctx, job); err != nil {
			log.Warn().Err(err).Str("venta_id", venta.ID.String()).Msg("caja_service: could not enqueue QR email")
		}
	}

	resp := &dto.VentaGeneradaResponse{Venta: ventaToResponse(venta), Codigo: codigo.Codigo}
	png, err := s.renderer.Render(codigo.Codigo, codigo.Codigo)
	if err != nil {
		log.Error().Err(err).Str("codigo", codigo.Codigo).Msg("caja_service: render QR failed")
	} else {
		resp.Imagen = infra.DataURL(png)
	}
	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Int("cantidad", p.Cantidad).
		Str("total", venta.Total().StringFixed(2)).
		Msg("venta adicional registrada")
	return resp, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Close(ctx context.Context, sesionID uuid.UUID, operador string) (*dto.ClosureSummary, error) {
	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if !sesion.Abierta {
		return nil, apierror.SessionNotOpen("La sesión de caja ya está cerrada")
	}
	if sesion.OperadorApertura != operador {
		return nil, apierror.Unauthorized("Solo quien abrió la sesión puede cerrarla")
	}
	return s.cerrar(ctx, sesion, operador, false)
}

func (s *cajaService) ForceClose(ctx context.Context, sesionID uuid.UUID, operador string) (*dto.ClosureSummary, error) {
	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if !sesion.Abierta {
		return nil, apierror.SessionNotOpen("La sesión de caja ya está cerrada")
	}
	return s.cerrar(ctx, sesion, operador, true)
}

func (s *cajaService) cerrar(ctx context.Context, sesion *model.SesionCaja, operador string, forzado bool) (*dto.ClosureSummary, error) {
	cerradaEn := s.now()
	if err := s.repo.CerrarSesion(ctx, sesion.ID, operador, cerradaEn); err != nil {
		if errors.Is(err, repository.ErrSesionCerrada) {
			return nil, apierror.SessionNotOpen("La sesión de caja ya está cerrada")
		}
		return nil, fmt.Errorf("close session: %w", err)
	}

	// re-read after the flip: no sale can be added from here on
	ventas, err := s.repo.ListVentas(ctx, sesion.ID)
	if err != nil {
		log.Warn().Err(err).Str("sesion_id", sesion.ID.String()).Msg("caja_service: using preloaded sales for summary")
		ventas = sesion.Ventas
	}

	summary := &dto.ClosureSummary{
		SesionCajaID:     sesion.ID.String(),
		OperadorApertura: sesion.OperadorApertura,
		OperadorCierre:   operador,
		AbiertaEn:        sesion.AbiertaEn,
		CerradaEn:        cerradaEn,
		Forzado:          forzado,
		TotalRecaudado:   decimal.Zero,
		Ventas:           make([]dto.VentaResponse, 0, len(ventas)),
	}
	for i := range ventas {
		summary.TotalTickets += int64(ventas[i].Cantidad)
		summary.TotalRecaudado = summary.TotalRecaudado.Add(ventas[i].Total())
		summary.Ventas = append(summary.Ventas, ventaToResponse(&ventas[i]))
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueCierreCaja(ctx, *summary); err != nil {
			log.Error().Err(err).Str("sesion_id", summary.SesionCajaID).Msg("caja_service: closure report not enqueued")
		}
	}
	log.Info().
		Str("sesion_id", summary.SesionCajaID).
		Str("operador", operador).
		Bool("forzado", forzado).
		Int64("tickets", summary.TotalTickets).
		Str("recaudado", summary.TotalRecaudado.StringFixed(2)).
		Msg("caja cerrada")
	return summary, nil
}

// ── Listings ──────────────────────────────────────────────────────────────────

func (s *cajaService) ListOpen(ctx context.Context) ([]dto.SesionCajaResponse, error) {
	sesiones, err := s.repo.ListSesionesAbiertas(ctx)
	if err != nil {
		return nil, err
	}
	return s.withTotals(ctx, sesiones)
}

func (s *cajaService) ListClosed(ctx context.Context, limit int) ([]dto.SesionCajaResponse, error) {
	if limit <= 0 {
		limit = defaultClosuresLimit
	}
	if limit > maxClosuresLimit {
		limit = maxClosuresLimit
	}
	sesiones, err := s.repo.ListSesionesCerradas(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.withTotals(ctx, sesiones)
}

func (s *cajaService) withTotals(ctx context.Context, sesiones []model.SesionCaja) ([]dto.SesionCajaResponse, error) {
	ids := make([]uuid.UUID, len(sesiones))
	for i := range sesiones {
		ids[i] = sesiones[i].ID
	}
	totales, err := s.repo.SumVentasPorSesion(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		out = append(out, sesionToResponse(&sesiones[i], totales[sesiones[i].ID]))
	}
	return out, nil
}

func (s *cajaService) Detail(ctx context.Context, id uuid.UUID) (*dto.SesionDetalleResponse, error) {
	sesion, err := s.findSesion(ctx, id)
	if err != nil {
		return nil, err
	}
	tot := repository.TotalesSesion{SesionCajaID: sesion.ID, Recaudado: decimal.Zero}
	ventas := make([]dto.VentaResponse, 0, len(sesion.Ventas))
	for i := range sesion.Ventas {
		tot.Tickets += int64(sesion.Ventas[i].Cantidad)
		tot.Recaudado = tot.Recaudado.Add(sesion.Ventas[i].Total())
		ventas = append(ventas, ventaToResponse(&sesion.Ventas[i]))
	}
	return &dto.SesionDetalleResponse{Sesion: sesionToResponse(sesion, tot), Ventas: ventas}, nil
}

func (s *cajaService) DeleteClosed(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteSesionCerrada(ctx, id)
	switch {
	case err == nil:
		log.Info().Str("sesion_id", id.String()).Msg("cierre de caja eliminado")
		return nil
	case errors.Is(err, repository.ErrSesionAbierta):
		return apierror.SessionStillOpen("No se puede eliminar una sesión abierta")
	case repository.IsNotFound(err):
		return apierror.NotFound("Sesión de caja no encontrada")
	}
	return fmt.Errorf("delete session: %w", err)
}

// ── Overview ──────────────────────────────────────────────────────────────────

func (s *cajaService) Overview(ctx context.Context, operador string, verTodas bool) (*dto.CajaOverviewResponse, error) {
	precio, err := s.config.GetDecimal(ctx, model.ClavePrecioEntrada, DefaultPrecio)
	if err != nil {
		return nil, err
	}
	limite, err := s.config.GetInt(ctx, model.ClaveLimiteEntradas, 0)
	if err != nil {
		return nil, err
	}
	vendidas, err := s.repo.TotalVendidas(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CajaOverviewResponse{
		Precio:          precio,
		Limite:          limite,
		Vendidas:        vendidas,
		VentasRecientes: []dto.VentaResponse{},
	}
	if limite > 0 {
		restantes := int64(limite) - vendidas
		if restantes < 0 {
			restantes = 0
		}
		resp.Restantes = &restantes
	}

	if actual, err := s.CurrentSession(ctx, operador); err == nil {
		resp.SesionAbierta = actual
		id, _ := uuid.Parse(actual.ID)
		ventas, err := s.repo.ListVentasRecientes(ctx, id, overviewVentas)
		if err != nil {
			return nil, err
		}
		for i := range ventas {
			resp.VentasRecientes = append(resp.VentasRecientes, ventaToResponse(&ventas[i]))
		}
	} else if !errors.Is(err, apierror.ErrSessionNotOpen) {
		return nil, err
	}

	if verTodas {
		if resp.SesionesAbiertas, err = s.ListOpen(ctx); err != nil {
			return nil, err
		}
	}
	if resp.Cierres, err = s.ListClosed(ctx, overviewCierres); err != nil {
		return nil, err
	}
	return resp, nil
}

// ── Settings ──────────────────────────────────────────────────────────────────

func (s *cajaService) UpdatePrice(ctx context.Context, precio decimal.Decimal) error {
	if !precio.IsPositive() {
		return apierror.Validation("El precio debe ser mayor que cero")
	}
	return s.config.Set(ctx, model.ClavePrecioEntrada, precio.StringFixed(2))
}

func (s *cajaService) UpdateLimit(ctx context.Context, limite int) error {
	if limite < 0 {
		return apierror.Validation("El límite no puede ser negativo")
	}
	return s.config.Set(ctx, model.ClaveLimiteEntradas, strconv.Itoa(limite))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) findSesion(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apierror.NotFound("Sesión de caja no encontrada")
	}
	if err != nil {
		return nil, err
	}
	return sesion, nil
}

func sesionToResponse(s *model.SesionCaja, t repository.TotalesSesion) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:               s.ID.String(),
		Abierta:          s.Abierta,
		OperadorApertura: s.OperadorApertura,
		AbiertaEn:        s.AbiertaEn.Format(time.RFC3339),
		OperadorCierre:   s.OperadorCierre,
		TotalTickets:     t.Tickets,
		TotalRecaudado:   t.Recaudado,
	}
	if s.CerradaEn != nil {
		cerrada := s.CerradaEn.Format(time.RFC3339)
		resp.CerradaEn = &cerrada
	}
	return resp
}

func ventaToResponse(v *model.VentaAdicional) dto.VentaResponse {
	resp := dto.VentaResponse{
		ID:             v.ID.String(),
		SesionCajaID:   v.SesionCajaID.String(),
		PrecioUnitario: v.PrecioUnitario,
		Cantidad:       v.Cantidad,
		Total:          v.Total(),
		EmailDestino:   v.EmailDestino,
		EnviadoEmail:   v.EnviadoEmail,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	if v.CodigoQR != nil {
		resp.Codigo = v.CodigoQR.Codigo
	}
	return resp
}
