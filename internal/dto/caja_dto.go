package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CajaActionRequest is the body of POST /v1/generar-visitantes.
// Only the fields relevant to Action are read.
type CajaActionRequest struct {
	Action   string           `json:"action"     validate:"required,oneof=open close updatePrice updateLimit generate details deleteClosure closures openSessions forceClose"`
	SesionID string           `json:"sesion_id"  validate:"omitempty,uuid"`
	Precio   *decimal.Decimal `json:"precio"`
	Limite   *int             `json:"limite"`
	Cantidad int              `json:"cantidad"   validate:"omitempty,min=1,max=500"`
	Email    *string          `json:"email"      validate:"omitempty,email"`
	Limit    int              `json:"limit"      validate:"omitempty,min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID               string          `json:"id"`
	Abierta          bool            `json:"abierta"`
	OperadorApertura string          `json:"operador_apertura"`
	AbiertaEn        string          `json:"abierta_en"`
	OperadorCierre   *string         `json:"operador_cierre"`
	CerradaEn        *string         `json:"cerrada_en"`
	TotalTickets     int64           `json:"total_tickets"`
	TotalRecaudado   decimal.Decimal `json:"total_recaudado"`
}

type VentaResponse struct {
	ID             string          `json:"id"`
	SesionCajaID   string          `json:"sesion_caja_id"`
	Codigo         string          `json:"codigo"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Cantidad       int             `json:"cantidad"`
	Total          decimal.Decimal `json:"total"`
	EmailDestino   *string         `json:"email_destino"`
	EnviadoEmail   bool            `json:"enviado_email"`
	CreatedAt      string          `json:"created_at"`
}

// ClosureSummary is computed when a session is closed and handed to the
// reporting collaborator (PDF + email). It is also the JSON payload of the
// closure report job.
type ClosureSummary struct {
	SesionCajaID     string          `json:"sesion_caja_id"`
	OperadorApertura string          `json:"operador_apertura"`
	OperadorCierre   string          `json:"operador_cierre"`
	AbiertaEn        time.Time       `json:"abierta_en"`
	CerradaEn        time.Time       `json:"cerrada_en"`
	Forzado          bool            `json:"forzado"`
	TotalTickets     int64           `json:"total_tickets"`
	TotalRecaudado   decimal.Decimal `json:"total_recaudado"`
	Ventas           []VentaResponse `json:"ventas"`
}

type SesionDetalleResponse struct {
	Sesion SesionCajaResponse `json:"sesion"`
	Ventas []VentaResponse    `json:"ventas"`
}

// VentaGeneradaResponse is returned by the generate action.
type VentaGeneradaResponse struct {
	Venta  VentaResponse `json:"venta"`
	Codigo string        `json:"codigo"`
	Imagen string        `json:"imagen"`
}

// CajaOverviewResponse is returned by GET /v1/generar-visitantes.
type CajaOverviewResponse struct {
	Precio           decimal.Decimal      `json:"precio"`
	SesionAbierta    *SesionCajaResponse  `json:"sesion_abierta"`
	SesionesAbiertas []SesionCajaResponse `json:"sesiones_abiertas,omitempty"`
	VentasRecientes  []VentaResponse      `json:"ventas_recientes"`
	Cierres          []SesionCajaResponse `json:"cierres"`
	Limite           int                  `json:"limite"`
	Vendidas         int64                `json:"vendidas"`
	// Restantes is nil when no global limit is configured
	Restantes *int64 `json:"restantes"`
}

// QREmailJob is the payload of the qr_email job. VentaID is set when the
// code was sold at a caja so the sale can be flagged as delivered.
type QREmailJob struct {
	Codigo  string `json:"codigo"`
	Email   string `json:"email"`
	Nombre  string `json:"nombre,omitempty"`
	VentaID string `json:"venta_id,omitempty"`
}
