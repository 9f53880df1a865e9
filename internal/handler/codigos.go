package handler

import (
	"net/http"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
)

type CodigosHandler struct{ svc service.CodigoService }

func NewCodigosHandler(svc service.CodigoService) *CodigosHandler { return &CodigosHandler{svc: svc} }

// GenerarQR godoc
// @Summary Genera un código QR de estudiante o de visitante
// @Description Estudiante: requiere cédula, envía el QR por correo si hay email. Visitante: devuelve la imagen como data URL.
// @Tags codigos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.GenerarQRRequest true "Datos del código"
// @Success 201 {object} dto.GenerarQRResponse
// @Failure 400 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/generar-qr [post]
func (h *CodigosHandler) GenerarQR(c *gin.Context) {
	var req dto.GenerarQRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GenerarQR(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Buscar godoc
// @Summary Busca una persona por cédula y lista sus códigos
// @Tags gestion-qr
// @Produce json
// @Security BearerAuth
// @Param cedula query string true "Cédula"
// @Success 200 {object} dto.PersonaCodigosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/gestion-qr [get]
func (h *CodigosHandler) Buscar(c *gin.Context) {
	resp, err := h.svc.BuscarPorCedula(c.Request.Context(), c.Query("cedula"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reenviar godoc
// @Summary Reenvía por correo el QR de un código
// @Tags gestion-qr
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ReenviarQRRequest true "Código"
// @Success 202 {object} map[string]interface{}
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/gestion-qr [post]
func (h *CodigosHandler) Reenviar(c *gin.Context) {
	var req dto.ReenviarQRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, ok := parseUUID(c, req.CodigoID, "codigo_id")
	if !ok {
		return
	}
	if err := h.svc.ReenviarQR(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "mensaje": "Correo en cola de envío"})
}

// ActualizarUsos godoc
// @Summary Ajusta el máximo de usos de un código
// @Tags gestion-qr
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ActualizarUsosRequest true "Nuevo máximo"
// @Success 200 {object} dto.CodigoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/gestion-qr [patch]
func (h *CodigosHandler) ActualizarUsos(c *gin.Context) {
	var req dto.ActualizarUsosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, ok := parseUUID(c, req.CodigoID, "codigo_id")
	if !ok {
		return
	}
	resp, err := h.svc.SetUsageCap(c.Request.Context(), id, req.MaxUsos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
