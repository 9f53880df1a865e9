package handler

import (
	"net/http"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
)

type IngresoHandler struct{ svc service.IngresoService }

func NewIngresoHandler(svc service.IngresoService) *IngresoHandler { return &IngresoHandler{svc: svc} }

// Registrar godoc
// @Summary Registra el ingreso de un código QR en la puerta
// @Tags ingreso
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.IngresoRequest true "Código escaneado"
// @Success 200 {object} dto.IngresoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/ingreso [post]
func (h *IngresoHandler) Registrar(c *gin.Context) {
	var req dto.IngresoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Redeem(c.Request.Context(), req.Codigo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
