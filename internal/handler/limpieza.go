package handler

import (
	"net/http"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type LimpiezaHandler struct{ svc service.LimpiezaService }

func NewLimpiezaHandler(svc service.LimpiezaService) *LimpiezaHandler {
	return &LimpiezaHandler{svc: svc}
}

// Estado godoc
// @Summary Registros por tabla y uso de los directorios monitoreados
// @Tags limpieza
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.LimpiezaEstadoResponse
// @Router /v1/limpieza [get]
func (h *LimpiezaHandler) Estado(c *gin.Context) {
	resp, err := h.svc.Estado(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PurgarDatos godoc
// @Summary Elimina todos los registros de personas, códigos, ingresos, ventas, sesiones e importaciones
// @Tags limpieza
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PurgeRequest true "Frase de confirmación de datos"
// @Success 200 {object} dto.PurgeResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/limpieza/datos [post]
func (h *LimpiezaHandler) PurgarDatos(c *gin.Context) {
	var req dto.PurgeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PurgeData(c.Request.Context(), req.Confirmacion)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Warn().Str("operador", operador(c)).Msg("limpieza de datos ejecutada")
	c.JSON(http.StatusOK, resp)
}

// PurgarArchivos godoc
// @Summary Vacía los directorios monitoreados
// @Tags limpieza
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PurgeRequest true "Frase de confirmación de archivos"
// @Success 200 {object} dto.PurgeResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/limpieza/archivos [post]
func (h *LimpiezaHandler) PurgarArchivos(c *gin.Context) {
	var req dto.PurgeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PurgeFiles(c.Request.Context(), req.Confirmacion)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Warn().Str("operador", operador(c)).Msg("limpieza de archivos ejecutada")
	c.JSON(http.StatusOK, resp)
}
