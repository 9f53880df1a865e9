package handler

import (
	"net/http"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	svc service.DashboardService
	loc *time.Location
}

func NewDashboardHandler(svc service.DashboardService, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{svc: svc, loc: loc}
}

// Resumen godoc
// @Summary Ingresos agrupados por código y categoría
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param date query string false "Día local (YYYY-MM-DD); sin fecha = todo"
// @Success 200 {object} dto.DashboardResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/dashboard [get]
func (h *DashboardHandler) Resumen(c *gin.Context) {
	var fecha *time.Time
	if raw := c.Query("date"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Fecha inválida, use YYYY-MM-DD"))
			return
		}
		fecha = &t
	}
	resp, err := h.svc.DailySummary(c.Request.Context(), fecha)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
