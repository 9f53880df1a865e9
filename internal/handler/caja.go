package handler

import (
	"net/http"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/middleware"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	rolesCaja     = []string{middleware.RolAdmin, middleware.RolFinanzas, middleware.RolOperador}
	rolesFinanzas = []string{middleware.RolAdmin, middleware.RolFinanzas}
	rolesAdmin    = []string{middleware.RolAdmin}
)

type cajaAction struct {
	roles []string
	run   func(h *CajaHandler, c *gin.Context, req dto.CajaActionRequest)
}

// cajaActions is the role table of POST /v1/generar-visitantes. The guard in
// Action runs before any action body.
var cajaActions = map[string]cajaAction{
	"open":          {rolesCaja, (*CajaHandler).open},
	"close":         {rolesCaja, (*CajaHandler).close},
	"generate":      {rolesCaja, (*CajaHandler).generate},
	"details":       {rolesCaja, (*CajaHandler).details},
	"closures":      {rolesFinanzas, (*CajaHandler).closures},
	"openSessions":  {rolesFinanzas, (*CajaHandler).openSessions},
	"updatePrice":   {rolesAdmin, (*CajaHandler).updatePrice},
	"updateLimit":   {rolesAdmin, (*CajaHandler).updateLimit},
	"forceClose":    {rolesAdmin, (*CajaHandler).forceClose},
	"deleteClosure": {rolesAdmin, (*CajaHandler).deleteClosure},
}

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Overview godoc
// @Summary Estado de la caja: precio, sesión abierta, ventas recientes, cierres y límite
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CajaOverviewResponse
// @Router /v1/generar-visitantes [get]
func (h *CajaHandler) Overview(c *gin.Context) {
	resp, err := h.svc.Overview(c.Request.Context(), operador(c), middleware.HasRole(c, middleware.RolAdmin))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Action godoc
// @Summary Ejecuta una acción de caja
// @Description open, close, generate, details (todos); closures, openSessions (admin, finanzas); updatePrice, updateLimit, forceClose, deleteClosure (admin)
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CajaActionRequest true "Acción"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/generar-visitantes [post]
func (h *CajaHandler) Action(c *gin.Context) {
	var req dto.CajaActionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	action, ok := cajaActions[req.Action]
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("Acción desconocida"))
		return
	}
	if !middleware.HasRole(c, action.roles...) {
		c.JSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
		return
	}
	action.run(h, c, req)
}

func (h *CajaHandler) sesionID(c *gin.Context, req dto.CajaActionRequest) (uuid.UUID, bool) {
	if req.SesionID == "" {
		c.JSON(http.StatusBadRequest, apierror.New("sesion_id es obligatorio"))
		return uuid.Nil, false
	}
	return parseUUID(c, req.SesionID, "sesion_id")
}

func (h *CajaHandler) open(c *gin.Context, _ dto.CajaActionRequest) {
	resp, err := h.svc.Open(c.Request.Context(), operador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// close defaults to the caller's own open session when sesion_id is omitted.
func (h *CajaHandler) close(c *gin.Context, req dto.CajaActionRequest) {
	ctx := c.Request.Context()
	var id uuid.UUID
	if req.SesionID == "" {
		actual, err := h.svc.CurrentSession(ctx, operador(c))
		if err != nil {
			respondError(c, err)
			return
		}
		id = uuid.MustParse(actual.ID)
	} else {
		var ok bool
		if id, ok = parseUUID(c, req.SesionID, "sesion_id"); !ok {
			return
		}
	}
	resp, err := h.svc.Close(ctx, id, operador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CajaHandler) generate(c *gin.Context, req dto.CajaActionRequest) {
	cantidad := req.Cantidad
	if cantidad == 0 {
		cantidad = 1
	}
	resp, err := h.svc.GenerateSale(c.Request.Context(), operador(c), service.GenerateSaleParams{
		Cantidad: cantidad,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// details lets an operador read only sessions they opened.
func (h *CajaHandler) details(c *gin.Context, req dto.CajaActionRequest) {
	id, ok := h.sesionID(c, req)
	if !ok {
		return
	}
	resp, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !middleware.HasRole(c, rolesFinanzas...) && resp.Sesion.OperadorApertura != operador(c) {
		c.JSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CajaHandler) closures(c *gin.Context, req dto.CajaActionRequest) {
	resp, err := h.svc.ListClosed(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cierres": resp})
}

func (h *CajaHandler) openSessions(c *gin.Context, _ dto.CajaActionRequest) {
	resp, err := h.svc.ListOpen(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sesiones": resp})
}

func (h *CajaHandler) updatePrice(c *gin.Context, req dto.CajaActionRequest) {
	if req.Precio == nil {
		c.JSON(http.StatusBadRequest, apierror.New("precio es obligatorio"))
		return
	}
	if err := h.svc.UpdatePrice(c.Request.Context(), *req.Precio); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "precio": req.Precio.StringFixed(2)})
}

func (h *CajaHandler) updateLimit(c *gin.Context, req dto.CajaActionRequest) {
	if req.Limite == nil {
		c.JSON(http.StatusBadRequest, apierror.New("limite es obligatorio"))
		return
	}
	if err := h.svc.UpdateLimit(c.Request.Context(), *req.Limite); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "limite": *req.Limite})
}

func (h *CajaHandler) forceClose(c *gin.Context, req dto.CajaActionRequest) {
	id, ok := h.sesionID(c, req)
	if !ok {
		return
	}
	resp, err := h.svc.ForceClose(c.Request.Context(), id, operador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CajaHandler) deleteClosure(c *gin.Context, req dto.CajaActionRequest) {
	id, ok := h.sesionID(c, req)
	if !ok {
		return
	}
	if err := h.svc.DeleteClosed(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
