package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/pkg/pagination"
)

type Handler struct {
	svc    *Service
	policy auth.Policy
}

func NewHandler(svc *Service, policy auth.Policy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescriptions", h.Create, auth.Require(h.policy, auth.OpRxCreate))
	api.GET("/prescriptions", h.ListOwn, auth.Require(h.policy, auth.OpRxListOwn))
	api.GET("/prescriptions/stats", h.Stats, auth.Require(h.policy, auth.OpRxListOwn))
	api.GET("/prescriptions/:id", h.Get, auth.Require(h.policy, auth.OpRxRead))
	api.PUT("/prescriptions/:id", h.Update, auth.Require(h.policy, auth.OpRxUpdate))
	api.POST("/prescriptions/:id/complete", h.MarkCompleted, auth.Require(h.policy, auth.OpRxComplete))
	api.POST("/prescriptions/:id/cancel", h.Cancel, auth.Require(h.policy, auth.OpRxUpdate))
	api.GET("/consultations/:id/prescriptions", h.ListForConsultation, auth.Require(h.policy, auth.OpRxListOwn))
}

func (h *Handler) Create(c echo.Context) error {
	var req struct {
		ConsultationID uuid.UUID    `json:"consultation_id"`
		Medications    []Medication `json:"medications"`
		Instructions   string       `json:"instructions"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Create(c.Request().Context(), p, req.ConsultationID, req.Medications, req.Instructions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Medications  []Medication `json:"medications"`
		Instructions *string      `json:"instructions"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Update(c.Request().Context(), p, id, req.Medications, req.Instructions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) MarkCompleted(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.MarkCompleted(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListOwn(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	out, total, err := h.svc.ListOwn(c.Request().Context(), p, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListForConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.ListForConsultation(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
