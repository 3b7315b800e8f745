package consultation

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
	api.POST("/consultations", h.Create, auth.Require(h.policy, auth.OpConsultCreate))
	api.GET("/consultations", h.ListOwn, auth.Require(h.policy, auth.OpConsultListOwn))
	api.GET("/consultations/open", h.ListOpen, auth.Require(h.policy, auth.OpConsultListOpen))
	api.GET("/consultations/stats", h.Stats, auth.Require(h.policy, auth.OpConsultListOwn))
	api.GET("/consultations/:id", h.Get, auth.Require(h.policy, auth.OpConsultRead))
	api.POST("/consultations/:id/respond", h.Respond, auth.Require(h.policy, auth.OpConsultRespond))
	api.POST("/consultations/:id/close", h.Close, auth.Require(h.policy, auth.OpConsultClose))
	api.GET("/consultations/:id/messages", h.ListMessages, auth.Require(h.policy, auth.OpConsultMessage))
	api.POST("/consultations/:id/messages", h.AddMessage, auth.Require(h.policy, auth.OpConsultMessage))
}

func (h *Handler) Create(c echo.Context) error {
	var req struct {
		Question          string     `json:"question"`
		Symptoms          string     `json:"symptoms"`
		Severity          string     `json:"severity"`
		Category          string     `json:"category"`
		PreferredDoctorID *uuid.UUID `json:"preferred_doctor_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Create(c.Request().Context(), p, CreateRequest{
		Question:          req.Question,
		Symptoms:          req.Symptoms,
		Severity:          req.Severity,
		Category:          req.Category,
		PreferredDoctorID: req.PreferredDoctorID,
	})
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

func (h *Handler) ListOwn(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	out, total, err := h.svc.ListOwn(c.Request().Context(), p, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOpen(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	out, total, err := h.svc.ListOpen(c.Request().Context(), p,
		c.QueryParam("severity"), c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Response         string  `json:"response"`
		Diagnosis        *string `json:"diagnosis"`
		PrescriptionNote *string `json:"prescription_note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Respond(c.Request().Context(), p, id, RespondRequest{
		Response:         req.Response,
		Diagnosis:        req.Diagnosis,
		PrescriptionNote: req.PrescriptionNote,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Close(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Close(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) AddMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.AddMessage(c.Request().Context(), p, id, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListMessages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.ListMessages(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Stats(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
