package appointment

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/pkg/pagination"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc    *Service
	policy auth.Policy
}

func NewHandler(svc *Service, policy auth.Policy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Book, auth.Require(h.policy, auth.OpApptCreate))
	api.GET("/appointments", h.ListOwn, auth.Require(h.policy, auth.OpApptListOwn))
	api.GET("/appointments/stats", h.Stats, auth.Require(h.policy, auth.OpApptListOwn))
	api.GET("/appointments/:id", h.Get, auth.Require(h.policy, auth.OpApptRead))
	api.PUT("/appointments/:id", h.Update, auth.Require(h.policy, auth.OpApptUpdate))
	api.POST("/appointments/:id/confirm", h.Confirm, auth.Require(h.policy, auth.OpApptConfirm))
	api.POST("/appointments/:id/start", h.Start, auth.Require(h.policy, auth.OpApptConfirm))
	api.POST("/appointments/:id/complete", h.Complete, auth.Require(h.policy, auth.OpApptComplete))
	api.POST("/appointments/:id/no-show", h.MarkNoShow, auth.Require(h.policy, auth.OpApptComplete))
	api.POST("/appointments/:id/cancel", h.Cancel, auth.Require(h.policy, auth.OpApptCancel))
	api.GET("/doctors/:id/availability", h.Availability, auth.Require(h.policy, auth.OpAvailabilityRead))
}

func (h *Handler) Book(c echo.Context) error {
	var req struct {
		DoctorID        uuid.UUID `json:"doctor_id"`
		Date            string    `json:"date"`
		StartTime       string    `json:"start_time"`
		Type            string    `json:"appointment_type"`
		DurationMinutes int       `json:"duration_minutes"`
		Reason          string    `json:"reason"`
		Urgent          bool      `json:"urgent"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Book(c.Request().Context(), p, BookRequest{
		DoctorID:        req.DoctorID,
		Date:            date,
		StartTime:       req.StartTime,
		Type:            req.Type,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Urgent:          req.Urgent,
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

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Date      *string `json:"date"`
		StartTime *string `json:"start_time"`
		Reason    *string `json:"reason"`
		Notes     *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd := UpdateRequest{StartTime: req.StartTime, Reason: req.Reason, Notes: req.Notes}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		upd.Date = &date
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Update(c.Request().Context(), p, id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Confirm(c echo.Context) error    { return h.status(c, h.svc.Confirm) }
func (h *Handler) Start(c echo.Context) error      { return h.status(c, h.svc.Start) }
func (h *Handler) Complete(c echo.Context) error   { return h.status(c, h.svc.Complete) }
func (h *Handler) MarkNoShow(c echo.Context) error { return h.status(c, h.svc.MarkNoShow) }

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Reason *string `json:"reason"`
	}
	// The body is optional; an empty one cancels without a reason.
	_ = c.Bind(&req)
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Cancel(c.Request().Context(), p, id, req.Reason)
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

func (h *Handler) status(c echo.Context, fn func(ctx context.Context, p *auth.Principal, id uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := fn(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Availability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	from := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		from, err = time.Parse(dateLayout, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
	}
	daysAhead := 7
	if raw := c.QueryParam("days_ahead"); raw != "" {
		daysAhead, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "days_ahead must be a number")
		}
	}
	days, err := h.svc.Availability(c.Request().Context(), id, from, daysAhead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":    id,
		"availability": days,
	})
}
