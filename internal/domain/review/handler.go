package review

import (
	"net/http"
	"strconv"

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

// RegisterRoutes mounts review listing publicly and review writing on the
// authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/doctors/:id/reviews", h.ListForDoctor)

	api.POST("/reviews", h.Create, auth.Require(h.policy, auth.OpReviewCreate))
	api.POST("/reviews/:id/respond", h.Respond, auth.Require(h.policy, auth.OpReviewRespond))
}

func (h *Handler) Create(c echo.Context) error {
	var req struct {
		DoctorID       uuid.UUID  `json:"doctor_id"`
		ConsultationID *uuid.UUID `json:"consultation_id"`
		AppointmentID  *uuid.UUID `json:"appointment_id"`
		Rating         int        `json:"rating"`
		Title          string     `json:"title"`
		Comment        *string    `json:"comment"`
		Recommend      *bool      `json:"recommend"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Recommend defaults to true when omitted.
	recommend := true
	if req.Recommend != nil {
		recommend = *req.Recommend
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Create(c.Request().Context(), p, CreateRequest{
		DoctorID:       req.DoctorID,
		ConsultationID: req.ConsultationID,
		AppointmentID:  req.AppointmentID,
		Rating:         req.Rating,
		Title:          req.Title,
		Comment:        req.Comment,
		Recommend:      recommend,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Response string `json:"response"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.Respond(c.Request().Context(), p, id, req.Response)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rating := 0
	if raw := c.QueryParam("rating"); raw != "" {
		rating, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "rating must be a number")
		}
	}
	pg := pagination.FromContext(c)
	out, total, err := h.svc.ListForDoctor(c.Request().Context(), id, rating, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}
