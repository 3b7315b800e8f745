package profile

import (
	"net/http"
	"strconv"
	"strings"
	"time"

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

// RegisterRoutes mounts the doctor directory on the public group and profile
// management on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/doctors", h.SearchDoctors)
	public.GET("/doctors/:id", h.GetDoctor)

	api.GET("/profile/me", h.Me, auth.Require(h.policy, auth.OpProfileReadOwn))
	api.PUT("/profile/patient", h.UpsertPatient, auth.Require(h.policy, auth.OpProfileUpdateOwn))
	api.PUT("/profile/doctor", h.UpsertDoctor, auth.Require(h.policy, auth.OpProfileUpdateOwn))
}

func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	own, err := h.svc.GetOwn(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, own)
}

func (h *Handler) UpsertPatient(c echo.Context) error {
	var patch PatientPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.UpsertPatient(c.Request().Context(), p, &patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) UpsertDoctor(c echo.Context) error {
	var patch DoctorPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.UpsertDoctor(c.Request().Context(), p, &patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDoctorPublic(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	f := SearchFilters{
		Specialization: c.QueryParam("specialization"),
		SortBy:         c.QueryParam("sort_by"),
		AvailableDay:   strings.ToLower(c.QueryParam("available_day")),
	}
	if v := c.QueryParam("min_rating"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid min_rating")
		}
		f.MinRating = r
	}
	if v := c.QueryParam("max_fee"); v != "" {
		fee, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid max_fee")
		}
		f.MaxFee = fee
	}
	// available_today is a convenience alias for available_day=<current weekday>.
	if v := c.QueryParam("available_today"); v == "true" || v == "1" {
		f.AvailableDay = strings.ToLower(time.Now().Weekday().String())
	}

	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.SearchDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg.Limit, pg.Offset))
}
