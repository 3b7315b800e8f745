package reporting

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	policy auth.Policy
}

func NewHandler(svc *Service, policy auth.Policy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

// RegisterRoutes mounts the report endpoints on an admin-gated group.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/reports/platform", h.Platform, auth.Require(h.policy, auth.OpAdminReport))
	admin.GET("/reports/activity", h.Activity, auth.Require(h.policy, auth.OpAdminReport))
}

func (h *Handler) Platform(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	report, err := h.svc.Platform(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Activity(c echo.Context) error {
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	var to time.Time
	if v := c.QueryParam("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		// The range is half-open; include the named end day.
		to = to.AddDate(0, 0, 1)
	} else {
		to = time.Now()
	}

	p := auth.PrincipalFromContext(c.Request().Context())
	report, err := h.svc.Activity(c.Request().Context(), p, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
