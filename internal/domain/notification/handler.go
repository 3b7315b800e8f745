package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/push"
	"github.com/telecare/telecare/pkg/pagination"
)

type Handler struct {
	svc    *Service
	hub    *push.Hub
	policy auth.Policy
}

func NewHandler(svc *Service, hub *push.Hub, policy auth.Policy) *Handler {
	return &Handler{svc: svc, hub: hub, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List, auth.Require(h.policy, auth.OpNotifList))
	api.GET("/notifications/unread-count", h.UnreadCount, auth.Require(h.policy, auth.OpNotifList))
	api.POST("/notifications/:id/read", h.MarkRead, auth.Require(h.policy, auth.OpNotifMarkRead))
	api.POST("/notifications/read-all", h.MarkAllRead, auth.Require(h.policy, auth.OpNotifMarkRead))
	api.GET("/ws/notifications", h.Subscribe, auth.Require(h.policy, auth.OpNotifList))
}

func (h *Handler) List(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	unreadOnly := c.QueryParam("unread_only") == "true"
	out, total, err := h.svc.List(c.Request().Context(), p, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.MarkRead(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "marked read"})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	n, err := h.svc.MarkAllRead(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"marked": n})
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	n, err := h.svc.UnreadCount(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

// Subscribe upgrades the connection and streams notification events until the
// client goes away.
func (h *Handler) Subscribe(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	client := push.NewClient(p.ID)
	return push.Serve(c, h.hub, client)
}
