package video

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
	api.POST("/video/rooms", h.CreateRoom, auth.Require(h.policy, auth.OpVideoCreate))
	api.GET("/video/rooms", h.ListOwn, auth.Require(h.policy, auth.OpVideoJoin))
	api.GET("/video/rooms/:id", h.Get, auth.Require(h.policy, auth.OpVideoJoin))
	api.POST("/video/rooms/:id/end", h.End, auth.Require(h.policy, auth.OpVideoJoin))
	api.GET("/video/rooms/:id/messages", h.ListMessages, auth.Require(h.policy, auth.OpVideoJoin))
	api.POST("/video/rooms/:id/messages", h.AddMessage, auth.Require(h.policy, auth.OpVideoJoin))
	api.GET("/ws/video/:code", h.Signal, auth.Require(h.policy, auth.OpVideoJoin))
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var req struct {
		ConsultationID *uuid.UUID `json:"consultation_id"`
		AppointmentID  *uuid.UUID `json:"appointment_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	rm, err := h.svc.CreateRoom(c.Request().Context(), p, req.ConsultationID, req.AppointmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	rm, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) End(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	rm, err := h.svc.End(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	h.hub.BroadcastRoomEvent(roomKey(rm.RoomCode), push.NewEvent("call_ended", map[string]string{
		"room_id": rm.ID.String(),
	}), nil)
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) ListOwn(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	out, total, err := h.svc.ListOwn(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
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
	m, err := h.svc.AddMessage(c.Request().Context(), p, id, req.Body)
	if err != nil {
		return err
	}
	// Fan the chat line out to everyone else on the call.
	if rm, gerr := h.svc.Get(c.Request().Context(), p, id); gerr == nil {
		h.hub.BroadcastRoomEvent(roomKey(rm.RoomCode), push.NewEvent("chat_message", m), nil)
	}
	return c.JSON(http.StatusCreated, m)
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

// Signal admits a participant into the room's signaling channel. Inbound
// frames (SDP offers, answers, ICE candidates) are relayed verbatim to the
// other peers; their format is the clients' business.
func (h *Handler) Signal(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	rm, err := h.svc.Join(c.Request().Context(), p, c.Param("code"))
	if err != nil {
		return err
	}

	key := roomKey(rm.RoomCode)
	client := push.NewClient(p.ID)
	client.OnMessage = func(data []byte) {
		h.hub.BroadcastRoom(key, data, client)
	}
	client.OnClose = func() {
		h.hub.BroadcastRoomEvent(key, push.NewEvent("participant_left", map[string]string{
			"user_id": p.ID.String(),
		}), nil)
	}

	h.hub.JoinRoom(client, key)
	h.hub.BroadcastRoomEvent(key, push.NewEvent("participant_joined", map[string]string{
		"user_id": p.ID.String(),
	}), client)

	return push.Serve(c, h.hub, client)
}

func roomKey(code string) string { return "video:" + code }
