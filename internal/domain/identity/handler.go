package identity

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
	// devMode echoes reset tokens in API responses. There is no mail
	// transport; outside development the token is only stored.
	devMode bool
}

func NewHandler(svc *Service, policy auth.Policy, devMode bool) *Handler {
	return &Handler{svc: svc, policy: policy, devMode: devMode}
}

// RegisterRoutes mounts auth endpoints on the public group and account
// management on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/password-reset/request", h.ResetRequest)
	public.POST("/auth/password-reset/confirm", h.ResetConfirm)

	api.GET("/auth/me", h.Me)
	api.POST("/auth/change-password", h.ChangePassword)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers, auth.Require(h.policy, auth.OpAdminListUsers))
	admin.PUT("/users/:id/status", h.ChangeStatus, auth.Require(h.policy, auth.OpAdminSetStatus))
	admin.GET("/users/:id/audit", h.AuditTrail, auth.Require(h.policy, auth.OpAdminListUsers))
	admin.POST("/maintenance/reset-tokens/cleanup", h.CleanupTokens, auth.Require(h.policy, auth.OpAdminSetStatus))
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (h *Handler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, token, err := h.svc.Register(c.Request().Context(), req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *Handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, token, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	user, err := h.svc.GetUser(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.ChangePassword(c.Request().Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *Handler) ResetRequest(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := h.svc.ResetPasswordRequest(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}

	resp := map[string]string{"message": "if the email exists, a reset token has been issued"}
	if h.devMode && token != "" {
		resp["reset_token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ResetConfirm(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPasswordConfirm(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password has been reset"})
}

func (h *Handler) ListUsers(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), p,
		c.QueryParam("role"), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Action string  `json:"action"`
		Reason *string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	user, err := h.svc.ChangeStatus(c.Request().Context(), p, targetID, req.Action, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) AuditTrail(c echo.Context) error {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.AuditTrail(c.Request().Context(), p, targetID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) CleanupTokens(c echo.Context) error {
	n, err := h.svc.CleanupExpiredTokens(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}
