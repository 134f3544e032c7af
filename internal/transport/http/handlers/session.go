package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/logger"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/middleware"
	"github.com/MitsuharuNakamura/passkey-demo/internal/usecase"
)

// SessionHandler exposes session inspection, logout, and the debug user
// directory listing.
type SessionHandler struct {
	auth     *usecase.AuthService
	users    port.UserRepository
	sessions *middleware.SessionManager
	logger   *zap.Logger
}

// NewSessionHandler builds the session handler.
func NewSessionHandler(auth *usecase.AuthService, users port.UserRepository, sessions *middleware.SessionManager, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{
		auth:     auth,
		users:    users,
		sessions: sessions,
		logger:   log,
	}
}

// CurrentUser handles GET /api/user. It reports whether the session is
// authenticated without erroring on anonymous callers, so the client can
// restore its view on page load.
func (h *SessionHandler) CurrentUser(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		c.JSON(http.StatusOK, CurrentUserResponse{Authenticated: false})
		return
	}

	c.JSON(http.StatusOK, CurrentUserResponse{
		Authenticated: true,
		User: &UserSummary{
			Username:    session.User.Username,
			DisplayName: session.User.DisplayName,
		},
	})
}

// Logout handles POST /api/logout. Destroys the server-side session and
// expires the cookie. Idempotent.
func (h *SessionHandler) Logout(c *gin.Context) {
	session := middleware.GetSession(c)

	if err := h.auth.Logout(c.Request.Context(), session); err != nil {
		logger.WithContext(c.Request.Context()).Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to log out"})
		return
	}

	h.sessions.ClearCookie(c)

	c.JSON(http.StatusOK, LogoutResponse{
		Success: true,
		Message: "logged out",
	})
}

// DebugUsers handles GET /api/debug/users. Lists every registered user; the
// directory is demo-scoped, so no secrets are exposed beyond usernames.
func (h *SessionHandler) DebugUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list users"})
		return
	}

	out := make([]DebugUser, 0, len(users))
	for _, u := range users {
		out = append(out, DebugUser{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			CreatedAt:   u.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": out, "count": len(out)})
}
