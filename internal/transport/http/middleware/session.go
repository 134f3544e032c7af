package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/security"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

const sessionContextKey = "session"

// SessionManager loads the caller's session from the store based on the
// session cookie, creating a fresh one (and issuing the cookie) when none
// exists. The session ID is an opaque 256-bit random token; the session
// itself lives server-side.
type SessionManager struct {
	store  port.SessionStore
	cfg    config.SessionSettings
	logger *zap.Logger
}

// NewSessionManager builds the session middleware helper.
func NewSessionManager(store port.SessionStore, cfg config.SessionSettings, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{store: store, cfg: cfg, logger: log}
}

// Handler resolves or creates the request's session and stashes it in the
// gin context.
func (m *SessionManager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := m.resolve(c)
		if err != nil {
			m.logger.Error("session resolution failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// ClearCookie expires the session cookie on the response, used by logout.
func (m *SessionManager) ClearCookie(c *gin.Context) {
	c.SetCookie(m.cfg.CookieName, "", -1, "/", "", m.cfg.CookieSecure, true)
}

func (m *SessionManager) resolve(c *gin.Context) (*domain.Session, error) {
	if cookie, err := c.Cookie(m.cfg.CookieName); err == nil && cookie != "" {
		session, err := m.store.Get(c.Request.Context(), cookie)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Expired or unknown cookie: fall through and mint a new session.
	}

	id, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{ID: id, CreatedAt: time.Now().UTC()}
	c.SetCookie(m.cfg.CookieName, id, int(m.cfg.TTL.Seconds()), "/", "", m.cfg.CookieSecure, true)

	return session, nil
}

// GetSession retrieves the request's session from the gin context. The
// session middleware guarantees presence on all API routes.
func GetSession(c *gin.Context) *domain.Session {
	if v, exists := c.Get(sessionContextKey); exists {
		if session, ok := v.(*domain.Session); ok {
			return session
		}
	}
	return nil
}
