package port

import (
	"context"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
)

// SessionStore persists per-client session state between the start and
// complete halves of a ceremony. Implementations return
// repository.ErrNotFound for unknown session IDs and are expected to expire
// sessions after the configured TTL.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
}
