package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

type sessionEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionStore keeps session state in process memory. It mirrors the Redis
// store's TTL semantics and is used when Redis is not configured, and by
// tests.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]sessionEntry
	now      func() time.Time
}

// NewSessionStore constructs a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

// Get returns a copy of the stored session or repository.ErrNotFound.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, repository.ErrNotFound
	}

	session := entry.session
	return &session, nil
}

// Save stores the session and refreshes its TTL.
func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = sessionEntry{
		session:   *session,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Delete removes the session. Deleting an unknown session is not an error;
// logout must be idempotent.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// WithClock overrides the internal clock, used in tests.
func (s *SessionStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

var _ port.SessionStore = (*SessionStore)(nil)
