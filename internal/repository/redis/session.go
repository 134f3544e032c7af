package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

const (
	defaultSessionPrefix = "passkey:session"

	fieldCreatedAt    = "created_at"
	fieldRegistration = "registration"
	fieldChallenge    = "challenge"
	fieldUser         = "user"
)

// SessionRepository persists per-client session state in Redis hashes. Every
// save refreshes the key TTL, so a session only dies through logout or
// inactivity.
type SessionRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRepository constructs a session repository with the provided
// Redis client, key prefix, and session TTL.
func NewSessionRepository(client *red.Client, keyPrefix string, ttl time.Duration) *SessionRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &SessionRepository{client: client, prefix: prefix, ttl: ttl}
}

// Get loads the session, returning repository.ErrNotFound when the key does
// not exist or has expired.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	values, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall session: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	session := &domain.Session{ID: sessionID}

	if raw := values[fieldCreatedAt]; raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		session.CreatedAt = time.Unix(ts, 0).UTC()
	}

	if raw := values[fieldRegistration]; raw != "" {
		var pending domain.PendingRegistration
		if err := json.Unmarshal([]byte(raw), &pending); err != nil {
			return nil, fmt.Errorf("decode pending registration: %w", err)
		}
		session.Registration = &pending
	}

	if raw := values[fieldChallenge]; raw != "" {
		var pending domain.PendingChallenge
		if err := json.Unmarshal([]byte(raw), &pending); err != nil {
			return nil, fmt.Errorf("decode pending challenge: %w", err)
		}
		session.Challenge = &pending
	}

	if raw := values[fieldUser]; raw != "" {
		var user domain.AuthenticatedUser
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
		session.User = &user
	}

	return session, nil
}

// Save writes the full session state and refreshes the TTL. Absent pending
// entries are deleted from the hash so a consumed entry cannot be replayed.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return errors.New("session id is required")
	}

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	fields := map[string]any{
		fieldCreatedAt: strconv.FormatInt(createdAt.Unix(), 10),
	}
	var stale []string

	if session.Registration != nil {
		raw, err := json.Marshal(session.Registration)
		if err != nil {
			return fmt.Errorf("encode pending registration: %w", err)
		}
		fields[fieldRegistration] = raw
	} else {
		stale = append(stale, fieldRegistration)
	}

	if session.Challenge != nil {
		raw, err := json.Marshal(session.Challenge)
		if err != nil {
			return fmt.Errorf("encode pending challenge: %w", err)
		}
		fields[fieldChallenge] = raw
	} else {
		stale = append(stale, fieldChallenge)
	}

	if session.User != nil {
		raw, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		fields[fieldUser] = raw
	} else {
		stale = append(stale, fieldUser)
	}

	key := r.key(session.ID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if len(stale) > 0 {
		pipe.HDel(ctx, key, stale...)
	}
	pipe.Expire(ctx, key, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}

	return nil
}

// Delete destroys the session. Unknown sessions are ignored so logout stays
// idempotent.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}

	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	return nil
}

func (r *SessionRepository) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, sessionID)
}

var _ port.SessionStore = (*SessionRepository)(nil)
