package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

// AuthService drives the two-phase passkey login ceremony and owns the
// session's authenticated-user slot. It mirrors RegistrationService's state
// machine: Start stashes a pending challenge, Complete consumes it exactly
// once.
type AuthService struct {
	users      port.UserRepository
	sessions   port.SessionStore
	verifier   port.PasskeyVerifier
	events     port.EventPublisher
	pendingTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an authentication service.
func NewAuthService(users port.UserRepository, sessions port.SessionStore, verifier port.PasskeyVerifier, events port.EventPublisher) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		verifier:   verifier,
		events:     events,
		pendingTTL: defaultPendingTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

// WithLogger attaches a logger for flow diagnostics.
func (s *AuthService) WithLogger(log *zap.Logger) *AuthService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithPendingTTL overrides how long a started login stays completable.
func (s *AuthService) WithPendingTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.pendingTTL = ttl
	}
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Start creates an authentication challenge upstream for a registered user
// and stores the pending challenge in the session. The returned challenge
// carries the ceremony-assertion options for the browser.
func (s *AuthService) Start(ctx context.Context, session *domain.Session, username string) (*port.Challenge, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	challenge, err := s.verifier.CreateChallenge(ctx, user.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: create challenge: %v", ErrUpstream, err)
	}

	now := s.now().UTC()
	session.Challenge = &domain.PendingChallenge{
		Username:     user.Username,
		Identity:     user.Identity,
		ChallengeSID: challenge.SID,
		ExpiresAt:    now.Add(s.pendingTTL),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("login started",
		zap.String("session_id", session.ID),
		zap.String("username", user.Username),
		zap.String("identity", user.Identity),
	)

	return challenge, nil
}

// Complete submits the assertion credential for approval. The caller must
// echo the challenge SID from Start; a mismatch is rejected without touching
// the current pending entry. Any other outcome consumes the entry, and only
// an upstream status of "approved" authenticates the session.
func (s *AuthService) Complete(ctx context.Context, session *domain.Session, challengeSID string, credential json.RawMessage) (*domain.AuthenticatedUser, error) {
	pending := session.Challenge
	if pending == nil {
		return nil, ErrNoPendingLogin
	}
	if len(credential) == 0 {
		return nil, fmt.Errorf("%w: credential is required", ErrValidation)
	}
	if challengeSID != "" && challengeSID != pending.ChallengeSID {
		return nil, ErrPendingMismatch
	}

	now := s.now().UTC()
	if pending.Expired(now) {
		session.Challenge = nil
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return nil, ErrPendingExpired
	}

	session.Challenge = nil

	status, err := s.verifier.ApproveChallenge(ctx, credential)
	if err != nil {
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.logger.Warn("clear pending challenge failed", zap.Error(saveErr))
		}
		return nil, fmt.Errorf("%w: approve challenge: %v", ErrUpstream, err)
	}

	if status != port.ChallengeApproved {
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.logger.Warn("clear pending challenge failed", zap.Error(saveErr))
		}
		s.logger.Info("login rejected",
			zap.String("session_id", session.ID),
			zap.String("username", pending.Username),
			zap.String("status", string(status)),
		)
		return nil, ErrChallengeNotApproved
	}

	user, err := s.users.Get(ctx, pending.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	session.User = &domain.AuthenticatedUser{
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.events != nil {
		event := domain.UserAuthenticatedEvent{
			EventID:         uuid.NewString(),
			Username:        user.Username,
			Identity:        user.Identity,
			ChallengeSID:    pending.ChallengeSID,
			AuthenticatedAt: now,
		}
		if err := s.events.PublishUserAuthenticated(ctx, event); err != nil {
			s.logger.Warn("publish user authenticated event failed", zap.Error(err))
		}
	}

	s.logger.Info("login completed",
		zap.String("session_id", session.ID),
		zap.String("username", user.Username),
	)

	return session.User, nil
}

// Logout destroys the session outright. It is idempotent: logging out an
// unknown or already-destroyed session succeeds.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if s.events != nil && session.User != nil {
		event := domain.SessionLoggedOutEvent{
			EventID:     uuid.NewString(),
			SessionID:   session.ID,
			Username:    session.User.Username,
			LoggedOutAt: s.now().UTC(),
		}
		if err := s.events.PublishSessionLoggedOut(ctx, event); err != nil {
			s.logger.Warn("publish logged out event failed", zap.Error(err))
		}
	}

	return nil
}
