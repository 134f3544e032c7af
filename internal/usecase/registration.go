package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
)

const defaultPendingTTL = 5 * time.Minute

// RegistrationService drives the two-phase passkey registration ceremony.
// Start obtains ceremony-creation options from the verification service and
// stashes a pending entry in the caller's session; Complete forwards the
// browser-produced credential for verification and, on success, adds the
// user to the directory. The pending entry is single-use: any Complete
// outcome consumes it.
type RegistrationService struct {
	users      port.UserRepository
	sessions   port.SessionStore
	verifier   port.PasskeyVerifier
	events     port.EventPublisher
	pendingTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(users port.UserRepository, sessions port.SessionStore, verifier port.PasskeyVerifier, events port.EventPublisher) *RegistrationService {
	return &RegistrationService{
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
func (s *RegistrationService) WithLogger(log *zap.Logger) *RegistrationService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithPendingTTL overrides how long a started registration stays completable.
func (s *RegistrationService) WithPendingTTL(ttl time.Duration) *RegistrationService {
	if ttl > 0 {
		s.pendingTTL = ttl
	}
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Start validates the request, creates a passkey factor upstream, and stores
// the pending registration in the session, overwriting any earlier one. The
// returned factor carries the ceremony-creation options for the browser.
func (s *RegistrationService) Start(ctx context.Context, session *domain.Session, username, displayName string) (*port.Factor, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" || displayName == "" {
		return nil, fmt.Errorf("%w: username and display name are required", ErrValidation)
	}

	// Load-bearing: Put is only ever called after this check, so it is the
	// sole guard against duplicate accounts.
	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	identity := domain.DeriveIdentity(username)

	factor, err := s.verifier.CreateFactor(ctx, identity, displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: create factor: %v", ErrUpstream, err)
	}

	now := s.now().UTC()
	session.Registration = &domain.PendingRegistration{
		Username:    username,
		DisplayName: displayName,
		Identity:    identity,
		FactorSID:   factor.SID,
		ExpiresAt:   now.Add(s.pendingTTL),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("registration started",
		zap.String("session_id", session.ID),
		zap.String("username", username),
		zap.String("identity", identity),
	)

	return factor, nil
}

// Complete forwards the credential to the verification service against the
// session's pending registration. The caller must echo the factor SID it
// received from Start; a mismatch means the complete belongs to an
// overwritten start and is rejected without consuming the current entry.
// Every other outcome clears the pending entry, so a failed verification
// requires a fresh Start.
func (s *RegistrationService) Complete(ctx context.Context, session *domain.Session, factorSID string, credential json.RawMessage) (string, error) {
	pending := session.Registration
	if pending == nil {
		return "", ErrNoPendingRegistration
	}
	if len(credential) == 0 {
		return "", fmt.Errorf("%w: credential is required", ErrValidation)
	}
	if factorSID != "" && factorSID != pending.FactorSID {
		return "", ErrPendingMismatch
	}

	now := s.now().UTC()
	if pending.Expired(now) {
		session.Registration = nil
		if err := s.sessions.Save(ctx, session); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
		return "", ErrPendingExpired
	}

	// Single-use from here on: success or failure, the entry is gone.
	session.Registration = nil

	if err := s.verifier.VerifyFactor(ctx, credential); err != nil {
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.logger.Warn("clear pending registration failed", zap.Error(saveErr))
		}
		return "", fmt.Errorf("%w: verify factor: %v", ErrUpstream, err)
	}

	user := domain.User{
		Username:    pending.Username,
		DisplayName: pending.DisplayName,
		Identity:    pending.Identity,
		FactorSID:   pending.FactorSID,
		CreatedAt:   now,
	}
	if err := s.users.Put(ctx, user); err != nil {
		return "", fmt.Errorf("store user: %w", err)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			Username:     user.Username,
			DisplayName:  user.DisplayName,
			Identity:     user.Identity,
			FactorSID:    user.FactorSID,
			RegisteredAt: user.CreatedAt,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event failed", zap.Error(err))
		}
	}

	s.logger.Info("registration completed",
		zap.String("session_id", session.ID),
		zap.String("username", user.Username),
	)

	return user.Username, nil
}
