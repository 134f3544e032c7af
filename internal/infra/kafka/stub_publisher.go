package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, username string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("username", username),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs passkey.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"username":      event.Username,
		"display_name":  event.DisplayName,
		"identity":      event.Identity,
		"factor_sid":    event.FactorSID,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("user.registered", event.Username, event.RegisteredAt, payload)
	return nil
}

// PublishUserAuthenticated logs passkey.user.authenticated events.
func (p *StubPublisher) PublishUserAuthenticated(_ context.Context, event domain.UserAuthenticatedEvent) error {
	payload := map[string]any{
		"username":         event.Username,
		"identity":         event.Identity,
		"challenge_sid":    event.ChallengeSID,
		"authenticated_at": event.AuthenticatedAt,
	}
	p.logEvent("user.authenticated", event.Username, event.AuthenticatedAt, payload)
	return nil
}

// PublishSessionLoggedOut logs passkey.session.logged_out events.
func (p *StubPublisher) PublishSessionLoggedOut(_ context.Context, event domain.SessionLoggedOutEvent) error {
	payload := map[string]any{
		"session_id":    logger.MaskString(event.SessionID),
		"username":      event.Username,
		"logged_out_at": event.LoggedOutAt,
	}
	p.logEvent("session.logged_out", event.Username, event.LoggedOutAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
