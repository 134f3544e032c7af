package port

import (
	"context"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
)

// EventPublisher publishes audit events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserAuthenticated(ctx context.Context, event domain.UserAuthenticatedEvent) error
	PublishSessionLoggedOut(ctx context.Context, event domain.SessionLoggedOutEvent) error
}
