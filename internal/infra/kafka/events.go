package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/security"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, username string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Username:  username,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes passkey.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		Username     string         `json:"username"`
		DisplayName  string         `json:"display_name"`
		Identity     string         `json:"identity"`
		FactorSID    string         `json:"factor_sid"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		Username:     event.Username,
		DisplayName:  event.DisplayName,
		Identity:     event.Identity,
		FactorSID:    event.FactorSID,
		RegisteredAt: event.RegisteredAt,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "user.registered", event.Username, event.RegisteredAt, payload)
}

// PublishUserAuthenticated publishes passkey.user.authenticated events.
func (p *EventPublisher) PublishUserAuthenticated(ctx context.Context, event domain.UserAuthenticatedEvent) error {
	payload := struct {
		Username        string         `json:"username"`
		Identity        string         `json:"identity"`
		ChallengeSID    string         `json:"challenge_sid"`
		AuthenticatedAt time.Time      `json:"authenticated_at"`
		Metadata        map[string]any `json:"metadata,omitempty"`
	}{
		Username:        event.Username,
		Identity:        event.Identity,
		ChallengeSID:    event.ChallengeSID,
		AuthenticatedAt: event.AuthenticatedAt,
		Metadata:        event.Metadata,
	}

	return p.publish(ctx, event.EventID, "user.authenticated", event.Username, event.AuthenticatedAt, payload)
}

// PublishSessionLoggedOut publishes passkey.session.logged_out events. The
// session ID is hashed: it is a bearer credential and must not land in a
// topic in the clear.
func (p *EventPublisher) PublishSessionLoggedOut(ctx context.Context, event domain.SessionLoggedOutEvent) error {
	payload := struct {
		SessionID   string         `json:"session_id_hash"`
		Username    string         `json:"username"`
		LoggedOutAt time.Time      `json:"logged_out_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		SessionID:   security.HashToken(event.SessionID),
		Username:    event.Username,
		LoggedOutAt: event.LoggedOutAt,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "session.logged_out", event.Username, event.LoggedOutAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
