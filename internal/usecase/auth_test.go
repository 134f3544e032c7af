package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
)

func registeredAlice() domain.User {
	return domain.User{
		Username:    "alice",
		DisplayName: "Alice Example",
		Identity:    "616c696365000000",
		FactorSID:   "YF123",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAuthService_Start(t *testing.T) {
	users := newMockUserRepository(registeredAlice())
	sessions := newMockSessionStore()
	verifier := &mockVerifier{
		challenge: &port.Challenge{SID: "YC456", Options: json.RawMessage(`{"challenge":"abc"}`)},
	}

	service := NewAuthService(users, sessions, verifier, nil)
	fixedNow := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	session := newTestSession()
	challenge, err := service.Start(context.Background(), session, "alice")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if challenge.SID != "YC456" {
		t.Fatalf("expected challenge SID YC456, got %s", challenge.SID)
	}
	if verifier.lastIdentity != "616c696365000000" {
		t.Fatalf("challenge must be created against the stored identity, got %s", verifier.lastIdentity)
	}

	pending := session.Challenge
	if pending == nil {
		t.Fatalf("expected pending challenge on session")
	}
	if pending.Username != "alice" || pending.ChallengeSID != "YC456" {
		t.Fatalf("unexpected pending entry: %+v", pending)
	}
	if !pending.ExpiresAt.Equal(fixedNow.Add(defaultPendingTTL)) {
		t.Fatalf("expected pending expiry %v, got %v", fixedNow.Add(defaultPendingTTL), pending.ExpiresAt)
	}
}

func TestAuthService_Start_UnknownUser(t *testing.T) {
	verifier := &mockVerifier{}
	service := NewAuthService(newMockUserRepository(), newMockSessionStore(), verifier, nil)

	_, err := service.Start(context.Background(), newTestSession(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if verifier.createChallengeCalls != 0 {
		t.Fatalf("unknown user must not reach the verification service")
	}
}

func TestAuthService_Start_Validation(t *testing.T) {
	service := NewAuthService(newMockUserRepository(), newMockSessionStore(), &mockVerifier{}, nil)

	_, err := service.Start(context.Background(), newTestSession(), "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthService_Complete_NoPending(t *testing.T) {
	service := NewAuthService(newMockUserRepository(), newMockSessionStore(), &mockVerifier{}, nil)

	_, err := service.Complete(context.Background(), newTestSession(), "", testCredential)
	if !errors.Is(err, ErrNoPendingLogin) {
		t.Fatalf("expected ErrNoPendingLogin, got %v", err)
	}
}

func TestAuthService_Complete_ChallengeSIDMismatch(t *testing.T) {
	verifier := &mockVerifier{status: port.ChallengeApproved}
	service := NewAuthService(newMockUserRepository(registeredAlice()), newMockSessionStore(), verifier, nil)

	session := newTestSession()
	session.Challenge = &domain.PendingChallenge{Username: "alice", ChallengeSID: "YC_current", ExpiresAt: time.Now().Add(time.Minute)}

	_, err := service.Complete(context.Background(), session, "YC_stale", testCredential)
	if !errors.Is(err, ErrPendingMismatch) {
		t.Fatalf("expected ErrPendingMismatch, got %v", err)
	}
	if session.Challenge == nil {
		t.Fatalf("a stale complete must not consume the current pending entry")
	}
	if verifier.approveChallengeCalls != 0 {
		t.Fatalf("a stale complete must not reach the verification service")
	}
}

func TestAuthService_Complete_Expired(t *testing.T) {
	sessions := newMockSessionStore()
	service := NewAuthService(newMockUserRepository(registeredAlice()), sessions, &mockVerifier{}, nil)
	fixedNow := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	session := newTestSession()
	session.Challenge = &domain.PendingChallenge{Username: "alice", ChallengeSID: "YC456", ExpiresAt: fixedNow.Add(-time.Second)}

	_, err := service.Complete(context.Background(), session, "YC456", testCredential)
	if !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("expected ErrPendingExpired, got %v", err)
	}
	if session.Challenge != nil {
		t.Fatalf("expected expired pending entry to be cleared")
	}
}

func TestAuthService_Complete_NotApproved(t *testing.T) {
	verifier := &mockVerifier{status: port.ChallengeDenied}
	service := NewAuthService(newMockUserRepository(registeredAlice()), newMockSessionStore(), verifier, nil)

	session := newTestSession()
	session.Challenge = &domain.PendingChallenge{Username: "alice", ChallengeSID: "YC456", ExpiresAt: time.Now().Add(time.Minute)}

	_, err := service.Complete(context.Background(), session, "YC456", testCredential)
	if !errors.Is(err, ErrChallengeNotApproved) {
		t.Fatalf("expected ErrChallengeNotApproved, got %v", err)
	}
	if session.User != nil {
		t.Fatalf("a rejected challenge must not authenticate the session")
	}
	if session.Challenge != nil {
		t.Fatalf("a rejected challenge must still consume the pending entry")
	}
}

func TestAuthService_Complete_UpstreamFailure(t *testing.T) {
	verifier := &mockVerifier{approveChallengeErr: errors.New("boom")}
	service := NewAuthService(newMockUserRepository(registeredAlice()), newMockSessionStore(), verifier, nil)

	session := newTestSession()
	session.Challenge = &domain.PendingChallenge{Username: "alice", ChallengeSID: "YC456", ExpiresAt: time.Now().Add(time.Minute)}

	_, err := service.Complete(context.Background(), session, "YC456", testCredential)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if session.User != nil {
		t.Fatalf("upstream failure must not authenticate the session")
	}
}

func TestAuthService_Complete_Success(t *testing.T) {
	sessions := newMockSessionStore()
	verifier := &mockVerifier{status: port.ChallengeApproved}
	publisher := &mockEventPublisher{}
	service := NewAuthService(newMockUserRepository(registeredAlice()), sessions, verifier, publisher)

	session := newTestSession()
	session.Challenge = &domain.PendingChallenge{Username: "alice", Identity: "616c696365000000", ChallengeSID: "YC456", ExpiresAt: time.Now().Add(time.Minute)}

	user, err := service.Complete(context.Background(), session, "YC456", testCredential)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if user.Username != "alice" || user.DisplayName != "Alice Example" {
		t.Fatalf("unexpected authenticated user: %+v", user)
	}
	if session.User == nil || session.User.Username != "alice" {
		t.Fatalf("expected session to carry the authenticated user")
	}
	if session.Challenge != nil {
		t.Fatalf("expected pending entry to be consumed")
	}

	if publisher.authenticatedCalls != 1 {
		t.Fatalf("expected authenticated event, got %d", publisher.authenticatedCalls)
	}
	if publisher.lastAuthenticated.ChallengeSID != "YC456" {
		t.Fatalf("unexpected authenticated event: %+v", publisher.lastAuthenticated)
	}
}

func TestAuthService_Logout(t *testing.T) {
	sessions := newMockSessionStore()
	publisher := &mockEventPublisher{}
	service := NewAuthService(newMockUserRepository(), sessions, &mockVerifier{}, publisher)

	session := newTestSession()
	session.User = &domain.AuthenticatedUser{Username: "alice", DisplayName: "Alice Example"}
	if err := sessions.Save(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if err := service.Logout(context.Background(), session); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if sessions.lastDeleted != session.ID {
		t.Fatalf("expected session %s deleted, got %s", session.ID, sessions.lastDeleted)
	}
	if publisher.loggedOutCalls != 1 {
		t.Fatalf("expected logged out event, got %d", publisher.loggedOutCalls)
	}
}

func TestAuthService_Logout_Anonymous(t *testing.T) {
	sessions := newMockSessionStore()
	publisher := &mockEventPublisher{}
	service := NewAuthService(newMockUserRepository(), sessions, &mockVerifier{}, publisher)

	// Logging out a session that never authenticated succeeds and stays quiet.
	if err := service.Logout(context.Background(), newTestSession()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if publisher.loggedOutCalls != 0 {
		t.Fatalf("anonymous logout must not publish an event")
	}

	if err := service.Logout(context.Background(), nil); err != nil {
		t.Fatalf("Logout of nil session returned error: %v", err)
	}
}
