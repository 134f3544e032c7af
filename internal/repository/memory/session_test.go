package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore(30 * time.Minute)
	ctx := context.Background()

	session := &domain.Session{
		ID:        "sess-1",
		CreatedAt: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
		Registration: &domain.PendingRegistration{
			Username:  "alice",
			FactorSID: "YF123",
			ExpiresAt: time.Date(2025, 1, 2, 15, 9, 5, 0, time.UTC),
		},
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != "sess-1" || got.Registration == nil || got.Registration.FactorSID != "YF123" {
		t.Fatalf("unexpected session: %+v", got)
	}

	// The store hands out copies; mutating one must not leak into the store.
	got.Registration = nil
	again, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if again.Registration == nil {
		t.Fatalf("stored session mutated through returned copy")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(10 * time.Minute)
	ctx := context.Background()

	current := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return current })

	if err := store.Save(ctx, &domain.Session{ID: "sess-1"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	current = current.Add(9 * time.Minute)
	if _, err := store.Get(ctx, "sess-1"); err != nil {
		t.Fatalf("session expired too early: %v", err)
	}

	// Get refreshes nothing; only Save renews the TTL.
	current = current.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestSessionStore_Delete_Idempotent(t *testing.T) {
	store := NewSessionStore(time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, &domain.Session{ID: "sess-1"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("repeated Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
