package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	oldest    time.Time
	hasOldest bool
	oldestErr error
	recordErr error

	recordedKey string
	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	f.recordedKey = identifier
	f.recordCalls++
	return f.recordErr
}

func (f *fakeRateLimitStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, f.oldestErr
}

func performLimitedRequest(t *testing.T, store RateLimitStore, rule RateLimitRule, now time.Time) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return now })

	r := gin.New()
	r.POST("/start", limiter.RateLimit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/start", nil)
	req.RemoteAddr = "203.0.113.7:4444"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsBelowLimit(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{count: 2}
	rule := RateLimitRule{Name: "register_start_ip", Limit: 5, Window: time.Minute}

	w := performLimitedRequest(t, store, rule, now)
	if w.Code != http.StatusOK {
		t.Fatalf("expected request allowed, got %d", w.Code)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected attempt recorded, got %d", store.recordCalls)
	}
	if store.recordedKey != "register_start_ip:203.0.113.7" {
		t.Fatalf("unexpected limit key %s", store.recordedKey)
	}
}

func TestRateLimiter_RejectsAtLimit(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{
		count:     5,
		oldest:    now.Add(-30 * time.Second),
		hasOldest: true,
	}
	rule := RateLimitRule{Name: "register_start_ip", Limit: 5, Window: time.Minute}

	w := performLimitedRequest(t, store, rule, now)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("rejected request must not record an attempt")
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %s", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{countErr: errors.New("redis down")}
	rule := RateLimitRule{Name: "login_start_ip", Limit: 5, Window: time.Minute}

	w := performLimitedRequest(t, store, rule, now)
	if w.Code != http.StatusOK {
		t.Fatalf("store failures must fail open, got %d", w.Code)
	}
}
