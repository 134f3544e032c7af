package domain

import "time"

// PendingRegistration is the server-side half of an in-flight registration
// ceremony. It exists between register/start and register/complete and is
// consumed exactly once, whatever the outcome.
type PendingRegistration struct {
	Username    string
	DisplayName string
	Identity    string
	FactorSID   string
	ExpiresAt   time.Time
}

// PendingChallenge is the server-side half of an in-flight login ceremony.
type PendingChallenge struct {
	Username     string
	Identity     string
	ChallengeSID string
	ExpiresAt    time.Time
}

// Session holds the per-client ephemeral state: at most one pending
// registration, at most one pending challenge, and the authenticated user
// once a login has completed. Its lifetime is bound to the session cookie.
type Session struct {
	ID           string
	Registration *PendingRegistration
	Challenge    *PendingChallenge
	User         *AuthenticatedUser
	CreatedAt    time.Time
}

// Expired reports whether a pending entry's deadline has passed.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Expired reports whether a pending entry's deadline has passed.
func (p *PendingChallenge) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
