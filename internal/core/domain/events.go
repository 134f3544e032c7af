package domain

import "time"

// UserRegisteredEvent represents the payload for passkey.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	Username     string
	DisplayName  string
	Identity     string
	FactorSID    string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserAuthenticatedEvent represents the payload for passkey.user.authenticated messages.
type UserAuthenticatedEvent struct {
	EventID         string
	Username        string
	Identity        string
	ChallengeSID    string
	AuthenticatedAt time.Time
	Metadata        map[string]any
}

// SessionLoggedOutEvent represents the payload for passkey.session.logged_out messages.
type SessionLoggedOutEvent struct {
	EventID     string
	SessionID   string
	Username    string
	LoggedOutAt time.Time
	Metadata    map[string]any
}
