package handlers

import (
	"encoding/json"
	"time"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserSummary describes the view of a user returned by the API.
type UserSummary struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// RegisterStartRequest begins a registration ceremony.
type RegisterStartRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// RegisterStartResponse carries the ceremony-creation options produced by
// the verification service. Options is relayed verbatim; the factor SID
// must be echoed on the complete call.
type RegisterStartResponse struct {
	Success   bool            `json:"success"`
	Options   json.RawMessage `json:"options"`
	FactorSID string          `json:"factorSid"`
}

// RegisterCompleteRequest finishes a registration ceremony.
type RegisterCompleteRequest struct {
	Credential json.RawMessage `json:"credential"`
	FactorSID  string          `json:"factorSid"`
}

// RegisterCompleteResponse confirms a completed registration.
type RegisterCompleteResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// LoginStartRequest begins a login ceremony.
type LoginStartRequest struct {
	Username string `json:"username"`
}

// LoginStartResponse carries the ceremony-assertion options. The challenge
// SID must be echoed on the complete call.
type LoginStartResponse struct {
	Success      bool            `json:"success"`
	Options      json.RawMessage `json:"options"`
	ChallengeSID string          `json:"challengeSid"`
}

// LoginCompleteRequest finishes a login ceremony.
type LoginCompleteRequest struct {
	Credential   json.RawMessage `json:"credential"`
	ChallengeSID string          `json:"challengeSid"`
}

// LoginCompleteResponse confirms an authenticated session.
type LoginCompleteResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// LogoutResponse confirms session destruction.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CurrentUserResponse reports the session's authentication state.
type CurrentUserResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserSummary `json:"user,omitempty"`
}

// DebugUser is the directory listing entry exposed on the debug endpoint.
type DebugUser struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports readiness including dependency checks.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
