package port

import (
	"context"
	"encoding/json"
)

// Factor is the verification service's record of a passkey registration
// ceremony. Options carries the ceremony-creation parameters verbatim; the
// server never interprets them, it only relays them to the browser.
type Factor struct {
	SID     string
	Options json.RawMessage
}

// Challenge is the verification service's record of an in-progress
// authentication attempt.
type Challenge struct {
	SID     string
	Options json.RawMessage
}

// ChallengeStatus is the upstream verdict on a completed challenge. Only
// ChallengeApproved authenticates the user.
type ChallengeStatus string

const (
	ChallengeApproved ChallengeStatus = "approved"
	ChallengeDenied   ChallengeStatus = "denied"
	ChallengePending  ChallengeStatus = "pending"
)

// PasskeyVerifier is the external verification service. All cryptographic
// work (attestation, assertion, signature checks) happens behind this
// interface; the flows treat it as a black box.
type PasskeyVerifier interface {
	CreateFactor(ctx context.Context, identity, friendlyName string) (*Factor, error)
	VerifyFactor(ctx context.Context, credential json.RawMessage) error
	CreateChallenge(ctx context.Context, identity string) (*Challenge, error)
	ApproveChallenge(ctx context.Context, credential json.RawMessage) (ChallengeStatus, error)
}
