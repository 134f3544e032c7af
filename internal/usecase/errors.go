package usecase

import "errors"

// Closed set of flow errors. Handlers branch on these with errors.Is instead
// of matching message text.
var (
	// ErrValidation indicates missing or malformed caller input.
	ErrValidation = errors.New("invalid input")
	// ErrUserExists indicates the username is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates the username is absent from the directory.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoPendingRegistration indicates complete was called without a matching start.
	ErrNoPendingRegistration = errors.New("no registration in progress")
	// ErrNoPendingLogin indicates complete was called without a matching start.
	ErrNoPendingLogin = errors.New("no login in progress")
	// ErrPendingMismatch indicates the echoed reference does not match the pending entry.
	ErrPendingMismatch = errors.New("pending ceremony reference mismatch")
	// ErrPendingExpired indicates the pending entry outlived its deadline.
	ErrPendingExpired = errors.New("pending ceremony expired")
	// ErrChallengeNotApproved indicates the verification service did not approve the challenge.
	ErrChallengeNotApproved = errors.New("challenge not approved")
	// ErrUpstream indicates the verification service failed or rejected the call.
	ErrUpstream = errors.New("verification service error")
)
