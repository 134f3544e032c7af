package domain

import (
	"encoding/hex"
	"strings"
	"time"
)

// identityLength is the fixed width of the correlation identity handed to the
// verification service.
const identityLength = 16

// User is a completed passkey identity. Records are created exclusively by the
// registration flow once the verification service has confirmed the factor,
// and are immutable afterwards.
type User struct {
	Username    string
	DisplayName string
	Identity    string
	FactorSID   string
	CreatedAt   time.Time
}

// AuthenticatedUser is the session-scoped snapshot of a logged-in user. It is
// a copy of the directory record, not a reference into it.
type AuthenticatedUser struct {
	Username    string
	DisplayName string
}

// DeriveIdentity maps a username onto the fixed-length token used to
// correlate the user with the verification service's factor and challenge
// records. The derivation is deterministic: the hex encoding of the username,
// right-padded with '0' and truncated to 16 characters.
//
// Usernames longer than 8 bytes share a prefix-determined identity and short
// usernames collide with their zero-padded forms. The existence check against
// the user directory keeps this from producing duplicate accounts, but the
// identity itself is not collision-free.
func DeriveIdentity(username string) string {
	encoded := hex.EncodeToString([]byte(username))
	if len(encoded) < identityLength {
		encoded += strings.Repeat("0", identityLength-len(encoded))
	}
	return encoded[:identityLength]
}
