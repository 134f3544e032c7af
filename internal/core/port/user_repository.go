package port

import (
	"context"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
)

// UserRepository exposes the user directory. Put is keyed by username with
// overwrite semantics; registration's pre-start existence check is the only
// guard against double inserts, so callers must not skip it.
type UserRepository interface {
	Exists(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, username string) (*domain.User, error)
	Put(ctx context.Context, user domain.User) error
	List(ctx context.Context) ([]domain.User, error)
}
