package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

// UserRepository is the in-memory user directory. It is shared across all
// sessions and guarded by a read-write mutex; records do not survive a
// process restart, which is a documented limitation of this service rather
// than a bug. Swap the port.UserRepository implementation to add
// persistence.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository constructs an empty directory.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

// Exists reports whether a user with the given username is registered.
func (r *UserRepository) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[username]
	return ok, nil
}

// Get returns a copy of the stored user or repository.ErrNotFound.
func (r *UserRepository) Get(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// Put stores the user keyed by username, overwriting any existing record.
func (r *UserRepository) Put(_ context.Context, user domain.User) error {
	username := strings.TrimSpace(user.Username)
	if username == "" {
		return errors.New("memory: username is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[username] = user
	return nil
}

// List returns all registered users ordered by username.
func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })

	return out, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
