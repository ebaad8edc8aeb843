package credstore

import (
	"context"
	"sync"

	"github.com/nerrad567/thingsd/internal/auth"
)

// MemoryStore keeps user accounts in process memory. All accounts are
// lost on restart; the bootstrap admin is re-seeded on the next start.
type MemoryStore struct {
	mu     sync.RWMutex
	users  []auth.User
	nextID int64
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Lookup retrieves a user by username.
func (s *MemoryStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.users {
		if s.users[i].Username == username {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// List returns all users in creation order.
func (s *MemoryStore) List(ctx context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]auth.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// Upsert creates or updates the user keyed by username.
func (s *MemoryStore) Upsert(ctx context.Context, user *auth.User, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].Username == user.Username {
			s.users[i].Admin = user.Admin
			if newHash != "" {
				s.users[i].PasswordHash = newHash
			}
			user.ID = s.users[i].ID
			user.PasswordHash = s.users[i].PasswordHash
			return nil
		}
	}

	if newHash == "" {
		return auth.ErrEmptySecret
	}

	user.ID = s.nextID
	s.nextID++
	user.PasswordHash = newHash
	s.users = append(s.users, *user)
	return nil
}

// Remove deletes a user by identifier.
func (s *MemoryStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return auth.ErrUserNotFound
}

// Count returns the total number of accounts.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Persist is a no-op for the in-memory backend.
func (s *MemoryStore) Persist(ctx context.Context) error {
	return nil
}
