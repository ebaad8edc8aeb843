package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/thingsd/internal/auth"
)

// userRecord is the on-disk shape for the file backend. A separate
// struct from auth.User because the JSON shape there deliberately
// omits the password hash.
type userRecord struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Admin        bool   `json:"admin"`
}

// FileStore keeps user accounts in memory and mirrors every mutation
// to a JSON file. The file is the source of truth only at startup;
// reads never touch disk.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	users  []userRecord
	nextID int64
}

// OpenFileStore loads the user file at path, creating parent
// directories as needed. A missing or unparseable file yields an
// empty store.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating user store directory: %w", err)
	}

	s := &FileStore{path: path, nextID: 1}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var users []userRecord
	if err := json.Unmarshal(data, &users); err != nil {
		return
	}

	s.users = users
	for _, u := range users {
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
}

func (s *FileStore) flush() error {
	users := s.users
	if users == nil {
		users = []userRecord{}
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing user store: %w", err)
	}
	return nil
}

// Lookup retrieves a user by username.
func (s *FileStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.users {
		if rec.Username == username {
			return recordToUser(rec), nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// List returns all users in creation order.
func (s *FileStore) List(ctx context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]auth.User, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, *recordToUser(rec))
	}
	return out, nil
}

// Upsert creates or updates the user keyed by username.
func (s *FileStore) Upsert(ctx context.Context, user *auth.User, newHash string) error {
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
			return s.flush()
		}
	}

	if newHash == "" {
		return auth.ErrEmptySecret
	}

	user.ID = s.nextID
	s.nextID++
	user.PasswordHash = newHash
	s.users = append(s.users, userRecord{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: newHash,
		Admin:        user.Admin,
	})
	return s.flush()
}

// Remove deletes a user by identifier.
func (s *FileStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return s.flush()
		}
	}
	return auth.ErrUserNotFound
}

// Count returns the total number of accounts.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Persist rewrites the user file from current state.
func (s *FileStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func recordToUser(rec userRecord) *auth.User {
	return &auth.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Admin:        rec.Admin,
	}
}
