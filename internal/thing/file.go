package thing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File permission modes, matching the database package.
const (
	fileDirPermissions = 0750
	filePermissions    = 0600
)

// FileStore keeps things in memory and mirrors the full list to a
// single JSON array file on every mutation.
//
// At startup the file is reloaded and the next identifier is one
// greater than the maximum identifier found; an absent, empty, or
// unparseable file starts the store empty.
type FileStore struct {
	mu     sync.Mutex
	path   string
	items  []Thing
	nextID int64
}

// OpenFileStore opens (or creates) a file-backed store at path.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), fileDirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &FileStore{path: path, nextID: 1}
	s.load()
	return s, nil
}

// load reads the JSON array file. Unreadable or unparseable content
// means starting empty - the file is treated as a best-effort mirror,
// not a source of truth worth failing startup over.
func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var items []Thing
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}

	s.items = items
	for _, t := range items {
		if id, ok := t.ID(); ok && id >= s.nextID {
			s.nextID = id + 1
		}
	}
}

// flush writes the current list to the mirror file.
// Callers must hold s.mu.
func (s *FileStore) flush() error {
	items := s.items
	if items == nil {
		items = []Thing{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding things: %w", err)
	}
	if err := os.WriteFile(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("writing things file: %w", err)
	}
	return nil
}

// Insert stores a new thing, mirrors the file, and returns the identifier.
func (s *FileStore) Insert(_ context.Context, t Thing) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := t.Clone()
	id := s.nextID
	s.nextID++
	stored.SetID(id)
	s.items = append(s.items, stored)

	if err := s.flush(); err != nil {
		return 0, err
	}
	return id, nil
}

// Replace swaps the thing with the given identifier and mirrors the file.
func (s *FileStore) Replace(_ context.Context, id int64, t Thing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if eid, ok := existing.ID(); ok && eid == id {
			stored := t.Clone()
			stored.SetID(id)
			s.items[i] = stored
			return s.flush()
		}
	}
	return nil
}

// Remove deletes the thing with the given identifier and mirrors the file.
func (s *FileStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if eid, ok := existing.ID(); ok && eid == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return s.flush()
		}
	}
	return nil
}

// List returns all things in insertion order.
func (s *FileStore) List(_ context.Context) ([]Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Thing, 0, len(s.items))
	for _, t := range s.items {
		items = append(items, t.Clone())
	}
	return items, nil
}

// Persist rewrites the mirror file. Mutations already mirror eagerly,
// so this is only needed to heal a file that failed to write.
func (s *FileStore) Persist(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}
