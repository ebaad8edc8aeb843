package thing

import (
	"context"

	"github.com/nerrad567/thingsd/internal/docstore"
)

// DocStore persists things in an embedded document collection.
// Identifiers are the collection's sequential "cid" indices; Persist
// must be called to flush mutations to disk.
type DocStore struct {
	coll *docstore.Collection
}

// NewDocStore wraps the "things" collection of the given docstore.
func NewDocStore(db *docstore.DB) *DocStore {
	return &DocStore{coll: db.Collection("things")}
}

// Insert stores a new thing and returns the collection-assigned cid.
func (s *DocStore) Insert(_ context.Context, t Thing) (int64, error) {
	return s.coll.Insert(docstore.Document(t)), nil
}

// Replace swaps the document with the given cid. Missing cids are a
// silent no-op, per the store contract.
func (s *DocStore) Replace(_ context.Context, id int64, t Thing) error {
	s.coll.Replace(id, docstore.Document(t))
	return nil
}

// Remove deletes the document with the given cid.
func (s *DocStore) Remove(_ context.Context, id int64) error {
	s.coll.Remove(id)
	return nil
}

// List returns all things in insertion order.
func (s *DocStore) List(_ context.Context) ([]Thing, error) {
	docs := s.coll.Items()
	items := make([]Thing, 0, len(docs))
	for _, doc := range docs {
		items = append(items, Thing(doc))
	}
	return items, nil
}

// Persist flushes the collection to disk. The docstore backend is the
// one variant where durability is explicit rather than per-mutation.
func (s *DocStore) Persist(_ context.Context) error {
	return s.coll.Save()
}
