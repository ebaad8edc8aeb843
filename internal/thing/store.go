// Package thing defines the resource store: a pluggable collection of
// opaque records with interchangeable persistence backends.
//
// Four backends implement the same Store interface:
//
//   - MemoryStore: in-memory only, no durability
//   - FileStore: in-memory, mirrored to a single JSON file on every mutation
//   - DocStore: embedded document collection, flushed on Persist
//   - SQLiteStore: relational table with an auto-incrementing key
//
// All backends preserve insertion order in List and never reuse an
// identifier after removal within a process lifetime. Replace and
// Remove of a non-existent identifier are silent no-ops on every
// backend - one uniform policy rather than the per-backend mix the
// behaviour was ported from.
package thing

import "context"

// Store is the capability set every persistence backend implements.
type Store interface {
	// Insert stores a new thing and returns its assigned identifier.
	// The caller's map is not retained.
	Insert(ctx context.Context, t Thing) (int64, error)

	// Replace swaps the thing with the given identifier for a new one,
	// preserving identifier and position. A full replace, not a merge.
	// Replacing a missing identifier is a silent no-op.
	Replace(ctx context.Context, id int64, t Thing) error

	// Remove deletes the thing with the given identifier.
	// Removing a missing identifier is a silent no-op.
	Remove(ctx context.Context, id int64) error

	// List returns all things in insertion order.
	List(ctx context.Context) ([]Thing, error)

	// Persist flushes state to the durable medium.
	// A no-op for backends that are already durable (or never durable).
	Persist(ctx context.Context) error
}
