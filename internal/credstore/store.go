// Package credstore implements the credential store: user accounts
// keyed by username, with the same pluggable backends as the resource
// store.
//
// The store owns all user records exclusively. Password hashes go in,
// but the List operation is the only bulk read and the auth.User JSON
// shape already redacts the hash; no operation ever returns a secret.
package credstore

import (
	"context"

	"github.com/nerrad567/thingsd/internal/auth"
)

// Store is the capability set every credential backend implements.
//
// Upsert is keyed by username. If the user exists and newHash is empty,
// the existing password hash is retained unchanged (the "keep current
// password" path); an empty hash for a brand-new user is an error. The
// distinction between "no new secret" and "empty secret" is the
// caller's to make before hashing - an empty secret must never reach
// this layer as a hash.
type Store interface {
	// Lookup retrieves a user by username.
	// Returns auth.ErrUserNotFound if no such user exists.
	Lookup(ctx context.Context, username string) (*auth.User, error)

	// List returns all users in creation order.
	List(ctx context.Context) ([]auth.User, error)

	// Upsert creates or updates the user, assigning user.ID on create.
	Upsert(ctx context.Context, user *auth.User, newHash string) error

	// Remove deletes a user by identifier.
	// Returns auth.ErrUserNotFound if no such user exists.
	Remove(ctx context.Context, id int64) error

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int, error)

	// Persist flushes state to the durable medium, where applicable.
	Persist(ctx context.Context) error
}
