package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// SeedStore is the slice of the credential store needed for bootstrap
// seeding.
type SeedStore interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, user *User, newHash string) error
}

// SeedAdmin creates the bootstrap administrator account if the
// credential store holds no users at all. An empty store is itself the
// signal to seed; a store with any user is left untouched.
//
// The default credentials are well known and must be changed before the
// service is exposed. Returns true if seeding happened.
func SeedAdmin(ctx context.Context, store SeedStore, username, password string, logger *slog.Logger) (bool, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		return false, nil
	}

	hash, err := HashSecret(password)
	if err != nil {
		return false, fmt.Errorf("hashing bootstrap password: %w", err)
	}

	admin := &User{
		Username: username,
		Admin:    true,
	}
	if err := store.Upsert(ctx, admin, hash); err != nil {
		return false, fmt.Errorf("creating bootstrap admin: %w", err)
	}

	logger.Warn("bootstrap admin account created",
		"username", username,
		"action_required", "change this password immediately",
	)

	return true, nil
}
