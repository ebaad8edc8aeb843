package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/thingsd/internal/auth"
)

// SQLiteStore keeps user accounts in the users table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed credential store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Lookup retrieves a user by username.
func (s *SQLiteStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, is_admin, created_at, updated_at FROM users WHERE username = ?",
		username)
	return scanUserFrom(row)
}

// List returns all users ordered by identifier.
func (s *SQLiteStore) List(ctx context.Context) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, password_hash, is_admin, created_at, updated_at FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Upsert creates or updates the user keyed by username.
func (s *SQLiteStore) Upsert(ctx context.Context, user *auth.User, newHash string) error {
	existing, err := s.Lookup(ctx, user.Username)
	switch {
	case err == nil:
		return s.update(ctx, user, existing, newHash)
	case errors.Is(err, auth.ErrUserNotFound):
		return s.insert(ctx, user, newHash)
	default:
		return err
	}
}

func (s *SQLiteStore) insert(ctx context.Context, user *auth.User, newHash string) error {
	if newHash == "" {
		return auth.ErrEmptySecret
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Username, newHash, boolToInt(user.Admin), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new user id: %w", err)
	}
	user.ID = id
	user.PasswordHash = newHash
	user.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	user.UpdatedAt = user.CreatedAt
	return nil
}

func (s *SQLiteStore) update(ctx context.Context, user, existing *auth.User, newHash string) error {
	hash := existing.PasswordHash
	if newHash != "" {
		hash = newHash
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, is_admin = ?, updated_at = ? WHERE id = ?`,
		hash, boolToInt(user.Admin), now, existing.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	user.ID = existing.ID
	user.PasswordHash = hash
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	return nil
}

// Remove deletes a user by identifier.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// Persist is a no-op; SQLite writes are durable at commit.
func (s *SQLiteStore) Persist(ctx context.Context) error {
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanUserFrom(s scanner) (*auth.User, error) {
	var u auth.User
	var isAdmin int
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &isAdmin, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Admin = isAdmin != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
