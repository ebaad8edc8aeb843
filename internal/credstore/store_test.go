package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/thingsd/internal/auth"
	"github.com/nerrad567/thingsd/internal/docstore"
)

// testSQLiteDB opens a throwaway database with the users table.
func testSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users-test.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`)
	if err != nil {
		t.Fatalf("creating users table: %v", err)
	}
	return db
}

// backends builds one fresh store per backend so every contract test
// runs against all four.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := OpenFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}

	docDB, err := docstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("docstore.Open() error = %v", err)
	}

	return map[string]Store{
		"memory":   NewMemoryStore(),
		"file":     fileStore,
		"docstore": NewDocStore(docDB),
		"sqlite":   NewSQLiteStore(testSQLiteDB(t)),
	}
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()

	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	return hash
}

func TestStore_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			user := &auth.User{Username: "chuck", Admin: true}
			if err := store.Upsert(ctx, user, mustHash(t, "hunter2")); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}

			got, err := store.Lookup(ctx, "chuck")
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got.Username != "chuck" || !got.Admin {
				t.Errorf("Lookup() = %+v, want chuck/admin", got)
			}
			if !auth.SecretMatches("hunter2", got.PasswordHash) {
				t.Error("stored hash does not match secret")
			}

			if _, err := store.Lookup(ctx, "mallory"); !errors.Is(err, auth.ErrUserNotFound) {
				t.Errorf("Lookup(unknown) error = %v, want ErrUserNotFound", err)
			}
		})
	}
}

func TestStore_UpsertKeepsExistingHash(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			user := &auth.User{Username: "chuck", Admin: false}
			if err := store.Upsert(ctx, user, mustHash(t, "hunter2")); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}

			// No new secret: hash is retained, admin flag updates.
			update := &auth.User{Username: "chuck", Admin: true}
			if err := store.Upsert(ctx, update, ""); err != nil {
				t.Fatalf("Upsert(keep hash) error = %v", err)
			}
			if update.ID != user.ID {
				t.Errorf("update.ID = %d, want %d", update.ID, user.ID)
			}

			got, err := store.Lookup(ctx, "chuck")
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if !got.Admin {
				t.Error("admin flag not updated")
			}
			if !auth.SecretMatches("hunter2", got.PasswordHash) {
				t.Error("hash changed despite no new secret")
			}

			// New secret replaces the hash.
			if err := store.Upsert(ctx, &auth.User{Username: "chuck", Admin: true}, mustHash(t, "correct horse")); err != nil {
				t.Fatalf("Upsert(new hash) error = %v", err)
			}
			got, _ = store.Lookup(ctx, "chuck")
			if !auth.SecretMatches("correct horse", got.PasswordHash) {
				t.Error("new hash not stored")
			}
		})
	}
}

func TestStore_UpsertNewUserRequiresHash(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Upsert(ctx, &auth.User{Username: "fresh"}, "")
			if !errors.Is(err, auth.ErrEmptySecret) {
				t.Errorf("Upsert(new, no hash) error = %v, want ErrEmptySecret", err)
			}
			if count, _ := store.Count(ctx); count != 0 {
				t.Errorf("Count() = %d, want 0", count)
			}
		})
	}
}

func TestStore_RemoveAndCount(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			chuck := &auth.User{Username: "chuck", Admin: true}
			if err := store.Upsert(ctx, chuck, mustHash(t, "hunter2")); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			bob := &auth.User{Username: "bob"}
			if err := store.Upsert(ctx, bob, mustHash(t, "sekret")); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}

			if count, _ := store.Count(ctx); count != 2 {
				t.Fatalf("Count() = %d, want 2", count)
			}

			if err := store.Remove(ctx, bob.ID); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if err := store.Remove(ctx, bob.ID); !errors.Is(err, auth.ErrUserNotFound) {
				t.Errorf("second Remove() error = %v, want ErrUserNotFound", err)
			}

			users, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(users) != 1 || users[0].Username != "chuck" {
				t.Errorf("List() = %+v, want [chuck]", users)
			}
		})
	}
}

func TestFileStore_ReloadAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	user := &auth.User{Username: "chuck", Admin: true}
	if err := store.Upsert(ctx, user, mustHash(t, "hunter2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}

	got, err := reopened.Lookup(ctx, "chuck")
	if err != nil {
		t.Fatalf("Lookup() after reload error = %v", err)
	}
	if !got.Admin || !auth.SecretMatches("hunter2", got.PasswordHash) {
		t.Error("reloaded user lost admin flag or hash")
	}

	// New accounts never reuse an identifier from before the restart.
	fresh := &auth.User{Username: "bob"}
	if err := reopened.Upsert(ctx, fresh, mustHash(t, "sekret")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if fresh.ID <= got.ID {
		t.Errorf("fresh.ID = %d, want > %d", fresh.ID, got.ID)
	}
}

func TestUserJSONRedactsHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user := &auth.User{Username: "chuck", Admin: true}
	if err := store.Upsert(ctx, user, mustHash(t, "hunter2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	users, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	data, err := json.Marshal(users)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	if strings.Contains(string(data), user.PasswordHash) {
		t.Error("password hash leaked into JSON output")
	}
}
