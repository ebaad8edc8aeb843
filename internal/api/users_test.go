package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/nerrad567/thingsd/internal/auth"
)

func TestListUsers_AdminOnly(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/users", "chuck", "hunter2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var users []auth.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decoding users: %v", err)
	}
	resp.Body.Close()

	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Errorf("user %q response carried a password hash", u.Username)
		}
	}
}

func TestUsers_NonAdminRedirected(t *testing.T) {
	s, ts := newTestServer(t)

	before, err := s.users.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		resp := do(t, method, ts.URL+"/api/users", "bob", "sekret",
			map[string]any{"username": "eve", "password": "pw"})
		resp.Body.Close()

		if resp.StatusCode != http.StatusMovedPermanently {
			t.Errorf("%s status = %d, want 301", method, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/" {
			t.Errorf("%s Location = %q, want /", method, loc)
		}
	}

	// The credential store is unchanged
	after, err := s.users.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if after != before {
		t.Errorf("user count changed %d -> %d on redirected request", before, after)
	}
}

func TestUpsertUser_Create(t *testing.T) {
	s, ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/users", "chuck", "hunter2",
		map[string]any{"username": "alice", "password": "wonderland", "admin": true})
	resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}

	alice, err := s.users.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lookup(alice) error = %v", err)
	}
	if !alice.Admin {
		t.Error("alice.Admin = false, want true")
	}
	if !auth.SecretMatches("wonderland", alice.PasswordHash) {
		t.Error("stored hash does not match supplied password")
	}
}

func TestUpsertUser_AbsentPasswordKeepsHash(t *testing.T) {
	s, ts := newTestServer(t)

	// Body without a password field: bob keeps his hash, gains admin.
	resp := do(t, http.MethodPut, ts.URL+"/api/users", "chuck", "hunter2",
		map[string]any{"username": "bob", "admin": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", resp.StatusCode)
	}

	bob, err := s.users.Lookup(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Lookup(bob) error = %v", err)
	}
	if !bob.Admin {
		t.Error("bob.Admin = false, want true")
	}
	if !auth.SecretMatches("sekret", bob.PasswordHash) {
		t.Error("bob's hash changed despite no password in body")
	}
}

func TestUpsertUser_EmptyPasswordRejected(t *testing.T) {
	s, ts := newTestServer(t)

	// Present-but-empty password is distinct from absent: 400, untouched.
	resp := do(t, http.MethodPost, ts.URL+"/api/users", "chuck", "hunter2",
		map[string]any{"username": "bob", "password": "", "admin": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	bob, err := s.users.Lookup(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Lookup(bob) error = %v", err)
	}
	if bob.Admin {
		t.Error("bob gained admin from a rejected request")
	}
}

func TestUpsertUser_InvalidUsername(t *testing.T) {
	_, ts := newTestServer(t)

	for _, username := range []string{"", "bad user", "bad:user"} {
		resp := do(t, http.MethodPost, ts.URL+"/api/users", "chuck", "hunter2",
			map[string]any{"username": username, "password": "pw"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("username %q status = %d, want 400", username, resp.StatusCode)
		}
	}
}

func TestRemoveUser(t *testing.T) {
	s, ts := newTestServer(t)

	bob, err := s.users.Lookup(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Lookup(bob) error = %v", err)
	}

	resp := do(t, http.MethodDelete, fmt.Sprintf("%s/api/users/%d", ts.URL, bob.ID), "chuck", "hunter2", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Second delete and non-numeric ids are 400
	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/api/users/%d", ts.URL, bob.ID), "chuck", "hunter2", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("repeat delete status = %d, want 400", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/users/abc", "chuck", "hunter2", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", resp.StatusCode)
	}
}
