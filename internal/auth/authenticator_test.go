package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeLookup is an in-memory CredentialLookup for authenticator tests.
type fakeLookup struct {
	users map[string]*User
}

func (f *fakeLookup) Lookup(_ context.Context, username string) (*User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()

	hash, err := HashSecret("hunter2")
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	return NewAuthenticator(&fakeLookup{
		users: map[string]*User{
			"chuck": {ID: 1, Username: "chuck", PasswordHash: hash, Admin: true},
		},
	})
}

func basicAuthRequest(t *testing.T, username, secret string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	cred := base64.StdEncoding.EncodeToString([]byte(username + ":" + secret))
	r.Header.Set("Authorization", "Basic "+cred)
	return r
}

func TestAuthenticate_Success(t *testing.T) {
	a := testAuthenticator(t)
	w := httptest.NewRecorder()

	user, ok := a.Authenticate(w, basicAuthRequest(t, "chuck", "hunter2"))
	if !ok {
		t.Fatal("Authenticate() ok = false, want true")
	}
	if user.Username != "chuck" {
		t.Errorf("Username = %q, want %q", user.Username, "chuck")
	}
	if !user.Admin {
		t.Error("Admin = false, want true")
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	a := testAuthenticator(t)

	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"missing header", func(t *testing.T) *http.Request {
			return httptest.NewRequest(http.MethodPost, "/", nil)
		}},
		{"wrong scheme", func(t *testing.T) *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("Authorization", "Bearer abc123")
			return r
		}},
		{"invalid base64", func(t *testing.T) *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("Authorization", "Basic not-base64!!!")
			return r
		}},
		{"unknown user", func(t *testing.T) *http.Request {
			return basicAuthRequest(t, "mallory", "hunter2")
		}},
		{"wrong secret", func(t *testing.T) *http.Request {
			return basicAuthRequest(t, "chuck", "hunter3")
		}},
		{"empty secret", func(t *testing.T) *http.Request {
			return basicAuthRequest(t, "chuck", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			user, ok := a.Authenticate(w, tt.req(t))
			if ok || user != nil {
				t.Fatalf("Authenticate() = (%v, %v), want (nil, false)", user, ok)
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := w.Header().Get("WWW-Authenticate"); got == "" {
				t.Error("WWW-Authenticate challenge header missing")
			}
		})
	}
}

func TestParseBasic(t *testing.T) {
	r := basicAuthRequest(t, "chuck", "hunter2")
	username, secret, ok := ParseBasic(r)
	if !ok {
		t.Fatal("ParseBasic() ok = false")
	}
	if username != "chuck" || secret != "hunter2" {
		t.Errorf("ParseBasic() = (%q, %q), want (chuck, hunter2)", username, secret)
	}

	// Secrets may themselves contain colons; only the first separates.
	r = basicAuthRequest(t, "chuck", "hun:ter2")
	username, secret, ok = ParseBasic(r)
	if !ok || username != "chuck" || secret != "hun:ter2" {
		t.Errorf("ParseBasic() = (%q, %q, %v), want (chuck, hun:ter2, true)", username, secret, ok)
	}
}
