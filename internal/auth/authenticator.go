package auth

import (
	"context"
	"net/http"
)

// CredentialLookup is the slice of the credential store the
// authenticator needs.
type CredentialLookup interface {
	// Lookup retrieves a user by username.
	// Returns ErrUserNotFound if no such user exists.
	Lookup(ctx context.Context, username string) (*User, error)
}

// Authenticator validates Basic credential headers against a credential
// store.
type Authenticator struct {
	store CredentialLookup
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(store CredentialLookup) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate extracts and validates the request's credentials.
//
// On success it returns the authenticated user; the secret and stored
// hash are never returned. On any failure (missing header, unknown
// user, empty secret, digest mismatch) it writes the 401 challenge to w
// and returns ok=false - the caller must not proceed.
func (a *Authenticator) Authenticate(w http.ResponseWriter, r *http.Request) (*User, bool) {
	username, secret, ok := ParseBasic(r)
	if !ok {
		WriteChallenge(w)
		return nil, false
	}

	// Empty secrets short-circuit before the hash function is invoked.
	if secret == "" {
		WriteChallenge(w)
		return nil, false
	}

	// Unknown users and store failures both challenge; nothing about the
	// account's existence is leaked.
	user, err := a.store.Lookup(r.Context(), username)
	if err != nil || !SecretMatches(secret, user.PasswordHash) {
		WriteChallenge(w)
		return nil, false
	}

	return user, true
}
