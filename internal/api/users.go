package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thingsd/internal/auth"
)

// handleListUsers returns every account with the password hash
// redacted. The auth.User JSON shape omits the hash field, so the
// records serialize as {id, username, admin} only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeInternalError(w, "listing users failed")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleUpsertUser creates or updates an account keyed by username.
//
// A body without a password field keeps the existing hash (the "keep
// current password" path); a present-but-empty password is rejected
// before hashing. On success the caller is redirected back to the
// admin page, matching the form-driven flow the endpoint serves.
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	username, _ := body["username"].(string)
	if !auth.IsValidUsername(username) {
		writeBadRequest(w, "missing or invalid username")
		return
	}

	var newHash string
	if raw, present := body["password"]; present {
		secret, _ := raw.(string)
		newHash, err = auth.HashSecret(secret)
		if err != nil {
			writeBadRequest(w, "password cannot be empty")
			return
		}
	}

	user := &auth.User{
		Username: username,
		Admin:    parseAdminFlag(body["admin"]),
	}

	if err := s.users.Upsert(r.Context(), user, newHash); err != nil {
		if errors.Is(err, auth.ErrEmptySecret) {
			writeBadRequest(w, "password is required for new users")
			return
		}
		s.logger.Error("upserting user failed", "username", username, "error", err)
		writeInternalError(w, "upserting user failed")
		return
	}

	if err := s.users.Persist(r.Context()); err != nil {
		s.logger.Error("persisting users failed", "error", err)
		writeInternalError(w, "persisting users failed")
		return
	}

	http.Redirect(w, r, "/admin", http.StatusMovedPermanently)
}

// handleRemoveUser deletes an account addressed by the URL id.
func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "missing or non-numeric id")
		return
	}

	if err := s.users.Remove(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeBadRequest(w, "no such user")
			return
		}
		s.logger.Error("removing user failed", "id", id, "error", err)
		writeInternalError(w, "removing user failed")
		return
	}

	if err := s.users.Persist(r.Context()); err != nil {
		s.logger.Error("persisting users failed", "error", err)
		writeInternalError(w, "persisting users failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// parseAdminFlag accepts the JSON boolean and the form-encoded string
// spellings of the admin flag.
func parseAdminFlag(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "on" || val == "1"
	default:
		return false
	}
}
