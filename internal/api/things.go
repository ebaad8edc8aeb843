package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thingsd/internal/infrastructure/mqtt"
	"github.com/nerrad567/thingsd/internal/thing"
)

// handleListThings returns every stored thing. Public, no auth.
func (s *Server) handleListThings(w http.ResponseWriter, r *http.Request) {
	things, err := s.things.List(r.Context())
	if err != nil {
		s.logger.Error("listing things failed", "error", err)
		writeInternalError(w, "listing things failed")
		return
	}
	writeJSON(w, http.StatusOK, things)
}

// handleCreateThing inserts a new thing stamped with the caller's identity.
func (s *Server) handleCreateThing(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	t := thing.Thing(body)
	t.SetWho(user.Username)

	id, err := s.things.Insert(r.Context(), t)
	if err != nil {
		s.logger.Error("inserting thing failed", "error", err)
		writeInternalError(w, "inserting thing failed")
		return
	}
	t.SetID(id)

	if err := s.afterMutation(r.Context()); err != nil {
		s.logger.Error("persisting things failed", "error", err)
		writeInternalError(w, "persisting things failed")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleReplaceThing replaces a thing whole, addressed by the id (or
// cid) carried in the request body. Replace is a full overwrite, not a
// merge.
func (s *Server) handleReplaceThing(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	t := thing.Thing(body)
	id, ok := t.ID()
	if !ok {
		writeBadRequest(w, "missing or non-numeric id")
		return
	}
	t.SetWho(user.Username)

	if err := s.things.Replace(r.Context(), id, t); err != nil {
		s.logger.Error("replacing thing failed", "id", id, "error", err)
		writeInternalError(w, "replacing thing failed")
		return
	}
	t.SetID(id)

	if err := s.afterMutation(r.Context()); err != nil {
		s.logger.Error("persisting things failed", "error", err)
		writeInternalError(w, "persisting things failed")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleRemoveThing deletes a thing addressed by the URL id.
func (s *Server) handleRemoveThing(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "missing or non-numeric id")
		return
	}

	if err := s.things.Remove(r.Context(), id); err != nil {
		s.logger.Error("removing thing failed", "id", id, "error", err)
		writeInternalError(w, "removing thing failed")
		return
	}

	if err := s.afterMutation(r.Context()); err != nil {
		s.logger.Error("persisting things failed", "error", err)
		writeInternalError(w, "persisting things failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// afterMutation flushes the store and broadcasts the full current
// list to every subscriber. Runs synchronously so the triggering
// request observes persistence errors, but fan-out itself never
// blocks on a slow subscriber.
func (s *Server) afterMutation(ctx context.Context) error {
	if err := s.things.Persist(ctx); err != nil {
		return err
	}

	things, err := s.things.List(ctx)
	if err != nil {
		s.logger.Error("listing things for broadcast failed", "error", err)
		return nil
	}

	payload, err := json.Marshal(things)
	if err != nil {
		s.logger.Error("encoding broadcast payload failed", "error", err)
		return nil
	}

	s.hub.Broadcast(payload)

	if s.relay != nil {
		// Relay publish waits on broker acknowledgment; keep it off
		// the request path.
		go func() {
			if err := s.relay.PublishRetained(mqtt.TopicThings, payload); err != nil {
				s.logger.Warn("mqtt relay publish failed", "error", err)
			}
		}()
	}
	return nil
}
