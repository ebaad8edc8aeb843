package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// The resource routes live at the root; everything else sits under
// /api. Authentication is enforced per-handler rather than by
// middleware because GET / is public while POST/PUT on the same path
// are not, and admin routes redirect rather than erroring.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Resource CRUD on the root path
	r.Get("/", s.handleListThings)
	r.Post("/", s.handleCreateThing)
	r.Put("/", s.handleReplaceThing)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Notification hub
		r.Get("/subscribe", s.handleSubscribe)
		r.Get("/ws", s.handleWebSocket)

		// User administration
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleUpsertUser)
			r.Put("/", s.handleUpsertUser)
			r.Delete("/{id}", s.handleRemoveUser)
		})

		// Resource removal addresses the record by URL id
		r.Delete("/{id}", s.handleRemoveThing)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"backend":     s.cfg.Storage.Backend,
		"subscribers": s.hub.SubscriberCount(),
	})
}
