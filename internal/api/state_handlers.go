package api

import (
	"encoding/json"
	"net/http"

	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/session"
)

// JSON handlers for scripted clients and the Go SDK

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.sessions.Catalog()
	if cat == nil {
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog is unavailable")
		return
	}

	filter := r.URL.Query().Get("type")
	if filter == "" {
		filter = models.FilterAll
	}
	if !cat.HasType(filter) {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown product type: "+filter)
		return
	}

	products := cat.Search(filter, r.URL.Query().Get("q"))
	respondJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
		"types":    cat.Types(),
		"metrics":  cat.Metrics(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), clientFor(r))
	if err != nil {
		respondActionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var a session.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if a.Type == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "type is required")
		return
	}
	if a.ColorHint == "" {
		a.ColorHint = colorHint(r)
	}

	sess, err := s.sessions.Get(r.Context(), clientFor(r))
	if err != nil {
		respondActionError(w, err)
		return
	}

	snap, err := sess.Apply(r.Context(), a)
	if err != nil {
		respondActionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
