package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/health"
	"github.com/terra-clan/compare-engine/internal/preferences"
	"github.com/terra-clan/compare-engine/internal/session"
)

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// classify maps a session or action error onto an HTTP status, an error
// code and a message safe to show to clients
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, session.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "catalog_unavailable", "product catalog is unavailable"
	case errors.Is(err, compare.ErrProductNotFound):
		return http.StatusNotFound, "not_found", "product not found"
	case errors.Is(err, compare.ErrAlreadySelected):
		return http.StatusConflict, "already_selected", "product is already selected in another slot"
	case errors.Is(err, compare.ErrFilteredOut):
		return http.StatusConflict, "filtered_out", "product does not match the active type filter"
	case errors.Is(err, compare.ErrPickerClosed):
		return http.StatusConflict, "picker_closed", "product picker is not open"
	case errors.Is(err, compare.ErrInvalidSlot),
		errors.Is(err, session.ErrInvalidAction),
		errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, session.ErrInvalidChartIndex),
		errors.Is(err, session.ErrInvalidClient),
		errors.Is(err, preferences.ErrInvalidPreference):
		return http.StatusBadRequest, "validation_error", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func respondActionError(w http.ResponseWriter, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("action failed", "error", err)
	}
	respondError(w, status, code, message)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !health.Healthy(results) {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
