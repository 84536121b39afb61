package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
)

// sessionFor returns the caller's session. On failure it has already written
// the static error document.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), clientFor(r))
	if err != nil {
		status, _, _ := classify(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to get session", "error", err)
		}
		s.renderError(w, r, status)
		return nil, false
	}
	return sess, true
}

func (s *Server) renderPage(w http.ResponseWriter, page render.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Accept-CH", colorSchemeHeader)
	w.Header().Set("Vary", colorSchemeHeader)
	if err := s.renderer.Page(w, page); err != nil {
		slog.Error("failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError writes the localized static error document. Only the generic
// catalog message is shown, never the underlying error.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	bundle := s.sessions.Bundle()
	lang := bundle.Resolve(r.Header.Get("Accept-Language"))
	loc := bundle.For(lang)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderer.Error(w, render.ErrorPage{
		Lang:    lang,
		Title:   loc.T("error.title"),
		Message: loc.T("catalog.error"),
	}); err != nil {
		slog.Error("failed to render error page", "error", err)
	}
}

// apply runs an action and redirects back to the page. Rejected actions
// leave the state unchanged and redirect all the same.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, a session.Action) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if _, err := sess.Apply(r.Context(), a); err != nil {
		if status, _, _ := classify(err); status == http.StatusInternalServerError {
			slog.Error("action failed", "action", a.Type, "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// applyAndRender runs an action and renders the page in place, for GET forms
func (s *Server) applyAndRender(w http.ResponseWriter, r *http.Request, a session.Action) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	snap, err := sess.Apply(r.Context(), a)
	if err != nil {
		s.renderPage(w, sess.Page())
		return
	}
	s.renderPage(w, snap.Page)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	// ?hl= switches the language like the settings form does
	if hl := r.URL.Query().Get("hl"); hl != "" && hl != sess.Preferences().Language {
		if snap, err := sess.Apply(r.Context(), session.Action{Type: session.ActionSetLanguage, Value: hl}); err == nil {
			s.renderPage(w, snap.Page)
			return
		}
	}
	s.renderPage(w, sess.Page())
}

// intParam parses a route or form integer; malformed input maps to -1 so
// validation rejects it
func intParam(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return -1
	}
	return n
}

func (s *Server) handleOpenSlot(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type: session.ActionOpenSlot,
		Slot: intParam(chi.URLParam(r, "index")),
	})
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type:      session.ActionChoose,
		Slot:      intParam(chi.URLParam(r, "index")),
		ProductID: intParam(r.FormValue("product_id")),
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type: session.ActionRemove,
		Slot: intParam(chi.URLParam(r, "index")),
	})
}

func (s *Server) handlePickerSearch(w http.ResponseWriter, r *http.Request) {
	s.applyAndRender(w, r, session.Action{
		Type:  session.ActionSearch,
		Value: r.URL.Query().Get("q"),
	})
}

func (s *Server) handleClosePicker(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{Type: session.ActionClosePicker})
}

func (s *Server) handleOpenQuickView(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type:      session.ActionOpenQuickView,
		ProductID: intParam(chi.URLParam(r, "id")),
	})
}

func (s *Server) handleCloseQuickView(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{Type: session.ActionCloseQuickView})
}

func (s *Server) handleTableSearch(w http.ResponseWriter, r *http.Request) {
	s.applyAndRender(w, r, session.Action{
		Type:  session.ActionTableSearch,
		Value: r.URL.Query().Get("q"),
	})
}

func (s *Server) handleChartClick(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type:  session.ActionChartClick,
		Chart: chi.URLParam(r, "chart"),
		Index: intParam(r.URL.Query().Get("index")),
	})
}

// handlePreferences applies the settings form. Only fields that differ
// from the current values become actions, so an untouched field is never
// persisted.
func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	current := sess.Preferences()
	var actions []session.Action
	if v := r.PostForm.Get("region"); v != "" && v != current.Region {
		actions = append(actions, session.Action{Type: session.ActionSetRegion, Value: v})
	}
	if v := r.PostForm.Get("lang"); v != "" && v != current.Language {
		actions = append(actions, session.Action{Type: session.ActionSetLanguage, Value: v})
	}
	if v := r.PostForm.Get("theme"); v != "" && v != string(current.Theme) {
		actions = append(actions, session.Action{Type: session.ActionSetTheme, Value: v, ColorHint: colorHint(r)})
	}
	if v := r.PostForm.Get("type"); v != "" && v != current.TypeFilter {
		actions = append(actions, session.Action{Type: session.ActionSetFilter, Value: v})
	}
	if v := r.PostForm.Get("metric"); v != "" && v != sess.Metric() {
		actions = append(actions, session.Action{Type: session.ActionSetMetric, Value: v})
	}

	for _, a := range actions {
		if _, err := sess.Apply(r.Context(), a); err != nil {
			slog.Debug("preference rejected", "action", a.Type, "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfirmRegion(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, session.Action{
		Type:  session.ActionConfirmRegion,
		Value: r.FormValue("region"),
	})
}
