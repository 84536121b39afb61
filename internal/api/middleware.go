package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/terra-clan/compare-engine/internal/session"
)

const (
	// ClientCookie holds the anonymous client id
	ClientCookie = "cid"

	clientCookieMaxAge = 365 * 24 * 60 * 60

	// colorSchemeHeader is the client hint carrying the OS color scheme
	colorSchemeHeader = "Sec-CH-Prefers-Color-Scheme"
)

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"client_id", ClientIDFromContext(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// clientMiddleware identifies the browser by its cid cookie, issuing a new
// random id when the cookie is missing or malformed
func clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(ClientCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   clientCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			slog.Debug("issued client id", "client_id", id)
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClientID(r.Context(), id)))
	})
}

// clientFor describes the requesting browser to the session manager
func clientFor(r *http.Request) session.Client {
	return session.Client{
		ID:             ClientIDFromContext(r.Context()),
		IP:             clientIP(r),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		ColorHint:      colorHint(r),
	}
}

// clientIP strips the port RealIP may leave on RemoteAddr
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// colorHint prefers an explicit form or query value over the client hint
// header
func colorHint(r *http.Request) string {
	if v := r.FormValue("prefers"); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(colorSchemeHeader))
}
