package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/compare-engine/internal/config"
	"github.com/terra-clan/compare-engine/internal/health"
	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
)

// Server represents the HTTP server for the widget and its JSON API
type Server struct {
	config   config.ServerConfig
	router   *chi.Mux
	sessions *session.Manager
	renderer *render.Renderer
	health   *health.Registry
}

// NewServer creates a new server
func NewServer(
	cfg config.ServerConfig,
	sessions *session.Manager,
	renderer *render.Renderer,
	registry *health.Registry,
) *Server {
	s := &Server{
		config:   cfg,
		sessions: sessions,
		renderer: renderer,
		health:   registry,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Health check (no client identity)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(clientMiddleware)

		// The live channel outlives any request timeout
		r.With(s.corsHandler()).Get("/api/v1/live", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Server-rendered widget; every POST redirects back to the page
			r.Get("/", s.handlePage)
			r.Route("/slots/{index}", func(r chi.Router) {
				r.Post("/open", s.handleOpenSlot)
				r.Post("/choose", s.handleChoose)
				r.Post("/remove", s.handleRemove)
			})
			r.Get("/picker", s.handlePickerSearch)
			r.Post("/picker/close", s.handleClosePicker)
			r.Post("/quickview/{id}/open", s.handleOpenQuickView)
			r.Post("/quickview/close", s.handleCloseQuickView)
			r.Get("/table", s.handleTableSearch)
			r.Get("/charts/{chart}/click", s.handleChartClick)
			r.Post("/preferences", s.handlePreferences)
			r.Post("/region/confirm", s.handleConfirmRegion)

			// JSON API
			r.Route("/api/v1", func(r chi.Router) {
				r.Use(s.corsHandler())

				r.Get("/catalog", s.handleCatalog)
				r.Get("/state", s.handleState)
				r.Post("/actions", s.handleAction)
			})
		})
	})

	s.router = r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", colorSchemeHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
