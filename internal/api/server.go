// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akirol/trainwatch/internal/core"
	"github.com/akirol/trainwatch/internal/jobs"
	"github.com/akirol/trainwatch/internal/presets"
	"github.com/akirol/trainwatch/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app        *core.App
	db         *sql.DB
	store      *store.Store
	jobManager *jobs.Manager
	presets    *presets.Service
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB,
		store: store.New(app.DB),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// App returns the shared application components.
func (s *Server) App() *core.App {
	return s.app
}

// SetJobManager wires the background job manager so its status can be inspected.
func (s *Server) SetJobManager(m *jobs.Manager) {
	s.jobManager = m
}

// SetPresetService wires the config preset service.
func (s *Server) SetPresetService(p *presets.Service) {
	s.presets = p
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	// API routes
	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/version", s.handleGetVersion)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/api/users/logout", s.handleLogout)
		r.Get("/api/users/me", s.handleGetMe)

		r.Route("/api", func(r chi.Router) {
			// Live training state
			r.Get("/training/status", s.handleGetTrainingStatus)
			r.Get("/training/log", s.handleGetTrainingLog)
			r.Get("/training/loss", s.handleGetTrainingLoss)
			r.Post("/training/clear", s.handleClearTrainingHistory)

			// Job control (proxied to the trainer engine)
			r.Post("/training/start", s.handleStartTraining)
			r.Post("/training/stop", s.handleStopTraining)

			// Config document store
			r.Get("/configs", s.handleListConfigs)
			r.Post("/configs", s.handleCreateConfig)
			r.Get("/configs/{configID}", s.handleGetConfig)
			r.Put("/configs/{configID}", s.handleUpdateConfig)
			r.Delete("/configs/{configID}", s.handleDeleteConfig)

			// Read-only config presets from disk
			r.Get("/presets", s.handleListPresets)

			// Run history and system telemetry
			r.Get("/runs", s.handleListRuns)
			r.Get("/system/stats", s.handleGetSystemStats)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)

				r.Get("/jobs/status", s.handleGetJobsStatus)
			})
		})
	})

	// WebSocket route
	r.Get("/ws/console", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
