// Package server provides the HTTP server and routing for Folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	fxhandlers "github.com/aristath/folio/internal/modules/fx/handlers"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	priceshandlers "github.com/aristath/folio/internal/modules/prices/handlers"
	snapshotshandlers "github.com/aristath/folio/internal/modules/snapshots/handlers"
)

// Handlers collects the per-module handlers mounted under /api.
type Handlers struct {
	Fx        *fxhandlers.Handler
	Prices    *priceshandlers.Handler
	Portfolio *portfoliohandlers.Handler
	Snapshots *snapshotshandlers.Handler
}

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Config      *config.Config
	PortfolioDB *database.DB
	ClientDB    *database.DB
	Handlers    Handlers
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	portfolioDB    *database.DB
	clientDB       *database.DB
	handlers       Handlers
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Config,
		portfolioDB: cfg.PortfolioDB,
		clientDB:    cfg.ClientDB,
		handlers:    cfg.Handlers,
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.PortfolioDB, cfg.ClientDB)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
		})

		if s.handlers.Fx != nil {
			s.handlers.Fx.RegisterRoutes(r)
		}
		if s.handlers.Prices != nil {
			s.handlers.Prices.RegisterRoutes(r)
		}
		if s.handlers.Portfolio != nil {
			s.handlers.Portfolio.RegisterRoutes(r)
		}
		if s.handlers.Snapshots != nil {
			s.handlers.Snapshots.RegisterRoutes(r)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
