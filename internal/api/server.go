// SPDX-License-Identifier: MIT

// Package api exposes the settings accessor over HTTP.
package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/antoniofrignani/laravel4-settings/internal/api/middleware"
	"github.com/antoniofrignani/laravel4-settings/internal/auth"
	"github.com/antoniofrignani/laravel4-settings/internal/health"
	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/settings"
)

// maxBodyBytes bounds PUT bodies.
const maxBodyBytes = 1 << 20

// Config configures the HTTP API.
type Config struct {
	Token          string // empty disables bearer auth
	RateLimit      int    // requests per minute per client, 0 disables
	TracingService string // empty disables tracing
}

// Deps are the collaborators the API serves.
type Deps struct {
	Settings *settings.Settings
	Health   *health.Manager
	Logger   zerolog.Logger
}

// Server routes HTTP requests to the settings accessor.
type Server struct {
	settings *settings.Settings
	health   *health.Manager
	logger   zerolog.Logger
	router   chi.Router

	mu    sync.RWMutex
	token string
}

var (
	errMissingSettings = errors.New("api: settings accessor is required")
	errMissingHealth   = errors.New("api: health manager is required")
)

// New builds the API server and its router.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Settings == nil {
		return nil, errMissingSettings
	}
	if deps.Health == nil {
		return nil, errMissingHealth
	}

	s := &Server{
		settings: deps.Settings,
		health:   deps.Health,
		logger:   deps.Logger.With().Str(xlog.FieldComponent, "api").Logger(),
		token:    cfg.Token,
	}
	s.router = s.routes(cfg)
	return s, nil
}

func (s *Server) routes(cfg Config) chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: cfg.TracingService,
		EnableLogging:  true,
		RateLimit:      cfg.RateLimit,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/settings", s.handleList)
		r.Post("/settings/reload", s.handleReload)
		r.Get("/settings/{key}", s.handleGet)
		r.Put("/settings/{key}", s.handlePut)
		r.Delete("/settings/{key}", s.handleDelete)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetToken replaces the API token, e.g. after a configuration reload.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		token := s.token
		s.mu.RUnlock()

		if token != "" && !auth.AuthorizeRequest(r, token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="settings"`)
			writeError(w, http.StatusUnauthorized, "unauthorized", "", xlog.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
