// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the
// storage backend is chosen, the services receive their repositories, the
// handlers receive their services, and routes map to handler methods.
// Nothing outside this package (and main) knows which backend is running.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/habit-tracker/internal/auth"
	"github.com/sakif/habit-tracker/internal/config"
	"github.com/sakif/habit-tracker/internal/handler"
	"github.com/sakif/habit-tracker/internal/middleware"
	"github.com/sakif/habit-tracker/internal/repository"
	"github.com/sakif/habit-tracker/internal/repository/jsonfile"
	postgresRepo "github.com/sakif/habit-tracker/internal/repository/postgres"
	sqliteRepo "github.com/sakif/habit-tracker/internal/repository/sqlite"
	"github.com/sakif/habit-tracker/internal/service"
)

// Store is what the server needs from a storage backend: both repository
// contracts plus a Close for shutdown. All three backends satisfy it.
type Store interface {
	repository.HabitRepository
	repository.UserRepository
	Close() error
}

// Compile-time checks: every backend is a full Store.
var (
	_ Store = (*sqliteRepo.DB)(nil)
	_ Store = (*postgresRepo.DB)(nil)
	_ Store = (*jsonfile.Store)(nil)
)

// Server represents the HTTP server and all its dependencies. It owns the
// store and closes it during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  Store
}

// openStore selects and opens the configured storage backend.
func openStore(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return sqliteRepo.New(cfg.Storage.SQLitePath)
	case config.BackendPostgres:
		return postgresRepo.New(cfg.Storage.PostgresDSN)
	case config.BackendJSONFile:
		return jsonfile.New(cfg.Storage.JSONPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// New creates a Server: opens the store, assembles the dependency chain,
// and registers routes.
//
// Each layer only receives what it needs — the services get repository
// interfaces, the handlers get services, and only this function sees the
// concrete backend.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close() // clean up if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/signup             → register (email + password)
//	POST   /auth/login              → password login
//	POST   /auth/logout             → clear session
//	GET    /auth/github/login       → GitHub OAuth redirect (if configured)
//	GET    /auth/github/callback    → GitHub OAuth callback
//	GET    /api/palette/colors      → color palette (public)
//	GET    /api/palette/icons       → icon catalogue (public)
//	GET    /api/me                  → current user           [auth]
//	GET    /api/profile             → user + aggregate stats [auth]
//	GET    /api/habits              → list, ?date= due filter [auth]
//	POST   /api/habits              → create                  [auth]
//	GET    /api/habits/export       → JSON download           [auth]
//	POST   /api/habits/reorder      → move within ordering    [auth]
//	GET    /api/habits/{id}         → detail + stats          [auth]
//	PATCH  /api/habits/{id}         → partial update          [auth]
//	DELETE /api/habits/{id}         → delete (idempotent)     [auth]
//	POST   /api/habits/{id}/toggle  → toggle completion       [auth]
//	GET    /healthz                 → liveness probe
//
// MIDDLEWARE ORDER MATTERS — middleware executes in registration order:
// RequestID → RealIP → Recoverer → Logger.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	// === Auth infrastructure ===
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	if cost := s.config.Auth.BcryptCost; cost > 0 {
		passwords = auth.NewPasswordServiceWithCost(cost)
	}

	// GitHub OAuth is optional; nil disables those routes.
	var github *auth.GitHubProvider
	if s.config.Auth.GitHubClientID != "" && s.config.Auth.GitHubClientSecret != "" {
		callback := s.config.Auth.GitHubCallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/auth/github/callback", s.config.Port)
		}
		github = auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			callback,
		)
	}

	// === Services and handlers ===
	habitService := service.NewHabitService(s.store, s.store, s.logger)
	authService := service.NewAuthService(s.store, passwords, tokens, s.logger)

	habitHandler := handler.NewHabitHandler(habitService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public: the palettes are static data, useful before signup.
		r.Get("/palette/colors", habitHandler.HandleColors)
		r.Get("/palette/icons", habitHandler.HandleIcons)

		// Everything else needs a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/profile", habitHandler.HandleProfile)

			r.Get("/habits", habitHandler.HandleList)
			r.Post("/habits", habitHandler.HandleCreate)
			// Fixed paths before {id} so "export" and "reorder" are not
			// captured as habit IDs.
			r.Get("/habits/export", habitHandler.HandleExport)
			r.Post("/habits/reorder", habitHandler.HandleReorder)
			r.Get("/habits/{id}", habitHandler.HandleGet)
			r.Patch("/habits/{id}", habitHandler.HandleUpdate)
			r.Delete("/habits/{id}", habitHandler.HandleDelete)
			r.Post("/habits/{id}/toggle", habitHandler.HandleToggle)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store (flushes WAL / pending writes, releases locks)
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.Storage.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured chi router, mainly for tests that want to
// drive the full HTTP surface with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}
