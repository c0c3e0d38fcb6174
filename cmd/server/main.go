// Package main is the entry point for the habit tracker server.
//
// The main package stays minimal — its job is to:
//  1. Read configuration (config file + HABITD_* env vars)
//  2. Create the logger
//  3. Start the server
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.). The cmd/ directory is the Go convention for
// executable entry points; a project can grow more of them
// (cmd/migrate, cmd/cli) without the packages changing.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/habit-tracker/internal/config"
	"github.com/sakif/habit-tracker/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Structured logger; level comes from config (HABITD_LOG_LEVEL=debug
	// to see everything).
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// JWT_SECRET equivalent: auth.jwt_secret / HABITD_AUTH_JWT_SECRET.
	// Required — every API route except the palettes needs sessions.
	// Generate with: openssl rand -hex 32
	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret is not set (HABITD_AUTH_JWT_SECRET)")
		os.Exit(1)
	}

	// The file-backed backends create their data directory on demand, but
	// creating it here gives a clearer error when the path is unwritable.
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		mustMkdirAll(logger, filepath.Dir(cfg.Storage.SQLitePath))
	case config.BackendJSONFile:
		mustMkdirAll(logger, filepath.Dir(cfg.Storage.JSONPath))
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func mustMkdirAll(logger *slog.Logger, dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create data directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}
