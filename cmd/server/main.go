// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package main is the entry point for the Visitgrid server application.
//
// Visitgrid is a self-hosted visitor analytics platform that resolves
// anonymous website hits into durable visitor identities, enriches them
// with consent-gated location and contact data, and serves aggregated
// dashboard metrics to an authenticated admin surface.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Initialize DuckDB for visit storage and analytics queries
//  3. Authentication: Configure JWT signing and admin credentials
//  4. Tracking: Identity resolver with session-handle cache
//  5. Reaper: Background sweep deactivating idle visits
//  6. HTTP Server: REST API under a suture supervisor tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see .env.example)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Required for the admin surface:
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME: Admin username
//   - ADMIN_PASSWORD or ADMIN_PASSWORD_HASH: Admin credential
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Stops the idle-visit reaper
//   - Closes the database connection
//
// # Example Usage
//
// Development with a local database:
//
//	export DUCKDB_PATH=./visitgrid.duckdb
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=secure-password
//	./visitgrid
//
// Docker:
//
//	docker run -d \
//	  -e JWT_SECRET=your-secret \
//	  -e ADMIN_USERNAME=admin \
//	  -e ADMIN_PASSWORD=secure-password \
//	  -v visitgrid-data:/data \
//	  -p 4321:4321 \
//	  ghcr.io/visitgrid/visitgrid
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visitgrid/visitgrid/internal/api"
	"github.com/visitgrid/visitgrid/internal/auth"
	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/database"
	"github.com/visitgrid/visitgrid/internal/logging"
	"github.com/visitgrid/visitgrid/internal/supervisor"
	"github.com/visitgrid/visitgrid/internal/supervisor/services"
	"github.com/visitgrid/visitgrid/internal/tracking"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Visitgrid with supervisor tree")

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("environment", cfg.Server.Environment).
		Dur("idle_threshold", cfg.Tracking.IdleThreshold).
		Dur("reap_interval", cfg.Tracking.ReapInterval).
		Msg("Configuration loaded")

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	creds, err := auth.NewCredentialChecker(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize admin credentials")
	}
	logging.Info().Str("admin_username", cfg.Security.AdminUsername).Msg("JWT authentication enabled")

	if len(cfg.Security.CORSOrigins) == 1 && cfg.Security.CORSOrigins[0] == "*" && !cfg.IsDevelopment() {
		logging.Warn().Msg("CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("Set specific origins in production: CORS_ORIGINS=https://yourdomain.com")
	}

	// Tracking pipeline: resolver with session-handle cache plus the
	// idle-visit reaper that the supervisor will own.
	tracker := tracking.NewTracker(db, &cfg.Tracking)
	reaper := tracking.NewReaper(db, cfg.Tracking.ReapInterval, cfg.Tracking.IdleThreshold)

	handler := api.NewHandler(db, tracker, jwtManager, creds, cfg)
	authMW := auth.NewMiddleware(jwtManager)
	router := api.NewRouter(handler, authMW, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create structured logger for supervisor using our slog adapter.
	// This bridges zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	tree.AddBackgroundService(reaper)
	logging.Info().
		Dur("interval", cfg.Tracking.ReapInterval).
		Dur("idle_threshold", cfg.Tracking.IdleThreshold).
		Msg("Idle-visit reaper added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
