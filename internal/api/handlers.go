// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package api contains the HTTP layer: handlers, response envelopes, and
// the chi router wiring tracking, dashboard, admin and auth endpoints.
package api

import (
	"time"

	"github.com/visitgrid/visitgrid/internal/auth"
	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/database"
	"github.com/visitgrid/visitgrid/internal/tracking"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_track.go: ingest and enrichment endpoints
//   - handlers_dashboard.go: aggregate snapshot endpoint
//   - handlers_visitors.go: admin listing
//   - handlers_export.go: capped raw export
//   - handlers_auth.go: operator login/refresh
//   - handlers_health.go: liveness and readiness
type Handler struct {
	db        *database.DB
	tracker   *tracking.Tracker
	jwt       *auth.JWTManager
	creds     *auth.CredentialChecker
	config    *config.Config
	ips       *tracking.IPResolver
	startTime time.Time
}

// NewHandler creates the API handler with all required dependencies.
func NewHandler(db *database.DB, tracker *tracking.Tracker, jwtManager *auth.JWTManager, creds *auth.CredentialChecker, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		tracker:   tracker,
		jwt:       jwtManager,
		creds:     creds,
		config:    cfg,
		ips:       tracking.NewIPResolver(cfg.Tracking.TrustedProxies),
		startTime: time.Now(),
	}
}
