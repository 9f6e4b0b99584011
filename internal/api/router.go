// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visitgrid/visitgrid/internal/auth"
	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/middleware"
)

// Router assembles the HTTP surface from its middleware and handlers.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	config  *config.Config
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg *config.Config) *Router {
	return &Router{
		handler: handler,
		authMW:  authMW,
		config:  cfg,
	}
}

// Setup wires all routes.
//
// Three rate-limit tiers: the public ingest surface gets the configured
// per-IP budget, login gets a strict brute-force budget, and admin reads
// get a permissive budget suitable for dashboard exploration.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.config.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}))

	reqs := router.config.Security.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}
	window := router.config.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	// Health endpoints: permissive, unauthenticated.
	r.Route("/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Public tracking surface.
	r.Route("/api/v1/track", func(r chi.Router) {
		r.Use(httprate.LimitByRealIP(reqs, window))
		r.Use(middleware.PrometheusMetrics)
		r.Post("/", router.handler.Track)
		r.Post("/location", router.handler.TrackLocation)
		r.Post("/contact", router.handler.TrackContact)
	})

	// Operator authentication.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.With(httprate.LimitByRealIP(5, 5*time.Minute)).Post("/login", router.handler.Login)
		r.Post("/refresh", router.handler.Refresh)
	})

	// Admin surface: authenticated, admin role required.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByRealIP(1000, time.Minute))
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMW.Authenticate)
		r.Use(router.authMW.RequireRole(auth.RoleAdmin))

		r.Get("/dashboard", router.handler.Dashboard)
		r.Get("/visitors", router.handler.Visitors)
		r.Get("/export/visits", router.handler.ExportVisits)
	})

	return r
}
