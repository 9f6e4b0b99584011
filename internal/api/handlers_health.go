// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package api

import (
	"net/http"
	"time"

	"github.com/visitgrid/visitgrid/internal/models"
)

// HealthLive handles GET /health/live. It answers as long as the process
// is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, &models.HealthStatus{
		Status:            "alive",
		Version:           Version,
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles GET /health/ready. Readiness requires a reachable
// store.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := &models.HealthStatus{
		Status:            "ready",
		Version:           Version,
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	if err := h.db.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.DatabaseConnected = false
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    "STORE_UNAVAILABLE",
				Message: "Database is not reachable",
			},
		})
		return
	}

	respondSuccess(w, http.StatusOK, status, start)
}
