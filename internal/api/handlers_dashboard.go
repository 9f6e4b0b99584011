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

// Dashboard handles GET /api/v1/dashboard.
//
// The window comes from either ?period=7d|30d|90d|1y or an explicit
// ?start=...&end=... pair; unrecognized periods silently fall back to the
// 30-day default rather than erroring.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	window := h.resolveWindow(r)
	snapshot, err := h.db.BuildDashboard(r.Context(), window, h.config.API.GeoTopN)
	if err != nil {
		respondStoreError(w, "Failed to build dashboard", err)
		return
	}

	respondSuccess(w, http.StatusOK, snapshot, start)
}

func (h *Handler) resolveWindow(r *http.Request) models.PeriodWindow {
	startParam := getTimeParam(r, "start")
	endParam := getTimeParam(r, "end")
	if startParam != nil && endParam != nil {
		return models.CustomPeriod(*startParam, *endParam)
	}
	return models.ResolvePeriod(r.URL.Query().Get("period"), time.Now().UTC())
}
