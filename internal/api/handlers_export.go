// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package api

import (
	"net/http"
	"time"

	"github.com/visitgrid/visitgrid/internal/database"
)

// ExportVisits handles GET /api/v1/export/visits, the raw-record export
// for the downstream export subsystem. Result size is hard-capped so a
// year-long window cannot materialize unbounded rows.
func (h *Handler) ExportVisits(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cap := h.config.API.ExportRowCap
	if cap <= 0 || cap > database.ExportRowCap {
		cap = database.ExportRowCap
	}
	limit := getIntParam(r, "limit", cap)
	if limit > cap {
		limit = cap
	}

	filter := h.visitorFilter(r)
	visits, err := h.db.ExportVisits(r.Context(), filter, limit)
	if err != nil {
		respondStoreError(w, "Failed to export visits", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"visits": visits,
		"count":  len(visits),
		"capped": len(visits) == limit,
	}, start)
}
