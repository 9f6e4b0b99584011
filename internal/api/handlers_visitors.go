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

// Visitors handles GET /api/v1/visitors, the paginated admin listing.
//
// Query parameters: search (free text over phone/city/country/state/IP),
// has_contact, has_location, device, source, start, end, sort, order,
// page, page_size.
func (h *Handler) Visitors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter := h.visitorFilter(r)
	page, err := h.db.ListVisitors(r.Context(), filter)
	if err != nil {
		respondStoreError(w, "Failed to list visitors", err)
		return
	}

	respondSuccess(w, http.StatusOK, page, start)
}

func (h *Handler) visitorFilter(r *http.Request) database.VisitorFilter {
	query := r.URL.Query()

	pageSize := getIntParam(r, "page_size", h.config.API.DefaultPageSize)
	if pageSize > h.config.API.MaxPageSize {
		pageSize = h.config.API.MaxPageSize
	}

	return database.VisitorFilter{
		Search:        query.Get("search"),
		HasContact:    getBoolParam(r, "has_contact"),
		HasLocation:   getBoolParam(r, "has_location"),
		DeviceType:    query.Get("device"),
		TrafficSource: query.Get("source"),
		StartDate:     getTimeParam(r, "start"),
		EndDate:       getTimeParam(r, "end"),
		SortBy:        query.Get("sort"),
		SortOrder:     query.Get("order"),
		Page:          getIntParam(r, "page", 1),
		PageSize:      pageSize,
	}
}
