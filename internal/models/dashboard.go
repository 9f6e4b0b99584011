// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package models

import "time"

// DashboardSnapshot is the aggregate report for one reporting window.
// All visitor-facing numbers exclude bot traffic. Breakdown maps carry
// explicit zeros for empty buckets so charts render every group.
type DashboardSnapshot struct {
	Period PeriodWindow `json:"period"`

	Visitors VisitorMetrics   `json:"visitors"`
	Bookings BookingMetrics   `json:"bookings"`
	Revenue  RevenueMetrics   `json:"revenue"`
	Geo      []GeoStats       `json:"geography"`
	Devices  map[string]int   `json:"devices"`
	Sources  map[string]int   `json:"traffic_sources"`
}

// PeriodWindow is the resolved [Start, End) reporting window plus the
// label it was derived from ("7d", "30d", "90d", "1y", or "custom").
type PeriodWindow struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PreviousWindow returns the immediately preceding window of equal length:
// [Start-len, Start).
func (p PeriodWindow) PreviousWindow() (start, end time.Time) {
	length := p.End.Sub(p.Start)
	return p.Start.Add(-length), p.Start
}

// VisitorMetrics summarizes visit traffic within the window.
type VisitorMetrics struct {
	TotalVisits    int `json:"total_visits"`
	UniqueVisitors int `json:"unique_visitors"` // distinct network identities
	TotalPageViews int `json:"total_page_views"`
	NewVisitors    int `json:"new_visitors"`
	ActiveVisits   int `json:"active_visits"`
}

// BookingMetrics summarizes business entities within the window.
type BookingMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// RevenueMetrics carries the in-window revenue sum and the sum over the
// immediately preceding window of equal length, for delta computation.
type RevenueMetrics struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// GeoStats is one row of the top-N geography breakdown, sorted descending
// by distinct-visitor count.
type GeoStats struct {
	Country     string `json:"country"`
	City        string `json:"city,omitempty"`
	Visitors    int    `json:"visitors"`
	PageViews   int    `json:"page_views"`
	WithContact int    `json:"with_contact"` // visitors with consented contact info
}
