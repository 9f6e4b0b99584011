// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package database

import (
	"context"
	"fmt"

	"github.com/visitgrid/visitgrid/internal/models"
)

// BuildDashboard assembles the aggregate snapshot for one reporting window.
//
// Every query filters bots out and runs as a DuckDB GROUP BY; nothing is
// aggregated in process memory. Breakdown maps are pre-seeded with zeros so
// empty buckets render explicitly. Revenue carries the sum over the
// immediately preceding window of equal length for delta computation.
func (db *DB) BuildDashboard(ctx context.Context, window models.PeriodWindow, geoTopN int) (_ *models.DashboardSnapshot, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("build_dashboard", &err)()

	snapshot := &models.DashboardSnapshot{Period: window}

	visitors, err := db.visitorMetrics(ctx, window)
	if err != nil {
		return nil, err
	}
	snapshot.Visitors = visitors

	snapshot.Devices, err = db.groupedVisitCounts(ctx, window, "device_type", models.DeviceTypes)
	if err != nil {
		return nil, err
	}
	snapshot.Sources, err = db.groupedVisitCounts(ctx, window, "traffic_source", models.TrafficSources)
	if err != nil {
		return nil, err
	}

	snapshot.Geo, err = db.geoStats(ctx, window, geoTopN)
	if err != nil {
		return nil, err
	}

	snapshot.Bookings, err = db.bookingMetrics(ctx, window)
	if err != nil {
		return nil, err
	}

	snapshot.Revenue, err = db.revenueMetrics(ctx, window)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (db *DB) visitorMetrics(ctx context.Context, window models.PeriodWindow) (models.VisitorMetrics, error) {
	var m models.VisitorMetrics
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT network_identity),
			COALESCE(SUM(page_views), 0),
			COALESCE(SUM(CASE WHEN is_new_visitor THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0)
		FROM visits
		WHERE is_bot = FALSE AND created_at >= ? AND created_at < ?`,
		window.Start, window.End,
	).Scan(&m.TotalVisits, &m.UniqueVisitors, &m.TotalPageViews, &m.NewVisitors, &m.ActiveVisits)
	if err != nil {
		return m, storeErr("failed to query visitor metrics", err)
	}
	return m, nil
}

// groupedVisitCounts runs a single GROUP BY over the window for the given
// column and merges the result into a zero-seeded bucket map.
func (db *DB) groupedVisitCounts(ctx context.Context, window models.PeriodWindow, column string, buckets []string) (map[string]int, error) {
	// column is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM visits
		WHERE is_bot = FALSE AND created_at >= ? AND created_at < ?
		GROUP BY %s`, column, column)

	rows, err := db.conn.QueryContext(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("failed to query %s breakdown", column), err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(buckets))
	for _, bucket := range buckets {
		counts[bucket] = 0
	}
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, storeErr(fmt.Sprintf("failed to scan %s breakdown", column), err)
		}
		counts[bucket] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Sprintf("error iterating %s breakdown", column), err)
	}
	return counts, nil
}

func (db *DB) geoStats(ctx context.Context, window models.PeriodWindow, topN int) ([]models.GeoStats, error) {
	if topN <= 0 {
		topN = 10
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			loc_country,
			COALESCE(loc_city, ''),
			COUNT(DISTINCT network_identity) AS visitors,
			COALESCE(SUM(page_views), 0),
			COUNT(DISTINCT CASE WHEN contact_consent THEN network_identity END)
		FROM visits
		WHERE is_bot = FALSE
		  AND loc_country IS NOT NULL
		  AND created_at >= ? AND created_at < ?
		GROUP BY loc_country, loc_city
		ORDER BY visitors DESC
		LIMIT ?`, window.Start, window.End, topN)
	if err != nil {
		return nil, storeErr("failed to query geography stats", err)
	}
	defer rows.Close()

	// Empty slice rather than nil for consistent JSON serialization.
	stats := []models.GeoStats{}
	for rows.Next() {
		var s models.GeoStats
		if err := rows.Scan(&s.Country, &s.City, &s.Visitors, &s.PageViews, &s.WithContact); err != nil {
			return nil, storeErr("failed to scan geography stats", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating geography stats", err)
	}
	return stats, nil
}

func (db *DB) bookingMetrics(ctx context.Context, window models.PeriodWindow) (models.BookingMetrics, error) {
	metrics := models.BookingMetrics{ByStatus: make(map[string]int, len(models.BookingStatuses))}
	for _, status := range models.BookingStatuses {
		metrics.ByStatus[status] = 0
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM bookings
		WHERE created_at >= ? AND created_at < ?
		GROUP BY status`, window.Start, window.End)
	if err != nil {
		return metrics, storeErr("failed to query booking metrics", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return metrics, storeErr("failed to scan booking metrics", err)
		}
		metrics.ByStatus[status] = count
		metrics.Total += count
	}
	if err := rows.Err(); err != nil {
		return metrics, storeErr("error iterating booking metrics", err)
	}
	return metrics, nil
}

func (db *DB) revenueMetrics(ctx context.Context, window models.PeriodWindow) (models.RevenueMetrics, error) {
	var m models.RevenueMetrics
	prevStart, prevEnd := window.PreviousWindow()

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN total_amount END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN total_amount END), 0)
		FROM bookings
		WHERE status = ? AND created_at >= ? AND created_at < ?`,
		window.Start, window.End,
		prevStart, prevEnd,
		models.BookingCompleted, prevStart, window.End,
	).Scan(&m.Current, &m.Previous)
	if err != nil {
		return m, storeErr("failed to query revenue metrics", err)
	}
	return m, nil
}
