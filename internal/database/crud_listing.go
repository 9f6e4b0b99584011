// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/visitgrid/visitgrid/internal/models"
)

// ExportRowCap bounds any raw-record-returning query. Long windows must go
// through the aggregation pipeline instead.
const ExportRowCap = 50000

// VisitorFilter carries the admin listing's filter, sort, and pagination
// parameters.
type VisitorFilter struct {
	// Search matches free text against phone, city, country, state and IP.
	Search string

	HasContact  *bool
	HasLocation *bool

	DeviceType    string
	TrafficSource string

	StartDate *time.Time
	EndDate   *time.Time

	// SortBy is checked against an allowlist; unknown columns fall back
	// to created_at.
	SortBy    string
	SortOrder string

	Page     int
	PageSize int
}

// sortColumns is the allowlist of sortable listing columns.
var sortColumns = map[string]string{
	"created_at":    "created_at",
	"last_activity": "last_activity",
	"page_views":    "page_views",
	"visit_count":   "visit_count",
	"country":       "loc_country",
}

func (f *VisitorFilter) buildConditions() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		conditions = append(conditions, `(
			LOWER(COALESCE(contact_phone, '')) LIKE ?
			OR LOWER(COALESCE(loc_city, '')) LIKE ?
			OR LOWER(COALESCE(loc_country, '')) LIKE ?
			OR LOWER(COALESCE(loc_state, '')) LIKE ?
			OR LOWER(network_identity) LIKE ?)`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if f.HasContact != nil {
		if *f.HasContact {
			conditions = append(conditions, "contact_phone IS NOT NULL")
		} else {
			conditions = append(conditions, "contact_phone IS NULL")
		}
	}
	if f.HasLocation != nil {
		if *f.HasLocation {
			conditions = append(conditions, "loc_country IS NOT NULL")
		} else {
			conditions = append(conditions, "loc_country IS NULL")
		}
	}
	if f.DeviceType != "" {
		conditions = append(conditions, "device_type = ?")
		args = append(args, f.DeviceType)
	}
	if f.TrafficSource != "" {
		conditions = append(conditions, "traffic_source = ?")
		args = append(args, f.TrafficSource)
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, f.EndDate.UTC())
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

func (f *VisitorFilter) orderClause() string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, order)
}

// ListVisitors returns one page of the admin visitor listing along with the
// total match count for pagination.
func (db *DB) ListVisitors(ctx context.Context, filter VisitorFilter) (_ *models.VisitorPage, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("list_visitors", &err)()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	conditions, args := filter.buildConditions()

	var total int
	countQuery := "SELECT COUNT(*) FROM visits WHERE 1=1" + conditions
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, storeErr("failed to count visitors", err)
	}

	query := `SELECT ` + visitColumns + ` FROM visits WHERE 1=1` + conditions +
		filter.orderClause() + ` LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list visitors", err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, storeErr("failed to scan visitor row", err)
		}
		visits = append(visits, *visit)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating visitors", err)
	}

	totalPages := (total + filter.PageSize - 1) / filter.PageSize
	return &models.VisitorPage{
		Visits:     visits,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ExportVisits returns raw visit records for the export collaborator,
// newest first, hard-capped at ExportRowCap rows.
func (db *DB) ExportVisits(ctx context.Context, filter VisitorFilter, limit int) (_ []models.Visit, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("export_visits", &err)()

	if limit <= 0 || limit > ExportRowCap {
		limit = ExportRowCap
	}

	conditions, args := filter.buildConditions()
	query := `SELECT ` + visitColumns + ` FROM visits WHERE 1=1` + conditions +
		` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to export visits", err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, storeErr("failed to scan export row", err)
		}
		visits = append(visits, *visit)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating export rows", err)
	}
	return visits, nil
}
