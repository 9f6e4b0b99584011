// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

/*
schema.go - Database Schema Management

Tables:
  - visits: one row per resolved browsing identity, including consent-gated
    location/contact enrichment columns
  - bookings: business entities the dashboard aggregates for counts, status
    breakdowns, and period-over-period revenue

Schema Strategy:
All columns are defined in the initial CREATE TABLE statement, keeping a
single source of truth and migration-free startup.

Index Strategy:
Identity resolution queries by session_identity and by the
(network_identity, client_signature) pair, both ordered by created_at to
select the most recent match. The reaper filters is_active rows by
last_activity. Dashboard queries window on created_at.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates the core tables and indexes.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %s: %w", query, err)
		}
	}
	return nil
}

func schemaQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS visits (
			id UUID PRIMARY KEY,

			-- Identity signals
			session_identity TEXT,
			network_identity TEXT NOT NULL,
			client_signature TEXT,

			-- Classification
			device_type TEXT NOT NULL DEFAULT 'unknown',
			browser TEXT,
			os TEXT,
			current_path TEXT,
			referrer TEXT,
			traffic_source TEXT NOT NULL DEFAULT 'direct',
			language TEXT,

			-- Identity lineage
			is_new_visitor BOOLEAN NOT NULL,
			visit_count INTEGER NOT NULL DEFAULT 1,
			page_views INTEGER NOT NULL DEFAULT 1,

			-- Lifecycle
			last_activity TIMESTAMP NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_bot BOOLEAN NOT NULL DEFAULT FALSE,

			-- Consent preferences captured at ingest
			consent_necessary BOOLEAN NOT NULL DEFAULT TRUE,
			consent_analytics BOOLEAN NOT NULL DEFAULT FALSE,
			consent_location BOOLEAN NOT NULL DEFAULT FALSE,
			consent_contact BOOLEAN NOT NULL DEFAULT FALSE,

			-- Consent-gated location enrichment
			loc_country TEXT,
			loc_city TEXT,
			loc_state TEXT,
			loc_latitude DOUBLE,
			loc_longitude DOUBLE,
			loc_accuracy DOUBLE,
			loc_address TEXT,
			loc_timezone TEXT,

			-- Consent-gated contact enrichment
			contact_phone TEXT,
			contact_country_code TEXT,
			contact_consent BOOLEAN NOT NULL DEFAULT FALSE,
			contact_consent_at TIMESTAMP,
			contact_verified BOOLEAN NOT NULL DEFAULT FALSE,

			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE INDEX IF NOT EXISTS idx_visits_session
			ON visits(session_identity, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_visits_network
			ON visits(network_identity, client_signature, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_visits_active
			ON visits(is_active, last_activity);`,
		`CREATE INDEX IF NOT EXISTS idx_visits_created
			ON visits(created_at);`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			service_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total_amount DOUBLE NOT NULL DEFAULT 0,
			visit_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_created
			ON bookings(status, created_at);`,
	}
}
