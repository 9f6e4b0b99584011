// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/visitgrid/visitgrid/internal/metrics"
	"github.com/visitgrid/visitgrid/internal/models"
)

func TestQueriesObserveDurations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertVisit(ctx, testVisit("203.0.113.7", "sig-a")); err != nil {
		t.Fatalf("InsertVisit failed: %v", err)
	}
	if _, err := db.FindMostRecentBySession(ctx, "no-such-session"); err != nil {
		t.Fatalf("FindMostRecentBySession failed: %v", err)
	}

	if testutil.CollectAndCount(metrics.DBQueryDuration, "duckdb_query_duration_seconds") == 0 {
		t.Error("expected query durations to be observed")
	}
}

func TestQueryErrorsCounted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("insert_visit"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := db.InsertVisit(ctx, testVisit("203.0.113.7", "sig-a")); err == nil {
		t.Fatal("expected insert against a closed store to fail")
	}

	after := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("insert_visit"))
	if after <= before {
		t.Errorf("insert_visit error count = %v, want > %v", after, before)
	}
}

func TestNotFoundIsNotAQueryError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("get_visit"))

	if _, err := db.GetVisit(ctx, uuid.New()); !errors.Is(err, models.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}

	after := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("get_visit"))
	if after != before {
		t.Errorf("get_visit error count moved from %v to %v on a miss", before, after)
	}
}

func TestStoreFailuresTagUnavailable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := db.InsertVisit(ctx, testVisit("203.0.113.7", "sig-a")); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("InsertVisit error %v does not match ErrStoreUnavailable", err)
	}
	if _, err := db.FindMostRecentBySession(ctx, "any"); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("FindMostRecentBySession error %v does not match ErrStoreUnavailable", err)
	}
	if err := db.UpdateContact(ctx, uuid.New(), "+4915112345678", "DE", time.Now()); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("UpdateContact error %v does not match ErrStoreUnavailable", err)
	}
}
