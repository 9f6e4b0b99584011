// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"context"
	"time"

	"github.com/visitgrid/visitgrid/internal/logging"
	"github.com/visitgrid/visitgrid/internal/metrics"
)

// ReaperStore is the narrow persistence surface the reaper depends on.
type ReaperStore interface {
	DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper periodically flips visits idle past the threshold to inactive.
//
// It is an explicitly owned background task: the process lifecycle starts
// it under the supervision tree and stops it through context cancellation.
// Sweeps are idempotent and safe to run concurrently with ingestion; a
// page view landing mid-sweep resolves last-write-wins on is_active.
type Reaper struct {
	store         ReaperStore
	interval      time.Duration
	idleThreshold time.Duration
}

// NewReaper builds a Reaper. Non-positive interval or threshold fall back
// to 10 minutes and 30 minutes respectively.
func NewReaper(store ReaperStore, interval, idleThreshold time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if idleThreshold <= 0 {
		idleThreshold = 30 * time.Minute
	}
	return &Reaper{
		store:         store,
		interval:      interval,
		idleThreshold: idleThreshold,
	}
}

func (r *Reaper) String() string { return "idle-reaper" }

// Serve runs the sweep loop until ctx is cancelled. Sweep failures are
// logged and retried on the next tick, never escalated.
func (r *Reaper) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", r.interval).
		Dur("idle_threshold", r.idleThreshold).
		Msg("Idle-visit reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Idle-visit reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one deactivation pass. Exported so tests and admin tooling
// can trigger it outside the loop.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.idleThreshold)
	deactivated, err := r.store.DeactivateIdle(ctx, cutoff)
	metrics.RecordReaperSweep(deactivated, err)
	if err != nil {
		logging.Error().Err(err).Msg("Reaper sweep failed, will retry on next tick")
		return
	}
	if deactivated > 0 {
		logging.Info().Int64("deactivated", deactivated).Msg("Reaper deactivated idle visits")
	}
}
