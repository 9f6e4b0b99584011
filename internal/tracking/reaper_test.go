// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeReaperStore struct {
	mu       sync.Mutex
	cutoffs  []time.Time
	returns  int64
	failWith error
}

func (s *fakeReaperStore) DeactivateIdle(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.failWith != nil {
		return 0, s.failWith
	}
	return s.returns, nil
}

func (s *fakeReaperStore) sweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func TestReaperSweepCutoff(t *testing.T) {
	store := &fakeReaperStore{returns: 3}
	reaper := NewReaper(store, 10*time.Minute, 30*time.Minute)

	before := time.Now().UTC().Add(-30 * time.Minute)
	reaper.Sweep(context.Background())
	after := time.Now().UTC().Add(-30 * time.Minute)

	if store.sweepCount() != 1 {
		t.Fatalf("Sweeps = %d, want 1", store.sweepCount())
	}
	cutoff := store.cutoffs[0]
	if cutoff.Before(before) || cutoff.After(after) {
		t.Errorf("Cutoff %v outside expected idle-threshold window", cutoff)
	}
}

func TestReaperSweepFailureDoesNotEscalate(t *testing.T) {
	store := &fakeReaperStore{failWith: errors.New("store down")}
	reaper := NewReaper(store, 10*time.Minute, 30*time.Minute)

	// A failing sweep must log and return; the next tick retries.
	reaper.Sweep(context.Background())
	reaper.Sweep(context.Background())

	if store.sweepCount() != 2 {
		t.Errorf("Sweeps = %d, want 2", store.sweepCount())
	}
}

func TestReaperServeStopsOnCancel(t *testing.T) {
	store := &fakeReaperStore{}
	reaper := NewReaper(store, 5*time.Millisecond, 30*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- reaper.Serve(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}

	if store.sweepCount() == 0 {
		t.Error("Serve should have swept at least once before cancellation")
	}
}

func TestReaperDefaults(t *testing.T) {
	reaper := NewReaper(&fakeReaperStore{}, 0, 0)
	if reaper.interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m default", reaper.interval)
	}
	if reaper.idleThreshold != 30*time.Minute {
		t.Errorf("idleThreshold = %v, want 30m default", reaper.idleThreshold)
	}
}
