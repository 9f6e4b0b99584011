// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/visitgrid/visitgrid/internal/models"
)

func trackOne(t *testing.T, tracker *Tracker, store *fakeStore) (*models.TrackResponse, uuid.UUID) {
	t.Helper()
	resp, err := tracker.Track(context.Background(), Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	id, err := uuid.Parse(resp.VisitIdentity)
	if err != nil {
		t.Fatalf("VisitIdentity is not a UUID: %v", err)
	}
	return resp, id
}

func floatPtr(v float64) *float64 { return &v }

func TestEnrichLocationWithoutConsent(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)

	// A perfectly valid payload still writes nothing without consent.
	err := tracker.EnrichLocation(context.Background(), resp.SessionIdentity, LocationUpdate{
		Latitude:  floatPtr(52.52),
		Longitude: floatPtr(13.405),
		City:      "Berlin",
	}, false)
	if !errors.Is(err, models.ErrConsentRequired) {
		t.Fatalf("Expected ErrConsentRequired, got %v", err)
	}

	visit, _ := store.GetVisit(context.Background(), id)
	if visit.Location != nil {
		t.Error("Location must not be persisted without consent")
	}
}

func TestEnrichLocationWithConsent(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)

	err := tracker.EnrichLocation(context.Background(), resp.SessionIdentity, LocationUpdate{
		Latitude:  floatPtr(52.52),
		Longitude: floatPtr(13.405),
		City:      "Berlin",
		Country:   "Germany",
	}, true)
	if err != nil {
		t.Fatalf("EnrichLocation failed: %v", err)
	}

	visit, _ := store.GetVisit(context.Background(), id)
	if visit.Location == nil || visit.Location.Coordinates == nil {
		t.Fatal("Consented location with both coordinates must persist them")
	}
	if visit.Location.Coordinates.Latitude != 52.52 {
		t.Errorf("Latitude = %v, want 52.52", visit.Location.Coordinates.Latitude)
	}
}

func TestEnrichLocationRejectsOutOfRange(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)

	cases := []struct {
		name string
		lat  *float64
		lon  *float64
	}{
		{"latitude above range", floatPtr(95), floatPtr(10)},
		{"latitude below range", floatPtr(-91), floatPtr(10)},
		{"longitude above range", floatPtr(45), floatPtr(181)},
		{"longitude below range", floatPtr(45), floatPtr(-180.5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tracker.EnrichLocation(context.Background(), resp.SessionIdentity, LocationUpdate{
				Latitude:  tc.lat,
				Longitude: tc.lon,
			}, true)
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	visit, _ := store.GetVisit(context.Background(), id)
	if visit.Location != nil {
		t.Error("Rejected coordinates must never be clamped and stored")
	}
}

func TestEnrichLocationMissingOneCoordinate(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)

	err := tracker.EnrichLocation(context.Background(), resp.SessionIdentity, LocationUpdate{
		Latitude: floatPtr(52.52),
		City:     "Berlin",
	}, true)
	if err != nil {
		t.Fatalf("EnrichLocation failed: %v", err)
	}

	visit, _ := store.GetVisit(context.Background(), id)
	if visit.Location == nil {
		t.Fatal("City should persist even without coordinates")
	}
	if visit.Location.Coordinates != nil {
		t.Error("A lone latitude must not produce stored coordinates")
	}
}

func TestEnrichLocationUnknownSession(t *testing.T) {
	tracker := newTestTracker(newFakeStore())

	err := tracker.EnrichLocation(context.Background(), "no-such-token", LocationUpdate{
		City: "Berlin",
	}, true)
	if !errors.Is(err, models.ErrIdentityNotFound) {
		t.Errorf("Expected ErrIdentityNotFound, got %v", err)
	}
}

func TestEnrichContact(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)
	ctx := context.Background()

	if err := tracker.EnrichContact(ctx, resp.SessionIdentity, "+49 (151) 123-456-78", "DE", true); err != nil {
		t.Fatalf("EnrichContact failed: %v", err)
	}

	visit, _ := store.GetVisit(ctx, id)
	if visit.ContactInfo == nil {
		t.Fatal("Contact info was not persisted")
	}
	if visit.ContactInfo.PhoneNumber != "+4915112345678" {
		t.Errorf("PhoneNumber = %q, want normalized +4915112345678", visit.ContactInfo.PhoneNumber)
	}
	if !visit.ContactInfo.ConsentGiven {
		t.Error("ConsentGiven must be recorded")
	}
}

func TestEnrichContactWithoutConsent(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, id := trackOne(t, tracker, store)

	err := tracker.EnrichContact(context.Background(), resp.SessionIdentity, "+4915112345678", "DE", false)
	if !errors.Is(err, models.ErrConsentRequired) {
		t.Fatalf("Expected ErrConsentRequired, got %v", err)
	}

	visit, _ := store.GetVisit(context.Background(), id)
	if visit.ContactInfo != nil {
		t.Error("Contact info must not be persisted without consent")
	}
}

func TestEnrichContactValidation(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	resp, _ := trackOne(t, tracker, store)
	ctx := context.Background()

	for _, phone := range []string{"", "   ", "abc", "+0123456", "12"} {
		err := tracker.EnrichContact(ctx, resp.SessionIdentity, phone, "DE", true)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("Phone %q: expected ErrValidation, got %v", phone, err)
		}
	}
}
