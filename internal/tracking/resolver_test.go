// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/models"
)

// fakeStore is an in-memory Store for resolver tests.
type fakeStore struct {
	mu     sync.Mutex
	visits map[uuid.UUID]*models.Visit

	insertErr error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{visits: make(map[uuid.UUID]*models.Visit)}
}

func (s *fakeStore) InsertVisit(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}
	copied := *visit
	s.visits[visit.ID] = &copied
	return nil
}

func (s *fakeStore) GetVisit(_ context.Context, id uuid.UUID) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visit, ok := s.visits[id]
	if !ok {
		return nil, models.ErrIdentityNotFound
	}
	copied := *visit
	return &copied, nil
}

func (s *fakeStore) newestWhere(match func(*models.Visit) bool) *models.Visit {
	var candidates []*models.Visit
	for _, visit := range s.visits {
		if match(visit) {
			candidates = append(candidates, visit)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	copied := *candidates[0]
	return &copied
}

func (s *fakeStore) FindMostRecentBySession(_ context.Context, sessionIdentity string) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.newestWhere(func(v *models.Visit) bool {
		return v.SessionIdentity == sessionIdentity
	}), nil
}

func (s *fakeStore) FindMostRecentByNetwork(_ context.Context, networkIdentity, clientSignature string) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.newestWhere(func(v *models.Visit) bool {
		return v.NetworkIdentity == networkIdentity && v.ClientSignature == clientSignature
	}), nil
}

func (s *fakeStore) RecordPageView(_ context.Context, id uuid.UUID, path string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	visit, ok := s.visits[id]
	if !ok {
		return models.ErrIdentityNotFound
	}
	visit.PageViews++
	visit.CurrentPath = path
	visit.LastActivity = at
	return nil
}

func (s *fakeStore) UpdateLocation(_ context.Context, id uuid.UUID, loc *models.LocationInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	visit, ok := s.visits[id]
	if !ok {
		return models.ErrIdentityNotFound
	}
	visit.Location = loc
	return nil
}

func (s *fakeStore) UpdateContact(_ context.Context, id uuid.UUID, phone, countryCode string, consentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	visit, ok := s.visits[id]
	if !ok {
		return models.ErrIdentityNotFound
	}
	if visit.ContactInfo == nil || visit.ContactInfo.ConsentTimestamp == nil {
		visit.ContactInfo = &models.ContactInfo{ConsentTimestamp: &consentAt}
	}
	visit.ContactInfo.PhoneNumber = phone
	visit.ContactInfo.CountryCode = countryCode
	visit.ContactInfo.ConsentGiven = true
	return nil
}

func newTestTracker(store Store) *Tracker {
	return NewTracker(store, &config.TrackingConfig{
		IdleThreshold:   30 * time.Minute,
		ReapInterval:    10 * time.Minute,
		SessionCacheTTL: 30 * time.Minute,
	})
}

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

func TestTrackFirstContact(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)

	resp, err := tracker.Track(context.Background(), Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !resp.IsNewVisitor {
		t.Error("First contact must be a new visitor")
	}
	if resp.SessionIdentity == "" {
		t.Error("First contact must mint a session identity")
	}

	id, err := uuid.Parse(resp.VisitIdentity)
	if err != nil {
		t.Fatalf("VisitIdentity is not a UUID: %v", err)
	}
	visit, err := store.GetVisit(context.Background(), id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}
	if visit.VisitCount != 1 {
		t.Errorf("VisitCount = %d, want 1", visit.VisitCount)
	}
	if visit.PageViews != 1 {
		t.Errorf("PageViews = %d, want 1", visit.PageViews)
	}
	if !visit.IsActive {
		t.Error("New visit must start active")
	}
}

func TestTrackNetworkFallback(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	ctx := context.Background()

	first, err := tracker.Track(ctx, Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
		Timestamp: time.Now().UTC().Add(-5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	// Same IP and user agent five minutes later, no session token: the
	// fallback strategy attributes this to the same visitor lineage.
	second, err := tracker.Track(ctx, Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/pricing",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if second.IsNewVisitor {
		t.Error("IP+UA match must resolve as returning visitor")
	}
	if second.VisitIdentity == first.VisitIdentity {
		t.Error("First-contact resolution must create a distinct visit record")
	}

	id, _ := uuid.Parse(second.VisitIdentity)
	visit, err := store.GetVisit(ctx, id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}
	if visit.VisitCount != 2 {
		t.Errorf("VisitCount = %d, want 2", visit.VisitCount)
	}
}

func TestTrackInSessionMutation(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)
	ctx := context.Background()

	first, err := tracker.Track(ctx, Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	const hits = 4
	for i := 0; i < hits; i++ {
		resp, err := tracker.Track(ctx, Hit{
			SessionToken: first.SessionIdentity,
			ClientIP:     "203.0.113.5",
			UserAgent:    firefoxUA,
			Path:         "/page",
		})
		if err != nil {
			t.Fatalf("Track failed: %v", err)
		}
		if resp.VisitIdentity != first.VisitIdentity {
			t.Fatal("In-session hit must mutate the same visit, not create one")
		}
	}

	id, _ := uuid.Parse(first.VisitIdentity)
	visit, err := store.GetVisit(ctx, id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}
	if visit.PageViews != 1+hits {
		t.Errorf("PageViews = %d, want %d", visit.PageViews, 1+hits)
	}
	if visit.CurrentPath != "/page" {
		t.Errorf("CurrentPath = %q, want /page", visit.CurrentPath)
	}
	if len(store.visits) != 1 {
		t.Errorf("Visit records = %d, want 1", len(store.visits))
	}
}

func TestTrackSessionMatchAfterCacheLoss(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	first, err := newTestTracker(store).Track(ctx, Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	// A fresh tracker has an empty cache, as after a restart. The echoed
	// token still resolves through the store and opens a new visit with
	// the lineage count carried forward.
	resp, err := newTestTracker(store).Track(ctx, Hit{
		SessionToken: first.SessionIdentity,
		ClientIP:     "203.0.113.5",
		UserAgent:    firefoxUA,
		Path:         "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if resp.IsNewVisitor {
		t.Error("Session token match must resolve as returning visitor")
	}
	if resp.SessionIdentity != first.SessionIdentity {
		t.Error("Supplied session token must be echoed, not replaced")
	}

	id, _ := uuid.Parse(resp.VisitIdentity)
	visit, err := store.GetVisit(ctx, id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}
	if visit.VisitCount != 2 {
		t.Errorf("VisitCount = %d, want 2", visit.VisitCount)
	}
}

func TestTrackBotFlagged(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)

	resp, err := tracker.Track(context.Background(), Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		Path:      "/",
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	id, _ := uuid.Parse(resp.VisitIdentity)
	visit, err := store.GetVisit(context.Background(), id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}
	if !visit.IsBot {
		t.Error("Crawler traffic must be flagged as bot")
	}
}

func TestTrackStoreFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	tracker := newTestTracker(store)

	_, err := tracker.Track(context.Background(), Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
	})
	if err == nil {
		t.Fatal("Expected insert failure to surface to the caller")
	}
}

func boolPtr(v bool) *bool { return &v }

func TestTrackCarriesConsentPreferences(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(store)

	resp, err := tracker.Track(context.Background(), Hit{
		ClientIP:  "203.0.113.5",
		UserAgent: firefoxUA,
		Path:      "/",
		Consent: models.ConsentPreferences{
			Analytics: boolPtr(true),
			Contact:   boolPtr(false),
		},
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	id, err := uuid.Parse(resp.VisitIdentity)
	if err != nil {
		t.Fatalf("VisitIdentity is not a UUID: %v", err)
	}
	visit, err := store.GetVisit(context.Background(), id)
	if err != nil {
		t.Fatalf("GetVisit failed: %v", err)
	}

	if !visit.Consent.AnalyticsGiven() {
		t.Error("analytics consent was given but not recorded on the visit")
	}
	if !visit.Consent.NecessaryGiven() {
		t.Error("absent necessary flag must default to given")
	}
	if visit.Consent.LocationGiven() || visit.Consent.ContactGiven() {
		t.Error("location/contact consent were not given but got recorded")
	}
}
