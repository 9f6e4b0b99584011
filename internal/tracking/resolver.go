// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package tracking implements the ingest pipeline: client IP derivation,
// identity resolution, consent-gated enrichment, and the idle-visit reaper.
package tracking

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/visitgrid/visitgrid/internal/classify"
	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/logging"
	"github.com/visitgrid/visitgrid/internal/metrics"
	"github.com/visitgrid/visitgrid/internal/models"
)

// Store is the persistence surface the tracker depends on.
type Store interface {
	InsertVisit(ctx context.Context, visit *models.Visit) error
	GetVisit(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	FindMostRecentBySession(ctx context.Context, sessionIdentity string) (*models.Visit, error)
	FindMostRecentByNetwork(ctx context.Context, networkIdentity, clientSignature string) (*models.Visit, error)
	RecordPageView(ctx context.Context, id uuid.UUID, path string, at time.Time) error
	UpdateLocation(ctx context.Context, id uuid.UUID, loc *models.LocationInfo) error
	UpdateContact(ctx context.Context, id uuid.UUID, phone, countryCode string, consentAt time.Time) error
}

// IdentityKey is one identity signal extracted from an ingest request.
// Resolution tries keys in order; the first strategy returning a match
// wins.
type IdentityKey interface {
	// Lookup returns the matching visit, or nil when the key matches
	// nothing.
	Lookup(ctx context.Context, store Store) (*models.Visit, error)

	// Decision labels the resolution outcome for instrumentation.
	Decision() string
}

// SessionToken matches on the client-echoed session identity.
type SessionToken string

func (t SessionToken) Lookup(ctx context.Context, store Store) (*models.Visit, error) {
	return store.FindMostRecentBySession(ctx, string(t))
}

func (t SessionToken) Decision() string { return "returning_session" }

// NetworkSignature matches on the IP and user-agent pair, for clients that
// reject session affinity. The lookback is unbounded; the most recently
// created row wins.
type NetworkSignature struct {
	IP        string
	Signature string
}

func (n NetworkSignature) Lookup(ctx context.Context, store Store) (*models.Visit, error) {
	return store.FindMostRecentByNetwork(ctx, n.IP, n.Signature)
}

func (n NetworkSignature) Decision() string { return "returning_network" }

// Hit is one ingest request after transport-level extraction.
type Hit struct {
	SessionToken   string
	ClientIP       string
	UserAgent      string
	Path           string
	Referrer       string
	AcceptLanguage string
	SelfHost       string
	Consent        models.ConsentPreferences
	Timestamp      time.Time
}

// Tracker resolves visitor identities and applies per-hit mutations. A
// small in-process cache maps live session tokens to visit handles so
// in-session hits skip re-resolution entirely.
type Tracker struct {
	store Store
	cache *gocache.Cache
	cfg   *config.TrackingConfig
}

// NewTracker builds a Tracker over the given store.
func NewTracker(store Store, cfg *config.TrackingConfig) *Tracker {
	ttl := cfg.SessionCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Tracker{
		store: store,
		cache: gocache.New(ttl, 2*ttl),
		cfg:   cfg,
	}
}

// Track processes one ingest hit: in-session hits mutate their cached
// visit; everything else goes through identity resolution and creates a
// new visit record.
//
// Errors are returned for the caller to log; the HTTP layer swallows them
// so tracking failures never block the page response.
func (t *Tracker) Track(ctx context.Context, hit Hit) (*models.TrackResponse, error) {
	if hit.Timestamp.IsZero() {
		hit.Timestamp = time.Now().UTC()
	}

	// In-session fast path: a cached handle means this token already
	// resolved during this browsing session.
	if hit.SessionToken != "" {
		if cached, found := t.cache.Get(hit.SessionToken); found {
			metrics.SessionCacheHits.Inc()
			visitID := cached.(uuid.UUID)
			if err := t.store.RecordPageView(ctx, visitID, hit.Path, hit.Timestamp); err == nil {
				metrics.RecordResolver("in_session")
				return &models.TrackResponse{
					VisitIdentity:   visitID.String(),
					SessionIdentity: hit.SessionToken,
					IsNewVisitor:    false,
				}, nil
			}
			// The cached visit vanished or the store hiccuped; fall
			// through to full resolution.
			t.cache.Delete(hit.SessionToken)
		} else {
			metrics.SessionCacheMisses.Inc()
		}
	}

	previous, decision, err := t.resolve(ctx, hit)
	if err != nil {
		return nil, fmt.Errorf("identity resolution failed: %w", err)
	}

	visit := t.newVisit(hit, previous)
	if err := t.store.InsertVisit(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to persist visit: %w", err)
	}
	metrics.RecordResolver(decision)

	t.cache.Set(visit.SessionIdentity, visit.ID, gocache.DefaultExpiration)

	logging.Debug().
		Str("visit_id", visit.ID.String()).
		Str("decision", decision).
		Int("visit_count", visit.VisitCount).
		Bool("is_bot", visit.IsBot).
		Msg("Resolved visit identity")

	return &models.TrackResponse{
		VisitIdentity:   visit.ID.String(),
		SessionIdentity: visit.SessionIdentity,
		IsNewVisitor:    visit.IsNewVisitor,
	}, nil
}

// resolve runs the ordered strategy list and returns the matched prior
// visit, if any, with the decision label.
func (t *Tracker) resolve(ctx context.Context, hit Hit) (*models.Visit, string, error) {
	var keys []IdentityKey
	if hit.SessionToken != "" {
		keys = append(keys, SessionToken(hit.SessionToken))
	}
	keys = append(keys, NetworkSignature{IP: hit.ClientIP, Signature: hit.UserAgent})

	for _, key := range keys {
		match, err := key.Lookup(ctx, t.store)
		if err != nil {
			return nil, "", err
		}
		if match != nil {
			return match, key.Decision(), nil
		}
	}
	return nil, "new", nil
}

// newVisit seeds a Visit for a first-contact touch. A matched prior
// identity makes this a returning visitor with an incremented visit count;
// a matched-but-inactive identity still spawns a fresh record rather than
// reactivating the old one.
func (t *Tracker) newVisit(hit Hit, previous *models.Visit) *models.Visit {
	visit := &models.Visit{
		NetworkIdentity: hit.ClientIP,
		ClientSignature: hit.UserAgent,
		Device:          classify.Device(hit.UserAgent),
		CurrentPath:     hit.Path,
		Referrer:        hit.Referrer,
		TrafficSource:   classify.Referrer(hit.Referrer, hit.SelfHost),
		Language:        classify.Language(hit.AcceptLanguage),
		IsNewVisitor:    previous == nil,
		VisitCount:      1,
		PageViews:       1,
		LastActivity:    hit.Timestamp,
		IsActive:        true,
		IsBot:           classify.Bot(hit.UserAgent),
		Consent:         hit.Consent,
		CreatedAt:       hit.Timestamp,
	}
	if previous != nil {
		visit.VisitCount = previous.VisitCount + 1
	}

	// Echo the client's token when it offered one; otherwise mint a
	// fresh one for the client to persist.
	visit.SessionIdentity = hit.SessionToken
	if visit.SessionIdentity == "" {
		visit.SessionIdentity = newSessionToken(hit.Timestamp)
	}
	return visit
}

// newSessionToken mints a lexicographically sortable session identity.
func newSessionToken(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}
