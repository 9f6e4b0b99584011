// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/visitgrid/visitgrid/internal/metrics"
	"github.com/visitgrid/visitgrid/internal/models"
	"github.com/visitgrid/visitgrid/internal/validation"
)

// LocationUpdate is the consent-gated location enrichment payload.
// Coordinates are stored only when both components are present.
type LocationUpdate struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Country   string   `json:"country,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
}

// EnrichLocation applies location enrichment to the visit behind
// sessionToken. Without consent nothing is written and ErrConsentRequired
// is returned. Out-of-range coordinates are rejected, never clamped.
func (t *Tracker) EnrichLocation(ctx context.Context, sessionToken string, update LocationUpdate, consentGiven bool) error {
	if !consentGiven {
		metrics.ConsentRejections.WithLabelValues("location").Inc()
		return models.ErrConsentRequired
	}
	if err := validateCoordinates(update.Latitude, update.Longitude); err != nil {
		return err
	}

	visitID, err := t.lookupHandle(ctx, sessionToken)
	if err != nil {
		return err
	}

	loc := &models.LocationInfo{
		Country:  update.Country,
		City:     update.City,
		State:    update.State,
		Address:  update.Address,
		Timezone: update.Timezone,
		Accuracy: update.Accuracy,
	}
	if update.Latitude != nil && update.Longitude != nil {
		loc.Coordinates = &models.Coordinates{
			Latitude:  *update.Latitude,
			Longitude: *update.Longitude,
		}
	}

	return t.store.UpdateLocation(ctx, visitID, loc)
}

// EnrichContact applies contact enrichment to the visit behind
// sessionToken. The phone number is required and validated against the
// international pattern after normalization.
func (t *Tracker) EnrichContact(ctx context.Context, sessionToken, phone, countryCode string, consentGiven bool) error {
	if !consentGiven {
		metrics.ConsentRejections.WithLabelValues("contact").Inc()
		return models.ErrConsentRequired
	}

	normalized := validation.NormalizePhone(phone)
	if normalized == "" {
		return fmt.Errorf("%w: phone number is required", models.ErrValidation)
	}
	if !validation.ValidPhone(normalized) {
		return fmt.Errorf("%w: phone number must match the international format", models.ErrValidation)
	}

	visitID, err := t.lookupHandle(ctx, sessionToken)
	if err != nil {
		return err
	}

	return t.store.UpdateContact(ctx, visitID, normalized, countryCode, time.Now().UTC())
}

// lookupHandle maps a session token to its visit ID, preferring the
// in-process cache and falling back to the store.
func (t *Tracker) lookupHandle(ctx context.Context, sessionToken string) (uuid.UUID, error) {
	if sessionToken == "" {
		return uuid.Nil, models.ErrIdentityNotFound
	}
	if cached, found := t.cache.Get(sessionToken); found {
		return cached.(uuid.UUID), nil
	}

	visit, err := t.store.FindMostRecentBySession(ctx, sessionToken)
	if err != nil {
		return uuid.Nil, err
	}
	if visit == nil {
		return uuid.Nil, models.ErrIdentityNotFound
	}
	t.cache.Set(sessionToken, visit.ID, gocache.DefaultExpiration)
	return visit.ID, nil
}

func validateCoordinates(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", models.ErrValidation, *lat)
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", models.ErrValidation, *lon)
	}
	return nil
}
