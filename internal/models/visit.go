// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package models defines data structures used throughout the Visitgrid
// application: Visit records, booking records, dashboard aggregates, and
// API response envelopes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Device type classification values.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// Traffic source classification values.
const (
	SourceDirect   = "direct"
	SourceOrganic  = "organic"
	SourceSocial   = "social"
	SourceReferral = "referral"
	SourceEmail    = "email"
	SourcePaid     = "paid"
	SourceOther    = "other"
)

// TrafficSources lists every traffic-source bucket in display order.
// Dashboard breakdowns render all of them, zero counts included.
var TrafficSources = []string{
	SourceDirect, SourceOrganic, SourceSocial,
	SourceReferral, SourceEmail, SourcePaid, SourceOther,
}

// DeviceTypes lists every device bucket in display order.
var DeviceTypes = []string{DeviceDesktop, DeviceMobile, DeviceTablet, DeviceUnknown}

// Visit represents one resolved browsing-identity record.
//
// A Visit is created on first contact (no matching prior identity, or a
// returning identity starting a new browsing session) and mutated in place
// for subsequent hits within the same session: PageViews, CurrentPath and
// LastActivity move; everything fixed at creation stays fixed.
//
// Key invariants:
//   - Location/ContactInfo subfields are written only under explicit consent.
//   - PageViews increases by exactly one per subsequent same-identity hit.
//   - IsActive transitions true->false only via the reaper's idle sweep.
//   - IsBot is immutable after creation; bot rows never enter aggregation.
type Visit struct {
	ID uuid.UUID `json:"id"`

	// Identity signals. SessionIdentity is the client-echoed token
	// (may be absent for clients that reject it); NetworkIdentity is the
	// proxy-resolved client IP and ClientSignature the raw user agent.
	SessionIdentity string `json:"session_identity,omitempty"`
	NetworkIdentity string `json:"network_identity"`
	ClientSignature string `json:"client_signature"`

	Device DeviceInfo `json:"device"`

	CurrentPath   string `json:"current_path"`
	Referrer      string `json:"referrer,omitempty"`
	TrafficSource string `json:"traffic_source"`
	Language      string `json:"language,omitempty"`

	IsNewVisitor bool `json:"is_new_visitor"`
	VisitCount   int  `json:"visit_count"`
	PageViews    int  `json:"page_views"`

	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`
	IsBot        bool      `json:"is_bot"`

	// Consent preferences captured at the ingest boundary. Persisted
	// with the identity so the recorded consent state is inspectable
	// through the admin listing and export surfaces.
	Consent ConsentPreferences `json:"consent"`

	Location    *LocationInfo `json:"location,omitempty"`
	ContactInfo *ContactInfo  `json:"contact_info,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceInfo is the structured classification of a raw client signature.
type DeviceInfo struct {
	Type    string `json:"type"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

// Coordinates is a WGS84 point. Stored only when both components are
// present and in range.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationInfo holds consent-gated geographic enrichment.
type LocationInfo struct {
	Country     string       `json:"country,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Accuracy    *float64     `json:"accuracy,omitempty"`
	Address     string       `json:"address,omitempty"`
	Timezone    string       `json:"timezone,omitempty"`
}

// ContactInfo holds consent-gated contact enrichment. ConsentTimestamp is
// recorded the first time consent is granted and is not overwritten by
// later writes.
type ContactInfo struct {
	PhoneNumber      string     `json:"phone_number"`
	CountryCode      string     `json:"country_code,omitempty"`
	ConsentGiven     bool       `json:"consent_given"`
	ConsentTimestamp *time.Time `json:"consent_timestamp,omitempty"`
	Verified         bool       `json:"verified"`
}

// ConsentPreferences is the strongly-typed consent payload parsed at the
// ingest boundary. Absent fields default to false, except Necessary which
// defaults to true.
type ConsentPreferences struct {
	Necessary *bool `json:"necessary,omitempty"`
	Analytics *bool `json:"analytics,omitempty"`
	Location  *bool `json:"location,omitempty"`
	Contact   *bool `json:"contact,omitempty"`
}

// NecessaryGiven reports the necessary flag, defaulting to true when absent.
func (c ConsentPreferences) NecessaryGiven() bool {
	return c.Necessary == nil || *c.Necessary
}

// AnalyticsGiven reports the analytics flag, defaulting to false when absent.
func (c ConsentPreferences) AnalyticsGiven() bool {
	return c.Analytics != nil && *c.Analytics
}

// LocationGiven reports the location flag, defaulting to false when absent.
func (c ConsentPreferences) LocationGiven() bool {
	return c.Location != nil && *c.Location
}

// ContactGiven reports the contact flag, defaulting to false when absent.
func (c ConsentPreferences) ContactGiven() bool {
	return c.Contact != nil && *c.Contact
}
