// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/visitgrid/visitgrid/internal/logging"
	"github.com/visitgrid/visitgrid/internal/metrics"
	"github.com/visitgrid/visitgrid/internal/models"
	"github.com/visitgrid/visitgrid/internal/tracking"
)

// TrackRequest is the ingest payload. Network identity and client
// signature come from transport headers, never the body.
type TrackRequest struct {
	SessionToken string                    `json:"session_token,omitempty"`
	Path         string                    `json:"path" validate:"required,max=2048"`
	Referrer     string                    `json:"referrer,omitempty" validate:"max=2048"`
	Consent      models.ConsentPreferences `json:"consent"`
	Timestamp    *time.Time                `json:"timestamp,omitempty"`
}

// Track handles POST /api/v1/track.
//
// The ingest path fails open: any internal error is logged and swallowed,
// and the client still receives a success envelope so page loads are never
// blocked by analytics failures.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Malformed payloads are client errors and are rejected; fail-open
	// covers internal failures only.
	var req TrackRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	hit := tracking.Hit{
		SessionToken:   req.SessionToken,
		ClientIP:       h.ips.ClientIP(r),
		UserAgent:      r.UserAgent(),
		Path:           req.Path,
		Referrer:       req.Referrer,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		SelfHost:       r.Host,
		Consent:        req.Consent,
	}
	if req.Timestamp != nil {
		hit.Timestamp = req.Timestamp.UTC()
	}

	resp, err := h.tracker.Track(r.Context(), hit)
	if err != nil {
		logging.Warn().Err(err).Msg("Tracking failed, swallowing")
		metrics.RecordIngest("swallowed")
		// Echo the token so the client keeps its session continuity.
		respondSuccess(w, http.StatusAccepted, &models.TrackResponse{
			SessionIdentity: req.SessionToken,
		}, start)
		return
	}

	metrics.RecordIngest("ok")
	respondSuccess(w, http.StatusOK, resp, start)
}

// LocationRequest is the consent-gated location enrichment payload.
type LocationRequest struct {
	SessionToken string                  `json:"session_token" validate:"required"`
	Consent      bool                    `json:"consent"`
	Location     tracking.LocationUpdate `json:"location"`
}

// TrackLocation handles POST /api/v1/track/location. Unlike ingest, the
// consent gate surfaces its rejections: silent swallowing here would hide
// a legal failure mode from the client.
func (h *Handler) TrackLocation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LocationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	err := h.tracker.EnrichLocation(r.Context(), req.SessionToken, req.Location, req.Consent)
	if err != nil {
		respondEnrichmentError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"result": "updated"}, start)
}

// ContactRequest is the consent-gated contact enrichment payload.
type ContactRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
	PhoneNumber  string `json:"phone_number" validate:"required"`
	CountryCode  string `json:"country_code,omitempty" validate:"omitempty,len=2"`
	ConsentGiven bool   `json:"consent_given"`
}

// TrackContact handles POST /api/v1/track/contact.
func (h *Handler) TrackContact(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ContactRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	err := h.tracker.EnrichContact(r.Context(), req.SessionToken, req.PhoneNumber, req.CountryCode, req.ConsentGiven)
	if err != nil {
		respondEnrichmentError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"result": "updated"}, start)
}

// respondEnrichmentError maps the tracking error taxonomy onto HTTP
// statuses and envelope codes.
func respondEnrichmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrConsentRequired):
		respondError(w, http.StatusForbidden, "CONSENT_REQUIRED", "Consent is required for this update", nil)
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, models.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, "IDENTITY_NOT_FOUND", "No visit matches this session", nil)
	case errors.Is(err, models.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "The store could not serve this update", err)
	default:
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to apply update", err)
	}
}
