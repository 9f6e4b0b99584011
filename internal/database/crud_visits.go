// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/visitgrid/visitgrid/internal/models"
)

// visitColumns is the canonical column list used by every visit SELECT so
// scanVisit stays in lockstep with the queries.
const visitColumns = `id, session_identity, network_identity, client_signature,
	device_type, browser, os, current_path, referrer, traffic_source, language,
	is_new_visitor, visit_count, page_views, last_activity, is_active, is_bot,
	consent_necessary, consent_analytics, consent_location, consent_contact,
	loc_country, loc_city, loc_state, loc_latitude, loc_longitude, loc_accuracy,
	loc_address, loc_timezone,
	contact_phone, contact_country_code, contact_consent, contact_consent_at,
	contact_verified, created_at, updated_at`

// InsertVisit persists a freshly resolved Visit. ID and timestamps are
// assigned when unset.
func (db *DB) InsertVisit(ctx context.Context, visit *models.Visit) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("insert_visit", &err)()

	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	now := time.Now().UTC()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = now
	}
	if visit.UpdatedAt.IsZero() {
		visit.UpdatedAt = visit.CreatedAt
	}
	if visit.LastActivity.IsZero() {
		visit.LastActivity = visit.CreatedAt
	}

	query := `INSERT INTO visits (
		id, session_identity, network_identity, client_signature,
		device_type, browser, os, current_path, referrer, traffic_source, language,
		is_new_visitor, visit_count, page_views, last_activity, is_active, is_bot,
		consent_necessary, consent_analytics, consent_location, consent_contact,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		visit.ID, nullIfEmpty(visit.SessionIdentity), visit.NetworkIdentity, visit.ClientSignature,
		visit.Device.Type, visit.Device.Browser, visit.Device.OS,
		visit.CurrentPath, nullIfEmpty(visit.Referrer), visit.TrafficSource, nullIfEmpty(visit.Language),
		visit.IsNewVisitor, visit.VisitCount, visit.PageViews,
		visit.LastActivity, visit.IsActive, visit.IsBot,
		visit.Consent.NecessaryGiven(), visit.Consent.AnalyticsGiven(),
		visit.Consent.LocationGiven(), visit.Consent.ContactGiven(),
		visit.CreatedAt, visit.UpdatedAt,
	)
	if err != nil {
		return storeErr("failed to insert visit", err)
	}
	return nil
}

// GetVisit fetches a single visit by ID. Returns models.ErrIdentityNotFound
// when no such row exists.
func (db *DB) GetVisit(ctx context.Context, id uuid.UUID) (visit *models.Visit, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("get_visit", &err)()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = ?`, id)
	visit, err = scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrIdentityNotFound
	}
	if err != nil {
		return nil, storeErr("failed to get visit", err)
	}
	return visit, nil
}

// FindMostRecentBySession returns the most recently created visit carrying
// the given session identity, or nil when none matches.
func (db *DB) FindMostRecentBySession(ctx context.Context, sessionIdentity string) (visit *models.Visit, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("find_by_session", &err)()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		 WHERE session_identity = ?
		 ORDER BY created_at DESC LIMIT 1`, sessionIdentity)
	visit, err = scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to find visit by session", err)
	}
	return visit, nil
}

// FindMostRecentByNetwork returns the most recently created visit matching
// the IP and user-agent pair, or nil when none matches. No recency cutoff
// is imposed on the lookback; the most recent row wins ties.
func (db *DB) FindMostRecentByNetwork(ctx context.Context, networkIdentity, clientSignature string) (visit *models.Visit, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("find_by_network", &err)()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		 WHERE network_identity = ? AND client_signature = ?
		 ORDER BY created_at DESC LIMIT 1`, networkIdentity, clientSignature)
	visit, err = scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to find visit by network signature", err)
	}
	return visit, nil
}

// RecordPageView applies an in-session hit to an existing visit as a single
// atomic update: page_views increments by exactly one, current_path and
// last_activity move forward. Returns models.ErrIdentityNotFound when the
// visit does not exist.
func (db *DB) RecordPageView(ctx context.Context, id uuid.UUID, path string, at time.Time) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("record_page_view", &err)()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE visits
		 SET page_views = page_views + 1,
		     current_path = ?,
		     last_activity = ?,
		     updated_at = ?
		 WHERE id = ?`, path, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return storeErr("failed to record page view", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("failed to read page view result", err)
	}
	if affected == 0 {
		return models.ErrIdentityNotFound
	}
	return nil
}

// UpdateLocation persists location enrichment for a visit. Consent gating
// happens in the tracking layer before this is called; this method only
// writes what it is given, in a single atomic update.
func (db *DB) UpdateLocation(ctx context.Context, id uuid.UUID, loc *models.LocationInfo) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("update_location", &err)()

	var lat, lon interface{}
	if loc.Coordinates != nil {
		lat, lon = loc.Coordinates.Latitude, loc.Coordinates.Longitude
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE visits
		 SET loc_country = ?, loc_city = ?, loc_state = ?,
		     loc_latitude = ?, loc_longitude = ?, loc_accuracy = ?,
		     loc_address = ?, loc_timezone = ?,
		     updated_at = ?
		 WHERE id = ?`,
		nullIfEmpty(loc.Country), nullIfEmpty(loc.City), nullIfEmpty(loc.State),
		lat, lon, loc.Accuracy,
		nullIfEmpty(loc.Address), nullIfEmpty(loc.Timezone),
		time.Now().UTC(), id)
	if err != nil {
		return storeErr("failed to update location", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("failed to read location update result", err)
	}
	if affected == 0 {
		return models.ErrIdentityNotFound
	}
	return nil
}

// UpdateContact persists contact enrichment for a visit. The consent
// timestamp is set only when absent, so an earlier grant is never silently
// overwritten by later writes.
func (db *DB) UpdateContact(ctx context.Context, id uuid.UUID, phone, countryCode string, consentAt time.Time) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("update_contact", &err)()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE visits
		 SET contact_phone = ?,
		     contact_country_code = ?,
		     contact_consent = TRUE,
		     contact_consent_at = COALESCE(contact_consent_at, ?),
		     updated_at = ?
		 WHERE id = ?`,
		phone, nullIfEmpty(countryCode), consentAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return storeErr("failed to update contact", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("failed to read contact update result", err)
	}
	if affected == 0 {
		return models.ErrIdentityNotFound
	}
	return nil
}

// DeactivateIdle flips every active visit whose last activity predates
// cutoff to inactive in one bulk update. Idempotent: a second sweep with no
// intervening activity affects zero rows.
func (db *DB) DeactivateIdle(ctx context.Context, cutoff time.Time) (affected int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("deactivate_idle", &err)()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE visits
		 SET is_active = FALSE, updated_at = ?
		 WHERE is_active = TRUE AND last_activity < ?`,
		time.Now().UTC(), cutoff.UTC())
	if err != nil {
		return 0, storeErr("failed to deactivate idle visits", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return 0, storeErr("failed to read deactivation result", err)
	}
	return affected, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var (
		v                                            models.Visit
		sessionIdentity, clientSignature             sql.NullString
		browser, osName, currentPath, referrer, lang sql.NullString
		consentNecessary, consentAnalytics           bool
		consentLocation, consentContact              bool
		locCountry, locCity, locState                sql.NullString
		locAddress, locTimezone                      sql.NullString
		locLat, locLon, locAccuracy                  sql.NullFloat64
		contactPhone, contactCountryCode             sql.NullString
		contactConsent, contactVerified              bool
		contactConsentAt                             sql.NullTime
	)

	err := row.Scan(
		&v.ID, &sessionIdentity, &v.NetworkIdentity, &clientSignature,
		&v.Device.Type, &browser, &osName, &currentPath, &referrer, &v.TrafficSource, &lang,
		&v.IsNewVisitor, &v.VisitCount, &v.PageViews, &v.LastActivity, &v.IsActive, &v.IsBot,
		&consentNecessary, &consentAnalytics, &consentLocation, &consentContact,
		&locCountry, &locCity, &locState, &locLat, &locLon, &locAccuracy,
		&locAddress, &locTimezone,
		&contactPhone, &contactCountryCode, &contactConsent, &contactConsentAt,
		&contactVerified, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.SessionIdentity = sessionIdentity.String
	v.ClientSignature = clientSignature.String
	v.Device.Browser = browser.String
	v.Device.OS = osName.String
	v.CurrentPath = currentPath.String
	v.Referrer = referrer.String
	v.Language = lang.String
	v.Consent = models.ConsentPreferences{
		Necessary: &consentNecessary,
		Analytics: &consentAnalytics,
		Location:  &consentLocation,
		Contact:   &consentContact,
	}

	if locCountry.Valid || locCity.Valid || locState.Valid || locLat.Valid ||
		locAddress.Valid || locTimezone.Valid {
		loc := &models.LocationInfo{
			Country:  locCountry.String,
			City:     locCity.String,
			State:    locState.String,
			Address:  locAddress.String,
			Timezone: locTimezone.String,
		}
		if locLat.Valid && locLon.Valid {
			loc.Coordinates = &models.Coordinates{
				Latitude:  locLat.Float64,
				Longitude: locLon.Float64,
			}
		}
		if locAccuracy.Valid {
			accuracy := locAccuracy.Float64
			loc.Accuracy = &accuracy
		}
		v.Location = loc
	}

	if contactPhone.Valid {
		contact := &models.ContactInfo{
			PhoneNumber:  contactPhone.String,
			CountryCode:  contactCountryCode.String,
			ConsentGiven: contactConsent,
			Verified:     contactVerified,
		}
		if contactConsentAt.Valid {
			at := contactConsentAt.Time
			contact.ConsentTimestamp = &at
		}
		v.ContactInfo = contact
	}

	return &v, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
