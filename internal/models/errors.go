// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package models

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses; the
// tracking path additionally swallows ErrStoreUnavailable so the primary
// page response is never blocked by analytics failures.
var (
	// ErrValidation indicates a malformed payload, out-of-range
	// coordinates, or a bad phone format.
	ErrValidation = errors.New("validation failed")

	// ErrConsentRequired indicates a regulated-field write was attempted
	// without consent. Distinct from validation failure.
	ErrConsentRequired = errors.New("consent required")

	// ErrIdentityNotFound indicates an update referenced a missing or
	// expired session identity.
	ErrIdentityNotFound = errors.New("visit identity not found")

	// ErrStoreUnavailable indicates the backing store could not serve
	// the operation.
	ErrStoreUnavailable = errors.New("store unavailable")
)
