// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking status values. Revenue aggregation sums only completed bookings.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// BookingStatuses lists every booking status in display order.
var BookingStatuses = []string{BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled}

// Booking is the business-entity record the dashboard aggregates over.
// The booking CRUD surface itself is external plumbing; Visitgrid stores
// just enough to compute in-window counts, status breakdowns, and
// period-over-period revenue.
type Booking struct {
	ID          uuid.UUID  `json:"id"`
	ServiceName string     `json:"service_name"`
	Status      string     `json:"status"`
	TotalAmount float64    `json:"total_amount"`
	VisitID     *uuid.UUID `json:"visit_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
