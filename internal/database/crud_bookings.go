// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/visitgrid/visitgrid/internal/models"
)

// InsertBooking persists a business-entity record. The booking surface is
// collaborator plumbing; Visitgrid stores the fields the dashboard
// aggregates over.
func (db *DB) InsertBooking(ctx context.Context, booking *models.Booking) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("insert_booking", &err)()

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
	if booking.Status == "" {
		booking.Status = models.BookingPending
	}

	var visitID interface{}
	if booking.VisitID != nil {
		visitID = *booking.VisitID
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO bookings (id, service_name, status, total_amount, visit_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.ServiceName, booking.Status, booking.TotalAmount,
		visitID, booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert booking", err)
	}
	return nil
}

// UpdateBookingStatus moves a booking through its status lifecycle.
func (db *DB) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("update_booking_status", &err)()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return storeErr("failed to update booking status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("failed to read booking update result", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %s not found", id)
	}
	return nil
}
