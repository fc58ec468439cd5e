package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salon-service/internal/models"

	"github.com/lib/pq"
)

// CreateBooking inserts a new booking. The (service, date, time_slot,
// customer) unique constraint enforces slot uniqueness at the database
// level; a violation surfaces as models.ErrSlotTaken.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	err := s.db.GetContext(ctx, b, `
		INSERT INTO bookings (
			service_id, customer_id, staff_id, date, time_slot, notes,
			number_of_customers, is_home_service, home_delivery_address, home_visit_fee,
			status, is_paid, razorpay_order_id, razorpay_payment_id, razorpay_signature
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`,
		b.ServiceID, b.CustomerID, b.StaffID, b.Date, b.TimeSlot, b.Notes,
		b.NumberOfCustomers, b.IsHomeService, b.HomeDeliveryAddress, b.HomeVisitFee,
		b.Status, b.IsPaid, b.RazorpayOrderID, b.RazorpayPaymentID, b.RazorpaySignature)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrSlotTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking with its service attached
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	svc, err := s.GetServiceByID(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	booking.Service = svc
	return &booking, nil
}

// GetBookingByGatewayOrderID resolves the booking a payment callback
// refers to
func (s *Store) GetBookingByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking,
		"SELECT * FROM bookings WHERE razorpay_order_id = $1", gatewayOrderID)
	if err == sql.ErrNoRows {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByCustomer retrieves a customer's bookings, newest first
func (s *Store) GetBookingsByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, customerID, limit, offset)
	return bookings, err
}

// GetBookings retrieves bookings for the admin list, optionally filtered
// by status
func (s *Store) GetBookings(ctx context.Context, status string, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	if status != "" {
		err := s.db.SelectContext(ctx, &bookings, `
			SELECT * FROM bookings WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
		return bookings, err
	}
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return bookings, err
}

// GetBookedSlots returns the time slots already taken for a service on a
// date, excluding cancelled bookings
func (s *Store) GetBookedSlots(ctx context.Context, serviceID int64, date time.Time) ([]string, error) {
	var slots []string
	err := s.db.SelectContext(ctx, &slots, `
		SELECT time_slot FROM bookings
		WHERE service_id = $1 AND date = $2 AND status != $3
		ORDER BY time_slot`, serviceID, date, models.BookingStatusCancelledService)
	return slots, err
}

// SetBookingStatus updates a booking's status
func (s *Store) SetBookingStatus(ctx context.Context, bookingID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET status = $1 WHERE id = $2",
		status, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// SetBookingPayment records the outcome of a payment verification. On
// success the payment id and signature are stored alongside is_paid=true;
// on failure is_paid is written as an explicit false so a later retry
// starts from a known state.
func (s *Store) SetBookingPayment(ctx context.Context, bookingID int64, paid bool, paymentID, signature string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET is_paid = $1, razorpay_payment_id = $2, razorpay_signature = $3
		WHERE id = $4`,
		paid, paymentID, signature, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// SetBookingGatewayOrder stores a fresh gateway order id on a booking,
// used when payment is retried for an unpaid booking
func (s *Store) SetBookingGatewayOrder(ctx context.Context, bookingID int64, gatewayOrderID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET razorpay_order_id = $1 WHERE id = $2",
		gatewayOrderID, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}
