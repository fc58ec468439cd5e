package models

import (
	"errors"
	"fmt"
)

// Sentinel domain errors
var (
	ErrAlreadyCancelled = errors.New("order already cancelled")
	ErrSlotTaken        = errors.New("time slot already booked for this service and customer")
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrVariantNotFound  = errors.New("product variant not found")
	ErrServiceNotFound  = errors.New("service not found")
)

// ValidationError reports input that violates a domain rule. It is raised
// at the model layer so every caller inherits the same guarantee.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports a stock shortfall for one variant. The
// triggering operation is blocked entirely; no partial application.
type InsufficientStockError struct {
	VariantID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// TerminalStatusError reports an attempt to transition an order or booking
// that is already in a terminal state.
type TerminalStatusError struct {
	Entity string
	ID     int64
	Status string
}

func (e *TerminalStatusError) Error() string {
	return fmt.Sprintf("%s %d is already in terminal state %s", e.Entity, e.ID, e.Status)
}

// NotCancellableError reports a customer cancellation attempt from a stage
// that does not permit it (as opposed to an already-cancelled order).
type NotCancellableError struct {
	OrderID int64
	Status  string
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order %d cannot be cancelled in %s stage", e.OrderID, e.Status)
}
