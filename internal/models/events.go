package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced      = "ORDER_PLACED"
	EventTypeOrderConfirmed   = "ORDER_CONFIRMED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
	EventTypeBookingPlaced    = "BOOKING_PLACED"
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypeBookingCancelled = "BOOKING_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	VariantID    int64           `json:"variant_id"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
}

// OrderPlacedEvent published when a paid order is materialized
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderConfirmedEvent published when an admin confirms an order
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

// OrderCancelledEvent published when an order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	UserID     int64  `json:"user_id"`
	ByCustomer bool   `json:"by_customer"`
	Reason     string `json:"reason,omitempty"`
}

// BookingPlacedEvent published when a booking payment is verified
type BookingPlacedEvent struct {
	BaseEvent
	BookingID  int64           `json:"booking_id"`
	CustomerID int64           `json:"customer_id"`
	ServiceID  int64           `json:"service_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// BookingConfirmedEvent published when an admin confirms a booking
type BookingConfirmedEvent struct {
	BaseEvent
	BookingID  int64 `json:"booking_id"`
	CustomerID int64 `json:"customer_id"`
}

// BookingCancelledEvent published when a booking is cancelled
type BookingCancelledEvent struct {
	BaseEvent
	BookingID  int64 `json:"booking_id"`
	CustomerID int64 `json:"customer_id"`
}
