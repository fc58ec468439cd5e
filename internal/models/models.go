package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a retail product in the catalog
type Product struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Slug               string          `db:"slug" json:"slug"`
	Description        string          `db:"description" json:"description,omitempty"`
	IsAvailable        bool            `db:"is_available" json:"is_available"`
	DiscountPercent    decimal.Decimal `db:"discount_percent" json:"discount_percent"`
	LTODiscountPercent decimal.Decimal `db:"lto_discount_percent" json:"lto_discount_percent"`
	LTOStartDate       *time.Time      `db:"lto_start_date" json:"lto_start_date,omitempty"`
	LTOEndDate         *time.Time      `db:"lto_end_date" json:"lto_end_date,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductVariant represents a purchasable variant of a product.
// Uniquely keyed by (product_id, size, color). Price is the base,
// undiscounted price; discounts come from the parent product.
type ProductVariant struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	Size          string          `db:"size" json:"size"`
	Color         string          `db:"color" json:"color"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
}

// SalonService represents a bookable salon service
type SalonService struct {
	ID               int64           `db:"id" json:"id"`
	Title            string          `db:"title" json:"title"`
	Slug             string          `db:"slug" json:"slug"`
	ShortDescription string          `db:"short_description" json:"short_description,omitempty"`
	DurationMinutes  int             `db:"duration_minutes" json:"duration_minutes"`
	Price            decimal.Decimal `db:"price" json:"price"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// User represents a customer or staff account
type User struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"email"`
	FullName    string    `db:"full_name" json:"full_name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number,omitempty"`
	Role        string    `db:"role" json:"role"`
	IsStaff     bool      `db:"is_staff" json:"is_staff"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Order represents a customer order with a shipping snapshot taken at
// payment time. Gateway identifiers are stored once the payment callback
// has been verified, never before.
type Order struct {
	ID                  int64     `db:"id" json:"id"`
	UserID              int64     `db:"user_id" json:"user_id"`
	FullName            string    `db:"full_name" json:"full_name"`
	Phone               string    `db:"phone" json:"phone"`
	AddressLine1        string    `db:"address_line1" json:"address_line1"`
	AddressLine2        string    `db:"address_line2" json:"address_line2,omitempty"`
	City                string    `db:"city" json:"city"`
	PostalCode          string    `db:"postal_code" json:"postal_code"`
	State               string    `db:"state" json:"state"`
	Status              string    `db:"status" json:"status"`
	RazorpayOrderID     string    `db:"razorpay_order_id" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID   string    `db:"razorpay_payment_id" json:"razorpay_payment_id,omitempty"`
	RazorpaySignature   string    `db:"razorpay_signature" json:"-"`
	WasRestocked        bool      `db:"was_restocked" json:"was_restocked"`
	CancelledByCustomer bool      `db:"cancelled_by_customer" json:"cancelled_by_customer"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one line of an order. PriceAtOrder is frozen at
// order creation and is never recomputed from the live variant price.
type OrderItem struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	VariantID    int64           `db:"variant_id" json:"variant_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	PriceAtOrder decimal.Decimal `db:"price_at_order" json:"price_at_order"`
}

// LineTotal returns quantity x frozen unit price.
func (oi *OrderItem) LineTotal() decimal.Decimal {
	return oi.PriceAtOrder.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// OrderTotalPrice sums the frozen line totals of an order.
func OrderTotalPrice(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total
}

// OrderTotalDiscount returns the hypothetical full-price total minus the
// frozen total, floored at zero. fullPrices maps variant id to the live
// base price.
func OrderTotalDiscount(items []OrderItem, fullPrices map[int64]decimal.Decimal) decimal.Decimal {
	full := decimal.Zero
	for i := range items {
		base, ok := fullPrices[items[i].VariantID]
		if !ok {
			continue
		}
		full = full.Add(base.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	discount := full.Sub(OrderTotalPrice(items))
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// Order statuses
const (
	OrderStatusOrdered    = "ORDERED"
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// OrderStatuses lists every valid order status.
var OrderStatuses = []string{
	OrderStatusOrdered,
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// OrderStatusTerminal reports whether an order in status s permits no
// further transitions.
func OrderStatusTerminal(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanCustomerCancel returns nil if the customer may cancel the order, or a
// typed error carrying the specific refusal reason otherwise.
func (o *Order) CanCustomerCancel() error {
	switch o.Status {
	case OrderStatusPending, OrderStatusProcessing:
		return nil
	case OrderStatusCancelled:
		return ErrAlreadyCancelled
	default:
		return &NotCancellableError{OrderID: o.ID, Status: o.Status}
	}
}

// Booking statuses
const (
	BookingStatusConfirmationPending = "CONFIRMATION_PENDING"
	BookingStatusConfirmedService    = "CONFIRMED_SERVICE"
	BookingStatusCompletedService    = "COMPLETED_SERVICE"
	BookingStatusCancelledService    = "CANCELLED_SERVICE"
)

// BookingStatuses lists every valid booking status.
var BookingStatuses = []string{
	BookingStatusConfirmationPending,
	BookingStatusConfirmedService,
	BookingStatusCompletedService,
	BookingStatusCancelledService,
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// BookingStatusTerminal reports whether a booking in status s permits no
// further transitions.
func BookingStatusTerminal(s string) bool {
	return s == BookingStatusCompletedService || s == BookingStatusCancelledService
}

// TimeSlots are the bookable slots of a salon day, on the hour.
var TimeSlots = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00",
	"18:00", "19:00", "20:00",
}

// ValidTimeSlot reports whether slot is a bookable time slot.
func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// MaxBookingCustomers caps the group size of a single booking.
const MaxBookingCustomers = 5

// DefaultHomeVisitFee is the fee snapshotted onto home-service bookings
// at creation time when no override is configured.
var DefaultHomeVisitFee = decimal.NewFromInt(250)

// Booking represents a salon service appointment. Its price is computed,
// never stored; FinalPrice is the single source of truth.
type Booking struct {
	ID                  int64           `db:"id" json:"id"`
	CustomerID          int64           `db:"customer_id" json:"customer_id"`
	ServiceID           int64           `db:"service_id" json:"service_id"`
	Date                time.Time       `db:"date" json:"date"`
	TimeSlot            string          `db:"time_slot" json:"time_slot"`
	StaffID             *int64          `db:"staff_id" json:"staff_id,omitempty"`
	Status              string          `db:"status" json:"status"`
	Notes               string          `db:"notes" json:"notes,omitempty"`
	NumberOfCustomers   int             `db:"number_of_customers" json:"number_of_customers"`
	IsHomeService       bool            `db:"is_home_service" json:"is_home_service"`
	HomeDeliveryAddress string          `db:"home_delivery_address" json:"home_delivery_address,omitempty"`
	HomeVisitFee        decimal.Decimal `db:"home_visit_fee" json:"home_visit_fee"`
	IsPaid              bool            `db:"is_paid" json:"is_paid"`
	RazorpayOrderID     string          `db:"razorpay_order_id" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID   string          `db:"razorpay_payment_id" json:"razorpay_payment_id,omitempty"`
	RazorpaySignature   string          `db:"razorpay_signature" json:"-"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`

	// Service is populated by store reads; pricing needs its base price.
	Service *SalonService `db:"-" json:"service,omitempty"`
}

// Validate enforces booking invariants at the model layer so that callers
// bypassing request validation are still rejected.
func (b *Booking) Validate() error {
	if b.NumberOfCustomers < 1 {
		return &ValidationError{Field: "number_of_customers", Reason: "must be at least 1"}
	}
	if b.NumberOfCustomers > MaxBookingCustomers {
		return &ValidationError{Field: "number_of_customers", Reason: "maximum 5 customers allowed per booking"}
	}
	if !ValidTimeSlot(b.TimeSlot) {
		return &ValidationError{Field: "time_slot", Reason: "unknown time slot"}
	}
	return nil
}
