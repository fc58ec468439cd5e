package service

import (
	"context"
	"math/rand"
	"time"

	"salon-service/internal/gateway"
	"salon-service/internal/models"

	"github.com/shopspring/decimal"
)

// CatalogStore is the read side of the catalog the services need
type CatalogStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error)
	GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error)
	GetServiceByID(ctx context.Context, id int64) (*models.SalonService, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetActiveStaff(ctx context.Context) ([]models.User, error)
	GetLowStockVariants(ctx context.Context, threshold int) ([]models.ProductVariant, error)
}

// OrderStore covers order persistence including the transactional
// stock-mutation paths
type OrderStore interface {
	CreatePaidOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID int64, status string, limit, offset int) ([]models.Order, error)
	GetOrders(ctx context.Context, status, search string, limit, offset int) ([]models.Order, error)
	GetVariantBasePrices(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error)
	SetOrderStatus(ctx context.Context, orderID int64, status string) error
	ConfirmOrder(ctx context.Context, orderID int64, newStatus string) error
	CancelOrder(ctx context.Context, orderID int64, byCustomer bool) (bool, error)
}

// BookingStore covers booking persistence
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Booking, error)
	GetBookingsByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]models.Booking, error)
	GetBookings(ctx context.Context, status string, limit, offset int) ([]models.Booking, error)
	GetBookedSlots(ctx context.Context, serviceID int64, date time.Time) ([]string, error)
	SetBookingStatus(ctx context.Context, bookingID int64, status string) error
	SetBookingPayment(ctx context.Context, bookingID int64, paid bool, paymentID, signature string) error
	SetBookingGatewayOrder(ctx context.Context, bookingID int64, gatewayOrderID string) error
}

// PaymentGateway abstracts the payment provider
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*gateway.GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) error
}

// Publisher emits lifecycle events, best effort
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, orderID, userID int64, total decimal.Decimal, items []models.OrderItemData) error
	PublishOrderConfirmed(ctx context.Context, orderID, userID int64) error
	PublishOrderCancelled(ctx context.Context, orderID, userID int64, byCustomer bool, reason string) error
	PublishBookingPlaced(ctx context.Context, bookingID, customerID, serviceID int64, finalPrice decimal.Decimal) error
	PublishBookingConfirmed(ctx context.Context, bookingID, customerID int64) error
	PublishBookingCancelled(ctx context.Context, bookingID, customerID int64) error
}

// Mailer sends customer notifications, best effort after commit
type Mailer interface {
	SendOrderPlaced(to string, order *models.Order, items []models.OrderItem) error
	SendOrderConfirmed(to string, order *models.Order) error
	SendBookingPlaced(to string, booking *models.Booking) error
	SendBookingConfirmed(to string, booking *models.Booking) error
}

// StaffPicker chooses which staff member to assign to a new booking.
// Returns nil when no one can be assigned.
type StaffPicker func(staff []models.User) *int64

// RandomStaffPicker picks uniformly among active staff
func RandomStaffPicker(staff []models.User) *int64 {
	if len(staff) == 0 {
		return nil
	}
	id := staff[rand.Intn(len(staff))].ID
	return &id
}
