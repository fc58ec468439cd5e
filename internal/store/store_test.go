package store

import (
	"context"
	"os"
	"testing"
	"time"

	"salon-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVariant(t *testing.T, s *Store, stock int) *models.ProductVariant {
	ctx := context.Background()
	var productID int64
	err := s.db.GetContext(ctx, &productID, `
		INSERT INTO products (name, slug, description, discount_percent, lto_discount_percent, is_available)
		VALUES ('Test Polish', 'test-polish', '', 0, 0, true)
		RETURNING id`)
	require.NoError(t, err)

	var variantID int64
	err = s.db.GetContext(ctx, &variantID, `
		INSERT INTO product_variants (product_id, size, color, price, stock_quantity)
		VALUES ($1, '15ml', 'Red', 499.00, $2)
		RETURNING id`, productID, stock)
	require.NoError(t, err)

	v, err := s.GetVariantByID(ctx, variantID)
	require.NoError(t, err)
	return v
}

func TestCreatePaidOrderDeductsStock(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	v := seedVariant(t, s, 10)

	order := &models.Order{
		UserID:   1,
		FullName: "Test Buyer",
		Status:   models.OrderStatusOrdered,
	}
	items := []models.OrderItem{
		{VariantID: v.ID, Quantity: 3, PriceAtOrder: decimal.NewFromInt(499)},
	}
	require.NoError(t, s.CreatePaidOrder(ctx, order, items))
	assert.NotZero(t, order.ID)

	after, err := s.GetVariantByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, after.StockQuantity)
}

func TestCreatePaidOrderInsufficientStockRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	v := seedVariant(t, s, 2)

	order := &models.Order{
		UserID:   1,
		FullName: "Test Buyer",
		Status:   models.OrderStatusOrdered,
	}
	items := []models.OrderItem{
		{VariantID: v.ID, Quantity: 5, PriceAtOrder: decimal.NewFromInt(499)},
	}
	err := s.CreatePaidOrder(ctx, order, items)

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, v.ID, stockErr.VariantID)

	after, err := s.GetVariantByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.StockQuantity, "failed deduction must leave stock untouched")
}

func TestCancelOrderRestocksOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	v := seedVariant(t, s, 10)

	order := &models.Order{
		UserID:   1,
		FullName: "Test Buyer",
		Status:   models.OrderStatusOrdered,
	}
	items := []models.OrderItem{
		{VariantID: v.ID, Quantity: 4, PriceAtOrder: decimal.NewFromInt(499)},
	}
	require.NoError(t, s.CreatePaidOrder(ctx, order, items))

	cancelled, err := s.CancelOrder(ctx, order.ID, true)
	require.NoError(t, err)
	assert.True(t, cancelled)

	after, err := s.GetVariantByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.StockQuantity)

	// repeat cancels are absorbed without touching stock again
	cancelled, err = s.CancelOrder(ctx, order.ID, true)
	require.NoError(t, err)
	assert.False(t, cancelled)

	after, err = s.GetVariantByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.StockQuantity)
}

func TestSlotUniqueness(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var serviceID int64
	err := s.db.GetContext(ctx, &serviceID, `
		INSERT INTO services (title, slug, price, duration_minutes, is_active)
		VALUES ('Gel Manicure', 'gel-manicure', 1000.00, 60, true)
		RETURNING id`)
	require.NoError(t, err)

	b := &models.Booking{
		ServiceID:         serviceID,
		CustomerID:        1,
		Date:              time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		TimeSlot:          "10:00",
		NumberOfCustomers: 1,
		HomeVisitFee:      decimal.Zero,
		Status:            models.BookingStatusConfirmationPending,
	}
	require.NoError(t, s.CreateBooking(ctx, b))
	assert.NotZero(t, b.ID)

	dup := &models.Booking{
		ServiceID:         serviceID,
		CustomerID:        1,
		Date:              time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		TimeSlot:          "10:00",
		NumberOfCustomers: 1,
		HomeVisitFee:      decimal.Zero,
		Status:            models.BookingStatusConfirmationPending,
	}
	err = s.CreateBooking(ctx, dup)
	assert.ErrorIs(t, err, models.ErrSlotTaken)
}

func TestGetBookingByGatewayOrderID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var serviceID int64
	err := s.db.GetContext(ctx, &serviceID, `
		INSERT INTO services (title, slug, price, duration_minutes, is_active)
		VALUES ('Pedicure', 'pedicure', 800.00, 45, true)
		RETURNING id`)
	require.NoError(t, err)

	b := &models.Booking{
		ServiceID:         serviceID,
		CustomerID:        2,
		Date:              time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		TimeSlot:          "11:00",
		NumberOfCustomers: 1,
		HomeVisitFee:      decimal.Zero,
		Status:            models.BookingStatusConfirmationPending,
	}
	require.NoError(t, s.CreateBooking(ctx, b))
	require.NoError(t, s.SetBookingGatewayOrder(ctx, b.ID, "order_ABC123"))

	found, err := s.GetBookingByGatewayOrderID(ctx, "order_ABC123")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	_, err = s.GetBookingByGatewayOrderID(ctx, "order_missing")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}

func TestSetVariantStockRefreshesAvailability(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	v := seedVariant(t, s, 5)

	require.NoError(t, s.SetVariantStock(ctx, v.ID, 0))
	p, err := s.GetProductByID(ctx, v.ProductID)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)

	require.NoError(t, s.SetVariantStock(ctx, v.ID, 3))
	p, err = s.GetProductByID(ctx, v.ProductID)
	require.NoError(t, err)
	assert.True(t, p.IsAvailable)
}

func TestDeductOrderStockStandalone(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	v := seedVariant(t, s, 6)

	var orderID int64
	err := s.db.GetContext(ctx, &orderID, `
		INSERT INTO orders (user_id, full_name, status)
		VALUES (1, 'Test Buyer', $1)
		RETURNING id`, models.OrderStatusPending)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO order_items (order_id, variant_id, quantity, price_at_order)
		VALUES ($1, $2, 4, 499.00)`, orderID, v.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeductOrderStock(ctx, orderID))

	after, err := s.GetVariantByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.StockQuantity)
}
