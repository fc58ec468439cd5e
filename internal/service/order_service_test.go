package service

import (
	"context"
	"testing"

	"salon-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFixture() (*OrderService, *fakeCatalog, *fakeOrderStore, *fakePublisher, *fakeMailer) {
	catalog := newFakeCatalog()
	catalog.users[1] = &models.User{ID: 1, Email: "buyer@example.com"}
	catalog.variants[100] = &models.ProductVariant{
		ID: 100, ProductID: 10,
		Price: decimal.RequireFromString("499.00"), StockQuantity: 5,
	}
	orders := newFakeOrderStore(catalog)
	pub := &fakePublisher{}
	mail := &fakeMailer{}
	return NewOrderService(orders, catalog, pub, mail), catalog, orders, pub, mail
}

func seedOrder(orders *fakeOrderStore, userID int64, status string, qty int) *models.Order {
	order := &models.Order{UserID: userID, Status: models.OrderStatusOrdered}
	items := []models.OrderItem{
		{VariantID: 100, Quantity: qty, PriceAtOrder: decimal.RequireFromString("449.10")},
	}
	_ = orders.CreatePaidOrder(context.Background(), order, items)
	order.Status = status
	return order
}

func TestCancelByCustomerRestocks(t *testing.T) {
	svc, catalog, orders, pub, _ := orderFixture()
	ctx := context.Background()
	order := seedOrder(orders, 1, models.OrderStatusProcessing, 2)
	require.Equal(t, 3, catalog.variants[100].StockQuantity)

	require.NoError(t, svc.CancelByCustomer(ctx, 1, order.ID))
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.True(t, order.CancelledByCustomer)
	assert.Equal(t, 5, catalog.variants[100].StockQuantity)
	assert.Contains(t, pub.events, models.EventTypeOrderCancelled)

	// cancelling again is a no-op and never restocks twice
	require.NoError(t, svc.CancelByCustomer(ctx, 1, order.ID))
	assert.Equal(t, 5, catalog.variants[100].StockQuantity)
}

func TestCancelByCustomerRefusals(t *testing.T) {
	svc, _, orders, _, _ := orderFixture()
	ctx := context.Background()

	// someone else's order reads as not found
	other := seedOrder(orders, 2, models.OrderStatusProcessing, 1)
	assert.ErrorIs(t, svc.CancelByCustomer(ctx, 1, other.ID), models.ErrOrderNotFound)

	// shipped orders are past the self-cancel window
	shipped := seedOrder(orders, 1, models.OrderStatusShipped, 1)
	var notCancellable *models.NotCancellableError
	assert.ErrorAs(t, svc.CancelByCustomer(ctx, 1, shipped.ID), &notCancellable)
	assert.Equal(t, models.OrderStatusShipped, notCancellable.Status)

	assert.ErrorIs(t, svc.CancelByCustomer(ctx, 1, 9999), models.ErrOrderNotFound)
}

func TestUpdateStatusRejectsTerminal(t *testing.T) {
	svc, _, orders, _, _ := orderFixture()
	ctx := context.Background()

	delivered := seedOrder(orders, 1, models.OrderStatusDelivered, 1)
	var terminal *models.TerminalStatusError
	err := svc.UpdateStatus(ctx, delivered.ID, models.OrderStatusProcessing)
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, models.OrderStatusDelivered, terminal.Status)

	cancelled := seedOrder(orders, 1, models.OrderStatusCancelled, 1)
	err = svc.UpdateStatus(ctx, cancelled.ID, models.OrderStatusShipped)
	assert.ErrorAs(t, err, &terminal)

	// re-cancelling a cancelled order stays a silent no-op
	assert.NoError(t, svc.UpdateStatus(ctx, cancelled.ID, models.OrderStatusCancelled))
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	svc, _, orders, _, _ := orderFixture()
	order := seedOrder(orders, 1, models.OrderStatusOrdered, 1)

	var verr *models.ValidationError
	assert.ErrorAs(t, svc.UpdateStatus(context.Background(), order.ID, "TELEPORTED"), &verr)
}

func TestUpdateStatusRejectsCreationStatuses(t *testing.T) {
	svc, catalog, orders, _, _ := orderFixture()
	ctx := context.Background()

	// a paid ORDERED order already holds its stock deduction
	order := seedOrder(orders, 1, models.OrderStatusOrdered, 2)
	require.Equal(t, 3, catalog.variants[100].StockQuantity)

	var verr *models.ValidationError
	assert.ErrorAs(t, svc.UpdateStatus(ctx, order.ID, models.OrderStatusPending), &verr)
	assert.ErrorAs(t, svc.UpdateStatus(ctx, order.ID, models.OrderStatusOrdered), &verr)
	assert.Equal(t, models.OrderStatusOrdered, order.Status)

	// confirming afterwards is a plain status change, not a second deduction
	require.NoError(t, svc.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing))
	assert.Equal(t, 3, catalog.variants[100].StockQuantity)

	// and cancelling still returns the stock exactly once
	require.NoError(t, svc.CancelByCustomer(ctx, 1, order.ID))
	assert.Equal(t, 5, catalog.variants[100].StockQuantity)
}

func TestUpdateStatusConfirmPendingDeducts(t *testing.T) {
	svc, catalog, orders, pub, mail := orderFixture()
	ctx := context.Background()

	// a PENDING order has not taken its stock yet
	pending := seedOrder(orders, 1, models.OrderStatusPending, 2)
	catalog.variants[100].StockQuantity = 5

	require.NoError(t, svc.UpdateStatus(ctx, pending.ID, models.OrderStatusProcessing))
	assert.Equal(t, models.OrderStatusProcessing, pending.Status)
	assert.Equal(t, 3, catalog.variants[100].StockQuantity)
	assert.Contains(t, pub.events, models.EventTypeOrderConfirmed)
	assert.Contains(t, mail.sent, "order_confirmed")
}

func TestUpdateStatusConfirmPendingBlockedByStock(t *testing.T) {
	svc, catalog, orders, _, _ := orderFixture()
	ctx := context.Background()

	pending := seedOrder(orders, 1, models.OrderStatusPending, 2)
	catalog.variants[100].StockQuantity = 1

	var stockErr *models.InsufficientStockError
	err := svc.UpdateStatus(ctx, pending.ID, models.OrderStatusProcessing)
	require.ErrorAs(t, err, &stockErr)

	// nothing moved
	assert.Equal(t, models.OrderStatusPending, pending.Status)
	assert.Equal(t, 1, catalog.variants[100].StockQuantity)
}

func TestCancelPendingOrderDoesNotRestock(t *testing.T) {
	svc, catalog, orders, _, _ := orderFixture()
	ctx := context.Background()

	pending := seedOrder(orders, 1, models.OrderStatusPending, 2)
	catalog.variants[100].StockQuantity = 5

	require.NoError(t, svc.CancelByCustomer(ctx, 1, pending.ID))
	assert.Equal(t, models.OrderStatusCancelled, pending.Status)
	// stock was never taken, so cancelling must not inflate it
	assert.Equal(t, 5, catalog.variants[100].StockQuantity)
}

func TestGetOrderForUserScopesOwnership(t *testing.T) {
	svc, _, orders, _, _ := orderFixture()
	ctx := context.Background()
	order := seedOrder(orders, 1, models.OrderStatusOrdered, 2)

	detail, err := svc.GetOrderForUser(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.True(t, detail.TotalPrice.Equal(decimal.RequireFromString("898.20")))
	// (499.00 - 449.10) x 2
	assert.True(t, detail.TotalDiscount.Equal(decimal.RequireFromString("99.80")))

	_, err = svc.GetOrderForUser(ctx, 2, order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := orderFixture()
	var verr *models.ValidationError

	_, err := svc.ListOrders(context.Background(), "NOT_A_STATUS", "", 10, 0)
	assert.ErrorAs(t, err, &verr)

	_, err = svc.ListUserOrders(context.Background(), 1, "NOT_A_STATUS", 10, 0)
	assert.ErrorAs(t, err, &verr)
}

func TestListOrdersSearchFiltersByName(t *testing.T) {
	svc, _, orders, _, _ := orderFixture()
	ctx := context.Background()

	orders.orders[1] = &models.Order{ID: 1, UserID: 1, FullName: "Priya Sharma", Phone: "9800011122", Status: models.OrderStatusOrdered}
	orders.orders[2] = &models.Order{ID: 2, UserID: 2, FullName: "Anita Rao", Phone: "9733344455", Status: models.OrderStatusOrdered}

	found, err := svc.ListOrders(ctx, "", "Priya", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(1), found[0].ID)

	found, err = svc.ListOrders(ctx, "", "9733", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ID)
}
