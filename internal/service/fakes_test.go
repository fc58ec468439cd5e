package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"salon-service/internal/gateway"
	"salon-service/internal/models"
	"salon-service/internal/session"

	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	products map[int64]*models.Product
	variants map[int64]*models.ProductVariant
	services map[int64]*models.SalonService
	users    map[int64]*models.User
	staff    []models.User
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]*models.Product{},
		variants: map[int64]*models.ProductVariant{},
		services: map[int64]*models.SalonService{},
		users:    map[int64]*models.User{},
	}
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d not found", id)
	}
	return p, nil
}

func (f *fakeCatalog) GetVariantByID(_ context.Context, id int64) (*models.ProductVariant, error) {
	v, ok := f.variants[id]
	if !ok {
		return nil, models.ErrVariantNotFound
	}
	return v, nil
}

func (f *fakeCatalog) GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error) {
	out := make([]models.ProductVariant, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetServiceByID(_ context.Context, id int64) (*models.SalonService, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, models.ErrServiceNotFound
	}
	return s, nil
}

func (f *fakeCatalog) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

func (f *fakeCatalog) GetActiveStaff(context.Context) ([]models.User, error) {
	return f.staff, nil
}

func (f *fakeCatalog) GetLowStockVariants(_ context.Context, threshold int) ([]models.ProductVariant, error) {
	var out []models.ProductVariant
	for _, v := range f.variants {
		if v.StockQuantity <= threshold {
			out = append(out, *v)
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	catalog *fakeCatalog
	orders  map[int64]*models.Order
	items   map[int64][]models.OrderItem
	nextID  int64
}

func newFakeOrderStore(catalog *fakeCatalog) *fakeOrderStore {
	return &fakeOrderStore{
		catalog: catalog,
		orders:  map[int64]*models.Order{},
		items:   map[int64][]models.OrderItem{},
		nextID:  1,
	}
}

func (f *fakeOrderStore) CreatePaidOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	for _, item := range items {
		v, ok := f.catalog.variants[item.VariantID]
		if !ok {
			return models.ErrVariantNotFound
		}
		if v.StockQuantity < item.Quantity {
			return &models.InsufficientStockError{
				VariantID: item.VariantID,
				Requested: item.Quantity,
				Available: v.StockQuantity,
			}
		}
	}
	for _, item := range items {
		f.catalog.variants[item.VariantID].StockQuantity -= item.Quantity
	}
	order.ID = f.nextID
	f.nextID++
	for i := range items {
		items[i].OrderID = order.ID
	}
	f.orders[order.ID] = order
	f.items[order.ID] = items
	return nil
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderStore) GetOrdersByUserID(_ context.Context, userID int64, status string, _, _ int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) GetOrders(_ context.Context, status, search string, _, _ int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if status != "" && o.Status != status {
			continue
		}
		if search != "" && !strings.Contains(o.FullName, search) && !strings.Contains(o.Phone, search) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderStore) GetVariantBasePrices(_ context.Context, orderID int64) (map[int64]decimal.Decimal, error) {
	prices := map[int64]decimal.Decimal{}
	for _, item := range f.items[orderID] {
		if v, ok := f.catalog.variants[item.VariantID]; ok {
			prices[item.VariantID] = v.Price
		}
	}
	return prices, nil
}

func (f *fakeOrderStore) SetOrderStatus(_ context.Context, orderID int64, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderStore) ConfirmOrder(_ context.Context, orderID int64, newStatus string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	for _, item := range f.items[orderID] {
		v := f.catalog.variants[item.VariantID]
		if v.StockQuantity < item.Quantity {
			return &models.InsufficientStockError{
				VariantID: item.VariantID,
				Requested: item.Quantity,
				Available: v.StockQuantity,
			}
		}
	}
	for _, item := range f.items[orderID] {
		f.catalog.variants[item.VariantID].StockQuantity -= item.Quantity
	}
	o.Status = newStatus
	return nil
}

func (f *fakeOrderStore) CancelOrder(_ context.Context, orderID int64, byCustomer bool) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if o.Status == models.OrderStatusCancelled {
		return false, nil
	}
	if !o.WasRestocked && o.Status != models.OrderStatusPending {
		for _, item := range f.items[orderID] {
			f.catalog.variants[item.VariantID].StockQuantity += item.Quantity
		}
		o.WasRestocked = true
	}
	o.Status = models.OrderStatusCancelled
	o.CancelledByCustomer = byCustomer
	return true, nil
}

type fakeBookingStore struct {
	bookings map[int64]*models.Booking
	catalog  *fakeCatalog
	nextID   int64
}

func newFakeBookingStore(catalog *fakeCatalog) *fakeBookingStore {
	return &fakeBookingStore{bookings: map[int64]*models.Booking{}, catalog: catalog, nextID: 1}
}

func (f *fakeBookingStore) CreateBooking(_ context.Context, b *models.Booking) error {
	for _, existing := range f.bookings {
		if existing.ServiceID == b.ServiceID &&
			existing.CustomerID == b.CustomerID &&
			existing.Date.Equal(b.Date) &&
			existing.TimeSlot == b.TimeSlot {
			return models.ErrSlotTaken
		}
	}
	b.ID = f.nextID
	f.nextID++
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingStore) GetBookingByID(_ context.Context, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	if b.Service == nil {
		b.Service = f.catalog.services[b.ServiceID]
	}
	return b, nil
}

func (f *fakeBookingStore) GetBookingByGatewayOrderID(_ context.Context, gatewayOrderID string) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.RazorpayOrderID == gatewayOrderID {
			return b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (f *fakeBookingStore) GetBookingsByCustomer(_ context.Context, customerID int64, _, _ int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) GetBookings(_ context.Context, status string, _, _ int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if status == "" || b.Status == status {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) GetBookedSlots(_ context.Context, serviceID int64, date time.Time) ([]string, error) {
	var slots []string
	for _, b := range f.bookings {
		if b.ServiceID == serviceID && b.Date.Equal(date) && b.Status != models.BookingStatusCancelledService {
			slots = append(slots, b.TimeSlot)
		}
	}
	return slots, nil
}

func (f *fakeBookingStore) SetBookingStatus(_ context.Context, bookingID int64, status string) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeBookingStore) SetBookingPayment(_ context.Context, bookingID int64, paid bool, paymentID, signature string) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.ErrBookingNotFound
	}
	b.IsPaid = paid
	b.RazorpayPaymentID = paymentID
	b.RazorpaySignature = signature
	return nil
}

func (f *fakeBookingStore) SetBookingGatewayOrder(_ context.Context, bookingID int64, gatewayOrderID string) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.ErrBookingNotFound
	}
	b.RazorpayOrderID = gatewayOrderID
	return nil
}

type fakeGateway struct {
	nextOrderID    string
	createErr      error
	validSignature string
	created        []decimal.Decimal
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, receipt string) (*gateway.GatewayOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	paise := gateway.ToPaise(amount)
	if paise < 100 {
		return nil, gateway.ErrAmountBelowMinimum
	}
	f.created = append(f.created, amount)
	return &gateway.GatewayOrder{
		ID:          f.nextOrderID,
		AmountPaise: paise,
		Currency:    "INR",
		Receipt:     receipt,
		Status:      "created",
	}, nil
}

func (f *fakeGateway) VerifySignature(_, _, signature string) error {
	if signature != f.validSignature {
		return gateway.ErrSignatureMismatch
	}
	return nil
}

// fakeSessions is an in-memory session.Store
type fakeSessions struct {
	mu      sync.Mutex
	carts   map[int64]*session.Cart
	buyNow  map[int64]*session.BuyNow
	pending map[int64]*session.PendingPayment
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		carts:   map[int64]*session.Cart{},
		buyNow:  map[int64]*session.BuyNow{},
		pending: map[int64]*session.PendingPayment{},
	}
}

func (f *fakeSessions) LoadCart(_ context.Context, userID int64) (*session.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.carts[userID]; ok {
		return c, nil
	}
	return session.NewCart(), nil
}

func (f *fakeSessions) SaveCart(_ context.Context, userID int64, cart *session.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = cart
	return nil
}

func (f *fakeSessions) ClearCart(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

func (f *fakeSessions) LoadBuyNow(_ context.Context, userID int64) (*session.BuyNow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buyNow[userID], nil
}

func (f *fakeSessions) SaveBuyNow(_ context.Context, userID int64, b *session.BuyNow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyNow[userID] = b
	return nil
}

func (f *fakeSessions) ClearBuyNow(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.buyNow, userID)
	return nil
}

func (f *fakeSessions) LoadPendingPayment(_ context.Context, userID int64) (*session.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[userID], nil
}

func (f *fakeSessions) SavePendingPayment(_ context.Context, userID int64, p *session.PendingPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[userID] = p
	return nil
}

func (f *fakeSessions) ClearPendingPayment(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, userID)
	return nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) record(name string) error {
	f.events = append(f.events, name)
	return nil
}

func (f *fakePublisher) PublishOrderPlaced(context.Context, int64, int64, decimal.Decimal, []models.OrderItemData) error {
	return f.record(models.EventTypeOrderPlaced)
}
func (f *fakePublisher) PublishOrderConfirmed(context.Context, int64, int64) error {
	return f.record(models.EventTypeOrderConfirmed)
}
func (f *fakePublisher) PublishOrderCancelled(context.Context, int64, int64, bool, string) error {
	return f.record(models.EventTypeOrderCancelled)
}
func (f *fakePublisher) PublishBookingPlaced(context.Context, int64, int64, int64, decimal.Decimal) error {
	return f.record(models.EventTypeBookingPlaced)
}
func (f *fakePublisher) PublishBookingConfirmed(context.Context, int64, int64) error {
	return f.record(models.EventTypeBookingConfirmed)
}
func (f *fakePublisher) PublishBookingCancelled(context.Context, int64, int64) error {
	return f.record(models.EventTypeBookingCancelled)
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendOrderPlaced(string, *models.Order, []models.OrderItem) error {
	f.sent = append(f.sent, "order_placed")
	return nil
}
func (f *fakeMailer) SendOrderConfirmed(string, *models.Order) error {
	f.sent = append(f.sent, "order_confirmed")
	return nil
}
func (f *fakeMailer) SendBookingPlaced(string, *models.Booking) error {
	f.sent = append(f.sent, "booking_placed")
	return nil
}
func (f *fakeMailer) SendBookingConfirmed(string, *models.Booking) error {
	f.sent = append(f.sent, "booking_confirmed")
	return nil
}
