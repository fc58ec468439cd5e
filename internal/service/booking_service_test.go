package service

import (
	"context"
	"testing"
	"time"

	"salon-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingFixture(pick StaffPicker) (*BookingService, *fakeCatalog, *fakeBookingStore, *fakeGateway, *fakePublisher, *fakeMailer) {
	catalog := newFakeCatalog()
	catalog.users[1] = &models.User{ID: 1, Email: "client@example.com"}
	catalog.services[5] = &models.SalonService{
		ID: 5, Title: "Gel Manicure", Price: decimal.RequireFromString("1000.00"), IsActive: true,
	}
	catalog.staff = []models.User{
		{ID: 21, IsStaff: true, IsActive: true},
		{ID: 22, IsStaff: true, IsActive: true},
	}

	bookings := newFakeBookingStore(catalog)
	gw := &fakeGateway{nextOrderID: "order_BK1", validSignature: "good-sig"}
	pub := &fakePublisher{}
	mail := &fakeMailer{}

	if pick == nil {
		pick = RandomStaffPicker
	}
	svc := NewBookingService(bookings, catalog, gw, pub, mail, pick, models.DefaultHomeVisitFee)
	return svc, catalog, bookings, gw, pub, mail
}

func bookingReq() *CreateBookingRequest {
	return &CreateBookingRequest{
		ServiceID:         5,
		Date:              "2026-09-15",
		TimeSlot:          "10:00",
		NumberOfCustomers: 1,
	}
}

func TestCreateBookingAssignsStaffAndOpensPayment(t *testing.T) {
	var sawStaff []models.User
	pick := func(staff []models.User) *int64 {
		sawStaff = staff
		id := staff[0].ID
		return &id
	}
	svc, _, bookings, _, _, _ := bookingFixture(pick)

	booking, intent, err := svc.CreateBooking(context.Background(), 1, bookingReq())
	require.NoError(t, err)

	assert.Len(t, sawStaff, 2)
	require.NotNil(t, booking.StaffID)
	assert.Equal(t, int64(21), *booking.StaffID)
	assert.Equal(t, models.BookingStatusConfirmationPending, booking.Status)
	assert.False(t, booking.IsPaid)

	require.NotNil(t, intent)
	assert.Equal(t, "order_BK1", intent.GatewayOrderID)
	// 1000 x 0.95 for one head
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("950.00")))
	assert.Equal(t, "order_BK1", bookings.bookings[booking.ID].RazorpayOrderID)
}

func TestCreateBookingNoStaffAvailable(t *testing.T) {
	svc, catalog, _, _, _, _ := bookingFixture(nil)
	catalog.staff = nil

	booking, _, err := svc.CreateBooking(context.Background(), 1, bookingReq())
	require.NoError(t, err)
	assert.Nil(t, booking.StaffID)
}

func TestCreateBookingDuplicateSlot(t *testing.T) {
	svc, _, _, _, _, _ := bookingFixture(nil)
	ctx := context.Background()

	_, _, err := svc.CreateBooking(ctx, 1, bookingReq())
	require.NoError(t, err)

	_, _, err = svc.CreateBooking(ctx, 1, bookingReq())
	assert.ErrorIs(t, err, models.ErrSlotTaken)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _, _, _ := bookingFixture(nil)
	ctx := context.Background()
	var verr *models.ValidationError

	req := bookingReq()
	req.NumberOfCustomers = 6
	_, _, err := svc.CreateBooking(ctx, 1, req)
	assert.ErrorAs(t, err, &verr)

	req = bookingReq()
	req.TimeSlot = "03:30"
	_, _, err = svc.CreateBooking(ctx, 1, req)
	assert.ErrorAs(t, err, &verr)

	req = bookingReq()
	req.Date = "Sept 15"
	_, _, err = svc.CreateBooking(ctx, 1, req)
	assert.ErrorAs(t, err, &verr)

	req = bookingReq()
	req.IsHomeService = true
	_, _, err = svc.CreateBooking(ctx, 1, req)
	assert.ErrorAs(t, err, &verr)

	req = bookingReq()
	req.ServiceID = 404
	_, _, err = svc.CreateBooking(ctx, 1, req)
	assert.ErrorIs(t, err, models.ErrServiceNotFound)
}

func TestCreateBookingHomeServiceSnapshotsFee(t *testing.T) {
	svc, _, _, _, _, _ := bookingFixture(nil)

	req := bookingReq()
	req.IsHomeService = true
	req.HomeDeliveryAddress = "12 Main St"
	booking, intent, err := svc.CreateBooking(context.Background(), 1, req)
	require.NoError(t, err)

	assert.True(t, booking.HomeVisitFee.Equal(models.DefaultHomeVisitFee))
	// 950.00 + 250 home visit fee
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("1200.00")))
}

func TestEstimatePrice(t *testing.T) {
	svc, _, _, _, _, _ := bookingFixture(nil)
	ctx := context.Background()

	breakdown, err := svc.EstimatePrice(ctx, 5, 3, false)
	require.NoError(t, err)
	// 950 x 3 minus 5% x 3 group discount
	assert.True(t, breakdown.TotalPrice.Equal(decimal.RequireFromString("2707.50")))

	var verr *models.ValidationError
	_, err = svc.EstimatePrice(ctx, 5, 0, false)
	assert.ErrorAs(t, err, &verr)
	_, err = svc.EstimatePrice(ctx, 5, 6, false)
	assert.ErrorAs(t, err, &verr)
}

func TestAvailableSlots(t *testing.T) {
	svc, _, _, _, _, _ := bookingFixture(nil)
	ctx := context.Background()

	_, _, err := svc.CreateBooking(ctx, 1, bookingReq())
	require.NoError(t, err)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	free, err := svc.AvailableSlots(ctx, 5, date)
	require.NoError(t, err)
	assert.Len(t, free, len(models.TimeSlots)-1)
	assert.NotContains(t, free, "10:00")
}

func TestBookingUpdateStatus(t *testing.T) {
	svc, _, bookings, _, pub, mail := bookingFixture(nil)
	ctx := context.Background()

	booking, _, err := svc.CreateBooking(ctx, 1, bookingReq())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, booking.ID, models.BookingStatusConfirmedService))
	assert.Equal(t, models.BookingStatusConfirmedService, bookings.bookings[booking.ID].Status)
	assert.Contains(t, pub.events, models.EventTypeBookingConfirmed)
	assert.Contains(t, mail.sent, "booking_confirmed")

	require.NoError(t, svc.UpdateStatus(ctx, booking.ID, models.BookingStatusCompletedService))

	// completed is terminal
	var terminal *models.TerminalStatusError
	err = svc.UpdateStatus(ctx, booking.ID, models.BookingStatusConfirmedService)
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, "booking", terminal.Entity)
}

func TestBookingCancelByCustomer(t *testing.T) {
	svc, _, bookings, _, pub, _ := bookingFixture(nil)
	ctx := context.Background()

	booking, _, err := svc.CreateBooking(ctx, 1, bookingReq())
	require.NoError(t, err)

	// someone else cannot touch it
	assert.ErrorIs(t, svc.CancelByCustomer(ctx, 2, booking.ID), models.ErrBookingNotFound)

	require.NoError(t, svc.CancelByCustomer(ctx, 1, booking.ID))
	assert.Equal(t, models.BookingStatusCancelledService, bookings.bookings[booking.ID].Status)
	assert.Contains(t, pub.events, models.EventTypeBookingCancelled)

	// repeat cancel is a no-op
	require.NoError(t, svc.CancelByCustomer(ctx, 1, booking.ID))

	completed, _, err := svc.CreateBooking(ctx, 1, &CreateBookingRequest{
		ServiceID: 5, Date: "2026-09-16", TimeSlot: "11:00", NumberOfCustomers: 1,
	})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, completed.ID, models.BookingStatusCompletedService))

	var terminal *models.TerminalStatusError
	assert.ErrorAs(t, svc.CancelByCustomer(ctx, 1, completed.ID), &terminal)
}

func TestRetryBookingPayment(t *testing.T) {
	svc, _, bookings, gw, _, _ := bookingFixture(nil)
	ctx := context.Background()

	booking, _, err := svc.CreateBooking(ctx, 1, bookingReq())
	require.NoError(t, err)

	gw.nextOrderID = "order_BK2"
	intent, err := svc.RetryBookingPayment(ctx, 1, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_BK2", intent.GatewayOrderID)
	assert.Equal(t, "order_BK2", bookings.bookings[booking.ID].RazorpayOrderID)

	// paid bookings cannot re-enter checkout
	bookings.bookings[booking.ID].IsPaid = true
	var verr *models.ValidationError
	_, err = svc.RetryBookingPayment(ctx, 1, booking.ID)
	assert.ErrorAs(t, err, &verr)

	_, err = svc.RetryBookingPayment(ctx, 2, booking.ID)
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}
