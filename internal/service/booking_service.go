package service

import (
	"context"
	"fmt"
	"time"

	"salon-service/internal/models"
	"salon-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookingService handles salon appointment booking: slot allocation,
// staff assignment, price quoting and the booking payment flow
type BookingService struct {
	bookings     BookingStore
	catalog      CatalogStore
	gateway      PaymentGateway
	publisher    Publisher
	mailer       Mailer
	pickStaff    StaffPicker
	homeVisitFee decimal.Decimal
	logger       *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings BookingStore,
	catalog CatalogStore,
	gw PaymentGateway,
	publisher Publisher,
	mailer Mailer,
	pickStaff StaffPicker,
	homeVisitFee decimal.Decimal,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		catalog:      catalog,
		gateway:      gw,
		publisher:    publisher,
		mailer:       mailer,
		pickStaff:    pickStaff,
		homeVisitFee: homeVisitFee,
		logger:       util.GetLogger(),
	}
}

// CreateBookingRequest carries a customer's appointment request
type CreateBookingRequest struct {
	ServiceID           int64  `json:"service_id" binding:"required"`
	Date                string `json:"date" binding:"required"`
	TimeSlot            string `json:"time_slot" binding:"required"`
	NumberOfCustomers   int    `json:"number_of_customers" binding:"required,min=1"`
	IsHomeService       bool   `json:"is_home_service"`
	HomeDeliveryAddress string `json:"home_delivery_address"`
	Notes               string `json:"notes"`
}

// CreateBooking creates a booking eagerly in CONFIRMATION_PENDING and
// opens a gateway payment order for its computed price. The home visit
// fee is snapshotted onto the booking at this moment, so later fee
// changes never reprice an existing booking.
func (s *BookingService) CreateBooking(ctx context.Context, customerID int64, req *CreateBookingRequest) (*models.Booking, *CheckoutIntent, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBooking")
	defer span.End()

	svc, err := s.catalog.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, nil, &models.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if req.IsHomeService && req.HomeDeliveryAddress == "" {
		return nil, nil, &models.ValidationError{Field: "home_delivery_address", Reason: "required for home service"}
	}

	fee := decimal.Zero
	if req.IsHomeService {
		fee = s.homeVisitFee
	}

	booking := &models.Booking{
		CustomerID:          customerID,
		ServiceID:           req.ServiceID,
		Date:                date,
		TimeSlot:            req.TimeSlot,
		Notes:               req.Notes,
		NumberOfCustomers:   req.NumberOfCustomers,
		IsHomeService:       req.IsHomeService,
		HomeDeliveryAddress: req.HomeDeliveryAddress,
		HomeVisitFee:        fee,
		Status:              models.BookingStatusConfirmationPending,
		Service:             svc,
	}
	if err := booking.Validate(); err != nil {
		return nil, nil, err
	}

	staff, err := s.catalog.GetActiveStaff(ctx)
	if err != nil {
		return nil, nil, err
	}
	booking.StaffID = s.pickStaff(staff)

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		util.BookingsFailedTotal.WithLabelValues("create").Inc()
		return nil, nil, err
	}
	booking.Service = svc

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("customer_id", customerID),
		zap.String("time_slot", booking.TimeSlot))

	intent, err := s.openPayment(ctx, booking)
	if err != nil {
		// the booking exists unpaid; payment can be retried
		util.BookingsFailedTotal.WithLabelValues("gateway").Inc()
		return booking, nil, fmt.Errorf("booking %d created but gateway order failed: %w", booking.ID, err)
	}
	return booking, intent, nil
}

// RetryBookingPayment opens a fresh gateway order for an unpaid booking
func (s *BookingService) RetryBookingPayment(ctx context.Context, customerID, bookingID int64) (*CheckoutIntent, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.RetryBookingPayment")
	defer span.End()

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != customerID {
		return nil, models.ErrBookingNotFound
	}
	if booking.IsPaid {
		return nil, &models.ValidationError{Field: "booking", Reason: "already paid"}
	}
	if models.BookingStatusTerminal(booking.Status) {
		return nil, &models.TerminalStatusError{Entity: "booking", ID: bookingID, Status: booking.Status}
	}
	return s.openPayment(ctx, booking)
}

func (s *BookingService) openPayment(ctx context.Context, booking *models.Booking) (*CheckoutIntent, error) {
	total := booking.FinalPrice()
	receipt := fmt.Sprintf("booking-%d-%s", booking.ID, uuid.New().String()[:8])

	gwOrder, err := s.gateway.CreateOrder(ctx, total, receipt)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.SetBookingGatewayOrder(ctx, booking.ID, gwOrder.ID); err != nil {
		return nil, err
	}
	booking.RazorpayOrderID = gwOrder.ID

	return &CheckoutIntent{
		GatewayOrderID: gwOrder.ID,
		Amount:         total,
		AmountPaise:    gwOrder.AmountPaise,
		Currency:       gwOrder.Currency,
	}, nil
}

// EstimatePrice quotes a booking price without creating anything
func (s *BookingService) EstimatePrice(ctx context.Context, serviceID int64, numberOfCustomers int, isHomeService bool) (*models.PriceBreakdown, error) {
	if numberOfCustomers < 1 || numberOfCustomers > models.MaxBookingCustomers {
		return nil, &models.ValidationError{
			Field:  "number_of_customers",
			Reason: fmt.Sprintf("must be between 1 and %d", models.MaxBookingCustomers),
		}
	}
	svc, err := s.catalog.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	fee := decimal.Zero
	if isHomeService {
		fee = s.homeVisitFee
	}
	breakdown := models.QuoteBookingPrice(svc.Price, numberOfCustomers, isHomeService, fee)
	return &breakdown, nil
}

// AvailableSlots lists the slots of a day not yet taken for a service
func (s *BookingService) AvailableSlots(ctx context.Context, serviceID int64, date time.Time) ([]string, error) {
	booked, err := s.bookings.GetBookedSlots(ctx, serviceID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}

	free := make([]string, 0, len(models.TimeSlots))
	for _, slot := range models.TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

// GetBookingForCustomer returns a booking scoped to its owner
func (s *BookingService) GetBookingForCustomer(ctx context.Context, customerID, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != customerID {
		return nil, models.ErrBookingNotFound
	}
	return booking, nil
}

// ListCustomerBookings returns a customer's bookings, newest first
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID int64, limit, offset int) ([]models.Booking, error) {
	return s.bookings.GetBookingsByCustomer(ctx, customerID, limit, offset)
}

// ListBookings returns the admin booking list with an optional status
// filter
func (s *BookingService) ListBookings(ctx context.Context, status string, limit, offset int) ([]models.Booking, error) {
	if status != "" && !models.ValidBookingStatus(status) {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown booking status"}
	}
	return s.bookings.GetBookings(ctx, status, limit, offset)
}

// UpdateStatus applies an admin booking transition. Completed and
// cancelled bookings are terminal and reject any change.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID int64, newStatus string) error {
	ctx, span := util.StartSpan(ctx, "BookingService.UpdateStatus")
	defer span.End()

	if !models.ValidBookingStatus(newStatus) {
		return &models.ValidationError{Field: "status", Reason: "unknown booking status"}
	}

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if models.BookingStatusTerminal(booking.Status) {
		return &models.TerminalStatusError{Entity: "booking", ID: bookingID, Status: booking.Status}
	}

	if err := s.bookings.SetBookingStatus(ctx, bookingID, newStatus); err != nil {
		return err
	}

	switch newStatus {
	case models.BookingStatusConfirmedService:
		util.BookingsConfirmedTotal.Inc()
		s.logger.Info("booking confirmed", zap.Int64("booking_id", bookingID))
		if err := s.publisher.PublishBookingConfirmed(ctx, bookingID, booking.CustomerID); err != nil {
			s.logger.Error("failed to publish BookingConfirmed event", zap.Error(err))
		}
		if user, uerr := s.catalog.GetUserByID(ctx, booking.CustomerID); uerr == nil {
			// best effort, already committed
			_ = s.mailer.SendBookingConfirmed(user.Email, booking)
		}
	case models.BookingStatusCancelledService:
		if err := s.publisher.PublishBookingCancelled(ctx, bookingID, booking.CustomerID); err != nil {
			s.logger.Error("failed to publish BookingCancelled event", zap.Error(err))
		}
	}
	return nil
}

// CancelByCustomer cancels a customer's own booking. Only bookings still
// pending or confirmed qualify.
func (s *BookingService) CancelByCustomer(ctx context.Context, customerID, bookingID int64) error {
	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.CustomerID != customerID {
		return models.ErrBookingNotFound
	}
	if booking.Status == models.BookingStatusCancelledService {
		return nil
	}
	if models.BookingStatusTerminal(booking.Status) {
		return &models.TerminalStatusError{Entity: "booking", ID: bookingID, Status: booking.Status}
	}

	if err := s.bookings.SetBookingStatus(ctx, bookingID, models.BookingStatusCancelledService); err != nil {
		return err
	}
	s.logger.Info("booking cancelled by customer",
		zap.Int64("booking_id", bookingID), zap.Int64("customer_id", customerID))
	if err := s.publisher.PublishBookingCancelled(ctx, bookingID, customerID); err != nil {
		s.logger.Error("failed to publish BookingCancelled event", zap.Error(err))
	}
	return nil
}
