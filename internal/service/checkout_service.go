package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salon-service/internal/gateway"
	"salon-service/internal/models"
	"salon-service/internal/session"
	"salon-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoPendingPayment is returned when a verify callback arrives with no
// staged checkout to reconcile against
var ErrNoPendingPayment = errors.New("no payment in flight for this session")

// ErrPaymentMismatch is returned when the callback's gateway order id
// does not match the one staged at checkout. It covers both tampering
// and stale snapshots, and always fails closed.
var ErrPaymentMismatch = errors.New("payment does not match staged checkout")

// CheckoutService reconciles gateway payment callbacks: it decides
// whether a payment is genuine and, only then, materializes the staged
// purchase. The whole path is a fail-closed saga: stage locally, pay
// externally, confirm locally only on verified success.
type CheckoutService struct {
	catalog   CatalogStore
	orders    OrderStore
	bookings  BookingStore
	sessions  session.Store
	gateway   PaymentGateway
	publisher Publisher
	mailer    Mailer
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	catalog CatalogStore,
	orders OrderStore,
	bookings BookingStore,
	sessions session.Store,
	gw PaymentGateway,
	publisher Publisher,
	mailer Mailer,
) *CheckoutService {
	return &CheckoutService{
		catalog:   catalog,
		orders:    orders,
		bookings:  bookings,
		sessions:  sessions,
		gateway:   gw,
		publisher: publisher,
		mailer:    mailer,
		logger:    util.GetLogger(),
	}
}

// VerifyPaymentRequest is a gateway payment callback plus the shipping
// snapshot captured at the same moment
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"razorpay_order_id" binding:"required"`
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`

	FullName     string `json:"full_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	PostalCode   string `json:"postal_code" binding:"required"`
	State        string `json:"state" binding:"required"`
}

// VerifyCheckout reconciles a cart or buy-now payment callback. On
// verified success one database transaction re-validates stock, creates
// the order and its items with the snapshot's frozen prices, and deducts
// inventory; the staging session keys are cleared only after commit. Any
// failure leaves no trace in the database.
func (s *CheckoutService) VerifyCheckout(ctx context.Context, userID int64, req *VerifyPaymentRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.VerifyCheckout")
	defer span.End()

	pending, err := s.sessions.LoadPendingPayment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil || len(pending.Lines) == 0 {
		util.PaymentVerificationsTotal.WithLabelValues("no_pending").Inc()
		return nil, ErrNoPendingPayment
	}

	// A stale or forged callback must never consume the staged snapshot.
	if pending.GatewayOrderID != req.GatewayOrderID {
		util.PaymentVerificationsTotal.WithLabelValues("order_id_mismatch").Inc()
		s.logger.Warn("gateway order id mismatch on verify",
			zap.Int64("user_id", userID),
			zap.String("expected", pending.GatewayOrderID),
			zap.String("got", req.GatewayOrderID))
		return nil, ErrPaymentMismatch
	}

	if err := s.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature); err != nil {
		util.PaymentVerificationsTotal.WithLabelValues("signature_mismatch").Inc()
		s.logger.Warn("payment signature rejected",
			zap.Int64("user_id", userID),
			zap.String("gateway_order_id", req.GatewayOrderID))
		return nil, err
	}

	order := &models.Order{
		UserID:            userID,
		FullName:          req.FullName,
		Phone:             req.Phone,
		AddressLine1:      req.AddressLine1,
		AddressLine2:      req.AddressLine2,
		City:              req.City,
		PostalCode:        req.PostalCode,
		State:             req.State,
		Status:            models.OrderStatusOrdered,
		RazorpayOrderID:   req.GatewayOrderID,
		RazorpayPaymentID: req.PaymentID,
		RazorpaySignature: req.Signature,
	}

	items := make([]models.OrderItem, 0, len(pending.Lines))
	for _, line := range pending.Lines {
		price, err := decimal.NewFromString(line.Price)
		if err != nil {
			util.PaymentVerificationsTotal.WithLabelValues("corrupt_snapshot").Inc()
			return nil, fmt.Errorf("corrupt pre-payment snapshot for user %d: %w", userID, err)
		}
		items = append(items, models.OrderItem{
			VariantID:    line.VariantID,
			Quantity:     line.Quantity,
			PriceAtOrder: price,
		})
	}

	start := time.Now()
	if err := s.orders.CreatePaidOrder(ctx, order, items); err != nil {
		util.StockDeductionLatency.Observe(time.Since(start).Seconds())
		var stockErr *models.InsufficientStockError
		if errors.As(err, &stockErr) {
			util.PaymentVerificationsTotal.WithLabelValues("insufficient_stock").Inc()
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}
	util.StockDeductionLatency.Observe(time.Since(start).Seconds())
	util.PaymentVerificationsTotal.WithLabelValues("success").Inc()
	util.OrdersPlacedTotal.Inc()

	s.clearStaging(ctx, userID, pending.Source)

	s.logger.Info("order materialized from verified payment",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("source", pending.Source))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
		})
	}
	total := models.OrderTotalPrice(items)
	if err := s.publisher.PublishOrderPlaced(ctx, order.ID, userID, total, eventItems); err != nil {
		s.logger.Error("failed to publish OrderPlaced event", zap.Error(err))
	}

	s.sendOrderPlacedMail(ctx, order, items)

	return order, nil
}

// VerifyBookingPayment reconciles a booking payment callback. The
// booking already exists; success marks it paid, failure records an
// explicit is_paid=false so a retry starts from a known state.
func (s *CheckoutService) VerifyBookingPayment(ctx context.Context, bookingID int64, gatewayOrderID, paymentID, signature string) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.VerifyBookingPayment")
	defer span.End()

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.RazorpayOrderID == "" || booking.RazorpayOrderID != gatewayOrderID {
		util.PaymentVerificationsTotal.WithLabelValues("order_id_mismatch").Inc()
		return nil, ErrPaymentMismatch
	}

	if err := s.gateway.VerifySignature(gatewayOrderID, paymentID, signature); err != nil {
		util.PaymentVerificationsTotal.WithLabelValues("signature_mismatch").Inc()
		if markErr := s.bookings.SetBookingPayment(ctx, bookingID, false, paymentID, signature); markErr != nil {
			s.logger.Error("failed to record failed booking payment",
				zap.Int64("booking_id", bookingID), zap.Error(markErr))
		}
		return nil, err
	}

	if err := s.bookings.SetBookingPayment(ctx, bookingID, true, paymentID, signature); err != nil {
		return nil, err
	}
	util.PaymentVerificationsTotal.WithLabelValues("success").Inc()
	util.BookingsPlacedTotal.Inc()
	booking.IsPaid = true
	booking.RazorpayPaymentID = paymentID

	s.logger.Info("booking payment verified",
		zap.Int64("booking_id", bookingID),
		zap.Int64("customer_id", booking.CustomerID))

	if err := s.publisher.PublishBookingPlaced(ctx, booking.ID, booking.CustomerID, booking.ServiceID, booking.FinalPrice()); err != nil {
		s.logger.Error("failed to publish BookingPlaced event", zap.Error(err))
	}

	if user, uerr := s.catalog.GetUserByID(ctx, booking.CustomerID); uerr == nil {
		// best effort, already committed
		_ = s.mailer.SendBookingPlaced(user.Email, booking)
	}

	return booking, nil
}

func (s *CheckoutService) clearStaging(ctx context.Context, userID int64, source string) {
	if err := s.sessions.ClearPendingPayment(ctx, userID); err != nil {
		s.logger.Warn("failed to clear pending payment", zap.Int64("user_id", userID), zap.Error(err))
	}
	var err error
	switch source {
	case session.SourceBuyNow:
		err = s.sessions.ClearBuyNow(ctx, userID)
	default:
		err = s.sessions.ClearCart(ctx, userID)
	}
	if err != nil {
		s.logger.Warn("failed to clear staged session", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *CheckoutService) sendOrderPlacedMail(ctx context.Context, order *models.Order, items []models.OrderItem) {
	user, err := s.catalog.GetUserByID(ctx, order.UserID)
	if err != nil {
		s.logger.Warn("could not resolve customer for order email",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	// best effort, already committed
	_ = s.mailer.SendOrderPlaced(user.Email, order, items)
}

// IsVerificationFailure reports whether err is one of the hard payment
// verification failures, as opposed to an infrastructure error
func IsVerificationFailure(err error) bool {
	return errors.Is(err, gateway.ErrSignatureMismatch) ||
		errors.Is(err, ErrPaymentMismatch) ||
		errors.Is(err, ErrNoPendingPayment)
}
