package service

import (
	"context"

	"salon-service/internal/models"
	"salon-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order queries and lifecycle transitions
type OrderService struct {
	orders    OrderStore
	catalog   CatalogStore
	publisher Publisher
	mailer    Mailer
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderStore, catalog CatalogStore, publisher Publisher, mailer Mailer) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		mailer:    mailer,
		logger:    util.GetLogger(),
	}
}

// OrderDetail is an order with its items and derived totals
type OrderDetail struct {
	Order         *models.Order      `json:"order"`
	Items         []models.OrderItem `json:"items"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
	TotalDiscount decimal.Decimal    `json:"total_discount"`
}

// GetOrderForUser returns an order detail scoped to its owner. An order
// belonging to someone else reads as not found.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID int64) (*OrderDetail, error) {
	detail, err := s.getDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if detail.Order.UserID != userID {
		return nil, models.ErrOrderNotFound
	}
	return detail, nil
}

// GetOrder returns an order detail without ownership scoping, for admin
// use
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	return s.getDetail(ctx, orderID)
}

func (s *OrderService) getDetail(ctx context.Context, orderID int64) (*OrderDetail, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.orders.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	basePrices, err := s.orders.GetVariantBasePrices(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{
		Order:         order,
		Items:         items,
		TotalPrice:    models.OrderTotalPrice(items),
		TotalDiscount: models.OrderTotalDiscount(items, basePrices),
	}, nil
}

// ListUserOrders returns a customer's order history, newest first
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, status string, limit, offset int) ([]models.Order, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown order status"}
	}
	return s.orders.GetOrdersByUserID(ctx, userID, status, limit, offset)
}

// ListOrders returns the admin order list with an optional status filter
// and a free-text search over the shipping name and phone
func (s *OrderService) ListOrders(ctx context.Context, status, search string, limit, offset int) ([]models.Order, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown order status"}
	}
	return s.orders.GetOrders(ctx, status, search, limit, offset)
}

// CancelByCustomer cancels a customer's own order. Only PENDING and
// PROCESSING orders qualify; an already-cancelled order is absorbed as a
// no-op rather than an error.
func (s *OrderService) CancelByCustomer(ctx context.Context, userID, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelByCustomer")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return models.ErrOrderNotFound
	}

	if err := order.CanCustomerCancel(); err != nil {
		if err == models.ErrAlreadyCancelled {
			return nil
		}
		return err
	}

	cancelled, err := s.orders.CancelOrder(ctx, orderID, true)
	if err != nil {
		return err
	}
	if !cancelled {
		return nil
	}

	util.OrdersCancelledTotal.WithLabelValues("customer").Inc()
	s.logger.Info("order cancelled by customer",
		zap.Int64("order_id", orderID), zap.Int64("user_id", userID))

	if err := s.publisher.PublishOrderCancelled(ctx, orderID, userID, true, ""); err != nil {
		s.logger.Error("failed to publish OrderCancelled event", zap.Error(err))
	}
	return nil
}

// UpdateStatus applies an admin status transition. Terminal orders
// reject any change, and orders never move back into ORDERED or PENDING.
// Moving a PENDING order to PROCESSING is the confirm path: stock is
// deducted first and a shortfall on any item blocks the whole transition.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidOrderStatus(newStatus) {
		return &models.ValidationError{Field: "status", Reason: "unknown order status"}
	}
	// ORDERED and PENDING exist only at creation. Letting an order relapse
	// into them would break the stock bookkeeping, which reads
	// Status == PENDING as "never deducted".
	if newStatus == models.OrderStatusOrdered || newStatus == models.OrderStatusPending {
		return &models.ValidationError{Field: "status", Reason: "orders cannot return to a creation status"}
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if models.OrderStatusTerminal(order.Status) {
		// cancelling a cancelled order stays a silent no-op
		if order.Status == models.OrderStatusCancelled && newStatus == models.OrderStatusCancelled {
			return nil
		}
		return &models.TerminalStatusError{Entity: "order", ID: orderID, Status: order.Status}
	}

	switch newStatus {
	case models.OrderStatusCancelled:
		cancelled, err := s.orders.CancelOrder(ctx, orderID, false)
		if err != nil {
			return err
		}
		if cancelled {
			util.OrdersCancelledTotal.WithLabelValues("admin").Inc()
			if err := s.publisher.PublishOrderCancelled(ctx, orderID, order.UserID, false, ""); err != nil {
				s.logger.Error("failed to publish OrderCancelled event", zap.Error(err))
			}
		}
		return nil

	case models.OrderStatusProcessing:
		if order.Status == models.OrderStatusPending {
			// stock was never taken for a PENDING order, confirm takes it now
			if err := s.orders.ConfirmOrder(ctx, orderID, newStatus); err != nil {
				return err
			}
		} else if err := s.orders.SetOrderStatus(ctx, orderID, newStatus); err != nil {
			return err
		}
		util.OrdersConfirmedTotal.Inc()
		s.logger.Info("order confirmed", zap.Int64("order_id", orderID))

		if err := s.publisher.PublishOrderConfirmed(ctx, orderID, order.UserID); err != nil {
			s.logger.Error("failed to publish OrderConfirmed event", zap.Error(err))
		}
		if user, uerr := s.catalog.GetUserByID(ctx, order.UserID); uerr == nil {
			order.Status = newStatus
			// best effort, already committed
			_ = s.mailer.SendOrderConfirmed(user.Email, order)
		}
		return nil

	default:
		return s.orders.SetOrderStatus(ctx, orderID, newStatus)
	}
}
