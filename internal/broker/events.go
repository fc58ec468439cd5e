package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salon-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventPublisher handles publishing storefront lifecycle events. All
// publishes are fire and forget from the caller's point of view; a
// failed publish never fails the business operation that produced it.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishOrderPlaced publishes an OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, orderID, userID int64, total decimal.Decimal, items []models.OrderItemData) error {
	event := &models.OrderPlacedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:    orderID,
		UserID:     userID,
		TotalPrice: total,
		Items:      items,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", orderID), event)
}

// PublishOrderConfirmed publishes an OrderConfirmed event
func (ep *EventPublisher) PublishOrderConfirmed(ctx context.Context, orderID, userID int64) error {
	event := &models.OrderConfirmedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:   orderID,
		UserID:    userID,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", orderID), event)
}

// PublishOrderCancelled publishes an OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, orderID, userID int64, byCustomer bool, reason string) error {
	event := &models.OrderCancelledEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:    orderID,
		UserID:     userID,
		ByCustomer: byCustomer,
		Reason:     reason,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%d", orderID), event)
}

// PublishBookingPlaced publishes a BookingPlaced event
func (ep *EventPublisher) PublishBookingPlaced(ctx context.Context, bookingID, customerID, serviceID int64, finalPrice decimal.Decimal) error {
	event := &models.BookingPlacedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeBookingPlaced),
		BookingID:  bookingID,
		CustomerID: customerID,
		ServiceID:  serviceID,
		FinalPrice: finalPrice,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("booking-%d", bookingID), event)
}

// PublishBookingConfirmed publishes a BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, bookingID, customerID int64) error {
	event := &models.BookingConfirmedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeBookingConfirmed),
		BookingID:  bookingID,
		CustomerID: customerID,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("booking-%d", bookingID), event)
}

// PublishBookingCancelled publishes a BookingCancelled event
func (ep *EventPublisher) PublishBookingCancelled(ctx context.Context, bookingID, customerID int64) error {
	event := &models.BookingCancelledEvent{
		BaseEvent:  newBaseEvent(models.EventTypeBookingCancelled),
		BookingID:  bookingID,
		CustomerID: customerID,
	}
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("booking-%d", bookingID), event)
}

// EventHandler dispatches consumed events by type
type EventHandler struct {
	logger   *zap.Logger
	handlers map[string]func(ctx context.Context, raw []byte) error
}

// NewEventHandler creates a new event handler
func NewEventHandler(logger *zap.Logger) *EventHandler {
	return &EventHandler{
		logger:   logger,
		handlers: make(map[string]func(ctx context.Context, raw []byte) error),
	}
}

// On registers a handler for an event type
func (eh *EventHandler) On(eventType string, handler func(ctx context.Context, raw []byte) error) {
	eh.handlers[eventType] = handler
}

// HandleMessage routes a message to the handler registered for its type.
// Unknown types are logged and acknowledged.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	handler, ok := eh.handlers[base.EventType]
	if !ok {
		eh.logger.Debug("unhandled event type", zap.String("event_type", base.EventType))
		return nil
	}
	return handler(ctx, msg.Value)
}
