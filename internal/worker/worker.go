package worker

import (
	"context"
	"encoding/json"
	"time"

	"salon-service/internal/broker"
	"salon-service/internal/gateway"
	"salon-service/internal/models"
	"salon-service/internal/redisclient"
	"salon-service/internal/util"

	"go.uber.org/zap"
)

// Counter names under the analytics key prefix. Revenue counters are in
// paise so they stay integral.
const (
	counterOrdersPlaced        = "orders_placed"
	counterOrdersCancelled     = "orders_cancelled"
	counterOrderRevenuePaise   = "order_revenue_paise"
	counterBookingsPlaced      = "bookings_placed"
	counterBookingsConfirmed   = "bookings_confirmed"
	counterBookingsCancelled   = "bookings_cancelled"
	counterBookingRevenuePaise = "booking_revenue_paise"
)

// AnalyticsWorker consumes storefront lifecycle events and folds them
// into per-day sales counters in redis. Counting is best effort: a
// failed increment is logged and the message acknowledged, since events
// carry no state the rest of the system depends on.
type AnalyticsWorker struct {
	consumer *broker.Consumer
	handler  *broker.EventHandler
	counters *redisclient.Client
	logger   *zap.Logger
}

// NewAnalyticsWorker creates a new analytics worker
func NewAnalyticsWorker(consumer *broker.Consumer, counters *redisclient.Client) *AnalyticsWorker {
	w := &AnalyticsWorker{
		consumer: consumer,
		counters: counters,
		logger:   util.GetLogger(),
	}

	handler := broker.NewEventHandler(w.logger)
	handler.On(models.EventTypeOrderPlaced, w.onOrderPlaced)
	handler.On(models.EventTypeOrderCancelled, w.onOrderCancelled)
	handler.On(models.EventTypeBookingPlaced, w.onBookingPlaced)
	handler.On(models.EventTypeBookingConfirmed, w.onBookingConfirmed)
	handler.On(models.EventTypeBookingCancelled, w.onBookingCancelled)
	w.handler = handler

	return w
}

// Start starts the worker and blocks until ctx is cancelled
func (w *AnalyticsWorker) Start(ctx context.Context) error {
	w.logger.Info("starting analytics worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *AnalyticsWorker) Stop() error {
	w.logger.Info("stopping analytics worker")
	return w.consumer.Close()
}

func (w *AnalyticsWorker) onOrderPlaced(ctx context.Context, raw []byte) error {
	var event models.OrderPlacedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.logger.Warn("malformed order placed event", zap.Error(err))
		return nil
	}

	day := event.Timestamp.UTC()
	w.count(ctx, counterOrdersPlaced, day)
	w.countBy(ctx, counterOrderRevenuePaise, day, gateway.ToPaise(event.TotalPrice))
	return nil
}

func (w *AnalyticsWorker) onOrderCancelled(ctx context.Context, raw []byte) error {
	var event models.OrderCancelledEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.logger.Warn("malformed order cancelled event", zap.Error(err))
		return nil
	}

	w.count(ctx, counterOrdersCancelled, event.Timestamp.UTC())
	return nil
}

func (w *AnalyticsWorker) onBookingPlaced(ctx context.Context, raw []byte) error {
	var event models.BookingPlacedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.logger.Warn("malformed booking placed event", zap.Error(err))
		return nil
	}

	day := event.Timestamp.UTC()
	w.count(ctx, counterBookingsPlaced, day)
	w.countBy(ctx, counterBookingRevenuePaise, day, gateway.ToPaise(event.FinalPrice))
	return nil
}

func (w *AnalyticsWorker) onBookingConfirmed(ctx context.Context, raw []byte) error {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.logger.Warn("malformed booking confirmed event", zap.Error(err))
		return nil
	}

	w.count(ctx, counterBookingsConfirmed, event.Timestamp.UTC())
	return nil
}

func (w *AnalyticsWorker) onBookingCancelled(ctx context.Context, raw []byte) error {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.logger.Warn("malformed booking cancelled event", zap.Error(err))
		return nil
	}

	w.count(ctx, counterBookingsCancelled, event.Timestamp.UTC())
	return nil
}

func (w *AnalyticsWorker) count(ctx context.Context, name string, day time.Time) {
	if err := w.counters.IncrCounter(ctx, name, day); err != nil {
		w.logger.Warn("failed to increment counter",
			zap.String("counter", name), zap.Error(err))
	}
}

func (w *AnalyticsWorker) countBy(ctx context.Context, name string, day time.Time, n int64) {
	if err := w.counters.IncrCounterBy(ctx, name, day, n); err != nil {
		w.logger.Warn("failed to increment counter",
			zap.String("counter", name), zap.Error(err))
	}
}
