package worker

import (
	"context"
	"time"

	"salon-service/internal/redisclient"

	"github.com/shopspring/decimal"
)

// DailyStats is one day's sales tally as accumulated by the analytics
// worker. Revenue is converted back from paise to rupees for display.
type DailyStats struct {
	Date              string          `json:"date"`
	OrdersPlaced      int64           `json:"orders_placed"`
	OrdersCancelled   int64           `json:"orders_cancelled"`
	OrderRevenue      decimal.Decimal `json:"order_revenue"`
	BookingsPlaced    int64           `json:"bookings_placed"`
	BookingsConfirmed int64           `json:"bookings_confirmed"`
	BookingsCancelled int64           `json:"bookings_cancelled"`
	BookingRevenue    decimal.Decimal `json:"booking_revenue"`
}

// StatsReader reads the daily counters the analytics worker writes.
type StatsReader struct {
	counters *redisclient.Client
}

// NewStatsReader creates a new stats reader
func NewStatsReader(counters *redisclient.Client) *StatsReader {
	return &StatsReader{counters: counters}
}

// DailyStats returns the tallies for one UTC day. Absent counters read
// as zero, so a day with no traffic yields an all-zero row.
func (r *StatsReader) DailyStats(ctx context.Context, day time.Time) (*DailyStats, error) {
	stats := &DailyStats{Date: day.UTC().Format("2006-01-02")}

	reads := []struct {
		name string
		dest *int64
	}{
		{counterOrdersPlaced, &stats.OrdersPlaced},
		{counterOrdersCancelled, &stats.OrdersCancelled},
		{counterBookingsPlaced, &stats.BookingsPlaced},
		{counterBookingsConfirmed, &stats.BookingsConfirmed},
		{counterBookingsCancelled, &stats.BookingsCancelled},
	}
	for _, read := range reads {
		n, err := r.counters.GetCounter(ctx, read.name, day)
		if err != nil {
			return nil, err
		}
		*read.dest = n
	}

	orderPaise, err := r.counters.GetCounter(ctx, counterOrderRevenuePaise, day)
	if err != nil {
		return nil, err
	}
	bookingPaise, err := r.counters.GetCounter(ctx, counterBookingRevenuePaise, day)
	if err != nil {
		return nil, err
	}
	stats.OrderRevenue = decimal.NewFromInt(orderPaise).Div(decimal.NewFromInt(100))
	stats.BookingRevenue = decimal.NewFromInt(bookingPaise).Div(decimal.NewFromInt(100))

	return stats, nil
}
