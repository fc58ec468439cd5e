package session

import (
	"context"
	"fmt"
	"time"

	"salon-service/internal/redisclient"
)

// Store persists per-user session state: the cart, the buy-now slot and
// the pre-payment snapshot
type Store interface {
	LoadCart(ctx context.Context, userID int64) (*Cart, error)
	SaveCart(ctx context.Context, userID int64, cart *Cart) error
	ClearCart(ctx context.Context, userID int64) error

	LoadBuyNow(ctx context.Context, userID int64) (*BuyNow, error)
	SaveBuyNow(ctx context.Context, userID int64, b *BuyNow) error
	ClearBuyNow(ctx context.Context, userID int64) error

	LoadPendingPayment(ctx context.Context, userID int64) (*PendingPayment, error)
	SavePendingPayment(ctx context.Context, userID int64, p *PendingPayment) error
	ClearPendingPayment(ctx context.Context, userID int64) error
}

// RedisStore keeps session state in redis with a sliding TTL
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed session store
func NewRedisStore(client *redisclient.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(userID int64) string    { return fmt.Sprintf("session:%d:cart", userID) }
func buyNowKey(userID int64) string  { return fmt.Sprintf("session:%d:buynow", userID) }
func pendingKey(userID int64) string { return fmt.Sprintf("session:%d:pending_payment", userID) }

// LoadCart returns the user's cart, or a fresh empty cart when none is
// stored or the stored blob cannot be decoded
func (s *RedisStore) LoadCart(ctx context.Context, userID int64) (*Cart, error) {
	var cart Cart
	ok, err := s.client.GetJSON(ctx, cartKey(userID), &cart)
	if err != nil || !ok {
		return NewCart(), err
	}
	if cart.Lines == nil {
		cart.Lines = make(map[string]CartLine)
	}
	return &cart, nil
}

func (s *RedisStore) SaveCart(ctx context.Context, userID int64, cart *Cart) error {
	return s.client.SetJSON(ctx, cartKey(userID), cart, s.ttl)
}

func (s *RedisStore) ClearCart(ctx context.Context, userID int64) error {
	return s.client.Delete(ctx, cartKey(userID))
}

// LoadBuyNow returns the buy-now slot or nil when empty. A corrupt blob
// is treated as empty.
func (s *RedisStore) LoadBuyNow(ctx context.Context, userID int64) (*BuyNow, error) {
	var b BuyNow
	ok, err := s.client.GetJSON(ctx, buyNowKey(userID), &b)
	if err != nil || !ok {
		return nil, err
	}
	if !b.Valid() {
		return nil, nil
	}
	return &b, nil
}

func (s *RedisStore) SaveBuyNow(ctx context.Context, userID int64, b *BuyNow) error {
	return s.client.SetJSON(ctx, buyNowKey(userID), b, s.ttl)
}

func (s *RedisStore) ClearBuyNow(ctx context.Context, userID int64) error {
	return s.client.Delete(ctx, buyNowKey(userID))
}

// LoadPendingPayment returns the snapshot taken when the gateway order
// was created, or nil when no payment is in flight
func (s *RedisStore) LoadPendingPayment(ctx context.Context, userID int64) (*PendingPayment, error) {
	var p PendingPayment
	ok, err := s.client.GetJSON(ctx, pendingKey(userID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) SavePendingPayment(ctx context.Context, userID int64, p *PendingPayment) error {
	return s.client.SetJSON(ctx, pendingKey(userID), p, s.ttl)
}

func (s *RedisStore) ClearPendingPayment(ctx context.Context, userID int64) error {
	return s.client.Delete(ctx, pendingKey(userID))
}
