package session

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// CartLine is one staged cart entry. Price is frozen at the moment the
// item was added; checkout charges the frozen value even if the catalog
// price moves afterwards.
type CartLine struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Cart is a per-user staging area kept in the session store. Keys are
// variant ids rendered as strings so the structure round-trips through
// JSON.
type Cart struct {
	Lines map[string]CartLine `json:"lines"`
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{Lines: make(map[string]CartLine)}
}

// Add stages quantity units of a variant at the given price. Invalid
// input, a non-positive quantity or a price that is not a positive
// decimal, is silently ignored so a malformed request cannot corrupt
// the cart. Adding a variant already present increments its quantity
// and keeps the original frozen price.
func (c *Cart) Add(variantID int64, quantity int, price string) {
	if quantity <= 0 {
		return
	}
	p, err := decimal.NewFromString(price)
	if err != nil || !p.IsPositive() {
		return
	}
	if c.Lines == nil {
		c.Lines = make(map[string]CartLine)
	}

	key := strconv.FormatInt(variantID, 10)
	if line, ok := c.Lines[key]; ok {
		line.Quantity += quantity
		c.Lines[key] = line
		return
	}
	c.Lines[key] = CartLine{Quantity: quantity, Price: price}
}

// Remove drops a variant from the cart. Removing an absent variant is a
// no-op.
func (c *Cart) Remove(variantID int64) {
	delete(c.Lines, strconv.FormatInt(variantID, 10))
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// VariantIDs returns the staged variant ids. Keys that fail to parse are
// skipped; they can only come from a corrupted session blob.
func (c *Cart) VariantIDs() []int64 {
	ids := make([]int64, 0, len(c.Lines))
	for key := range c.Lines {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Quantity returns the staged quantity for a variant, zero when absent
func (c *Cart) Quantity(variantID int64) int {
	return c.Lines[strconv.FormatInt(variantID, 10)].Quantity
}

// BuyNow is the single-item fast path. It holds at most one variant and
// replaces itself wholesale on every use.
type BuyNow struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// Valid reports whether the slot holds a usable selection. Price may be
// empty; it is backfilled from the catalog at checkout.
func (b *BuyNow) Valid() bool {
	return b != nil && b.VariantID > 0 && b.Quantity > 0
}

// SnapshotLine is one line of a pre-payment snapshot
type SnapshotLine struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// PendingPayment captures what the customer is paying for at the moment
// a gateway order is created. Verification materializes the order from
// this snapshot, never from the live cart, so cart edits made while the
// payment window is open cannot change what was charged.
type PendingPayment struct {
	GatewayOrderID string         `json:"gateway_order_id"`
	Source         string         `json:"source"`
	Lines          []SnapshotLine `json:"lines"`
}

// Pending payment sources
const (
	SourceCart   = "cart"
	SourceBuyNow = "buy_now"
)
