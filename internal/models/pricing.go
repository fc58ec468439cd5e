package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// bookingRegularDiscount is the unconditional 5% off every booking.
	bookingRegularDiscount = decimal.NewFromFloat(0.05)
	// bookingGroupDiscount is the extra 5% per head for groups of 2-5.
	bookingGroupDiscount = decimal.NewFromFloat(0.05)
)

// IsLTOActive reports whether the product's limited-time offer window is
// open at the given instant.
func (p *Product) IsLTOActive(now time.Time) bool {
	return p.LTODiscountPercent.IsPositive() &&
		p.LTOStartDate != nil && p.LTOEndDate != nil &&
		!now.Before(*p.LTOStartDate) && !now.After(*p.LTOEndDate)
}

// DiscountedPrice applies the product's discount rules to a base price.
// An active LTO takes priority over the regular discount even when the
// regular discount is larger. The result is rounded to 2 decimal places,
// half up.
func (p *Product) DiscountedPrice(base decimal.Decimal, now time.Time) decimal.Decimal {
	final := base
	if p.IsLTOActive(now) {
		discount := p.LTODiscountPercent.Div(hundred).Mul(base)
		final = base.Sub(discount)
	} else if p.DiscountPercent.IsPositive() {
		discount := p.DiscountPercent.Div(hundred).Mul(base)
		final = base.Sub(discount)
	}
	return final.Round(2)
}

// ValidateDiscounts rejects an LTO percent without a complete window.
func (p *Product) ValidateDiscounts() error {
	if p.LTODiscountPercent.IsPositive() && (p.LTOStartDate == nil || p.LTOEndDate == nil) {
		return &ValidationError{
			Field:  "lto_discount_percent",
			Reason: "limited-time discount requires both start and end dates",
		}
	}
	return nil
}

// DiscountedPrice returns the variant's unit price after the parent
// product's discount rules.
func (v *ProductVariant) DiscountedPrice(p *Product, now time.Time) decimal.Decimal {
	return p.DiscountedPrice(v.Price, now)
}

// PriceBreakdown exposes each term of a booking price for display. It must
// stay formula-identical to FinalPrice; both are produced by quote.
type PriceBreakdown struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	RegularDiscount decimal.Decimal `json:"regular_discount"`
	GroupDiscount   decimal.Decimal `json:"group_discount"`
	HomeVisitFee    decimal.Decimal `json:"home_visit_fee"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// QuoteBookingPrice computes the booking price terms from first inputs:
// flat 5% off the unit price, an extra 5% per head for groups of 2-5, and
// the home visit fee when requested.
func QuoteBookingPrice(servicePrice decimal.Decimal, numberOfCustomers int, isHomeService bool, homeVisitFee decimal.Decimal) PriceBreakdown {
	regularDiscount := servicePrice.Mul(bookingRegularDiscount)
	discountedUnit := servicePrice.Sub(regularDiscount)
	count := decimal.NewFromInt(int64(numberOfCustomers))

	groupDiscount := decimal.Zero
	if numberOfCustomers >= 2 && numberOfCustomers <= MaxBookingCustomers {
		groupDiscount = discountedUnit.Mul(count).Mul(bookingGroupDiscount)
	}

	homeFee := decimal.Zero
	if isHomeService {
		homeFee = homeVisitFee
	}

	total := discountedUnit.Mul(count).Sub(groupDiscount).Add(homeFee)

	return PriceBreakdown{
		BasePrice:       servicePrice,
		RegularDiscount: regularDiscount,
		GroupDiscount:   groupDiscount,
		HomeVisitFee:    homeFee,
		TotalPrice:      total.Round(2),
	}
}

// PriceBreakdown returns the booking's price terms. Requires Service to be
// loaded.
func (b *Booking) PriceBreakdown() PriceBreakdown {
	return QuoteBookingPrice(b.Service.Price, b.NumberOfCustomers, b.IsHomeService, b.HomeVisitFee)
}

// FinalPrice is the single source of truth for what a booking costs.
func (b *Booking) FinalPrice() decimal.Decimal {
	return b.PriceBreakdown().TotalPrice
}
