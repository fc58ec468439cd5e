package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salon-service/internal/models"
	"salon-service/internal/session"
	"salon-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages the session-staged cart and buy-now slot and turns
// them into gateway payment orders at checkout
type CartService struct {
	catalog  CatalogStore
	sessions session.Store
	gateway  PaymentGateway
	logger   *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service
func NewCartService(catalog CatalogStore, sessions session.Store, gw PaymentGateway) *CartService {
	return &CartService{
		catalog:  catalog,
		sessions: sessions,
		gateway:  gw,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CartItemView is one resolved cart line for display
type CartItemView struct {
	VariantID   int64           `json:"variant_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView is the resolved cart with totals
type CartView struct {
	Items      []CartItemView  `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CheckoutIntent is what a client needs to complete payment against the
// gateway
type CheckoutIntent struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountPaise    int64           `json:"amount_paise"`
	Currency       string          `json:"currency"`
}

// AddToCart stages a variant at its current discounted price. The price
// frozen here is what the customer sees in the cart; the charge is
// re-derived from the frozen value at checkout.
func (s *CartService) AddToCart(ctx context.Context, userID, variantID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	variant, err := s.catalog.GetVariantByID(ctx, variantID)
	if err != nil {
		return err
	}
	product, err := s.catalog.GetProductByID(ctx, variant.ProductID)
	if err != nil {
		return err
	}

	cart, err := s.sessions.LoadCart(ctx, userID)
	if err != nil {
		return err
	}

	price := variant.DiscountedPrice(product, s.now())
	cart.Add(variantID, quantity, price.StringFixed(2))
	return s.sessions.SaveCart(ctx, userID, cart)
}

// RemoveFromCart drops a variant from the cart
func (s *CartService) RemoveFromCart(ctx context.Context, userID, variantID int64) error {
	cart, err := s.sessions.LoadCart(ctx, userID)
	if err != nil {
		return err
	}
	cart.Remove(variantID)
	return s.sessions.SaveCart(ctx, userID, cart)
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	return s.sessions.ClearCart(ctx, userID)
}

// GetCart resolves the staged cart against the catalog. Lines whose
// variant no longer exists are dropped from the view and pruned from the
// session so they cannot reach checkout.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.sessions.LoadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: []CartItemView{}, TotalPrice: decimal.Zero}
	pruned := false

	for _, variantID := range cart.VariantIDs() {
		variant, err := s.catalog.GetVariantByID(ctx, variantID)
		if errors.Is(err, models.ErrVariantNotFound) {
			cart.Remove(variantID)
			pruned = true
			continue
		}
		if err != nil {
			return nil, err
		}
		product, err := s.catalog.GetProductByID(ctx, variant.ProductID)
		if err != nil {
			return nil, err
		}

		line := cart.Lines[fmt.Sprint(variantID)]
		unit, err := decimal.NewFromString(line.Price)
		if err != nil {
			// unreadable frozen price, fall back to the live one
			unit = variant.DiscountedPrice(product, s.now())
		}

		item := CartItemView{
			VariantID:   variantID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        variant.Size,
			Color:       variant.Color,
			Quantity:    line.Quantity,
			UnitPrice:   unit,
			LineTotal:   unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		view.Items = append(view.Items, item)
		view.TotalPrice = view.TotalPrice.Add(item.LineTotal)
	}

	if pruned {
		if err := s.sessions.SaveCart(ctx, userID, cart); err != nil {
			s.logger.Warn("failed to prune stale cart lines", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return view, nil
}

// SetBuyNow stages a single variant for the fast checkout path,
// replacing any previous selection
func (s *CartService) SetBuyNow(ctx context.Context, userID, variantID int64, quantity int) error {
	if quantity <= 0 {
		return &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	variant, err := s.catalog.GetVariantByID(ctx, variantID)
	if err != nil {
		return err
	}
	product, err := s.catalog.GetProductByID(ctx, variant.ProductID)
	if err != nil {
		return err
	}

	slot := &session.BuyNow{
		VariantID: variantID,
		Quantity:  quantity,
		Price:     variant.DiscountedPrice(product, s.now()).StringFixed(2),
	}
	return s.sessions.SaveBuyNow(ctx, userID, slot)
}

// BeginCartCheckout validates the staged cart against live stock,
// creates a gateway order for the total, and snapshots the cart into the
// pending-payment record. Nothing is persisted to the database here.
func (s *CartService) BeginCartCheckout(ctx context.Context, userID int64) (*CheckoutIntent, error) {
	ctx, span := util.StartSpan(ctx, "CartService.BeginCartCheckout")
	defer span.End()

	cart, err := s.sessions.LoadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, &models.ValidationError{Field: "cart", Reason: "cart is empty"}
	}

	lines := make([]session.SnapshotLine, 0, len(cart.Lines))
	total := decimal.Zero
	for _, variantID := range cart.VariantIDs() {
		line := cart.Lines[fmt.Sprint(variantID)]

		variant, err := s.catalog.GetVariantByID(ctx, variantID)
		if errors.Is(err, models.ErrVariantNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if variant.StockQuantity < line.Quantity {
			util.StockShortfallsTotal.Inc()
			return nil, &models.InsufficientStockError{
				VariantID: variantID,
				Requested: line.Quantity,
				Available: variant.StockQuantity,
			}
		}

		unit, err := decimal.NewFromString(line.Price)
		if err != nil {
			return nil, &models.ValidationError{Field: "cart", Reason: "corrupt staged price"}
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		lines = append(lines, session.SnapshotLine{
			VariantID: variantID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	if len(lines) == 0 {
		return nil, &models.ValidationError{Field: "cart", Reason: "cart is empty"}
	}

	return s.createIntent(ctx, userID, session.SourceCart, lines, total)
}

// BeginBuyNowCheckout is the single-item equivalent of
// BeginCartCheckout. A missing frozen price is backfilled from the
// current discounted price and written back to the slot.
func (s *CartService) BeginBuyNowCheckout(ctx context.Context, userID int64) (*CheckoutIntent, error) {
	ctx, span := util.StartSpan(ctx, "CartService.BeginBuyNowCheckout")
	defer span.End()

	slot, err := s.sessions.LoadBuyNow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, &models.ValidationError{Field: "buy_now", Reason: "nothing staged"}
	}

	variant, err := s.catalog.GetVariantByID(ctx, slot.VariantID)
	if err != nil {
		return nil, err
	}
	if variant.StockQuantity < slot.Quantity {
		util.StockShortfallsTotal.Inc()
		return nil, &models.InsufficientStockError{
			VariantID: slot.VariantID,
			Requested: slot.Quantity,
			Available: variant.StockQuantity,
		}
	}

	unit, perr := decimal.NewFromString(slot.Price)
	if perr != nil || !unit.IsPositive() {
		product, err := s.catalog.GetProductByID(ctx, variant.ProductID)
		if err != nil {
			return nil, err
		}
		unit = variant.DiscountedPrice(product, s.now())
		slot.Price = unit.StringFixed(2)
		if err := s.sessions.SaveBuyNow(ctx, userID, slot); err != nil {
			return nil, err
		}
	}

	total := unit.Mul(decimal.NewFromInt(int64(slot.Quantity)))
	lines := []session.SnapshotLine{{
		VariantID: slot.VariantID,
		Quantity:  slot.Quantity,
		Price:     slot.Price,
	}}
	return s.createIntent(ctx, userID, session.SourceBuyNow, lines, total)
}

func (s *CartService) createIntent(ctx context.Context, userID int64, source string, lines []session.SnapshotLine, total decimal.Decimal) (*CheckoutIntent, error) {
	receipt := fmt.Sprintf("%s-%d-%s", source, userID, uuid.New().String()[:8])
	gwOrder, err := s.gateway.CreateOrder(ctx, total, receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	pending := &session.PendingPayment{
		GatewayOrderID: gwOrder.ID,
		Source:         source,
		Lines:          lines,
	}
	if err := s.sessions.SavePendingPayment(ctx, userID, pending); err != nil {
		return nil, err
	}

	s.logger.Info("checkout staged",
		zap.Int64("user_id", userID),
		zap.String("source", source),
		zap.String("gateway_order_id", gwOrder.ID),
		zap.String("amount", total.StringFixed(2)))

	return &CheckoutIntent{
		GatewayOrderID: gwOrder.ID,
		Amount:         total,
		AmountPaise:    gwOrder.AmountPaise,
		Currency:       gwOrder.Currency,
	}, nil
}
