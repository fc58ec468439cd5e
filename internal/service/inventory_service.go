package service

import (
	"context"

	"salon-service/internal/models"
	"salon-service/internal/util"

	"go.uber.org/zap"
)

// StockStore is the admin-facing slice of the inventory ledger
type StockStore interface {
	SetVariantStock(ctx context.Context, variantID int64, quantity int) error
	AdjustVariantStock(ctx context.Context, variantID int64, delta int) error
}

// InventoryService exposes manual stock management to the back office.
// Every mutation goes through the ledger so product availability is
// refreshed in the same transaction.
type InventoryService struct {
	stock   StockStore
	catalog CatalogStore
	logger  *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(stock StockStore, catalog CatalogStore) *InventoryService {
	return &InventoryService{
		stock:   stock,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// SetStock sets a variant's stock to an absolute quantity
func (s *InventoryService) SetStock(ctx context.Context, variantID int64, quantity int) error {
	if quantity < 0 {
		return &models.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if err := s.stock.SetVariantStock(ctx, variantID, quantity); err != nil {
		return err
	}
	s.logger.Info("variant stock set",
		zap.Int64("variant_id", variantID), zap.Int("quantity", quantity))
	return nil
}

// AdjustStock applies a relative stock change, floored at zero by the
// ledger
func (s *InventoryService) AdjustStock(ctx context.Context, variantID int64, delta int) error {
	if delta == 0 {
		return &models.ValidationError{Field: "delta", Reason: "must not be zero"}
	}
	if err := s.stock.AdjustVariantStock(ctx, variantID, delta); err != nil {
		return err
	}
	s.logger.Info("variant stock adjusted",
		zap.Int64("variant_id", variantID), zap.Int("delta", delta))
	return nil
}

// ListLowStock returns variants at or under the restock threshold
func (s *InventoryService) ListLowStock(ctx context.Context, threshold int) ([]models.ProductVariant, error) {
	return s.catalog.GetLowStockVariants(ctx, threshold)
}
