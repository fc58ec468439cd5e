package service

import (
	"context"
	"time"

	"salon-service/internal/models"

	"github.com/shopspring/decimal"
)

// CatalogBrowser is the public storefront slice of the catalog
type CatalogBrowser interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetVariantsByProductID(ctx context.Context, productID int64) ([]models.ProductVariant, error)
	GetActiveServices(ctx context.Context) ([]models.SalonService, error)
}

// VariantView is a variant with its effective price at view time
type VariantView struct {
	models.ProductVariant
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	InStock         bool            `json:"in_stock"`
}

// ProductView is a product with its priced variants
type ProductView struct {
	Product  models.Product `json:"product"`
	LTO      bool           `json:"lto_active"`
	Variants []VariantView  `json:"variants"`
}

// CatalogService serves the public product and service catalog
type CatalogService struct {
	catalog CatalogBrowser
	now     func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog CatalogBrowser) *CatalogService {
	return &CatalogService{catalog: catalog, now: time.Now}
}

// ListProducts returns the full product list
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.catalog.GetProducts(ctx)
}

// GetProduct resolves a product by slug with its variants priced under
// the discount rules in force right now
func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*ProductView, error) {
	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	variants, err := s.catalog.GetVariantsByProductID(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &ProductView{
		Product:  *product,
		LTO:      product.IsLTOActive(now),
		Variants: make([]VariantView, 0, len(variants)),
	}
	for _, v := range variants {
		view.Variants = append(view.Variants, VariantView{
			ProductVariant:  v,
			DiscountedPrice: v.DiscountedPrice(product, now),
			InStock:         v.StockQuantity > 0,
		})
	}
	return view, nil
}

// ListServices returns the bookable services
func (s *CatalogService) ListServices(ctx context.Context) ([]models.SalonService, error) {
	return s.catalog.GetActiveServices(ctx)
}
