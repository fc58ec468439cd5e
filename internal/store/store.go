package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salon-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlug retrieves a product by slug
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetVariantByID retrieves a product variant by ID
func (s *Store) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM product_variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantsByIDs retrieves multiple variants by IDs
func (s *Store) GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return []models.ProductVariant{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM product_variants WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var variants []models.ProductVariant
	err = s.db.SelectContext(ctx, &variants, query, args...)
	return variants, err
}

// GetVariantsByProductID retrieves all variants of a product
func (s *Store) GetVariantsByProductID(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id", productID)
	return variants, err
}

// GetLowStockVariants retrieves variants at or below the given stock level
func (s *Store) GetLowStockVariants(ctx context.Context, threshold int) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE stock_quantity <= $1 ORDER BY stock_quantity, id", threshold)
	return variants, err
}

// GetServiceByID retrieves a salon service by ID
func (s *Store) GetServiceByID(ctx context.Context, id int64) (*models.SalonService, error) {
	var svc models.SalonService
	err := s.db.GetContext(ctx, &svc, "SELECT * FROM services WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetActiveServices retrieves all active salon services
func (s *Store) GetActiveServices(ctx context.Context) ([]models.SalonService, error) {
	var services []models.SalonService
	err := s.db.SelectContext(ctx, &services,
		"SELECT * FROM services WHERE is_active = TRUE ORDER BY title")
	return services, err
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetActiveStaff retrieves all active staff users, candidates for booking
// auto-assignment
func (s *Store) GetActiveStaff(ctx context.Context) ([]models.User, error) {
	var staff []models.User
	err := s.db.SelectContext(ctx, &staff,
		"SELECT * FROM users WHERE is_staff = TRUE AND is_active = TRUE ORDER BY id")
	return staff, err
}
