package store

import (
	"context"
	"fmt"

	"salon-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// orderLine is one locked stock row belonging to an order.
type orderLine struct {
	VariantID     int64 `db:"variant_id"`
	ProductID     int64 `db:"product_id"`
	Quantity      int   `db:"quantity"`
	StockQuantity int   `db:"stock_quantity"`
}

// lockOrderLinesTx locks the variant rows behind every item of an order,
// in ascending variant order to keep concurrent deductions deadlock-free.
func lockOrderLinesTx(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]orderLine, error) {
	var lines []orderLine
	err := tx.SelectContext(ctx, &lines, `
		SELECT oi.variant_id, oi.quantity, v.product_id, v.stock_quantity
		FROM order_items oi
		JOIN product_variants v ON v.id = oi.variant_id
		WHERE oi.order_id = $1
		ORDER BY oi.variant_id
		FOR UPDATE OF v`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock rows for order %d: %w", orderID, err)
	}
	return lines, nil
}

// deductOrderLinesTx validates that every line has sufficient stock before
// deducting any of them. All-or-nothing: a shortfall on any line returns
// InsufficientStockError and leaves every row untouched.
func deductOrderLinesTx(ctx context.Context, tx *sqlx.Tx, lines []orderLine) error {
	for _, line := range lines {
		if line.StockQuantity < line.Quantity {
			return &models.InsufficientStockError{
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Available: line.StockQuantity,
			}
		}
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			UPDATE product_variants
			SET stock_quantity = stock_quantity - $1
			WHERE id = $2 AND stock_quantity >= $1`, line.Quantity, line.VariantID)
		if err != nil {
			return fmt.Errorf("failed to deduct stock for variant %d: %w", line.VariantID, err)
		}
	}

	return refreshAvailabilityTx(ctx, tx, productIDs(lines))
}

// restockOrderLinesTx adds every line's quantity back to its variant.
func restockOrderLinesTx(ctx context.Context, tx *sqlx.Tx, lines []orderLine) error {
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			UPDATE product_variants
			SET stock_quantity = stock_quantity + $1
			WHERE id = $2`, line.Quantity, line.VariantID)
		if err != nil {
			return fmt.Errorf("failed to restock variant %d: %w", line.VariantID, err)
		}
	}

	return refreshAvailabilityTx(ctx, tx, productIDs(lines))
}

// refreshAvailabilityTx recomputes each product's is_available flag from
// its variants' stock. This is the only writer of is_available; it runs in
// the same transaction as every stock mutation so the flag cannot drift.
func refreshAvailabilityTx(ctx context.Context, tx *sqlx.Tx, ids []int64) error {
	for _, productID := range ids {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET is_available = EXISTS (
				SELECT 1 FROM product_variants
				WHERE product_id = $1 AND stock_quantity > 0
			), updated_at = NOW()
			WHERE id = $1`, productID)
		if err != nil {
			return fmt.Errorf("failed to refresh availability for product %d: %w", productID, err)
		}
	}
	return nil
}

func productIDs(lines []orderLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// DeductOrderStock deducts stock for every item of an order in one
// transaction, validating the full item set before touching any row.
func (s *Store) DeductOrderStock(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	lines, err := lockOrderLinesTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if err := deductOrderLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return tx.Commit()
}

// SetVariantStock sets a variant's stock to an absolute quantity (manual
// admin edit) and refreshes product availability in the same transaction.
func (s *Store) SetVariantStock(ctx context.Context, variantID int64, quantity int) error {
	if quantity < 0 {
		return &models.ValidationError{Field: "stock_quantity", Reason: "must not be negative"}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var productID int64
	err = tx.GetContext(ctx, &productID, `
		UPDATE product_variants SET stock_quantity = $1
		WHERE id = $2
		RETURNING product_id`, quantity, variantID)
	if err != nil {
		return models.ErrVariantNotFound
	}

	if err := refreshAvailabilityTx(ctx, tx, []int64{productID}); err != nil {
		return err
	}

	return tx.Commit()
}

// AdjustVariantStock applies a relative stock change, floored at zero, and
// refreshes product availability in the same transaction.
func (s *Store) AdjustVariantStock(ctx context.Context, variantID int64, delta int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var productID int64
	err = tx.GetContext(ctx, &productID, `
		UPDATE product_variants
		SET stock_quantity = GREATEST(0, stock_quantity + $1)
		WHERE id = $2
		RETURNING product_id`, delta, variantID)
	if err != nil {
		return models.ErrVariantNotFound
	}

	if err := refreshAvailabilityTx(ctx, tx, []int64{productID}); err != nil {
		return err
	}

	return tx.Commit()
}
