package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"salon-service/internal/models"

	"github.com/shopspring/decimal"
)

// CreatePaidOrder materializes a verified payment into an order, its
// items, and the matching stock deduction inside a single transaction.
// Stock is re-validated here; any shortfall rolls back everything so no
// order or item row survives a failed deduction.
func (s *Store) CreatePaidOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (
			user_id, full_name, phone, address_line1, address_line2,
			city, postal_code, state, status,
			razorpay_order_id, razorpay_payment_id, razorpay_signature
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.FullName, order.Phone, order.AddressLine1, order.AddressLine2,
		order.City, order.PostalCode, order.State, order.Status,
		order.RazorpayOrderID, order.RazorpayPaymentID, order.RazorpaySignature)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, variant_id, quantity, price_at_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].OrderID, items[i].VariantID, items[i].Quantity, items[i].PriceAtOrder)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	lines, err := lockOrderLinesTx(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	if err := deductOrderLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrdersByUserID retrieves orders for a user, optionally filtered by
// status, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64, status string, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders, `
			SELECT * FROM orders WHERE user_id = $1 AND status = $2
			ORDER BY created_at DESC LIMIT $3 OFFSET $4`, userID, status, limit, offset)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	return orders, err
}

// GetOrders retrieves orders for the admin list, optionally filtered by
// status and a name/phone search term, newest first
func (s *Store) GetOrders(ctx context.Context, status, search string, limit, offset int) ([]models.Order, error) {
	query := "SELECT * FROM orders"
	var where []string
	var args []interface{}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// GetVariantBasePrices maps variant id to the live, undiscounted price for
// every item on an order. Used for the derived total-discount figure only;
// never for charging.
func (s *Store) GetVariantBasePrices(ctx context.Context, orderID int64) (map[int64]decimal.Decimal, error) {
	var rows []struct {
		VariantID int64           `db:"variant_id"`
		Price     decimal.Decimal `db:"price"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT v.id AS variant_id, v.price
		FROM order_items oi
		JOIN product_variants v ON v.id = oi.variant_id
		WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}

	prices := make(map[int64]decimal.Decimal, len(rows))
	for _, row := range rows {
		prices[row.VariantID] = row.Price
	}
	return prices, nil
}

// SetOrderStatus updates an order's status
func (s *Store) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// ConfirmOrder deducts stock for every item and moves the order to
// newStatus in one transaction. A shortfall on any item aborts the whole
// confirmation; nothing is deducted and the status is unchanged.
func (s *Store) ConfirmOrder(ctx context.Context, orderID int64, newStatus string) error {
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

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		newStatus, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return tx.Commit()
}

// CancelOrder transitions an order to CANCELLED and restores its stock
// exactly once. Repeat calls are absorbed as no-ops: the status check
// makes cancellation idempotent, and was_restocked independently guards
// the restock so no sequence of calls can double-restore inventory.
// Status, cancelled_by_customer and was_restocked persist atomically.
// The first return value reports whether this call performed the
// cancellation.
func (s *Store) CancelOrder(ctx context.Context, orderID int64, byCustomer bool) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return false, models.ErrOrderNotFound
	}
	if err != nil {
		return false, err
	}

	if order.Status == models.OrderStatusCancelled {
		return false, nil
	}

	// PENDING orders never had stock deducted, so there is nothing to
	// return for them.
	restocked := order.WasRestocked
	if !order.WasRestocked && order.Status != models.OrderStatusPending {
		lines, err := lockOrderLinesTx(ctx, tx, orderID)
		if err != nil {
			return false, err
		}
		if err := restockOrderLinesTx(ctx, tx, lines); err != nil {
			return false, err
		}
		restocked = true
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, cancelled_by_customer = $2, was_restocked = $3, updated_at = NOW()
		WHERE id = $4`,
		models.OrderStatusCancelled, byCustomer, restocked, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return true, tx.Commit()
}
