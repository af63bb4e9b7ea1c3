package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// CreateOrder persists an order together with its line-item snapshots in
// one transaction. There are no partial orders.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, total_amount, status, payment_status,
			payment_method, shipping_address, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.ID, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.ShippingAddress, order.Notes, order.IdempotencyKey); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = order.ID

		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, item.OrderID, item.ProductID, item.Name,
			item.Quantity, item.UnitPrice, item.ImageURL); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order and its line items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil if
// none exists.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", order.ID); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrdersByUser retrieves a buyer's order history, newest first.
func (s *Store) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if err := s.db.SelectContext(ctx, &orders[i].Items,
			"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orders[i].ID); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// MarkCancelled flips an order to cancelled with its cancellation metadata.
// The guard on the current status makes the flip happen at most once, so a
// concurrent or repeated cancellation can never restore stock twice. A paid
// order is marked refunded in the same statement. Returns false when the
// order was already terminal.
func (s *Store) MarkCancelled(ctx context.Context, id, actor, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			status = 'cancelled',
			payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END,
			cancelled_at = NOW(),
			cancelled_by = $2,
			cancellation_reason = NULLIF($3, ''),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'delivered')`,
		id, actor, reason)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateOrderStatus moves an order to the given fulfilment status, stamping
// shipped_at/delivered_at on the matching transitions. Transition validity
// is checked by the caller; the WHERE clause re-checks the expected current
// status to guard against races.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			status = $3,
			shipped_at = CASE WHEN $3 = 'shipped' THEN NOW() ELSE shipped_at END,
			delivered_at = CASE WHEN $3 = 'delivered' THEN NOW() ELSE delivered_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}

// UpdatePaymentStatus updates the payment status independently of
// fulfilment status.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1",
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}

// UpdateTracking applies an allow-listed tracking update.
func (s *Store) UpdateTracking(ctx context.Context, id string, upd models.TrackingUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			carrier = COALESCE($2, carrier),
			tracking_number = COALESCE($3, tracking_number),
			updated_at = NOW()
		WHERE id = $1`,
		id, upd.Carrier, upd.TrackingNumber)
	if err != nil {
		return fmt.Errorf("failed to update tracking: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}
