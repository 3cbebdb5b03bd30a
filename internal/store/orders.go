package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// InsufficientStockError reports a floor-check failure during checkout.
// Available carries the total quantity left so the client can adjust.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}

type stockRow struct {
	StoreID  int64 `db:"store_id"`
	Quantity int   `db:"quantity"`
}

// CreateOrderTx creates an order with its item snapshots, decrements
// store inventory with a floor check, records per-store allocations, and
// clears the user's cart, all in one transaction. Inventory rows are locked
// FOR UPDATE so concurrent checkouts cannot sell below zero.
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	type allocation struct {
		storeID   int64
		productID int64
		quantity  int
	}
	var allocations []allocation

	for _, item := range items {
		var rows []stockRow
		err = tx.SelectContext(ctx, &rows, `
			SELECT store_id, quantity FROM store_inventory
			WHERE product_id = $1 AND quantity > 0
			ORDER BY quantity DESC
			FOR UPDATE`, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to lock inventory: %w", err)
		}

		available := 0
		for _, r := range rows {
			available += r.Quantity
		}
		if available < item.Quantity {
			return &InsufficientStockError{
				ProductID: item.ProductID,
				Available: available,
				Requested: item.Quantity,
			}
		}

		remaining := item.Quantity
		for _, r := range rows {
			if remaining == 0 {
				break
			}
			take := r.Quantity
			if take > remaining {
				take = remaining
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE store_inventory
				SET quantity = quantity - $1, updated_at = NOW()
				WHERE store_id = $2 AND product_id = $3`,
				take, r.StoreID, item.ProductID)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			allocations = append(allocations, allocation{r.StoreID, item.ProductID, take})
			remaining -= take
		}
	}

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, total_amount, status, payment_gateway, payment_reference, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.TotalAmount, order.Status,
		order.PaymentGateway, order.PaymentReference, order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].Quantity, items[i].UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	for _, a := range allocations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_allocations (order_id, store_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)`,
			order.ID, a.storeID, a.productID, a.quantity)
		if err != nil {
			return fmt.Errorf("failed to record allocation: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", order.UserID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return tx.Commit()
}

// RestockOrderTx returns an order's allocated quantities to the stores they
// were taken from, used as compensation when a payment fails.
func (s *Store) RestockOrderTx(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	type allocation struct {
		StoreID   int64 `db:"store_id"`
		ProductID int64 `db:"product_id"`
		Quantity  int   `db:"quantity"`
	}
	var allocations []allocation
	err = tx.SelectContext(ctx, &allocations,
		"SELECT store_id, product_id, quantity FROM order_allocations WHERE order_id = $1", orderID)
	if err != nil {
		return err
	}

	for _, a := range allocations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO store_inventory (store_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET quantity = store_inventory.quantity + EXCLUDED.quantity, updated_at = NOW()`,
			a.StoreID, a.ProductID, a.Quantity)
		if err != nil {
			return fmt.Errorf("failed to restock: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM order_allocations WHERE order_id = $1", orderID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key.
// Returns nil without error when no order matches.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentReference retrieves an order by gateway payment reference
func (s *Store) GetOrderByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE payment_reference = $1 ORDER BY created_at DESC LIMIT 1", reference)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
