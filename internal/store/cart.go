package store

import (
	"context"

	"storefront-service/internal/models"

	"github.com/lib/pq"
)

// UpsertCartItem adds quantity to the user's cart row for a product,
// creating the row when absent. The increment happens inside the upsert so
// concurrent adds for the same (user, product) cannot lose updates.
// Returns the resulting quantity.
func (s *Store) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (int, error) {
	var result int
	err := s.db.GetContext(ctx, &result, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING quantity`,
		userID, productID, quantity)
	return result, err
}

// SetCartItemQuantity sets the absolute quantity on an existing cart row.
// Returns false when no row exists for (user, product).
func (s *Store) SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE user_id = $1 AND product_id = $2",
		userID, productID, quantity)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeleteCartItem removes a cart row. Removing a row that does not exist is
// a no-op, not an error.
func (s *Store) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	return err
}

// GetCartItems returns the raw persisted cart rows for a user.
func (s *Store) GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at", userID)
	return items, err
}

// ListCartLines returns the user's cart joined with a product snapshot
// (name, price, image, category) and the total stock across all stores.
func (s *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT ci.product_id, ci.quantity,
		       p.name, p.slug, p.price, p.discount_price, p.category, p.age_restricted,
		       (p.images)[1] AS image,
		       COALESCE((SELECT SUM(si.quantity) FROM store_inventory si WHERE si.product_id = ci.product_id), 0)::INTEGER AS total_stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`, userID)
	return lines, err
}

// ClearCart deletes all cart rows for a user.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return err
}

// ApplyCartDiff applies a reconciliation diff in a single transaction:
// bulk delete, per-row updates, bulk insert. Either every phase commits or
// none do, so a failure cannot leave a partially-synced cart.
func (s *Store) ApplyCartDiff(ctx context.Context, userID int64, diff *models.CartDiff) error {
	if diff.Empty() {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(diff.Delete) > 0 {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)",
			userID, pq.Array(diff.Delete))
		if err != nil {
			return err
		}
	}

	for _, u := range diff.Update {
		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE user_id = $1 AND product_id = $2",
			userID, u.ProductID, u.Quantity)
		if err != nil {
			return err
		}
	}

	if len(diff.Create) > 0 {
		ids := make([]int64, len(diff.Create))
		qtys := make([]int64, len(diff.Create))
		for i, c := range diff.Create {
			ids[i] = c.ProductID
			qtys[i] = int64(c.Quantity)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity)
			SELECT $1, unnest($2::BIGINT[]), unnest($3::BIGINT[])`,
			userID, pq.Array(ids), pq.Array(qtys))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
