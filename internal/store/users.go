package store

import (
	"context"
	"database/sql"
	"time"

	"storefront-service/internal/models"
)

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAgeVerified stores the birth date and flips the one-time verification
// flag. The flag is only ever set by this explicit action; visibility
// checks recompute age from the stored date instead.
func (s *Store) SetAgeVerified(ctx context.Context, userID int64, dateOfBirth time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET date_of_birth = $2, age_verified = TRUE, updated_at = NOW() WHERE id = $1",
		userID, dateOfBirth)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateAddress inserts a shipping address
func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	return s.db.GetContext(ctx, a, `
		INSERT INTO addresses (user_id, line1, line2, city, province, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.UserID, a.Line1, a.Line2, a.City, a.Province, a.PostalCode, a.IsDefault)
}

// ListAddresses lists a user's addresses, default first
func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT * FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at", userID)
	return addresses, err
}

// DeleteAddress removes a user's address
func (s *Store) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDefaultAddressTx marks one address as default and clears the flag on
// every other address for the user, so at most one default remains.
func (s *Store) SetDefaultAddressTx(ctx context.Context, userID, addressID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND id <> $2",
		userID, addressID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2",
		addressID, userID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// CreateReviewTx inserts a review and recomputes the product's aggregate
// rating fields in the same transaction.
func (s *Store) CreateReviewTx(ctx context.Context, r *models.Review) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, r, `
		INSERT INTO reviews (user_id, product_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		r.UserID, r.ProductID, r.Rating, r.Comment)
	if err != nil {
		return err
	}

	if err := recomputeProductRating(ctx, tx, r.ProductID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteReviewTx deletes a user's review of a product and recomputes the
// aggregate rating; after the last review is gone the average drops to 0.
func (s *Store) DeleteReviewTx(ctx context.Context, userID, productID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM reviews WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := recomputeProductRating(ctx, tx, productID); err != nil {
		return err
	}

	return tx.Commit()
}

type execGetter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func recomputeProductRating(ctx context.Context, tx execGetter, productID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = $1), 0),
		    total_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
		    updated_at = NOW()
		WHERE id = $1`, productID)
	return err
}

// ListReviews lists reviews for a product, newest first
func (s *Store) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE product_id = $1 ORDER BY created_at DESC", productID)
	return reviews, err
}

// AddWishlistItem inserts a wishlist row; a duplicate surfaces as a unique
// violation for the caller to map to Conflict.
func (s *Store) AddWishlistItem(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)",
		userID, productID)
	return err
}

// DeleteWishlistItem removes a wishlist row; absent rows are a no-op.
func (s *Store) DeleteWishlistItem(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	return err
}

// ListWishlist lists a user's wishlisted products
func (s *Store) ListWishlist(ctx context.Context, userID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT p.* FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	return products, err
}
