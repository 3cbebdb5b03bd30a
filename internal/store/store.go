package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
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

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, used to map duplicate slugs/reviews/wishlist rows to Conflict.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Search            string
	Category          string
	FeaturedOnly      bool
	IncludeRestricted bool
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlug retrieves a product by slug
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE slug = $1", slug)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves products matching the filter. Restricted products
// are excluded unless the filter explicitly includes them.
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE 1=1"
	args := []interface{}{}

	if !filter.IncludeRestricted {
		query += " AND age_restricted = FALSE"
	}
	if filter.FeaturedOnly {
		query += " AND featured = TRUE"
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (name ILIKE $%d OR category ILIKE $%d OR strain ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY featured DESC, name"

	var products []models.Product
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (slug, name, description, price, discount_price, category, strain, age_restricted, featured, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, average_rating, total_reviews, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.Slug, p.Name, p.Description, p.Price, p.DiscountPrice,
		p.Category, p.Strain, p.AgeRestricted, p.Featured, p.Images)
}

// UpdateProduct updates mutable product fields
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET slug = $1, name = $2, description = $3, price = $4, discount_price = $5,
		    category = $6, strain = $7, age_restricted = $8, featured = $9, images = $10,
		    updated_at = NOW()
		WHERE id = $11`,
		p.Slug, p.Name, p.Description, p.Price, p.DiscountPrice,
		p.Category, p.Strain, p.AgeRestricted, p.Featured, p.Images, p.ID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteProduct deletes a product
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TotalStock returns the sum of quantity across all inventory rows for a
// product. A product with no rows has total stock 0; that is not an error.
func (s *Store) TotalStock(ctx context.Context, productID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(quantity), 0) FROM store_inventory WHERE product_id = $1", productID)
	return total, err
}

// TotalStockForProducts returns total stock keyed by product ID.
func (s *Store) TotalStockForProducts(ctx context.Context, ids []int64) (map[int64]int, error) {
	totals := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return totals, nil
	}

	query, args, err := sqlx.In(
		"SELECT product_id, COALESCE(SUM(quantity), 0) AS total FROM store_inventory WHERE product_id IN (?) GROUP BY product_id", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	rows := []struct {
		ProductID int64 `db:"product_id"`
		Total     int   `db:"total"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		totals[r.ProductID] = r.Total
	}
	return totals, nil
}

// UpsertInventory creates or replaces the inventory row for (store, product).
func (s *Store) UpsertInventory(ctx context.Context, inv *models.StoreInventory) error {
	query := `
		INSERT INTO store_inventory (store_id, product_id, quantity, low_stock_alert)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, low_stock_alert = EXCLUDED.low_stock_alert, updated_at = NOW()
		RETURNING updated_at`

	return s.db.GetContext(ctx, &inv.UpdatedAt, query,
		inv.StoreID, inv.ProductID, inv.Quantity, inv.LowStockAlert)
}

// ListInventoryByStore lists inventory rows for one store
func (s *Store) ListInventoryByStore(ctx context.Context, storeID int64) ([]models.StoreInventory, error) {
	var rows []models.StoreInventory
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM store_inventory WHERE store_id = $1 ORDER BY product_id", storeID)
	return rows, err
}

// ListLowStock lists inventory rows at or below their alert threshold
func (s *Store) ListLowStock(ctx context.Context) ([]models.StoreInventory, error) {
	var rows []models.StoreInventory
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM store_inventory WHERE quantity <= low_stock_alert ORDER BY store_id, product_id")
	return rows, err
}

// CreateStore inserts a new store location
func (s *Store) CreateStore(ctx context.Context, st *models.Store) error {
	return s.db.GetContext(ctx, st,
		"INSERT INTO stores (name, address) VALUES ($1, $2) RETURNING id, created_at",
		st.Name, st.Address)
}

// ListStores lists all store locations
func (s *Store) ListStores(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	err := s.db.SelectContext(ctx, &stores, "SELECT * FROM stores ORDER BY id")
	return stores, err
}

// DeleteStore removes a store location and its inventory rows
func (s *Store) DeleteStore(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM stores WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
