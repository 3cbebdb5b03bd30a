package models

import (
	"time"

	"github.com/lib/pq"
)

// Product represents a catalog product
type Product struct {
	ID            int64          `db:"id" json:"id"`
	Slug          string         `db:"slug" json:"slug"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description"`
	Price         int64          `db:"price" json:"price"`
	DiscountPrice *int64         `db:"discount_price" json:"discount_price,omitempty"`
	Category      string         `db:"category" json:"category"`
	Strain        string         `db:"strain" json:"strain,omitempty"`
	AgeRestricted bool           `db:"age_restricted" json:"age_restricted"`
	Featured      bool           `db:"featured" json:"featured"`
	AverageRating float64        `db:"average_rating" json:"average_rating"`
	TotalReviews  int            `db:"total_reviews" json:"total_reviews"`
	Images        pq.StringArray `db:"images" json:"images"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the discount price when set, otherwise the list price.
func (p *Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}

// Store represents a physical or warehouse location holding inventory
type Store struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StoreInventory is the per-location stock row for a product.
// At most one row exists per (store, product); quantity never goes negative.
type StoreInventory struct {
	StoreID       int64     `db:"store_id" json:"store_id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	LowStockAlert int       `db:"low_stock_alert" json:"low_stock_alert"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is a persisted cart row. At most one row exists per
// (user, product); quantity is always a positive integer.
type CartItem struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CartLine is a cart row joined with its product snapshot for display.
type CartLine struct {
	ProductID     int64   `db:"product_id" json:"product_id"`
	Quantity      int     `db:"quantity" json:"quantity"`
	Name          string  `db:"name" json:"name"`
	Slug          string  `db:"slug" json:"slug"`
	Price         int64   `db:"price" json:"price"`
	DiscountPrice *int64  `db:"discount_price" json:"discount_price,omitempty"`
	Category      string  `db:"category" json:"category"`
	AgeRestricted bool    `db:"age_restricted" json:"age_restricted"`
	Image         *string `db:"image" json:"image,omitempty"`
	TotalStock    int     `db:"total_stock" json:"total_stock"`
}

// EffectivePrice returns the discount price when set, otherwise the list price.
func (l *CartLine) EffectivePrice() int64 {
	if l.DiscountPrice != nil && *l.DiscountPrice > 0 && *l.DiscountPrice < l.Price {
		return *l.DiscountPrice
	}
	return l.Price
}

// Address is a user shipping address; at most one per user is default.
type Address struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Line1      string    `db:"line1" json:"line1"`
	Line2      string    `db:"line2" json:"line2,omitempty"`
	City       string    `db:"city" json:"city"`
	Province   string    `db:"province" json:"province"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Review is a product review; one per (user, product).
type Review struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WishlistItem marks a product saved by a user.
type WishlistItem struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order represents a customer order
type Order struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	TotalAmount      int64     `db:"total_amount" json:"total_amount"`
	Status           string    `db:"status" json:"status"`
	PaymentGateway   string    `db:"payment_gateway" json:"payment_gateway"`
	PaymentReference string    `db:"payment_reference" json:"payment_reference,omitempty"`
	IdempotencyKey   string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable snapshot of a product taken at checkout time.
// It is not a live reference to current product data.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     int64  `db:"order_id" json:"order_id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Payment gateways
const (
	GatewayPayFast  = "payfast"
	GatewayPaystack = "paystack"
)

// ValidGateway reports whether g is a supported payment gateway.
func ValidGateway(g string) bool {
	return g == GatewayPayFast || g == GatewayPaystack
}

// User roles
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
