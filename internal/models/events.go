package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderPaid       = "ORDER_PAID"
	EventTypeOrderCancelled  = "ORDER_CANCELLED"
	EventTypePaymentNotified = "PAYMENT_NOTIFIED"
	EventTypeCatalogChanged  = "CATALOG_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout creates an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID        int64           `json:"order_id"`
	UserID         int64           `json:"user_id"`
	TotalAmount    int64           `json:"total_amount"`
	PaymentGateway string          `json:"payment_gateway"`
	Items          []OrderItemData `json:"items"`
}

// PaymentNotifiedEvent carries an asynchronous gateway notify callback.
// Success is whatever the gateway reported; the notify handler does not
// validate the payment beyond matching the reference to an order.
type PaymentNotifiedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	Gateway   string `json:"gateway"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

// OrderPaidEvent published once a payment notification confirms an order
type OrderPaidEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	UserID    int64  `json:"user_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// OrderCancelledEvent published when a failed payment cancels an order
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// CatalogChangedEvent published when admin mutations touch products or
// inventory, so cached catalog reads can be invalidated.
type CatalogChangedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id,omitempty"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
