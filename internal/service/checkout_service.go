package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutService turns the current cart snapshot into an order. Stock is
// decremented with a floor check inside the order transaction; the Redis
// stock mirror is only a fast-path pre-check and never authoritative.
type CheckoutService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest carries the gateway handoff data for order creation. The
// payment reference comes from the gateway redirect; it is stored, not
// validated here.
type CheckoutRequest struct {
	Gateway          string `json:"gateway" binding:"required"`
	PaymentReference string `json:"payment_reference"`
	IdempotencyKey   string `json:"idempotency_key,omitempty"`
}

// CheckoutResponse is returned after order creation
type CheckoutResponse struct {
	OrderID     int64  `json:"order_id"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
}

// Checkout creates an order from the user's cart: validates the gateway and
// age gating, snapshots product name and effective price into order items,
// decrements inventory with a floor check, and clears the cart, all behind
// an idempotency key.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	if !models.ValidGateway(req.Gateway) {
		util.OrdersFailedTotal.WithLabelValues("invalid_gateway").Inc()
		return nil, Errf(KindValidation, "unsupported payment gateway %q", req.Gateway)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, WrapInternal(err)
		}
		if existing != nil {
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return &CheckoutResponse{
				OrderID:     existing.ID,
				Status:      existing.Status,
				TotalAmount: existing.TotalAmount,
			}, nil
		}
	}

	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if len(lines) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, Errf(KindValidation, "cart is empty")
	}

	if err := s.checkAgeGate(ctx, userID, lines); err != nil {
		util.OrdersFailedTotal.WithLabelValues("age_gate").Inc()
		return nil, err
	}

	items, total := buildOrderItems(lines)

	decremented, err := s.precheckStock(ctx, items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	order := &models.Order{
		UserID:           userID,
		TotalAmount:      total,
		Status:           models.OrderStatusPending,
		PaymentGateway:   req.Gateway,
		PaymentReference: req.PaymentReference,
		IdempotencyKey:   req.IdempotencyKey,
	}

	start := time.Now()
	err = s.store.CreateOrderTx(ctx, order, items)
	util.StockDecrementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.releaseMirror(ctx, decremented)

		var stockErr *store.InsufficientStockError
		if errors.As(err, &stockErr) {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, errInsufficientStock(stockErr.Available)
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, WrapInternal(err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total", total),
		zap.String("gateway", req.Gateway))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:        order.ID,
		UserID:         order.UserID,
		TotalAmount:    order.TotalAmount,
		PaymentGateway: order.PaymentGateway,
		Items:          eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}, nil
}

// buildOrderItems snapshots cart lines into immutable order items, using
// the discount price when one is set, and returns the order total.
func buildOrderItems(lines []models.CartLine) ([]models.OrderItem, int64) {
	items := make([]models.OrderItem, 0, len(lines))
	var total int64
	for _, line := range lines {
		price := line.EffectivePrice()
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
		})
		total += price * int64(line.Quantity)
	}
	return items, total
}

// checkAgeGate re-applies the add-time age rule across the whole cart.
func (s *CheckoutService) checkAgeGate(ctx context.Context, userID int64, lines []models.CartLine) error {
	restricted := false
	for _, line := range lines {
		if line.AgeRestricted {
			restricted = true
			break
		}
	}
	if !restricted {
		return nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return WrapInternal(err)
	}
	if !user.AgeVerified {
		util.AgeChecksFailedTotal.Inc()
		return Errf(KindForbidden, "age verification required to purchase restricted products")
	}
	return nil
}

// precheckStock runs the Redis fast-path floor check and returns the items
// it actually decremented in the mirror; the caller must release exactly
// that subset on failure. Mirror errors skip the item and fall through
// silently since the database transaction enforces the floor anyway; a
// definite "insufficient" answer fails fast with the live total.
func (s *CheckoutService) precheckStock(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	decremented := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		ok, err := s.redis.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Warn("Stock mirror precheck unavailable, relying on database",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		if !ok {
			s.releaseMirror(ctx, decremented)
			available, totalErr := s.store.TotalStock(ctx, item.ProductID)
			if totalErr != nil {
				available = 0
			}
			return nil, errInsufficientStock(available)
		}
		decremented = append(decremented, item)
	}
	return decremented, nil
}

// releaseMirror returns quantities to the stock mirror after a failure.
func (s *CheckoutService) releaseMirror(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		if err := s.redis.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Warn("Failed to release stock mirror",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

// HandlePaymentNotification applies an asynchronous gateway notify callback
// to its order, exactly once per event. Success confirms the order as PAID;
// failure cancels it and restocks the allocated inventory.
func (s *CheckoutService) HandlePaymentNotification(ctx context.Context, event *models.PaymentNotifiedEvent) error {
	ctx, span := util.StartSpan(ctx, "CheckoutService.HandlePaymentNotification")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return WrapInternal(err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := s.store.GetOrderByID(ctx, event.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return Errf(KindNotFound, "order not found")
	}
	if err != nil {
		return WrapInternal(err)
	}

	if order.Status != models.OrderStatusPending {
		s.logger.Info("Payment notification for non-pending order ignored",
			zap.Int64("order_id", order.ID),
			zap.String("status", order.Status))
		return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	if event.Success {
		if err := s.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPaid); err != nil {
			return WrapInternal(err)
		}
		util.OrdersPaidTotal.Inc()
		s.logger.Info("Order paid",
			zap.Int64("order_id", order.ID),
			zap.String("reference", event.Reference))

		paid := &models.OrderPaidEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPaid,
				Timestamp: time.Now(),
			},
			OrderID:   order.ID,
			UserID:    order.UserID,
			Amount:    order.TotalAmount,
			Reference: event.Reference,
		}
		if err := s.eventPublisher.PublishOrderPaid(ctx, paid); err != nil {
			s.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
		}
	} else {
		items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
		if err != nil {
			return WrapInternal(err)
		}

		if err := s.store.RestockOrderTx(ctx, order.ID); err != nil {
			return WrapInternal(err)
		}
		for _, item := range items {
			if err := s.redis.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.logger.Warn("Failed to restock mirror",
					zap.Int64("product_id", item.ProductID),
					zap.Error(err))
			}
		}

		if err := s.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
			return WrapInternal(err)
		}
		util.OrdersCancelledTotal.Inc()
		s.logger.Warn("Order cancelled after failed payment",
			zap.Int64("order_id", order.ID),
			zap.String("reason", event.Reason))

		cancelled := &models.OrderCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCancelled,
				Timestamp: time.Now(),
			},
			OrderID: order.ID,
			Reason:  event.Reason,
		}
		if err := s.eventPublisher.PublishOrderCancelled(ctx, cancelled); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}

	return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// ResolveNotification maps a raw gateway callback to an order and publishes
// it as a PaymentNotified event for the worker to consume.
func (s *CheckoutService) ResolveNotification(ctx context.Context, gateway, reference string, amount int64, success bool, reason string) error {
	if !models.ValidGateway(gateway) {
		return Errf(KindValidation, "unsupported payment gateway %q", gateway)
	}
	if reference == "" {
		return Errf(KindValidation, "payment reference is required")
	}

	order, err := s.store.GetOrderByPaymentReference(ctx, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return Errf(KindNotFound, "no order for payment reference")
	}
	if err != nil {
		return WrapInternal(err)
	}

	event := &models.PaymentNotifiedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentNotified,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		Gateway:   gateway,
		Reference: reference,
		Amount:    amount,
		Success:   success,
		Reason:    reason,
	}
	if err := s.eventPublisher.PublishPaymentNotified(ctx, event); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// GetOrder retrieves an order with its items. Customers can only read
// their own orders.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID int64, isAdmin bool) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, Errf(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, nil, WrapInternal(err)
	}

	if !isAdmin && order.UserID != userID {
		return nil, nil, Errf(KindForbidden, "not your order")
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, WrapInternal(err)
	}

	return order, items, nil
}

// ListOrders lists a user's orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus sets an order's status (admin).
func (s *CheckoutService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if !models.ValidOrderStatus(status) {
		return Errf(KindValidation, "invalid order status %q", status)
	}

	if _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "order not found")
		}
		return WrapInternal(err)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// SyncStockMirror seeds the Redis stock mirror with live totals for every
// product, run at startup. A short distributed lock keeps concurrent
// replicas from all seeding at once.
func (s *CheckoutService) SyncStockMirror(ctx context.Context) error {
	acquired, err := s.redis.AcquireLock(ctx, "stock-mirror-sync", 30*time.Second)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Info("Stock mirror sync already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, "stock-mirror-sync"); err != nil {
			s.logger.Warn("Failed to release stock mirror sync lock", zap.Error(err))
		}
	}()

	products, err := s.store.ListProducts(ctx, store.ProductFilter{IncludeRestricted: true})
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}

	// Products with no inventory rows are absent from the map and seed as 0.
	totals, err := s.store.TotalStockForProducts(ctx, ids)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.redis.SetStock(ctx, id, totals[id]); err != nil {
			s.logger.Error("Failed to seed stock mirror",
				zap.Int64("product_id", id),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock mirror synced", zap.Int("count", len(ids)))
	return nil
}
