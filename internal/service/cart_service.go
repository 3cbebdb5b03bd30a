package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartService handles the per-user cart: add/update/remove/list/clear plus
// reconciliation of a client-submitted desired state (guest cart sync).
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store) *CartService {
	return &CartService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// AddItem adds quantity to the user's cart row for a product, creating it
// when absent. Stock is checked informatively against the newly requested
// quantity, not cumulative with what is already in the cart; nothing is
// reserved. Age-restricted products require the persisted verification flag.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (int, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		util.CartAddsRejectedTotal.WithLabelValues("invalid_quantity").Inc()
		return 0, Errf(KindValidation, "quantity must be at least 1")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		util.CartAddsRejectedTotal.WithLabelValues("not_found").Inc()
		return 0, Errf(KindNotFound, "product not found")
	}
	if err != nil {
		return 0, WrapInternal(err)
	}

	if product.AgeRestricted {
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return 0, WrapInternal(err)
		}
		if !user.AgeVerified {
			util.CartAddsRejectedTotal.WithLabelValues("age_gate").Inc()
			util.AgeChecksFailedTotal.Inc()
			return 0, Errf(KindForbidden, "age verification required for this product")
		}
	}

	totalStock, err := s.store.TotalStock(ctx, productID)
	if err != nil {
		return 0, WrapInternal(err)
	}
	if totalStock < quantity {
		util.CartAddsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return 0, errInsufficientStock(totalStock)
	}

	result, err := s.store.UpsertCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return 0, WrapInternal(err)
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Info("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", result))
	return result, nil
}

// UpdateItem sets the absolute quantity on a cart row. A non-positive
// quantity deletes the row instead of retaining it at zero.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer span.End()

	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	updated, err := s.store.SetCartItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return WrapInternal(err)
	}
	if !updated {
		return Errf(KindNotFound, "item not in cart")
	}
	return nil
}

// RemoveItem deletes a cart row. Removing an item that is not in the cart
// is a no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	if err := s.store.DeleteCartItem(ctx, userID, productID); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// ListItems returns the cart joined with product snapshots for display.
func (s *CartService) ListItems(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

// Clear deletes all cart rows for the user.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// Sync makes the persisted cart exactly match the desired item list. Used
// when a guest session authenticates and its local cart replaces the
// server-side one. The diff is computed deterministically and applied in a
// single transaction, so syncing the same list twice performs zero writes
// on the second run.
func (s *CartService) Sync(ctx context.Context, userID int64, desired []models.CartQuantity) error {
	ctx, span := util.StartSpan(ctx, "CartService.Sync")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CartSyncLatency.Observe(time.Since(start).Seconds())
	}()

	existing, err := s.store.GetCartItems(ctx, userID)
	if err != nil {
		return WrapInternal(err)
	}

	diff := ComputeCartDiff(existing, NormalizeDesired(desired))
	if diff.Empty() {
		s.logger.Debug("Cart already in sync", zap.Int64("user_id", userID))
		util.CartSyncsTotal.Inc()
		return nil
	}

	if err := s.store.ApplyCartDiff(ctx, userID, diff); err != nil {
		return WrapInternal(err)
	}

	util.CartSyncsTotal.Inc()
	util.CartSyncWritesTotal.WithLabelValues("delete").Add(float64(len(diff.Delete)))
	util.CartSyncWritesTotal.WithLabelValues("update").Add(float64(len(diff.Update)))
	util.CartSyncWritesTotal.WithLabelValues("create").Add(float64(len(diff.Create)))

	s.logger.Info("Cart synced",
		zap.Int64("user_id", userID),
		zap.Int("deleted", len(diff.Delete)),
		zap.Int("updated", len(diff.Update)),
		zap.Int("created", len(diff.Create)))
	return nil
}

// errInsufficientStock is the client-facing rejection shared by the cart
// add check and the checkout pre-check; it always carries the quantity
// still available.
func errInsufficientStock(available int) *Error {
	return Errf(KindValidation, "insufficient stock: only %d available", available)
}

// NormalizeDesired collapses a client-submitted item list into one entry
// per product: duplicate product IDs are merged by summing quantities and
// non-positive quantities are dropped. Order of first appearance is kept
// so the resulting diff is deterministic.
func NormalizeDesired(items []models.CartQuantity) []models.CartQuantity {
	index := make(map[int64]int, len(items))
	normalized := make([]models.CartQuantity, 0, len(items))

	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			normalized[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(normalized)
		normalized = append(normalized, item)
	}

	filtered := normalized[:0]
	for _, item := range normalized {
		if item.Quantity > 0 {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// ComputeCartDiff computes the minimal write set that transforms the
// existing cart rows into the desired state: rows absent from desired are
// deleted, rows present in both with a different quantity are updated, and
// desired rows with no existing counterpart are created.
func ComputeCartDiff(existing []models.CartItem, desired []models.CartQuantity) *models.CartDiff {
	existingByID := make(map[int64]int, len(existing))
	for _, item := range existing {
		existingByID[item.ProductID] = item.Quantity
	}

	desiredByID := make(map[int64]struct{}, len(desired))
	diff := &models.CartDiff{}

	for _, want := range desired {
		desiredByID[want.ProductID] = struct{}{}
		current, ok := existingByID[want.ProductID]
		switch {
		case !ok:
			diff.Create = append(diff.Create, want)
		case current != want.Quantity:
			diff.Update = append(diff.Update, want)
		}
	}

	for _, item := range existing {
		if _, ok := desiredByID[item.ProductID]; !ok {
			diff.Delete = append(diff.Delete, item.ProductID)
		}
	}

	return diff
}
