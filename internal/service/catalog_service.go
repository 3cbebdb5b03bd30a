package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const catalogCachePrefix = "catalog:"

// CatalogService serves product browsing and the admin catalog surface.
// Read paths are fronted by a Redis cache keyed under catalogCachePrefix;
// every admin mutation invalidates the whole prefix. Stock totals are
// always read live, never from the cache.
type CatalogService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	cacheTTL       time.Duration
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	cacheTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		cacheTTL:       cacheTTL,
		logger:         util.GetLogger(),
	}
}

// ListProducts lists catalog products for a viewer. Restricted products are
// visible only to signed-in viewers whose age, recomputed from their birth
// date right now, clears the minimum; the persisted verification flag is
// not consulted for visibility.
func (s *CatalogService) ListProducts(ctx context.Context, viewer *models.User, search, category string, featuredOnly bool) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	includeRestricted := viewer != nil && viewer.CanViewRestricted(time.Now())

	cacheKey := fmt.Sprintf("%slist:%t:%s:%s:%t",
		catalogCachePrefix, includeRestricted, category, search, featuredOnly)

	var products []models.Product
	hit, err := s.redis.CacheGet(ctx, cacheKey, &products)
	if err != nil {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	}
	if hit {
		util.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
		return products, nil
	}
	util.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()

	products, err = s.store.ListProducts(ctx, store.ProductFilter{
		Search:            search,
		Category:          category,
		FeaturedOnly:      featuredOnly,
		IncludeRestricted: includeRestricted,
	})
	if err != nil {
		return nil, WrapInternal(err)
	}
	if products == nil {
		products = []models.Product{}
	}

	if err := s.redis.CacheSet(ctx, cacheKey, products, s.cacheTTL); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.Error(err))
	}

	return products, nil
}

// GetProductBySlug returns a product with its live total stock. Restricted
// products are hidden from viewers who fail the recomputed age check.
func (s *CatalogService) GetProductBySlug(ctx context.Context, viewer *models.User, slug string) (*models.Product, int, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProductBySlug")
	defer span.End()

	product, err := s.store.GetProductBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, Errf(KindNotFound, "product not found")
	}
	if err != nil {
		return nil, 0, WrapInternal(err)
	}

	if product.AgeRestricted {
		if viewer == nil || !viewer.CanViewRestricted(time.Now()) {
			return nil, 0, Errf(KindNotFound, "product not found")
		}
	}

	totalStock, err := s.store.TotalStock(ctx, product.ID)
	if err != nil {
		return nil, 0, WrapInternal(err)
	}

	return product, totalStock, nil
}

// CreateProduct inserts a new product (admin). A duplicate slug is Conflict.
func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.Slug == "" || p.Name == "" {
		return Errf(KindValidation, "slug and name are required")
	}
	if p.Price < 0 {
		return Errf(KindValidation, "price must not be negative")
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		if store.IsUniqueViolation(err) {
			return Errf(KindConflict, "a product with slug %q already exists", p.Slug)
		}
		return WrapInternal(err)
	}

	s.invalidateCatalog(ctx, p.ID)
	s.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("slug", p.Slug))
	return nil
}

// UpdateProduct updates a product (admin).
func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "product not found")
		}
		if store.IsUniqueViolation(err) {
			return Errf(KindConflict, "a product with slug %q already exists", p.Slug)
		}
		return WrapInternal(err)
	}

	s.invalidateCatalog(ctx, p.ID)
	return nil
}

// DeleteProduct deletes a product (admin).
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "product not found")
		}
		return WrapInternal(err)
	}

	s.invalidateCatalog(ctx, id)
	return nil
}

// UpsertInventory sets the inventory row for a (store, product) pair
// (admin) and refreshes the Redis stock mirror with the new total.
func (s *CatalogService) UpsertInventory(ctx context.Context, inv *models.StoreInventory) error {
	if inv.Quantity < 0 {
		return Errf(KindValidation, "quantity must not be negative")
	}

	if _, err := s.store.GetProductByID(ctx, inv.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "product not found")
		}
		return WrapInternal(err)
	}

	if err := s.store.UpsertInventory(ctx, inv); err != nil {
		return WrapInternal(err)
	}

	total, err := s.store.TotalStock(ctx, inv.ProductID)
	if err == nil {
		if err := s.redis.SetStock(ctx, inv.ProductID, total); err != nil {
			s.logger.Warn("Failed to refresh stock mirror", zap.Error(err))
		}
	}

	s.invalidateCatalog(ctx, inv.ProductID)
	return nil
}

// ListLowStock lists inventory rows at or below their alert threshold (admin).
func (s *CatalogService) ListLowStock(ctx context.Context) ([]models.StoreInventory, error) {
	rows, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if rows == nil {
		rows = []models.StoreInventory{}
	}
	return rows, nil
}

// ListStoreInventory lists inventory for one store (admin).
func (s *CatalogService) ListStoreInventory(ctx context.Context, storeID int64) ([]models.StoreInventory, error) {
	rows, err := s.store.ListInventoryByStore(ctx, storeID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if rows == nil {
		rows = []models.StoreInventory{}
	}
	return rows, nil
}

// CreateStore creates a store location (admin).
func (s *CatalogService) CreateStore(ctx context.Context, st *models.Store) error {
	if st.Name == "" {
		return Errf(KindValidation, "store name is required")
	}
	if err := s.store.CreateStore(ctx, st); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// ListStores lists store locations.
func (s *CatalogService) ListStores(ctx context.Context) ([]models.Store, error) {
	stores, err := s.store.ListStores(ctx)
	if err != nil {
		return nil, WrapInternal(err)
	}
	return stores, nil
}

// DeleteStore deletes a store location and its inventory (admin).
func (s *CatalogService) DeleteStore(ctx context.Context, id int64) error {
	if err := s.store.DeleteStore(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "store not found")
		}
		return WrapInternal(err)
	}
	s.invalidateCatalog(ctx, 0)
	return nil
}

// InvalidateCache drops all cached catalog reads. Exposed for the worker
// consuming CatalogChanged events from other instances.
func (s *CatalogService) InvalidateCache(ctx context.Context) error {
	return s.redis.InvalidatePrefix(ctx, catalogCachePrefix)
}

func (s *CatalogService) invalidateCatalog(ctx context.Context, productID int64) {
	if err := s.redis.InvalidatePrefix(ctx, catalogCachePrefix); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}

	event := &models.CatalogChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCatalogChanged,
			Timestamp: time.Now(),
		},
		ProductID: productID,
	}
	if err := s.eventPublisher.PublishCatalogChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish CatalogChanged event", zap.Error(err))
	}
}
