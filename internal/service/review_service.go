package service

import (
	"context"
	"database/sql"
	"errors"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ReviewService handles product reviews. The product's average_rating and
// total_reviews are recomputed inside the same transaction as every
// mutation, so the aggregate always equals the mean of the live rows.
type ReviewService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(st *store.Store) *ReviewService {
	return &ReviewService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// CreateReview adds a review; one per (user, product).
func (s *ReviewService) CreateReview(ctx context.Context, r *models.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return Errf(KindValidation, "rating must be between 1 and 5")
	}

	if _, err := s.store.GetProductByID(ctx, r.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "product not found")
		}
		return WrapInternal(err)
	}

	if err := s.store.CreateReviewTx(ctx, r); err != nil {
		if store.IsUniqueViolation(err) {
			return Errf(KindConflict, "you have already reviewed this product")
		}
		return WrapInternal(err)
	}

	s.logger.Info("Review created",
		zap.Int64("user_id", r.UserID),
		zap.Int64("product_id", r.ProductID),
		zap.Int("rating", r.Rating))
	return nil
}

// DeleteReview removes the user's review of a product; the product average
// drops to the mean of the remaining ratings, or 0 when none remain.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, productID int64) error {
	err := s.store.DeleteReviewTx(ctx, userID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return Errf(KindNotFound, "review not found")
	}
	if err != nil {
		return WrapInternal(err)
	}
	return nil
}

// ListReviews lists a product's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}
