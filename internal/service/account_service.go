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

// AccountService handles the signed-in customer's profile surface:
// age verification, addresses and wishlist.
type AccountService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(st *store.Store) *AccountService {
	return &AccountService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// GetProfile returns the user's account record.
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Errf(KindNotFound, "user not found")
	}
	if err != nil {
		return nil, WrapInternal(err)
	}
	return user, nil
}

// VerifyAge stores the submitted birth date and sets the one-time verified
// flag, but only when the computed age clears the minimum. An underage
// submission changes nothing.
func (s *AccountService) VerifyAge(ctx context.Context, userID int64, dateOfBirth time.Time) error {
	ctx, span := util.StartSpan(ctx, "AccountService.VerifyAge")
	defer span.End()

	now := time.Now()
	if dateOfBirth.After(now) {
		return Errf(KindValidation, "date of birth is in the future")
	}
	if models.AgeAt(dateOfBirth, now) < models.MinimumAge {
		util.AgeChecksFailedTotal.Inc()
		return Errf(KindValidation, "you must be at least %d years old", models.MinimumAge)
	}

	if err := s.store.SetAgeVerified(ctx, userID, dateOfBirth); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "user not found")
		}
		return WrapInternal(err)
	}

	s.logger.Info("Age verified", zap.Int64("user_id", userID))
	return nil
}

// CreateAddress adds a shipping address. When it is flagged default, every
// other address of the user loses the flag so exactly one remains default.
func (s *AccountService) CreateAddress(ctx context.Context, a *models.Address) error {
	if a.Line1 == "" || a.City == "" {
		return Errf(KindValidation, "line1 and city are required")
	}

	makeDefault := a.IsDefault
	a.IsDefault = false
	if err := s.store.CreateAddress(ctx, a); err != nil {
		return WrapInternal(err)
	}

	if makeDefault {
		if err := s.store.SetDefaultAddressTx(ctx, a.UserID, a.ID); err != nil {
			return WrapInternal(err)
		}
		a.IsDefault = true
	}
	return nil
}

// ListAddresses lists the user's addresses, default first.
func (s *AccountService) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}

// SetDefaultAddress marks one address as default and unsets all others.
func (s *AccountService) SetDefaultAddress(ctx context.Context, userID, addressID int64) error {
	err := s.store.SetDefaultAddressTx(ctx, userID, addressID)
	if errors.Is(err, sql.ErrNoRows) {
		return Errf(KindNotFound, "address not found")
	}
	if err != nil {
		return WrapInternal(err)
	}
	return nil
}

// DeleteAddress removes a user's address.
func (s *AccountService) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	err := s.store.DeleteAddress(ctx, userID, addressID)
	if errors.Is(err, sql.ErrNoRows) {
		return Errf(KindNotFound, "address not found")
	}
	if err != nil {
		return WrapInternal(err)
	}
	return nil
}

// AddToWishlist saves a product; adding it twice is Conflict.
func (s *AccountService) AddToWishlist(ctx context.Context, userID, productID int64) error {
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Errf(KindNotFound, "product not found")
		}
		return WrapInternal(err)
	}

	if err := s.store.AddWishlistItem(ctx, userID, productID); err != nil {
		if store.IsUniqueViolation(err) {
			return Errf(KindConflict, "product already in wishlist")
		}
		return WrapInternal(err)
	}
	return nil
}

// RemoveFromWishlist removes a saved product; absent entries are a no-op.
func (s *AccountService) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	if err := s.store.DeleteWishlistItem(ctx, userID, productID); err != nil {
		return WrapInternal(err)
	}
	return nil
}

// ListWishlist lists the user's saved products.
func (s *AccountService) ListWishlist(ctx context.Context, userID int64) ([]models.Product, error) {
	products, err := s.store.ListWishlist(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}
