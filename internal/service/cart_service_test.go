package service

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCartDiff(t *testing.T) {
	existing := []models.CartItem{
		{UserID: 1, ProductID: 100, Quantity: 1}, // A
		{UserID: 1, ProductID: 200, Quantity: 2}, // B
	}
	desired := []models.CartQuantity{
		{ProductID: 200, Quantity: 3}, // B changes
		{ProductID: 300, Quantity: 1}, // C is new
	}

	diff := ComputeCartDiff(existing, desired)

	assert.Equal(t, []int64{100}, diff.Delete)
	require.Len(t, diff.Update, 1)
	assert.Equal(t, models.CartQuantity{ProductID: 200, Quantity: 3}, diff.Update[0])
	require.Len(t, diff.Create, 1)
	assert.Equal(t, models.CartQuantity{ProductID: 300, Quantity: 1}, diff.Create[0])
}

func TestComputeCartDiffIdempotent(t *testing.T) {
	desired := []models.CartQuantity{
		{ProductID: 200, Quantity: 3},
		{ProductID: 300, Quantity: 1},
	}

	// A cart already matching the desired state produces an empty diff,
	// so a second sync with the same payload performs zero writes.
	existing := []models.CartItem{
		{UserID: 1, ProductID: 200, Quantity: 3},
		{UserID: 1, ProductID: 300, Quantity: 1},
	}

	diff := ComputeCartDiff(existing, desired)
	assert.True(t, diff.Empty())
}

func TestComputeCartDiffEmptyDesired(t *testing.T) {
	existing := []models.CartItem{
		{UserID: 1, ProductID: 100, Quantity: 1},
		{UserID: 1, ProductID: 200, Quantity: 2},
	}

	diff := ComputeCartDiff(existing, nil)

	assert.ElementsMatch(t, []int64{100, 200}, diff.Delete)
	assert.Empty(t, diff.Update)
	assert.Empty(t, diff.Create)
}

func TestComputeCartDiffEmptyExisting(t *testing.T) {
	desired := []models.CartQuantity{
		{ProductID: 100, Quantity: 2},
	}

	diff := ComputeCartDiff(nil, desired)

	assert.Empty(t, diff.Delete)
	assert.Empty(t, diff.Update)
	assert.Equal(t, desired, diff.Create)
}

func TestNormalizeDesired(t *testing.T) {
	items := []models.CartQuantity{
		{ProductID: 100, Quantity: 1},
		{ProductID: 200, Quantity: 2},
		{ProductID: 100, Quantity: 3}, // duplicate merges into the first
		{ProductID: 300, Quantity: 0}, // dropped
		{ProductID: 400, Quantity: -1},
	}

	normalized := NormalizeDesired(items)

	require.Len(t, normalized, 2)
	assert.Equal(t, models.CartQuantity{ProductID: 100, Quantity: 4}, normalized[0])
	assert.Equal(t, models.CartQuantity{ProductID: 200, Quantity: 2}, normalized[1])
}

func TestInsufficientStockError(t *testing.T) {
	err := errInsufficientStock(3)

	// The rejection a short add-to-cart or checkout gets: a validation
	// error carrying the quantity still available.
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "insufficient stock: only 3 available", ClientMessage(err))
}

func TestNormalizeDesiredCancelsOut(t *testing.T) {
	// Duplicates that sum to zero or below drop out entirely.
	items := []models.CartQuantity{
		{ProductID: 100, Quantity: 2},
		{ProductID: 100, Quantity: -2},
	}

	assert.Empty(t, NormalizeDesired(items))
}
