package service

import (
	"context"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrderItems(t *testing.T) {
	discount := int64(800)

	lines := []models.CartLine{
		{ProductID: 1, Name: "OG Kush 3.5g", Price: 1000, Quantity: 2},
		{ProductID: 2, Name: "Grinder", Price: 500, DiscountPrice: &discount, Quantity: 1},
	}

	items, total := buildOrderItems(lines)

	require.Len(t, items, 2)
	assert.Equal(t, "OG Kush 3.5g", items[0].ProductName)
	assert.Equal(t, int64(1000), items[0].UnitPrice)
	// Discount wins over list price... but only when it is lower.
	assert.Equal(t, int64(500), items[1].UnitPrice)
	assert.Equal(t, int64(2*1000+1*500), total)
}

func TestBuildOrderItemsDiscountApplied(t *testing.T) {
	discount := int64(750)

	lines := []models.CartLine{
		{ProductID: 1, Name: "Pre-roll pack", Price: 1000, DiscountPrice: &discount, Quantity: 3},
	}

	items, total := buildOrderItems(lines)

	require.Len(t, items, 1)
	assert.Equal(t, int64(750), items[0].UnitPrice)
	assert.Equal(t, int64(3*750), total)
}

func TestBuildOrderItemsEmptyCart(t *testing.T) {
	items, total := buildOrderItems(nil)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestPrecheckStockReleasesOnlyDecremented(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	redis, err := redisclient.NewClient("localhost:6379", "", 0)
	require.NoError(t, err)
	defer redis.Close()

	ctx := context.Background()
	require.NoError(t, redis.SetStock(ctx, 1, 10))
	// Product 2 has no mirror entry, so its pre-check errors and is skipped.

	svc := NewCheckoutService(nil, redis, nil)
	items := []models.OrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}

	decremented, err := svc.precheckStock(ctx, items)
	require.NoError(t, err)
	require.Len(t, decremented, 1)
	assert.Equal(t, int64(1), decremented[0].ProductID)

	svc.releaseMirror(ctx, decremented)

	// Releasing restores product 1 to its full total and leaves the
	// untouched product 2 entry absent.
	ok, err := redis.DecrementStock(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = redis.DecrementStock(ctx, 2, 1)
	assert.Error(t, err)
}
