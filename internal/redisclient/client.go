package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

//go:embed scripts/increment_stock.lua
var incrementStockScript string

// Client wraps Redis for two concerns: a best-effort catalog cache with
// prefix invalidation, and a floor-checked stock mirror used as a fast-path
// pre-check at checkout. Neither is authoritative; the database is.
type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
	incrementScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
		incrementScript: redis.NewScript(incrementStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock writes the stock mirror for a product.
func (c *Client) SetStock(ctx context.Context, productID int64, total int) error {
	return c.rdb.Set(ctx, stockKey(productID), total, 0).Err()
}

// DecrementStock atomically decrements the stock mirror with a floor check.
// Returns (true, nil) on success, (false, nil) when stock is insufficient,
// and an error when the mirror has no entry or Redis fails; callers must
// fall through to the database in the error case.
func (c *Client) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Result()
	if err != nil {
		return false, fmt.Errorf("decrement stock script failed: %w", err)
	}

	status, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	if status == -1 {
		return false, fmt.Errorf("stock mirror missing for product %d", productID)
	}

	return status == 1, nil
}

// IncrementStock atomically returns quantity to the stock mirror
// (compensation after a failed checkout or cancelled payment).
func (c *Client) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := c.incrementScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("increment stock script failed: %w", err)
	}
	return nil
}

// CacheGet loads a cached JSON value into dest. Returns false on a miss.
func (c *Client) CacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// CacheSet stores a JSON value with a TTL.
func (c *Client) CacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// InvalidatePrefix deletes every key matching prefix*. Used whenever the
// rows behind a cached read change.
func (c *Client) InvalidatePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
