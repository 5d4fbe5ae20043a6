package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/redeem_points.lua
var redeemPointsScript string

//go:embed scripts/release_points.lua
var releasePointsScript string

// Redemption outcomes of the Lua fast path.
const (
	RedeemUncached = -1
	RedeemDenied   = 0
	RedeemOK       = 1
)

type Client struct {
	rdb           *redis.Client
	redeemScript  *redis.Script
	releaseScript *redis.Script
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
		rdb:           rdb,
		redeemScript:  redis.NewScript(redeemPointsScript),
		releaseScript: redis.NewScript(releasePointsScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func loyaltyKey(phone string) string {
	return fmt.Sprintf("loyalty:%s", phone)
}

// TryRedeemPoints runs the guarded decrement against the cached balance.
// RedeemUncached means the caller must fall through to the database check;
// RedeemDenied is a definitive rejection without a database round trip.
func (c *Client) TryRedeemPoints(ctx context.Context, phone string, points int) (int, error) {
	result, err := c.redeemScript.Run(ctx, c.rdb, []string{loyaltyKey(phone)}, points).Result()
	if err != nil {
		return RedeemUncached, fmt.Errorf("redeem points script failed: %w", err)
	}

	outcome, ok := result.(int64)
	if !ok {
		return RedeemUncached, fmt.Errorf("unexpected script result type")
	}

	return int(outcome), nil
}

// ReleasePoints credits a redeemed amount back to the cached balance after
// the database write failed (compensation).
func (c *Client) ReleasePoints(ctx context.Context, phone string, points int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{loyaltyKey(phone)}, points).Result()
	if err != nil {
		return fmt.Errorf("release points script failed: %w", err)
	}

	return nil
}

// SetLoyaltyBalance seeds the cached balance from the database row
func (c *Client) SetLoyaltyBalance(ctx context.Context, phone string, points int, ttl time.Duration) error {
	return c.rdb.Set(ctx, loyaltyKey(phone), points, ttl).Err()
}

// InvalidateLoyaltyBalance drops the cached balance so the next redemption
// reseeds from the database.
func (c *Client) InvalidateLoyaltyBalance(ctx context.Context, phone string) error {
	return c.rdb.Del(ctx, loyaltyKey(phone)).Err()
}

// GetCachedCatalogItem looks up a catalog record in the read-through cache
func (c *Client) GetCachedCatalogItem(ctx context.Context, barcode string) (*models.CatalogItem, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("catalog:%s", barcode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item models.CatalogItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("corrupt catalog cache entry: %w", err)
	}
	return &item, nil
}

// CacheCatalogItem stores a catalog record with TTL
func (c *Client) CacheCatalogItem(ctx context.Context, item *models.CatalogItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("catalog:%s", item.Barcode), data, ttl).Err()
}

// InvalidateCatalogItem drops a catalog record from the cache after a
// quantity change.
func (c *Client) InvalidateCatalogItem(ctx context.Context, barcode string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("catalog:%s", barcode)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey retrieves the value stored under an idempotency key;
// empty when the key is unknown.
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
