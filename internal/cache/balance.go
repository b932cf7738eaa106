// Package cache holds the best-effort redis balance cache.
//
// Cached balances are for display only. Policy checks always derive the
// balance from the ledger inside their write transaction.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const namespace = "ledger:balance"

// BalanceCache is a read-through cache of derived account balances.
type BalanceCache interface {
	Get(ctx context.Context, account string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, account string, balance decimal.Decimal) error
	Invalidate(ctx context.Context, accounts ...string) error
	Close() error
}

// RedisBalanceCache stores balances as decimal strings under ledger:balance:<account>.
type RedisBalanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisBalanceCache connects to a single redis node.
func NewRedisBalanceCache(addr, password string, ttl time.Duration) *RedisBalanceCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  250 * time.Millisecond,
		WriteTimeout: 250 * time.Millisecond,
	})
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func key(account string) string {
	return namespace + ":" + account
}

// Get returns the cached balance. A miss is (zero, false, nil).
func (c *RedisBalanceCache) Get(ctx context.Context, account string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, key(account)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read cached balance: %w", err)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// Corrupt entry: treat as a miss and let the caller overwrite it.
		return decimal.Zero, false, nil
	}
	return d, true, nil
}

// Set stores balance with the configured TTL.
func (c *RedisBalanceCache) Set(ctx context.Context, account string, balance decimal.Decimal) error {
	if err := c.client.Set(ctx, key(account), balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// Invalidate drops the cached balances of accounts.
func (c *RedisBalanceCache) Invalidate(ctx context.Context, accounts ...string) error {
	if len(accounts) == 0 {
		return nil
	}
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = key(a)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balance: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

// Nop is used when no redis address is configured. Every read is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) (decimal.Decimal, bool, error) { return decimal.Zero, false, nil }
func (Nop) Set(context.Context, string, decimal.Decimal) error { return nil }
func (Nop) Invalidate(context.Context, ...string) error { return nil }
func (Nop) Close() error { return nil }
