package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ledger:balance:acct-1", key("acct-1"))
}

func TestNopAlwaysMisses(t *testing.T) {
	var c BalanceCache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", decimal.NewFromInt(10)))
	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "a", "b"))
}

func TestRedisUnavailableReturnsError(t *testing.T) {
	// Nothing listens on port 1; the client must fail fast rather than hang.
	c := NewRedisBalanceCache("127.0.0.1:1", "", time.Second)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok, err := c.Get(ctx, "a")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, "a", decimal.NewFromInt(1)))
	assert.NoError(t, c.Invalidate(ctx))
}
