package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
)

func TestBalanceCache_NilClientNeverHits(t *testing.T) {
	ctx := context.Background()
	c := NewBalanceCache(nil, 0, nil)

	c.Set(ctx, ledger.Optics, types.FromMajor(10), 0)
	_, generation, ok := c.Get(ctx, ledger.Optics)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), generation)
	c.Invalidate(ctx, ledger.Optics, ledger.Main)
}

func TestBalanceCache_UnreachableRedisDegrades(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var lookups []bool
	c := NewBalanceCache(client, time.Minute, func(hit bool) { lookups = append(lookups, hit) })

	c.Set(ctx, ledger.Main, types.FromMajor(5), 0)
	_, generation, ok := c.Get(ctx, ledger.Main)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), generation)
	assert.Equal(t, []bool{false}, lookups)
	c.Invalidate(ctx, ledger.Main)
}

func TestBalanceKey(t *testing.T) {
	assert.Equal(t, "ledger:balance:{optics}", balanceKey(ledger.Optics))
	assert.Equal(t, "ledger:balance:{optics}:gen", generationKey(ledger.Optics))
}
