// Package cache provides the Redis-backed read cache for account balances.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
	"clinicledger/pkg/logger"
)

const balanceKeyPrefix = "ledger:balance:"

// setIfGeneration stores a balance only while the account's generation is
// still the one the reader saw before loading it.
var setIfGeneration = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// LookupObserver is notified of every cache read.
type LookupObserver func(hit bool)

// BalanceCache implements ledger.BalanceCache on Redis. Every method
// degrades to a miss or a no-op when Redis is absent or failing; balances are
// always recoverable from the accounts table.
type BalanceCache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	observer LookupObserver
}

var _ ledger.BalanceCache = (*BalanceCache)(nil)

// NewBalanceCache wraps client. A nil client yields a cache that never hits.
func NewBalanceCache(client redis.UniversalClient, ttl time.Duration, observer LookupObserver) *BalanceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BalanceCache{client: client, ttl: ttl, observer: observer}
}

// Connect opens a Redis client and pings it. On failure the client is closed
// and nil is returned with the error, so callers can run without a cache.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Both keys of an account share a hash tag so the script runs on one slot.
func balanceKey(kind ledger.AccountKind) string {
	return balanceKeyPrefix + "{" + string(kind) + "}"
}

func generationKey(kind ledger.AccountKind) string {
	return balanceKey(kind) + ":gen"
}

// Get returns the cached balance. On a miss it returns the account's
// generation for a following Set, or -1 when Redis could not be read.
func (c *BalanceCache) Get(ctx context.Context, kind ledger.AccountKind) (types.MinorUnits, int64, bool) {
	if c == nil || c.client == nil {
		return 0, -1, false
	}
	vals, err := c.client.MGet(ctx, balanceKey(kind), generationKey(kind)).Result()
	if err != nil {
		logger.Debug(ctx, "balance cache read failed", "account", kind, "error", err)
		c.observe(false)
		return 0, -1, false
	}

	generation := int64(0)
	if g, ok := vals[1].(string); ok {
		if generation, err = strconv.ParseInt(g, 10, 64); err != nil {
			c.observe(false)
			return 0, -1, false
		}
	}
	b, ok := vals[0].(string)
	if !ok {
		c.observe(false)
		return 0, generation, false
	}
	balance, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		c.observe(false)
		return 0, generation, false
	}
	c.observe(true)
	return types.MinorUnits(balance), generation, true
}

// Set stores balance unless an Invalidate ran since the Get that returned
// generation.
func (c *BalanceCache) Set(ctx context.Context, kind ledger.AccountKind, balance types.MinorUnits, generation int64) {
	if c == nil || c.client == nil || generation < 0 {
		return
	}
	keys := []string{balanceKey(kind), generationKey(kind)}
	err := setIfGeneration.Run(ctx, c.client, keys, generation, int64(balance), c.ttl.Milliseconds()).Err()
	if err != nil {
		logger.Debug(ctx, "balance cache write failed", "account", kind, "error", err)
	}
}

// Invalidate drops the balances and bumps their generations.
func (c *BalanceCache) Invalidate(ctx context.Context, kinds ...ledger.AccountKind) {
	if c == nil || c.client == nil || len(kinds) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range kinds {
			pipe.Incr(ctx, generationKey(k))
			pipe.Del(ctx, balanceKey(k))
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "balance cache invalidation failed", "accounts", kinds, "error", err)
	}
}

func (c *BalanceCache) observe(hit bool) {
	if c.observer != nil {
		c.observer(hit)
	}
}
