package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache holds JSON read models. It is best effort: a Redis failure turns a
// read into a database load and a write into a no-op.
type Cache struct {
	rdb    *redis.Client
	flight singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) lookup(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		// A payload from an older layout is a miss, not a failure.
		return false, nil
	}

	return true, nil
}

func (c *Cache) store(ctx context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// GetOrSetJSON returns the cached value at key or loads and caches it for ttl.
// Concurrent misses for one key share a single load, which runs detached from
// the cancellation of whichever caller started it. A nil cache always loads.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return load(ctx)
	}

	var hit T
	if ok, err := c.lookup(ctx, key, &hit); err == nil && ok {
		return hit, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		var again T
		if ok, err := c.lookup(ctx, key, &again); err == nil && ok {
			return again, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.store(ctx, key, loaded, ttl)

		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("redis.GetOrSetJSON: unexpected %T for %s", v, key)
	}

	return out, nil
}

func (c *Cache) del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateRaffle drops every read model derived from the raffle.
func (c *Cache) InvalidateRaffle(ctx context.Context, raffleID int64) error {
	return c.del(ctx, KeyRaffleSummary(raffleID), KeyRaffleStatistics(raffleID))
}

func (c *Cache) InvalidateOrder(ctx context.Context, orderID uuid.UUID) error {
	return c.del(ctx, KeyOrder(orderID))
}
