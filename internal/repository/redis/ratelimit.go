package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per hit scored by its arrival in
// milliseconds. Hits older than the window are trimmed before counting, and a
// rejected hit is removed again so that it does not extend the penalty.
//
// KEYS[1] window key; ARGV: now_ms, window_ms, limit, member.
// Returns {allowed, hits, retry_ms}.
var slidingWindow = redis.NewScript(`
local now, window, limit = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local hits = redis.call('ZCARD', KEYS[1])
if hits >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then retry = tonumber(oldest[2]) + window - now end
  if retry < 1 then retry = 1 end
  return {0, hits, retry}
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, hits + 1, 0}
`)

// Decision is the limiter's verdict for one hit.
type Decision struct {
	Allowed    bool
	Hits       int64
	RetryAfter time.Duration
}

// SlidingWindowLimiter allows limit hits per window for every client under a
// scope, e.g. "carts".
type SlidingWindowLimiter struct {
	rdb    redis.Scripter
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewSlidingWindowLimiter(rdb redis.Scripter, scope string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  KeyRateLimit(scope),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for client and reports whether it fits the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	res, err := slidingWindow.Run(ctx, l.rdb,
		[]string{l.scope + ":" + client},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	return decodeDecision(res)
}

func decodeDecision(res []int64) (Decision, error) {
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis.SlidingWindowLimiter: unexpected script reply %v", res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Hits:       res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
