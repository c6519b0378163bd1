// Redis-backed rate-limit store.
//
// Horizontally scaled deployments need the window counters shared across
// processes; this store keeps the same fixed-window semantics as
// MemoryStore using INCR + PEXPIRE. Redis unavailability fails open: the
// limiter is a soft throttle and must never take the API down with it.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore implements Store over a shared Redis instance.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore wraps client as a Store. A short per-call timeout keeps a
// slow Redis from stalling the request path.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, timeout: 250 * time.Millisecond}
}

// Check increments key's window counter atomically. The first increment in a
// window attaches the expiry; subsequent calls reuse it, so the window is a
// fixed interval anchored at the first request.
func (s *RedisStore) Check(key string, pol Policy) Result {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rkey := "rl:" + pol.Name + ":" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	ttl := pipe.PTTL(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("component", "ratelimit").Msg("redis check failed, allowing request")
		return Result{Allowed: true, Remaining: pol.MaxRequests - 1, ResetIn: pol.Window}
	}

	n := int(incr.Val())
	resetIn := ttl.Val()
	if resetIn < 0 { // first hit in this window: key has no expiry yet
		resetIn = pol.Window
		if err := s.client.PExpire(ctx, rkey, pol.Window).Err(); err != nil {
			log.Warn().Err(err).Str("component", "ratelimit").Msg("redis expire failed")
		}
	}

	if n > pol.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetIn: resetIn}
	}
	return Result{Allowed: true, Remaining: pol.MaxRequests - n, ResetIn: resetIn}
}
