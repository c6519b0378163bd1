// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the process-local edge limiter: a per-identity
// token bucket sitting in front of the whole API surface. It exists for
// abuse control only; the per-route fixed-window policies enforced deeper
// in the chain are the product-level limits. Buckets live in an in-process
// map with opportunistic eviction of idle entries.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket. The key must
// be stable for the duration of a request, e.g. "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the client address. The edge limiter sits
// before the identity gate, so the IP is the only identity available to it;
// the actor-keyed windows are the per-group policies deeper in the chain.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// bucket holds one identity's limiter and its last activity time.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// EdgeLimiter is a per-key token-bucket limiter. Buckets are created on
// demand; idle buckets are evicted after a TTL during lookups so the map
// stays bounded. Safe for concurrent use.
type EdgeLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	// Exempt, when set, is consulted only after the bucket denies a request;
	// a true result lets the request through anyway. Used to keep the crisis
	// path on the coaching route reachable from an exhausted bucket.
	Exempt func(*gin.Context) bool

	mu      sync.Mutex
	buckets map[string]*bucket

	ttl     time.Duration
	lookups uint64
}

// NewEdgeLimiter builds an EdgeLimiter with rps tokens per second and the
// given burst, keyed by keyFn. A burst <= 0 is coerced to 1.
func NewEdgeLimiter(rps float64, burst int, keyFn keyFunc) *EdgeLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &EdgeLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// get returns the limiter for key, creating it if absent. Eviction runs
// before the lookup so a stale entry for the requested key is replaced
// rather than refreshed.
func (el *EdgeLimiter) get(key string) *rate.Limiter {
	now := time.Now()

	el.mu.Lock()
	el.lookups++
	if el.lookups >= 5000 {
		for k, b := range el.buckets {
			if now.Sub(b.lastSeen) >= el.ttl {
				delete(el.buckets, k)
			}
		}
		el.lookups = 0
	}

	if b, ok := el.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		el.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(el.rps, el.burst)
	el.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	el.mu.Unlock()
	return lim
}

// Handler enforces the bucket on each request. Rejections use the same JSON
// envelope as the rest of the API:
//
//	HTTP/1.1 429 Too Many Requests
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
func (el *EdgeLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if el.get(el.keyFn(c)).Allow() {
			c.Next()
			return
		}
		if el.Exempt != nil && el.Exempt(c) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
