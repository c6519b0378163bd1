// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file applies the named fixed-window rate policies to route groups.
// Unlike the edge token bucket in ratelimit.go, these are the product-level
// limits: each group is keyed by the authenticated actor (falling back to
// client IP before authentication) and scoped by policy name, so the same
// user consumes independent windows on AI, standard, and write routes.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/ratelimit"
)

// PolicyLimit enforces policy against store for every request in the group.
// Denials carry Retry-After (seconds, rounded up) alongside the standard
// envelope; X-RateLimit-Remaining is set on every response.
func PolicyLimit(store ratelimit.Store, policy ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := UserID(c)
		if actor == "" {
			actor = "ip:" + c.ClientIP()
		}

		res := store.Check(policy.Name+":"+actor, policy)

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if res.Allowed {
			c.Next()
			return
		}

		retryAfter := int(res.ResetIn / time.Second)
		if res.ResetIn%time.Second != 0 {
			retryAfter++
		}
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded, retry in " + strconv.Itoa(retryAfter) + "s",
		})
	}
}
