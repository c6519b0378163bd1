// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exempts crisis requests from rate limiting on the Socratic
// coaching route. The safety response must go out even when the caller has
// exhausted a limiter, so both tiers get a crisis escape hatch: the AI policy
// window is wrapped in CrisisBypass, and the global edge bucket consults
// CrisisExempt before rejecting. Both peek the latest user turn the same way.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// socraticRoute is the path suffix the edge-limiter exemption matches on;
// the full route carries the configurable API base path in front of it.
const socraticRoute = "/ai/socratic"

// CrisisExempt builds the edge limiter's exemption predicate: true only when
// the matched route is the Socratic coaching endpoint and the latest user
// turn matches scan. Every other route, and every unpeekable body, stays
// subject to the bucket.
func CrisisExempt(scan func(string) bool) func(*gin.Context) bool {
	return func(c *gin.Context) bool {
		if !strings.HasSuffix(c.FullPath(), socraticRoute) {
			return false
		}
		turn, ok := peekLatestUserTurn(c)
		return ok && scan(turn)
	}
}

// CrisisBypass wraps limit so that requests whose latest user turn matches
// scan skip it entirely. The body is read and restored the same way the
// identity gate does; anything that cannot be peeked (oversized, not JSON,
// no user turn) falls through to the limiter unchanged.
func CrisisBypass(scan func(string) bool, limit gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if turn, ok := peekLatestUserTurn(c); ok && scan(turn) {
			c.Next()
			return
		}
		limit(c)
	}
}

// peekLatestUserTurn reads the request body, restores it, and returns the
// content of the last messages entry with role "user".
func peekLatestUserTurn(c *gin.Context) (string, bool) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return "", false
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdentityBody+1))
	if err != nil || len(raw) > maxIdentityBody {
		return "", false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", false
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content, true
		}
	}
	return "", false
}
