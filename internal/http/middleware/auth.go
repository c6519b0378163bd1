// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the identity gate. There is no credential flow: the
// platform trusts the caller-supplied user identifier and the gate's job is
// to (1) find that identifier among the accepted query/body aliases,
// (2) reject anything that is not a well-formed UUID before touching the
// database, and (3) resolve it to a stored user, placing the actor's id,
// role, and class on the request context for handlers and downstream
// middleware (policy limiting keys on the actor id).
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// Gin context keys set by Authenticate.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUserRole = "userRole"
	ctxKeyClassID  = "classID"
)

// maxIdentityBody caps how much of a request body the identity scan will
// read. Bodies beyond the cap fail extraction rather than buffer unbounded.
const maxIdentityBody = 1 << 20

// identityAliases are the accepted JSON body field names for the actor id,
// checked in order. Query parameters accept the camelCase forms.
var identityAliases = []string{
	"studentId", "student_id",
	"userId", "user_id",
	"teacherId", "teacher_id",
}

// IdentityResolver resolves a format-valid identifier to a user record.
// Satisfied by services.AuthService.
type IdentityResolver interface {
	Resolve(ctx context.Context, id string) (*domain.User, error)
}

// UserID returns the authenticated actor's id, or "" when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// UserRole returns the authenticated actor's role, or "" when unauthenticated.
func UserRole(c *gin.Context) string {
	return c.GetString(ctxKeyUserRole)
}

// ClassID returns the actor's class id, or "" when the actor has none.
func ClassID(c *gin.Context) string {
	return c.GetString(ctxKeyClassID)
}

// extractIdentity finds the caller-supplied identifier, trying query
// parameters first and then the JSON body aliases. When the body is read it
// is restored so handlers can bind it again.
func extractIdentity(c *gin.Context) string {
	for _, key := range identityAliases {
		if v := c.Query(key); v != "" {
			return v
		}
	}

	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdentityBody+1))
	if err != nil || len(raw) > maxIdentityBody {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	for _, key := range identityAliases {
		rawVal, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(rawVal, &id); err == nil && id != "" {
			return id
		}
	}
	return ""
}

// Authenticate gates a route group on a resolvable actor identity.
//
// Failure modes are deliberately uniform: a missing identifier, a malformed
// UUID, and an unknown user all produce the same 401 envelope, so callers
// cannot probe which identifiers exist. Malformed ids are rejected before
// the resolver is consulted.
func Authenticate(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := extractIdentity(c)
		if !validate.IsUUID(id) {
			unauthenticated(c)
			return
		}

		u, err := resolver.Resolve(c.Request.Context(), id)
		if err != nil {
			unauthenticated(c)
			return
		}

		c.Set(ctxKeyUserID, u.ID)
		c.Set(ctxKeyUserRole, u.Role)
		if u.ClassID != nil {
			c.Set(ctxKeyClassID, *u.ClassID)
		}
		c.Next()
	}
}

func unauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthenticated",
		"message":    "a valid user identifier is required",
	})
}
