// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case, stable, and machine-readable;
// handlers select the most specific one and pass it to fail() with the
// matching HTTP status. Clients branch on codes, not messages.
package handlers

const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"

	// Domain-specific. Duplicate writes on idempotent resources answer 400
	// with one of these instead of a raw storage error.
	ErrCodeAlreadySubmitted = "already_submitted"
	ErrCodeAlreadyResponded = "already_responded"
	ErrCodeAlreadyApproved  = "already_approved"
	ErrCodeChallengeClosed  = "challenge_closed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeAIUnavailable    = "ai_unavailable"
)
