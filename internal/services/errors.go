// Package services defines the business logic for the gateway challenge,
// discoveries, teacher challenges, the journal aggregator, and the AI coach.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

// Auth-related errors.
var (
	// ErrUserNotFound indicates the supplied identifier resolved to no user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoClass is returned when an operation requires class membership and
	// the user has none.
	ErrNoClass = errors.New("user has no class")

	// ErrForbidden covers actor/subject mismatches and missing roles.
	ErrForbidden = errors.New("forbidden")
)

// Gateway errors.
var (
	// ErrGatewayNotFound indicates the student has no gateway challenge yet.
	ErrGatewayNotFound = errors.New("gateway challenge not found")

	// ErrAlreadySubmitted is returned on a second gateway submission for the
	// same student. The carried status lives on the AlreadySubmittedError
	// wrapper returned alongside it.
	ErrAlreadySubmitted = errors.New("gateway challenge already submitted")

	// ErrInvalidReview is returned when a review verdict is neither approved
	// nor needs_revision.
	ErrInvalidReview = errors.New("review status must be approved or needs_revision")

	// ErrGatewayFinal is returned when a review targets an already approved
	// challenge. Approval is a one-way transition; no later verdict may undo
	// it or the rewards it has already cascaded.
	ErrGatewayFinal = errors.New("gateway challenge already approved")
)

// Discovery errors.
var (
	// ErrDiscoveryNotFound indicates the discovery does not exist or is not
	// visible to the caller.
	ErrDiscoveryNotFound = errors.New("discovery not found")
)

// Challenge errors.
var (
	// ErrChallengeNotFound indicates the teacher challenge does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeInactive is returned when responding to a closed challenge.
	ErrChallengeInactive = errors.New("challenge is not active")

	// ErrAlreadyResponded is returned when the (challenge, student) pair
	// already has a response.
	ErrAlreadyResponded = errors.New("already responded to this challenge")

	// ErrNotClassTeacher is returned when a teacher-scoped mutation is
	// attempted by someone other than the class's own teacher.
	ErrNotClassTeacher = errors.New("not the teacher of this class")
)

// Input errors shared across services.
var (
	// ErrEmptyField is returned when a required bounded string is missing or
	// exceeds its limit.
	ErrEmptyField = errors.New("required field missing or too long")
)
