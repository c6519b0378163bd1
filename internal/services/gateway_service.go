// Package services – GatewayService
//
// This file implements the one-time gateway challenge workflow: a student
// submits exactly one challenge, a teacher reviews it, and approval cascades
// into the world-seed / feed / secret side effects. The submission pre-read
// exists only to produce the friendly "already submitted" answer; under
// concurrent duplicates the unique index on student_id is the authority.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/outbox"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// Initial tier granted when the gateway is approved.
const gatewayTier = 1

// secretGatewayCode is the discovered-secret unlock granted on approval.
const secretGatewayCode = "first_light"

// AlreadySubmittedError carries the existing challenge's status so the API
// can report it instead of a generic conflict.
type AlreadySubmittedError struct {
	Status string
}

// Error implements the error interface.
func (e *AlreadySubmittedError) Error() string { return ErrAlreadySubmitted.Error() }

// Unwrap lets errors.Is match ErrAlreadySubmitted.
func (e *AlreadySubmittedError) Unwrap() error { return ErrAlreadySubmitted }

// GatewaySubmission is the validated input for Submit.
type GatewaySubmission struct {
	Recipient      string
	MessageType    string
	MessagePreview string
	ProofRef       string
	Reflection     string
}

// GatewayService implements the gateway challenge use-cases.
type GatewayService struct {
	DB *gorm.DB
}

// Get returns the student's challenge, or ErrGatewayNotFound.
func (s *GatewayService) Get(ctx context.Context, studentID string) (*domain.GatewayChallenge, error) {
	gc, err := repo.GetGatewayChallenge(ctx, s.DB, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayNotFound
		}
		return nil, err
	}
	return gc, nil
}

// Submit creates the student's one-time challenge.
//
// Validation: recipient, message type, preview, and reflection are required
// bounded strings; the proof reference is optional.
//
// Idempotency: a prior submission yields *AlreadySubmittedError carrying the
// current status, both when detected by the pre-read and when a concurrent
// duplicate loses the insert race.
func (s *GatewayService) Submit(ctx context.Context, studentID string, in GatewaySubmission) (*domain.GatewayChallenge, error) {
	switch {
	case !validate.BoundedString(in.Recipient, 200),
		!validate.BoundedString(in.MessageType, 40),
		!validate.BoundedString(in.MessagePreview, 2000),
		!validate.BoundedString(in.Reflection, 5000):
		return nil, ErrEmptyField
	}
	if in.ProofRef != "" && !validate.BoundedString(in.ProofRef, 500) {
		return nil, ErrEmptyField
	}

	if existing, err := repo.GetGatewayChallenge(ctx, s.DB, studentID); err == nil {
		return nil, &AlreadySubmittedError{Status: existing.Status}
	}

	gc := &domain.GatewayChallenge{
		StudentID:      studentID,
		Recipient:      in.Recipient,
		MessageType:    in.MessageType,
		MessagePreview: in.MessagePreview,
		ProofRef:       in.ProofRef,
		Reflection:     in.Reflection,
	}
	if err := repo.CreateGatewayChallenge(ctx, s.DB, gc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost the race to a concurrent duplicate; report its status.
			if existing, gerr := repo.GetGatewayChallenge(ctx, s.DB, studentID); gerr == nil {
				return nil, &AlreadySubmittedError{Status: existing.Status}
			}
			return nil, &AlreadySubmittedError{Status: domain.GatewayPending}
		}
		return nil, err
	}
	return gc, nil
}

// Review records a teacher's verdict on a student's challenge.
//
// Approval is terminal for this workflow: the status change and the
// student's gateway-complete flag flip commit in one transaction, and the
// world seed, feed line, and secret grant are enqueued as detached jobs in
// that same transaction. A side-effect failure downstream can therefore
// never undo or mask a committed approval, and a later verdict on an
// approved challenge is rejected with ErrGatewayFinal rather than applied.
func (s *GatewayService) Review(ctx context.Context, reviewerID, studentID, status, feedback string) error {
	if status != domain.GatewayApproved && status != domain.GatewayNeedsRevision {
		return ErrInvalidReview
	}
	if status == domain.GatewayNeedsRevision && !validate.BoundedString(feedback, 2000) {
		return ErrEmptyField
	}

	reviewer, err := repo.GetUser(ctx, s.DB, reviewerID)
	if err != nil || reviewer.Role != domain.RoleTeacher {
		return ErrForbidden
	}
	student, err := repo.GetUser(ctx, s.DB, studentID)
	if err != nil {
		return ErrUserNotFound
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.ReviewGatewayChallenge(ctx, tx, studentID, reviewerID, status, feedback); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// No updatable row: either no submission exists or the one
				// that does is already approved and cannot be re-reviewed.
				if existing, gerr := repo.GetGatewayChallenge(ctx, tx, studentID); gerr == nil && existing.Status == domain.GatewayApproved {
					return ErrGatewayFinal
				}
				return ErrGatewayNotFound
			}
			return err
		}
		if status != domain.GatewayApproved {
			return nil
		}

		if err := repo.SetGatewayComplete(ctx, tx, studentID, gatewayTier); err != nil {
			return err
		}

		classID := ""
		if student.ClassID != nil {
			classID = *student.ClassID
		}
		if err := outbox.Enqueue(ctx, tx, domain.JobWorldSeed, outbox.WorldSeedPayload{StudentID: studentID}); err != nil {
			return err
		}
		if err := outbox.Enqueue(ctx, tx, domain.JobFeedEntry, outbox.FeedEntryPayload{
			StudentID: studentID,
			ClassID:   classID,
			Kind:      "gateway_approved",
			Message:   student.DisplayName + " completed the gateway challenge",
		}); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, tx, domain.JobSecretGrant, outbox.SecretGrantPayload{
			StudentID: studentID,
			Code:      secretGatewayCode,
		})
	})
}
