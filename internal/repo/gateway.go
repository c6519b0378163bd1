// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the one-time
// gateway challenge.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound.
//   - A second insert for the same student surfaces as ErrDuplicate; the
//     unique index on student_id is the authority under races, regardless of
//     any pre-read the service performed.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// GetGatewayChallenge returns the student's challenge row, or ErrNotFound.
func GetGatewayChallenge(ctx context.Context, db *gorm.DB, studentID string) (*domain.GatewayChallenge, error) {
	var gc domain.GatewayChallenge
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&gc).Error
	if err != nil {
		return nil, err
	}
	return &gc, nil
}

// CreateGatewayChallenge inserts the student's one-time challenge with
// status pending. Returns ErrDuplicate when a row already exists.
func CreateGatewayChallenge(ctx context.Context, db *gorm.DB, gc *domain.GatewayChallenge) error {
	if gc.ID == "" {
		gc.ID = uuid.NewString()
	}
	gc.Status = domain.GatewayPending
	gc.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(gc).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ReviewGatewayChallenge records the reviewer's verdict. For approvals the
// completion timestamp is set; for revision requests only the status and
// feedback change. Approved rows are terminal: the WHERE clause excludes
// them so a late or concurrent verdict can never flip one back. Returns
// ErrNotFound when no updatable row exists (the student has no challenge,
// or it is already approved; callers disambiguate with a read).
func ReviewGatewayChallenge(ctx context.Context, db *gorm.DB, studentID, reviewerID, status, feedback string) error {
	updates := map[string]any{
		"status":      status,
		"reviewer_id": reviewerID,
		"feedback":    feedback,
	}
	if status == domain.GatewayApproved {
		updates["completed_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).
		Model(&domain.GatewayChallenge{}).
		Where("student_id = ? AND status <> ?", studentID, domain.GatewayApproved).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
