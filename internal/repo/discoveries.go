// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for discoveries
// and their vote edges.
//
// The vote helpers deliberately expose delete-then-insert primitives rather
// than a read-then-branch toggle: single-row delete/insert atomicity plus
// the unique index on (discovery_id, student_id) is what makes concurrent
// toggles converge to one well-defined edge state.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// CreateDiscovery inserts a student post with status pending.
func CreateDiscovery(ctx context.Context, db *gorm.DB, d *domain.Discovery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Status = domain.DiscoveryPending
	d.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(d).Error
}

// GetDiscovery fetches a discovery by id, or ErrNotFound.
func GetDiscovery(ctx context.Context, db *gorm.DB, id string) (*domain.Discovery, error) {
	var d domain.Discovery
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListClassDiscoveries returns a class's approved discoveries plus the
// caller's own pending ones, newest first, capped at limit.
func ListClassDiscoveries(ctx context.Context, db *gorm.DB, classID, viewerID string, limit int) ([]domain.Discovery, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Discovery
	err := db.WithContext(ctx).
		Where("class_id = ? AND (status = ? OR student_id = ?)", classID, domain.DiscoveryApproved, viewerID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteVote removes the (discovery, student) edge and reports whether a row
// was actually deleted.
func DeleteVote(ctx context.Context, db *gorm.DB, discoveryID, studentID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("discovery_id = ? AND student_id = ?", discoveryID, studentID).
		Delete(&domain.DiscoveryVote{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateVote inserts the (discovery, student) edge. Returns ErrDuplicate when
// a concurrent request won the race.
func CreateVote(ctx context.Context, db *gorm.DB, discoveryID, studentID string) error {
	v := &domain.DiscoveryVote{
		ID:          uuid.NewString(),
		DiscoveryID: discoveryID,
		StudentID:   studentID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// IncrementHelpful bumps the helpful counter by delta using an atomic SQL
// update. Negative deltas are floored so the counter never drops below zero.
func IncrementHelpful(ctx context.Context, db *gorm.DB, discoveryID string, delta int) error {
	tx := db.WithContext(ctx).Model(&domain.Discovery{}).Where("id = ?", discoveryID)
	if delta < 0 {
		return tx.Where("helpful_count > 0").
			UpdateColumn("helpful_count", gorm.Expr("helpful_count - ?", -delta)).Error
	}
	return tx.UpdateColumn("helpful_count", gorm.Expr("helpful_count + ?", delta)).Error
}

// CountVotes returns the number of vote edges for a discovery. Used by tests
// and moderation views.
func CountVotes(ctx context.Context, db *gorm.DB, discoveryID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DiscoveryVote{}).
		Where("discovery_id = ?", discoveryID).
		Count(&n).Error
	return n, err
}
