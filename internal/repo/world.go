// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the world-resource and activity-feed
// helpers that back the reward pipeline; they replace the platform's former
// stored procedures (increment_world_resource, add_to_feed) with atomic SQL
// updates.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// resourceColumns maps a reward type to its counter column. Closed set; an
// unknown type is a caller bug surfaced as an error, not a silent no-op.
var resourceColumns = map[string]string{
	domain.ResourceFlower:  "flowers",
	domain.ResourceTree:    "trees",
	domain.ResourceTower:   "towers",
	domain.ResourceBridge:  "bridges",
	domain.ResourceCrystal: "crystals",
}

// EnsureWorld seeds the student's world-resource row if absent. Idempotent:
// an existing world is never clobbered, which is what makes gateway
// re-approval safe.
func EnsureWorld(ctx context.Context, db *gorm.DB, studentID string) error {
	w := &domain.WorldResource{StudentID: studentID, CreatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		FirstOrCreate(w).Error
	if err != nil && IsDuplicate(err) {
		// Concurrent seeding lost the race; the row exists, which is all
		// this function promises.
		return nil
	}
	return err
}

// IncrementWorldResource adds amount to the student's counter for kind using
// an atomic column update.
func IncrementWorldResource(ctx context.Context, db *gorm.DB, studentID, kind string, amount int) error {
	col, ok := resourceColumns[kind]
	if !ok {
		return fmt.Errorf("unknown resource kind %q", kind)
	}
	if amount <= 0 {
		return fmt.Errorf("resource amount must be positive, got %d", amount)
	}
	res := db.WithContext(ctx).
		Model(&domain.WorldResource{}).
		Where("student_id = ?", studentID).
		UpdateColumn(col, gorm.Expr(col+" + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Student earned a reward before gateway approval seeded the world;
		// seed and retry once.
		if err := EnsureWorld(ctx, db, studentID); err != nil {
			return err
		}
		return db.WithContext(ctx).
			Model(&domain.WorldResource{}).
			Where("student_id = ?", studentID).
			UpdateColumn(col, gorm.Expr(col+" + ?", amount)).Error
	}
	return nil
}

// GetWorld fetches a student's resource counters, or ErrNotFound.
func GetWorld(ctx context.Context, db *gorm.DB, studentID string) (*domain.WorldResource, error) {
	var w domain.WorldResource
	if err := db.WithContext(ctx).Where("student_id = ?", studentID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// AddToFeed appends a class activity line.
func AddToFeed(ctx context.Context, db *gorm.DB, studentID, classID, kind, message string) error {
	e := &domain.FeedEntry{
		ID:        uuid.NewString(),
		StudentID: studentID,
		ClassID:   classID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(e).Error
}

// GrantSecret records a discovered-secret unlock. Granting an already-held
// code is a no-op.
func GrantSecret(ctx context.Context, db *gorm.DB, studentID, code string) error {
	s := &domain.Secret{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if IsDuplicate(err) {
			return nil
		}
		return err
	}
	return nil
}
