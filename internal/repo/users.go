// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides lookups for users and classes; the core
// never creates either.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// GetUser fetches a user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetClass fetches a class by id, or ErrNotFound if missing.
func GetClass(ctx context.Context, db *gorm.DB, id string) (*domain.Class, error) {
	var c domain.Class
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetGatewayComplete flips the student's gateway-complete flag and initial
// tier. The update is idempotent; re-approval simply rewrites the same
// values.
func SetGatewayComplete(ctx context.Context, db *gorm.DB, studentID string, tier int) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", studentID).
		Updates(map[string]any{"gateway_complete": true, "tier": tier}).Error
}
