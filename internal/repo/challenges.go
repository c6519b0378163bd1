// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for teacher
// challenges and their responses.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// CreateTeacherChallenge inserts a class challenge.
func CreateTeacherChallenge(ctx context.Context, db *gorm.DB, tc *domain.TeacherChallenge) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	tc.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(tc).Error
}

// GetTeacherChallenge fetches one challenge by id, or ErrNotFound.
func GetTeacherChallenge(ctx context.Context, db *gorm.DB, id string) (*domain.TeacherChallenge, error) {
	var tc domain.TeacherChallenge
	if err := db.WithContext(ctx).Where("id = ?", id).First(&tc).Error; err != nil {
		return nil, err
	}
	return &tc, nil
}

// ListActiveClassChallenges returns a class's active challenges, newest first.
func ListActiveClassChallenges(ctx context.Context, db *gorm.DB, classID string) ([]domain.TeacherChallenge, error) {
	var out []domain.TeacherChallenge
	err := db.WithContext(ctx).
		Where("class_id = ? AND active = ?", classID, true).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CreateChallengeResponse inserts a student response inside tx. Returns
// ErrDuplicate when the (challenge, student) pair already responded; the
// unique index is the authority under concurrent submissions.
func CreateChallengeResponse(ctx context.Context, db *gorm.DB, r *domain.ChallengeResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetChallengeResponse fetches one (challenge, student) response, or ErrNotFound.
func GetChallengeResponse(ctx context.Context, db *gorm.DB, challengeID, studentID string) (*domain.ChallengeResponse, error) {
	var r domain.ChallengeResponse
	err := db.WithContext(ctx).
		Where("challenge_id = ? AND student_id = ?", challengeID, studentID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListChallengeResponses returns all responses to one challenge, oldest first.
// Teacher-scoped.
func ListChallengeResponses(ctx context.Context, db *gorm.DB, challengeID string) ([]domain.ChallengeResponse, error) {
	var out []domain.ChallengeResponse
	err := db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListStudentResponses returns a student's responses within a set of
// challenges. Used to flag per-student completion on the challenge list.
func ListStudentResponses(ctx context.Context, db *gorm.DB, studentID string, challengeIDs []string) ([]domain.ChallengeResponse, error) {
	if len(challengeIDs) == 0 {
		return []domain.ChallengeResponse{}, nil
	}
	var out []domain.ChallengeResponse
	err := db.WithContext(ctx).
		Where("student_id = ? AND challenge_id IN ?", studentID, challengeIDs).
		Find(&out).Error
	return out, err
}

// IncrementResponseCount bumps the denormalized response counter atomically.
func IncrementResponseCount(ctx context.Context, db *gorm.DB, challengeID string) error {
	return db.WithContext(ctx).
		Model(&domain.TeacherChallenge{}).
		Where("id = ?", challengeID).
		UpdateColumn("response_count", gorm.Expr("response_count + 1")).Error
}
