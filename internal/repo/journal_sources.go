// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the bounded source queries the journal
// aggregator fans out over. Each query is capped at sourceCap records and
// ordered ascending by creation time so the aggregator's single-pass week
// bucketing stays correct.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// sourceCap bounds every journal source query.
const sourceCap = 100

// ApprovedGateway returns the student's gateway challenge if it has been
// approved, else nil (a pending or missing gateway contributes no entry).
func ApprovedGateway(ctx context.Context, db *gorm.DB, studentID string) (*domain.GatewayChallenge, error) {
	var gc domain.GatewayChallenge
	err := db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, domain.GatewayApproved).
		First(&gc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gc, nil
}

// ListDoNows returns the student's do-now completions, oldest first.
func ListDoNows(ctx context.Context, db *gorm.DB, studentID string) ([]domain.DoNowCompletion, error) {
	var out []domain.DoNowCompletion
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListScenarios returns the student's scenario completions, oldest first.
func ListScenarios(ctx context.Context, db *gorm.DB, studentID string) ([]domain.ScenarioCompletion, error) {
	var out []domain.ScenarioCompletion
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListChallengeSubmissions returns the student's system-challenge
// submissions, oldest first.
func ListChallengeSubmissions(ctx context.Context, db *gorm.DB, studentID string) ([]domain.ChallengeSubmission, error) {
	var out []domain.ChallengeSubmission
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListHelpGiven returns help events where the student was the helper.
func ListHelpGiven(ctx context.Context, db *gorm.DB, studentID string) ([]domain.HelpEvent, error) {
	var out []domain.HelpEvent
	err := db.WithContext(ctx).
		Where("helper_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListHelpReceived returns help events where the student was the recipient.
func ListHelpReceived(ctx context.Context, db *gorm.DB, studentID string) ([]domain.HelpEvent, error) {
	var out []domain.HelpEvent
	err := db.WithContext(ctx).
		Where("recipient_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListStudentDiscoveries returns the student's own discoveries regardless of
// moderation status, oldest first.
func ListStudentDiscoveries(ctx context.Context, db *gorm.DB, studentID string) ([]domain.Discovery, error) {
	var out []domain.Discovery
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListStudentChallengeResponses returns the student's teacher-challenge
// responses with their parent challenge preloaded, oldest first.
func ListStudentChallengeResponses(ctx context.Context, db *gorm.DB, studentID string) ([]domain.ChallengeResponse, error) {
	var out []domain.ChallengeResponse
	err := db.WithContext(ctx).
		Preload("Challenge").
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}

// ListRipples returns the student's ripples, oldest first.
func ListRipples(ctx context.Context, db *gorm.DB, studentID string) ([]domain.Ripple, error) {
	var out []domain.Ripple
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at asc").
		Limit(sourceCap).
		Find(&out).Error
	return out, err
}
