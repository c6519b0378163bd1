// Package services – DiscoveryService
//
// This file implements student discoveries and the race-safe helpful-vote
// toggle. The toggle is delete-then-insert, not read-then-branch: a single
// row delete either removes the edge (vote now off) or removes nothing, in
// which case the insert and its unique constraint arbitrate concurrent
// duplicates. Two simultaneous toggles always converge on one well-defined
// edge state, the counter moves atomically, and it never goes below zero.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// DiscoveryService implements the discovery use-cases.
type DiscoveryService struct {
	DB *gorm.DB
}

// DiscoveryInput is the validated input for Create.
type DiscoveryInput struct {
	Title    string
	Content  string
	SkillTag string
}

// Create posts a discovery into the student's class with status pending.
func (s *DiscoveryService) Create(ctx context.Context, studentID string, in DiscoveryInput) (*domain.Discovery, error) {
	if !validate.BoundedString(in.Title, 200) || !validate.BoundedString(in.Content, 5000) {
		return nil, ErrEmptyField
	}
	if in.SkillTag != "" && !validate.BoundedString(in.SkillTag, 60) {
		return nil, ErrEmptyField
	}

	u, err := repo.GetUser(ctx, s.DB, studentID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if u.ClassID == nil {
		return nil, ErrNoClass
	}

	d := &domain.Discovery{
		StudentID: studentID,
		ClassID:   *u.ClassID,
		Title:     in.Title,
		Content:   in.Content,
		SkillTag:  in.SkillTag,
	}
	if err := repo.CreateDiscovery(ctx, s.DB, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the viewer's class feed: approved discoveries plus the
// viewer's own pending ones.
func (s *DiscoveryService) List(ctx context.Context, viewerID string, limit int) ([]domain.Discovery, error) {
	u, err := repo.GetUser(ctx, s.DB, viewerID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if u.ClassID == nil {
		return nil, ErrNoClass
	}
	return repo.ListClassDiscoveries(ctx, s.DB, *u.ClassID, viewerID, limit)
}

// ToggleVote flips the (discovery, student) helpful vote and returns the
// resulting edge state.
//
// Sequence: delete first. A deleted row means the vote is now off, so the
// counter decrements (floored at zero). Nothing deleted means insert; a
// unique violation here is a concurrent toggle that already created the
// edge, which is reported as voted=true rather than an error.
func (s *DiscoveryService) ToggleVote(ctx context.Context, studentID, discoveryID string) (voted bool, err error) {
	d, err := repo.GetDiscovery(ctx, s.DB, discoveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrDiscoveryNotFound
		}
		return false, err
	}

	// Voting is scoped to classmates; the author's own class is the
	// discovery's class.
	u, err := repo.GetUser(ctx, s.DB, studentID)
	if err != nil {
		return false, ErrUserNotFound
	}
	if u.ClassID == nil || *u.ClassID != d.ClassID {
		return false, ErrForbidden
	}

	deleted, err := repo.DeleteVote(ctx, s.DB, discoveryID, studentID)
	if err != nil {
		return false, err
	}
	if deleted {
		if err := repo.IncrementHelpful(ctx, s.DB, discoveryID, -1); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := repo.CreateVote(ctx, s.DB, discoveryID, studentID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// A concurrent request won the insert race; the edge exists.
			return true, nil
		}
		return false, err
	}
	if err := repo.IncrementHelpful(ctx, s.DB, discoveryID, 1); err != nil {
		return false, err
	}
	return true, nil
}
