// Package services – ChallengeService
//
// This file implements teacher-posted class challenges and student
// responses. Creation is restricted to the class's own teacher; responses
// are exactly-once per (challenge, student) with the storage-level unique
// constraint as the authority, and a successful response enqueues the
// reward pipeline transactionally.
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

// ChallengeService implements teacher-challenge use-cases.
type ChallengeService struct {
	DB *gorm.DB
}

// ChallengeInput is the validated input for Create.
type ChallengeInput struct {
	ClassID      string
	Title        string
	Prompt       string
	SkillTag     string
	RewardType   string
	RewardAmount int
}

// ChallengeWithCompletion decorates a challenge with the requesting
// student's completion flag.
type ChallengeWithCompletion struct {
	domain.TeacherChallenge
	Completed bool `json:"completed"`
}

// Create posts a class challenge. The actor must be a teacher and must own
// the target class; a teacher id supplied in the request body must already
// have been checked against the actor by the handler.
func (s *ChallengeService) Create(ctx context.Context, actorID string, in ChallengeInput) (*domain.TeacherChallenge, error) {
	if !validate.BoundedString(in.Title, 200) || !validate.BoundedString(in.Prompt, 5000) {
		return nil, ErrEmptyField
	}

	actor, err := repo.GetUser(ctx, s.DB, actorID)
	if err != nil || actor.Role != domain.RoleTeacher {
		return nil, ErrForbidden
	}
	cls, err := repo.GetClass(ctx, s.DB, in.ClassID)
	if err != nil {
		return nil, ErrNotClassTeacher
	}
	if cls.TeacherID != actorID {
		return nil, ErrNotClassTeacher
	}

	rewardType := in.RewardType
	if rewardType == "" {
		rewardType = domain.ResourceFlower
	}
	rewardAmount := in.RewardAmount
	if rewardAmount <= 0 {
		rewardAmount = 1
	}

	tc := &domain.TeacherChallenge{
		ClassID:      in.ClassID,
		TeacherID:    actorID,
		Title:        in.Title,
		Prompt:       in.Prompt,
		SkillTag:     in.SkillTag,
		RewardType:   rewardType,
		RewardAmount: rewardAmount,
		Active:       true,
	}
	if err := repo.CreateTeacherChallenge(ctx, s.DB, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// ListForStudent returns the active challenges of the student's class, each
// flagged with whether this student has already responded.
func (s *ChallengeService) ListForStudent(ctx context.Context, studentID string) ([]ChallengeWithCompletion, error) {
	u, err := repo.GetUser(ctx, s.DB, studentID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if u.ClassID == nil {
		return nil, ErrNoClass
	}

	challenges, err := repo.ListActiveClassChallenges(ctx, s.DB, *u.ClassID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID
	}
	responses, err := repo.ListStudentResponses(ctx, s.DB, studentID, ids)
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		done[r.ChallengeID] = struct{}{}
	}

	out := make([]ChallengeWithCompletion, len(challenges))
	for i, c := range challenges {
		_, completed := done[c.ID]
		out[i] = ChallengeWithCompletion{TeacherChallenge: c, Completed: completed}
	}
	return out, nil
}

// Respond submits a student's answer to an active challenge. The insert and
// the reward-pipeline enqueue share one transaction; a unique violation maps
// to ErrAlreadyResponded and leaves no reward job behind.
func (s *ChallengeService) Respond(ctx context.Context, studentID, challengeID, content string) (*domain.ChallengeResponse, error) {
	if !validate.BoundedString(content, 5000) {
		return nil, ErrEmptyField
	}

	ch, err := repo.GetTeacherChallenge(ctx, s.DB, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	if !ch.Active {
		return nil, ErrChallengeInactive
	}

	u, err := repo.GetUser(ctx, s.DB, studentID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if u.ClassID == nil || *u.ClassID != ch.ClassID {
		return nil, ErrForbidden
	}

	resp := &domain.ChallengeResponse{
		ChallengeID: challengeID,
		StudentID:   studentID,
		Content:     content,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateChallengeResponse(ctx, tx, resp); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, tx, domain.JobChallengeReward, outbox.ChallengeRewardPayload{
			ChallengeID: challengeID,
			StudentID:   studentID,
		})
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyResponded
		}
		return nil, err
	}
	return resp, nil
}

// Response returns the student's own response to a challenge, or
// ErrNotFound via ErrChallengeNotFound mapping at the handler.
func (s *ChallengeService) Response(ctx context.Context, studentID, challengeID string) (*domain.ChallengeResponse, error) {
	return repo.GetChallengeResponse(ctx, s.DB, challengeID, studentID)
}

// Responses returns all responses to a challenge. Teacher-scoped: the actor
// must be the teacher of the challenge's class.
func (s *ChallengeService) Responses(ctx context.Context, actorID, challengeID string) ([]domain.ChallengeResponse, error) {
	ch, err := repo.GetTeacherChallenge(ctx, s.DB, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	actor, err := repo.GetUser(ctx, s.DB, actorID)
	if err != nil || actor.Role != domain.RoleTeacher || ch.TeacherID != actorID {
		return nil, ErrForbidden
	}
	return repo.ListChallengeResponses(ctx, s.DB, challengeID)
}
