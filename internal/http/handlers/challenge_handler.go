// Teacher challenge HTTP handlers.
//
// This file exposes the class challenge endpoints:
//   - POST /challenges                 (teacher posts a challenge)
//   - GET  /challenges                 (student lists active class challenges)
//   - POST /challenges/:id/respond     (student submits their one response)
//   - GET  /challenges/:id/response    (student reads their own response)
//   - GET  /challenges/:id/responses   (class teacher lists all responses)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
	"github.com/leadcraft/leadcraft-backend/internal/services"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// ChallengeService defines the teacher challenge operations consumed by
// HTTP handlers. Implementations must honor the provided context.
type ChallengeService interface {
	// Create posts a challenge into a class the actor teaches.
	Create(ctx context.Context, actorID string, in services.ChallengeInput) (*domain.TeacherChallenge, error)
	// ListForStudent returns active class challenges with completion flags.
	ListForStudent(ctx context.Context, studentID string) ([]services.ChallengeWithCompletion, error)
	// Respond records the student's single response and queues the reward.
	Respond(ctx context.Context, studentID, challengeID, content string) (*domain.ChallengeResponse, error)
	// Response returns the student's own response to a challenge.
	Response(ctx context.Context, studentID, challengeID string) (*domain.ChallengeResponse, error)
	// Responses returns every response, restricted to the class teacher.
	Responses(ctx context.Context, actorID, challengeID string) ([]domain.ChallengeResponse, error)
}

// CreateChallengeRequest is the JSON payload for posting a challenge.
type CreateChallengeRequest struct {
	TeacherID    string `json:"teacherId"`
	ClassID      string `json:"class_id" binding:"required"`
	Title        string `json:"title" binding:"required,min=1"`
	Prompt       string `json:"prompt" binding:"required,min=1"`
	SkillTag     string `json:"skill_tag"`
	RewardType   string `json:"reward_type"`
	RewardAmount int    `json:"reward_amount"`
}

// RespondChallengeRequest is the JSON payload for a student response.
type RespondChallengeRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

// CreateChallenge handles POST /challenges.
func (h *Handlers) CreateChallenge(c *gin.Context) {
	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "class_id, title and prompt are required")
		return
	}

	// A teacher id spelled out in the body must be the authenticated actor;
	// posting on someone else's behalf is not a thing.
	if req.TeacherID != "" && req.TeacherID != actorID(c) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "teacherId does not match the authenticated user")
		return
	}

	ch, err := h.challengeSvc.Create(c.Request.Context(), actorID(c), services.ChallengeInput{
		ClassID:      req.ClassID,
		Title:        req.Title,
		Prompt:       req.Prompt,
		SkillTag:     req.SkillTag,
		RewardType:   req.RewardType,
		RewardAmount: req.RewardAmount,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotClassTeacher):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the class teacher can post challenges")
		case errors.Is(err, services.ErrEmptyField):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a required field is missing or too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create challenge")
		}
		return
	}

	ok(c, http.StatusCreated, gin.H{"challenge": ch})
}

// ListChallenges handles GET /challenges.
func (h *Handlers) ListChallenges(c *gin.Context) {
	list, err := h.challengeSvc.ListForStudent(c.Request.Context(), actorID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoClass) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you must belong to a class to view challenges")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load challenges")
		return
	}
	ok(c, http.StatusOK, gin.H{"challenges": list})
}

// RespondChallenge handles POST /challenges/:id/respond.
func (h *Handlers) RespondChallenge(c *gin.Context) {
	challengeID := c.Param("id")
	if !validate.IsUUID(challengeID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "challenge id must be a UUID")
		return
	}

	var req RespondChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	resp, err := h.challengeSvc.Respond(c.Request.Context(), actorID(c), challengeID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChallengeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "challenge not found")
		case errors.Is(err, services.ErrChallengeInactive):
			fail(c, http.StatusBadRequest, ErrCodeChallengeClosed, "this challenge is closed")
		case errors.Is(err, services.ErrAlreadyResponded):
			fail(c, http.StatusBadRequest, ErrCodeAlreadyResponded, "you have already responded to this challenge")
		case errors.Is(err, services.ErrNoClass), errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "this challenge is not in your class")
		case errors.Is(err, services.ErrEmptyField):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is missing or too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record response")
		}
		return
	}

	ok(c, http.StatusCreated, gin.H{"response": resp})
}

// GetChallengeResponse handles GET /challenges/:id/response.
func (h *Handlers) GetChallengeResponse(c *gin.Context) {
	challengeID := c.Param("id")
	if !validate.IsUUID(challengeID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "challenge id must be a UUID")
		return
	}

	resp, err := h.challengeSvc.Response(c.Request.Context(), actorID(c), challengeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, services.ErrChallengeNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no response found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load response")
		return
	}
	ok(c, http.StatusOK, gin.H{"response": resp})
}

// ListChallengeResponses handles GET /challenges/:id/responses.
func (h *Handlers) ListChallengeResponses(c *gin.Context) {
	challengeID := c.Param("id")
	if !validate.IsUUID(challengeID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "challenge id must be a UUID")
		return
	}

	list, err := h.challengeSvc.Responses(c.Request.Context(), actorID(c), challengeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChallengeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "challenge not found")
		case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotClassTeacher):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the class teacher can list responses")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load responses")
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"responses": list})
}
