// AI coach HTTP handlers.
//
// This file exposes the coaching proxy endpoints:
//   - POST /ai/brainstorm   (persona-tagged brainstorm turn)
//   - POST /ai/socratic     (guided questioning with crisis screening)
//
// Both endpoints answer 503 before reading the body when the AI dependency
// is unconfigured, and both translate an upstream timeout into a soft 200
// the client is expected to retry.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/ai"
	"github.com/leadcraft/leadcraft-backend/internal/services"
)

// CoachService defines the coaching proxy consumed by HTTP handlers.
type CoachService interface {
	// Available reports whether the AI dependency is configured.
	Available() bool
	// Brainstorm relays one persona-tagged coaching turn.
	Brainstorm(ctx context.Context, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error)
	// Socratic relays one turn with the crisis pre-flight.
	Socratic(ctx context.Context, studentID, tag string, history []ai.Message, skills []string, extra string) (*services.CoachReply, error)
}

// CoachTurn is one prior conversation turn supplied by the client.
type CoachTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required,min=1"`
}

// CoachRequest is the JSON payload shared by both coaching endpoints.
type CoachRequest struct {
	SessionType string      `json:"session_type"`
	Messages    []CoachTurn `json:"messages" binding:"required,min=1,dive"`
	Skills      []string    `json:"skills"`
	Context     string      `json:"context"`
}

// stillThinkingMessage is the soft-timeout reply; the client shows it and
// retries rather than surfacing an error.
const stillThinkingMessage = "I'm still thinking about that one. Give me a moment and ask again."

func toMessages(turns []CoachTurn) []ai.Message {
	out := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleUser
		if t.Role == "assistant" {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: t.Content})
	}
	return out
}

// Brainstorm handles POST /ai/brainstorm.
func (h *Handlers) Brainstorm(c *gin.Context) {
	if !h.coachSvc.Available() {
		fail(c, http.StatusServiceUnavailable, ErrCodeAIUnavailable, "coaching is not available right now")
		return
	}

	var req CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "messages are required, roles must be user or assistant")
		return
	}

	reply, err := h.coachSvc.Brainstorm(c.Request.Context(), req.SessionType, toMessages(req.Messages), req.Skills, req.Context)
	h.writeCoachReply(c, reply, err)
}

// SocraticCoach handles POST /ai/socratic.
func (h *Handlers) SocraticCoach(c *gin.Context) {
	var req CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "messages are required, roles must be user or assistant")
		return
	}

	// The crisis scan runs inside the service before the availability check,
	// so an unconfigured AI key never suppresses the safety path.
	reply, err := h.coachSvc.Socratic(c.Request.Context(), actorID(c), req.SessionType, toMessages(req.Messages), req.Skills, req.Context)
	h.writeCoachReply(c, reply, err)
}

func (h *Handlers) writeCoachReply(c *gin.Context, reply *services.CoachReply, err error) {
	switch {
	case err == nil:
		ok(c, http.StatusOK, reply)
	case errors.Is(err, services.ErrCoachTimeout):
		ok(c, http.StatusOK, services.CoachReply{Message: stillThinkingMessage})
	case errors.Is(err, services.ErrCoachUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeAIUnavailable, "coaching is not available right now")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "coaching request failed")
	}
}
