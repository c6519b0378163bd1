// Gateway challenge HTTP handlers.
//
// This file exposes the onboarding gate endpoints:
//   - POST /gateway/submit              (student submits their challenge)
//   - GET  /gateway/status              (student reads their own submission)
//   - POST /gateway/:studentId/review   (teacher approves or sends back)
//
// The reviewed student is addressed by path parameter so the reviewer's own
// identity, carried in the body or query, is what the identity gate resolves.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/services"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// GatewayService defines the gateway challenge operations consumed by HTTP
// handlers. Implementations must honor the provided context.
type GatewayService interface {
	// Get returns the student's own gateway challenge.
	Get(ctx context.Context, studentID string) (*domain.GatewayChallenge, error)
	// Submit records the student's first and only submission.
	Submit(ctx context.Context, studentID string, in services.GatewaySubmission) (*domain.GatewayChallenge, error)
	// Review applies a teacher verdict to a student's submission.
	Review(ctx context.Context, reviewerID, studentID, status, feedback string) error
}

// SubmitGatewayRequest is the JSON payload for a gateway submission.
type SubmitGatewayRequest struct {
	Recipient      string `json:"recipient" binding:"required,min=1"`
	MessageType    string `json:"message_type" binding:"required,min=1"`
	MessagePreview string `json:"message_preview"`
	ProofRef       string `json:"proof_ref"`
	Reflection     string `json:"reflection" binding:"required,min=1"`
}

// ReviewGatewayRequest is the JSON payload for a teacher review.
type ReviewGatewayRequest struct {
	Status   string `json:"status" binding:"required"`
	Feedback string `json:"feedback"`
}

// SubmitGateway handles POST /gateway/submit.
func (h *Handlers) SubmitGateway(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubmitGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient, message_type and reflection are required")
		return
	}

	gw, err := h.gatewaySvc.Submit(ctx, actorID(c), services.GatewaySubmission{
		Recipient:      req.Recipient,
		MessageType:    req.MessageType,
		MessagePreview: req.MessagePreview,
		ProofRef:       req.ProofRef,
		Reflection:     req.Reflection,
	})
	if err != nil {
		var dup *services.AlreadySubmittedError
		switch {
		case errors.As(err, &dup):
			fail(c, http.StatusBadRequest, ErrCodeAlreadySubmitted, "gateway challenge already submitted with status "+dup.Status)
		case errors.Is(err, services.ErrEmptyField):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a required field is missing or too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record submission")
		}
		return
	}

	ok(c, http.StatusCreated, gin.H{"gateway": gw})
}

// GatewayStatus handles GET /gateway/status.
func (h *Handlers) GatewayStatus(c *gin.Context) {
	gw, err := h.gatewaySvc.Get(c.Request.Context(), actorID(c))
	if err != nil {
		if errors.Is(err, services.ErrGatewayNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no gateway submission yet")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load submission")
		return
	}
	ok(c, http.StatusOK, gin.H{"gateway": gw})
}

// ReviewGateway handles POST /gateway/:studentId/review.
func (h *Handlers) ReviewGateway(c *gin.Context) {
	ctx := c.Request.Context()

	studentID := c.Param("studentId")
	if !validate.IsUUID(studentID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "student id must be a UUID")
		return
	}

	var req ReviewGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}

	err := h.gatewaySvc.Review(ctx, actorID(c), studentID, req.Status, req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReview):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be approved or needs_revision")
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only teachers review gateway submissions")
		case errors.Is(err, services.ErrGatewayFinal):
			fail(c, http.StatusBadRequest, ErrCodeAlreadyApproved, "gateway challenge already approved; approval is final")
		case errors.Is(err, services.ErrGatewayNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no submission found for this student")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record review")
		}
		return
	}

	ok(c, http.StatusOK, gin.H{"status": req.Status})
}
