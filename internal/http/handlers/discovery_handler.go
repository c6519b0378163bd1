// Discovery wall HTTP handlers.
//
// This file exposes the peer-discovery endpoints:
//   - POST /discoveries            (post to own class, lands as pending)
//   - GET  /discoveries            (class wall: approved plus own pending)
//   - POST /discoveries/:id/vote   (toggle a helpful vote)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/services"
	"github.com/leadcraft/leadcraft-backend/internal/utils"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// DiscoveryService defines the discovery wall operations consumed by HTTP
// handlers. Implementations must honor the provided context.
type DiscoveryService interface {
	// Create posts a pending discovery into the student's class.
	Create(ctx context.Context, studentID string, in services.DiscoveryInput) (*domain.Discovery, error)
	// List returns the viewer's class wall.
	List(ctx context.Context, viewerID string, limit int) ([]domain.Discovery, error)
	// ToggleVote flips the viewer's helpful vote on a discovery.
	ToggleVote(ctx context.Context, studentID, discoveryID string) (bool, error)
}

// CreateDiscoveryRequest is the JSON payload for posting a discovery.
type CreateDiscoveryRequest struct {
	Title    string `json:"title" binding:"required,min=1"`
	Content  string `json:"content" binding:"required,min=1"`
	SkillTag string `json:"skill_tag"`
}

// maxDiscoveryPage caps the wall page size.
const maxDiscoveryPage = 100

// CreateDiscovery handles POST /discoveries.
func (h *Handlers) CreateDiscovery(c *gin.Context) {
	var req CreateDiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and content are required")
		return
	}

	d, err := h.discoverySvc.Create(c.Request.Context(), actorID(c), services.DiscoveryInput{
		Title:    req.Title,
		Content:  req.Content,
		SkillTag: req.SkillTag,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoClass):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you must belong to a class to post discoveries")
		case errors.Is(err, services.ErrEmptyField):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a required field is missing or too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create discovery")
		}
		return
	}

	ok(c, http.StatusCreated, gin.H{"discovery": d})
}

// ListDiscoveries handles GET /discoveries.
func (h *Handlers) ListDiscoveries(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), maxDiscoveryPage)
	if limit < 1 || limit > maxDiscoveryPage {
		limit = maxDiscoveryPage
	}

	list, err := h.discoverySvc.List(c.Request.Context(), actorID(c), limit)
	if err != nil {
		if errors.Is(err, services.ErrNoClass) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you must belong to a class to view the wall")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load discoveries")
		return
	}

	ok(c, http.StatusOK, gin.H{"discoveries": list})
}

// VoteDiscovery handles POST /discoveries/:id/vote.
func (h *Handlers) VoteDiscovery(c *gin.Context) {
	discoveryID := c.Param("id")
	if !validate.IsUUID(discoveryID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "discovery id must be a UUID")
		return
	}

	voted, err := h.discoverySvc.ToggleVote(c.Request.Context(), actorID(c), discoveryID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDiscoveryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "discovery not found")
		case errors.Is(err, services.ErrNoClass), errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you cannot vote on this discovery")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record vote")
		}
		return
	}

	ok(c, http.StatusOK, gin.H{"voted": voted})
}
