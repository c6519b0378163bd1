// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate and bind inputs, call the
// application services through the interfaces declared in each handler file,
// and translate service sentinels into HTTP responses. Authorization rules
// that concern the shape of the request (actor/subject mismatch, role on a
// route) live here; everything touching stored state lives in services.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// AccessService answers identity and class-scope questions for handlers that
// authorize beyond "is authenticated". Satisfied by services.AuthService.
type AccessService interface {
	Resolve(ctx context.Context, id string) (*domain.User, error)
	HasClassAccess(ctx context.Context, userID, classID string) bool
}

// Handlers groups the HTTP endpoints for the gateway challenge, discoveries,
// teacher challenges, the journal, and the AI coach. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc      AccessService
	gatewaySvc   GatewayService
	discoverySvc DiscoveryService
	challengeSvc ChallengeService
	journalSvc   JournalService
	coachSvc     CoachService
}

// New constructs a Handlers instance bound to the given services.
func New(auth AccessService, gw GatewayService, disc DiscoveryService, ch ChallengeService, j JournalService, coach CoachService) *Handlers {
	return &Handlers{
		authSvc:      auth,
		gatewaySvc:   gw,
		discoverySvc: disc,
		challengeSvc: ch,
		journalSvc:   j,
		coachSvc:     coach,
	}
}

// actorID returns the authenticated actor's id from the Gin context, set by
// the Authenticate middleware.
func actorID(c *gin.Context) string {
	return c.GetString("userID")
}

// actorRole returns the authenticated actor's role from the Gin context.
func actorRole(c *gin.Context) string {
	return c.GetString("userRole")
}
