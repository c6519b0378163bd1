// Growth journal HTTP handler.
//
//   - GET /journal/:studentId
//
// A student may read their own journal; a teacher may read any student in a
// class they teach. Everyone else gets a 403 without learning whether the
// student exists.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/validate"
)

// JournalService defines the journal aggregation consumed by the HTTP
// handler. Implementations must honor the provided context.
type JournalService interface {
	// Aggregate builds the full journal view for one student.
	Aggregate(ctx context.Context, studentID string) (*domain.Journal, error)
}

// GetJournal handles GET /journal/:studentId.
func (h *Handlers) GetJournal(c *gin.Context) {
	ctx := c.Request.Context()

	studentID := c.Param("studentId")
	if !validate.IsUUID(studentID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "student id must be a UUID")
		return
	}

	if !h.canReadJournal(ctx, c, studentID) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "you cannot view this journal")
		return
	}

	journal, err := h.journalSvc.Aggregate(ctx, studentID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not build journal")
		return
	}
	ok(c, http.StatusOK, gin.H{"journal": journal})
}

// canReadJournal applies the self-or-class-teacher rule. Lookup failures
// fail closed.
func (h *Handlers) canReadJournal(ctx context.Context, c *gin.Context, studentID string) bool {
	actor := actorID(c)
	if actor == studentID {
		return true
	}
	if actorRole(c) != domain.RoleTeacher {
		return false
	}
	subject, err := h.authSvc.Resolve(ctx, studentID)
	if err != nil || subject.ClassID == nil {
		return false
	}
	return h.authSvc.HasClassAccess(ctx, actor, *subject.ClassID)
}
