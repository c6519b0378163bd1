// Package services – AuthService
//
// This file implements the auth gate's backend half: resolving an already
// format-validated identifier to a user record and answering class-access
// questions. Identifier extraction from the request (query string or JSON
// body aliases) happens in the HTTP middleware; by the time this service is
// consulted the identifier is known to be a well-formed UUID, so a failed
// lookup is a clean "not found", never a malformed-input artifact.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
)

// AuthService resolves caller identities and class membership.
type AuthService struct {
	DB *gorm.DB
}

// Resolve looks up id against the user store. Unknown ids return
// ErrUserNotFound; any unexpected lookup error is also converted to
// ErrUserNotFound so the caller produces a uniform authentication failure
// instead of leaking backend detail.
func (s *AuthService) Resolve(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		// Unknown id and unexpected backend failures both collapse to the
		// uniform auth verdict; no raw lookup error escapes here.
		return nil, ErrUserNotFound
	}
	return u, nil
}

// HasClassAccess reports whether userID may act within classID: students by
// membership, teachers by owning the class. Any lookup error fails closed.
func (s *AuthService) HasClassAccess(ctx context.Context, userID, classID string) bool {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		return false
	}
	if u.ClassID != nil && *u.ClassID == classID {
		return true
	}
	if u.Role == domain.RoleTeacher {
		cls, err := repo.GetClass(ctx, s.DB, classID)
		if err != nil {
			return false
		}
		return cls.TeacherID == userID
	}
	return false
}
