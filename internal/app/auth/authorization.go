package auth

import (
	"context"
	"fmt"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/logger"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   models.RoleType
}

// IsOps reports whether the actor is an operations user
func (a Actor) IsOps() bool {
	return a.Role == models.RoleOps
}

// CanAccessMember allows members to act on themselves and ops on anyone
func (a Actor) CanAccessMember(memberID int64) error {
	if a.IsOps() || a.UserID == memberID {
		return nil
	}
	return apperrors.NewForbiddenError("you may only access your own records")
}

// UserGetter loads users by ID
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthorizationService answers role questions about stored users
type AuthorizationService struct {
	userRepo UserGetter
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo UserGetter) *AuthorizationService {
	return &AuthorizationService{userRepo: userRepo}
}

// ValidateRole checks that userID exists, is active and has the given role
func (s *AuthorizationService) ValidateRole(ctx context.Context, userID int64, role models.RoleType) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error getting user by ID in ValidateRole")
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	if user.RoleType != role {
		return nil, fmt.Errorf("%w: user %d is not a %s", apperrors.ErrValidationFailed, userID, role)
	}
	return user, nil
}
