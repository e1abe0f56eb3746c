package auth

import (
	"context"
	"testing"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapUsers map[int64]*models.User

func (m mapUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func TestActorCanAccessMember(t *testing.T) {
	assert.NoError(t, Actor{UserID: 7, Role: models.RoleMember}.CanAccessMember(7))
	assert.NoError(t, Actor{UserID: 1, Role: models.RoleOps}.CanAccessMember(7))
	assert.ErrorIs(t, Actor{UserID: 8, Role: models.RoleMember}.CanAccessMember(7), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, Actor{UserID: 9, Role: models.RolePractitioner}.CanAccessMember(7), apperrors.ErrPermissionDenied)
}

func TestValidateRole(t *testing.T) {
	svc := NewAuthorizationService(mapUsers{
		1: {ID: 1, RoleType: models.RoleMember, IsActive: true},
		2: {ID: 2, RoleType: models.RolePractitioner, IsActive: true},
		3: {ID: 3, RoleType: models.RoleMember, IsActive: false},
	})
	ctx := context.Background()

	u, err := svc.ValidateRole(ctx, 1, models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = svc.ValidateRole(ctx, 2, models.RoleMember)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.ValidateRole(ctx, 3, models.RoleMember)
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)

	_, err = svc.ValidateRole(ctx, 99, models.RoleMember)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
