package services

import (
	"context"
	"testing"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService() (*AuthService, *fakeUsers, *fakeTokens) {
	users, tokens := newFakeUsers(), newFakeTokens()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "carebridge.test",
	})
	svc := NewAuthService(users, tokens, jwtService, zerolog.Nop())
	svc.hashCost = bcrypt.MinCost
	return svc, users, tokens
}

func registerRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:       "Ada@Example.com",
		Password:    "lovelace1815",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: "1990-12-10",
		RoleType:    models.RoleMember,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, tokens := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "MEMBER", resp.User.Role)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.Contains(t, tokens.tokens, resp.Token.RefreshToken)

	stored := users.users[resp.User.ID]
	assert.NotEqual(t, "lovelace1815", stored.Password)
	require.NotNil(t, stored.DateOfBirth)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "lovelace1815"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token.AccessToken)
	assert.NotNil(t, users.users[resp.User.ID].LastLoginAt)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	req := registerRequest()
	req.Email = "not-an-email"
	_, err := svc.Register(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)

	req = registerRequest()
	req.Password = "abcdefgh"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	req = registerRequest()
	req.RoleType = models.RoleOps
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	req = registerRequest()
	req.DateOfBirth = "10/12/1990"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerRequest())
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestLoginFailures(t *testing.T) {
	svc, users, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "lovelace1815"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	users.users[resp.User.ID].IsActive = false
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "lovelace1815"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	old := resp.Token.RefreshToken

	refreshed, err := svc.RefreshToken(ctx, old)
	require.NoError(t, err)
	assert.NotEqual(t, old, refreshed.Token.RefreshToken)
	assert.True(t, tokens.tokens[old].IsRevoked)

	_, err = svc.RefreshToken(ctx, old)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	_, err = svc.RefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = svc.RefreshToken(ctx, resp.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	removed, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Token.RefreshToken))
	assert.ErrorIs(t, svc.Logout(ctx, resp.Token.RefreshToken), apperrors.ErrTokenRevoked)
	assert.ErrorIs(t, svc.Logout(ctx, " "), apperrors.ErrTokenInvalid)
}
