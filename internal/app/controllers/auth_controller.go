package controllers

import (
	"context"
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// authService is the account behaviour the controller needs; *services.AuthService satisfies it
type authService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error)
}

// AuthController handles authentication related operations
type AuthController struct {
	authService authService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService authService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger.With().Str("controller", "auth").Logger(),
	}
}

// Register handles user registration
// POST /auth/register
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		c.logger.Warn().Msg("Invalid registration request payload")
		return
	}

	registerResponse, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", logger.MaskEmail(req.Email)).Msg("Failed to register user")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("email", logger.MaskEmail(req.Email)).
		Int64("userID", registerResponse.User.ID).
		Str("roleType", string(req.RoleType)).
		Msg("User registered")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(registerResponse))
}

// Login handles user login
// POST /auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	tokenResponse, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", logger.MaskEmail(req.Email)).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("email", logger.MaskEmail(req.Email)).Msg("User logged in successfully")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tokenResponse))
}

// RefreshToken rotates a refresh token
// POST /auth/refresh
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	tokenResponse, err := c.authService.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Refresh token failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tokenResponse))
}

// Logout revokes the presented refresh token
// POST /auth/logout
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), req.RefreshToken); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"message": "Logged out"}))
}

// Profile returns the caller's account
// GET /auth/profile
func (c *AuthController) Profile(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	profile, err := c.authService.GetProfile(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}
