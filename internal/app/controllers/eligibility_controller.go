package controllers

import (
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EligibilityController handles health plans, eligibility and cost estimates
type EligibilityController struct {
	eligibilityService services.EligibilityService
	logger             zerolog.Logger
}

// NewEligibilityController creates a new EligibilityController
func NewEligibilityController(eligibilityService services.EligibilityService, logger zerolog.Logger) *EligibilityController {
	return &EligibilityController{
		eligibilityService: eligibilityService,
		logger:             logger.With().Str("controller", "eligibility").Logger(),
	}
}

// CreateHealthPlan handles POST /health-plans (OPS)
func (c *EligibilityController) CreateHealthPlan(ctx *gin.Context) {
	var req dto.CreateHealthPlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.eligibilityService.CreateHealthPlan(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("planID", plan.ID).
		Int64("memberID", req.MemberID).
		Int64("payerID", req.PayerID).
		Msg("Health plan created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(plan))
}

// ListPayers handles GET /payers
func (c *EligibilityController) ListPayers(ctx *gin.Context) {
	payers, err := c.eligibilityService.ListPayers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(payers))
}

// GetEligibility handles GET /members/:id/eligibility?date=YYYY-MM-DD
func (c *EligibilityController) GetEligibility(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	day, ok := middleware.ParseDateQuery(ctx, "date")
	if !ok {
		return
	}

	info, err := c.eligibilityService.GetEligibility(ctx.Request.Context(), memberID, day)
	if err != nil {
		c.logger.Warn().Err(err).Int64("memberID", memberID).Msg("Eligibility lookup failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// CostBreakdown handles POST /members/:id/cost-breakdown
func (c *EligibilityController) CostBreakdown(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	var req dto.CostBreakdownRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	day := helpers.StartOfDay(timeNow().UTC())
	if req.Date != "" {
		parsed, err := helpers.ParseDate(req.Date)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	breakdown, err := c.eligibilityService.CostBreakdown(ctx.Request.Context(), memberID, req.CostCents, day)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(breakdown))
}
