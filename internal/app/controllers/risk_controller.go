package controllers

import (
	"net/http"
	"sort"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RiskController exposes member risk flags
type RiskController struct {
	riskService services.RiskService
	logger      zerolog.Logger
}

// NewRiskController creates a new RiskController
func NewRiskController(riskService services.RiskService, logger zerolog.Logger) *RiskController {
	return &RiskController{
		riskService: riskService,
		logger:      logger.With().Str("controller", "risk").Logger(),
	}
}

// ActiveRisks handles GET /members/:id/risks
func (c *RiskController) ActiveRisks(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	flags, err := c.riskService.ActiveRisks(ctx.Request.Context(), memberID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(flags))
}

// RiskHistory handles GET /members/:id/risks/history
func (c *RiskController) RiskHistory(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	flags, err := c.riskService.RiskHistory(ctx.Request.Context(), memberID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(flags))
}

// SetRisk handles PUT /members/:id/risks/:flag
func (c *RiskController) SetRisk(ctx *gin.Context) {
	actor, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	var req dto.SetRiskRequest
	if ctx.Request.ContentLength != 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	flag := ctx.Param("flag")
	change, err := c.riskService.SetRisk(ctx.Request.Context(), memberID, flag, req.Value)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("memberID", memberID).
		Int64("actorID", actor.UserID).
		Str("flag", flag).
		Str("change", string(change)).
		Msg("Risk flag set")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RiskChangeResponse{Flag: flag, Change: change}))
}

// ClearRisk handles DELETE /members/:id/risks/:flag
func (c *RiskController) ClearRisk(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}

	flag := ctx.Param("flag")
	change, err := c.riskService.ClearRisk(ctx.Request.Context(), memberID, flag)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RiskChangeResponse{Flag: flag, Change: change}))
}

// EvaluateBMI handles POST /members/:id/bmi
func (c *RiskController) EvaluateBMI(ctx *gin.Context) {
	_, memberID, ok := memberScope(ctx)
	if !ok {
		return
	}
	var req dto.BMIRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	bmi, changes, err := c.riskService.EvaluateBMI(ctx.Request.Context(), memberID, req.HeightInches, req.WeightLbs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.BMIResponse{BMI: bmi, Changes: make([]dto.RiskChangeResponse, 0, len(changes))}
	for flag, change := range changes {
		resp.Changes = append(resp.Changes, dto.RiskChangeResponse{Flag: flag, Change: change})
	}
	sort.Slice(resp.Changes, func(i, j int) bool { return resp.Changes[i].Flag < resp.Changes[j].Flag })

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
