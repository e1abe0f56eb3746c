package controllers

import (
	"fmt"
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AccumulationController exposes the payer accumulation workflow to ops users
type AccumulationController struct {
	accumulationService services.AccumulationService
	logger              zerolog.Logger
}

// NewAccumulationController creates a new AccumulationController
func NewAccumulationController(accumulationService services.AccumulationService, logger zerolog.Logger) *AccumulationController {
	return &AccumulationController{
		accumulationService: accumulationService,
		logger:              logger.With().Str("controller", "accumulation").Logger(),
	}
}

// CreateTreatment handles POST /treatment-procedures
func (c *AccumulationController) CreateTreatment(ctx *gin.Context) {
	var req dto.CreateTreatmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	procedure, err := c.accumulationService.CreateTreatment(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(procedure))
}

// QueueProcedure handles POST /treatment-procedures/:id/accumulation
func (c *AccumulationController) QueueProcedure(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	mapping, err := c.accumulationService.QueueProcedure(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("procedureID", id).
		Str("status", string(mapping.Status)).
		Msg("Procedure queued for accumulation")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(mapping))
}

// QueueRefund handles POST /treatment-procedures/:id/refund
func (c *AccumulationController) QueueRefund(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	mapping, err := c.accumulationService.QueueRefund(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(mapping))
}

// GenerateReport builds the accumulator file for one payer now
// POST /accumulation/reports
func (c *AccumulationController) GenerateReport(ctx *gin.Context) {
	var req dto.GenerateReportRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	report, err := c.accumulationService.GenerateReport(ctx.Request.Context(), req.PayerCode, timeNow().UTC())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("reportID", report.ID).
		Str("payer", req.PayerCode).
		Str("filename", report.Filename).
		Msg("Accumulation report generated")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(report))
}

// SubmitReport handles POST /accumulation/reports/:id/submit
func (c *AccumulationController) SubmitReport(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	report, err := c.accumulationService.SubmitReport(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}

// RegenerateReport handles POST /accumulation/reports/:id/regenerate
func (c *AccumulationController) RegenerateReport(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	report, err := c.accumulationService.RegenerateReport(ctx.Request.Context(), id, timeNow().UTC())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}

// ExportReportXLSX streams a spreadsheet of the report's rows
// GET /accumulation/reports/:id/xlsx
func (c *AccumulationController) ExportReportXLSX(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	content, filename, err := c.accumulationService.ExportReportXLSX(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, xlsxContentType, content)
}

// ReconcileResponse ingests a payer response file sent as the request body
// POST /accumulation/responses/:payer
func (c *AccumulationController) ReconcileResponse(ctx *gin.Context) {
	payerCode := ctx.Param("payer")

	_, body, err := readUpload(ctx, payerCode+"_response")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if len(body) == 0 {
		middleware.HandleAPIError(ctx, fmt.Errorf("%w: response file is empty", apperrors.ErrMalformedFile))
		return
	}

	result, err := c.accumulationService.ReconcileResponse(ctx.Request.Context(), payerCode, string(body))
	if err != nil {
		c.logger.Warn().Err(err).Str("payer", payerCode).Msg("Payer response rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("payer", payerCode).
		Int("accepted", result.Accepted).
		Int("rejected", result.Rejected).
		Int("unmatched", result.Unmatched).
		Msg("Payer response reconciled")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
