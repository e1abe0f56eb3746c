package controllers

import (
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EdiController triggers benefits-administrator file exchange
type EdiController struct {
	ediService services.EdiService
	logger     zerolog.Logger
}

// NewEdiController creates a new EdiController
func NewEdiController(ediService services.EdiService, logger zerolog.Logger) *EdiController {
	return &EdiController{
		ediService: ediService,
		logger:     logger.With().Str("controller", "edi").Logger(),
	}
}

// ExportDeposits writes a deposit file for every approved, unexported
// reimbursement. Transfer is null when there was nothing to send.
// POST /edi/exports
func (c *EdiController) ExportDeposits(ctx *gin.Context) {
	transfer, err := c.ediService.ExportDeposits(ctx.Request.Context(), timeNow().UTC())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if transfer != nil {
		c.logger.Info().Str("filename", transfer.Filename).Msg("Deposit file exported")
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DepositExportResponse{Transfer: transfer}))
}

// ImportResults handles POST /edi/imports with a multipart "file" field or a
// raw body plus ?filename=
func (c *EdiController) ImportResults(ctx *gin.Context) {
	filename, body, err := readUpload(ctx, "results.csv")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	result, err := c.ediService.ImportResults(ctx.Request.Context(), filename, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("filename", filename).Msg("Result file rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("filename", filename).
		Int("reimbursed", result.Reimbursed).
		Int("failed", result.Failed).
		Int("unmatched", result.Unmatched).
		Msg("Result file imported")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
