package controllers

import (
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WalletController handles wallets, categories and reimbursements
type WalletController struct {
	walletService services.WalletService
	logger        zerolog.Logger
}

// NewWalletController creates a new WalletController
func NewWalletController(walletService services.WalletService, logger zerolog.Logger) *WalletController {
	return &WalletController{
		walletService: walletService,
		logger:        logger.With().Str("controller", "wallet").Logger(),
	}
}

// Enroll creates a PENDING wallet for a member
// POST /wallets (OPS)
func (c *WalletController) Enroll(ctx *gin.Context) {
	var req dto.EnrollWalletRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	wallet, err := c.walletService.Enroll(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("walletID", wallet.ID).
		Int64("userID", wallet.UserID).
		Str("organization", wallet.OrganizationName).
		Msg("Wallet enrolled")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(wallet))
}

// GetWallet handles GET /wallets/:id
func (c *WalletController) GetWallet(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	wallet, err := c.walletService.GetWallet(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(wallet))
}

// Balance handles GET /wallets/:id/balance
func (c *WalletController) Balance(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	balance, err := c.walletService.Balance(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(balance))
}

// ChangeState moves a wallet along its lifecycle
// POST /wallets/:id/state (OPS)
func (c *WalletController) ChangeState(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.WalletStateRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	wallet, err := c.walletService.ChangeState(ctx.Request.Context(), id, req.State)
	if err != nil {
		c.logger.Warn().Err(err).Int64("walletID", id).Str("target", string(req.State)).Msg("Wallet state change rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(wallet))
}

// AddCategory handles POST /wallets/:id/categories (OPS)
func (c *WalletController) AddCategory(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.AddCategoryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	category, err := c.walletService.AddCategory(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(category))
}

// SubmitReimbursement files a claim against a wallet category
// POST /wallets/:id/reimbursements
func (c *WalletController) SubmitReimbursement(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SubmitReimbursementRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	request, err := c.walletService.SubmitReimbursement(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("requestID", request.ID).
		Int64("walletID", id).
		Int64("amountCents", request.AmountCents).
		Msg("Reimbursement submitted")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(request))
}

// Approve handles POST /reimbursements/:id/approve (OPS)
func (c *WalletController) Approve(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	request, err := c.walletService.Approve(ctx.Request.Context(), id, actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request))
}

// Deny handles POST /reimbursements/:id/deny (OPS)
func (c *WalletController) Deny(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.DenyReimbursementRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	request, err := c.walletService.Deny(ctx.Request.Context(), id, actor.UserID, req.Reason)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request))
}
