package dto

import "github.com/carebridge/carebridge/internal/app/models"

// EnrollWalletRequest enrolls a member in an employer wallet
type EnrollWalletRequest struct {
	UserID           int64  `json:"userId" binding:"required,min=1"`
	OrganizationName string `json:"organizationName" binding:"required"`
	EmployeeID       string `json:"employeeId" binding:"required"`
}

// WalletStateRequest moves a wallet to a new state
type WalletStateRequest struct {
	State models.WalletState `json:"state" binding:"required,oneof=QUALIFIED DISQUALIFIED RUNOUT EXPIRED"`
}

// AddCategoryRequest adds a benefit category to a wallet
type AddCategoryRequest struct {
	Label      string `json:"label" binding:"required"`
	LimitCents int64  `json:"limitCents" binding:"required,gt=0"`
}

// SubmitReimbursementRequest files a reimbursement claim
type SubmitReimbursementRequest struct {
	CategoryID  int64  `json:"categoryId" binding:"required,min=1"`
	AmountCents int64  `json:"amountCents" binding:"required,gt=0"`
	ServiceDate string `json:"serviceDate" binding:"required"`
	Description string `json:"description"`
}

// DenyReimbursementRequest carries the denial reason
type DenyReimbursementRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// WalletBalanceResponse lists per-category balances
type WalletBalanceResponse struct {
	WalletID   int64                    `json:"walletId"`
	State      models.WalletState       `json:"state"`
	Categories []models.CategoryBalance `json:"categories"`
}
