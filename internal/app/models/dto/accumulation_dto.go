package dto

import "github.com/carebridge/carebridge/internal/app/models"

// CreateTreatmentRequest records a procedure with its member-paid amounts
type CreateTreatmentRequest struct {
	MemberID        int64                  `json:"memberId" binding:"required,min=1"`
	PayerID         *int64                 `json:"payerId"`
	ProcedureName   string                 `json:"procedureName" binding:"required"`
	StartDate       string                 `json:"startDate" binding:"required"`
	EndDate         string                 `json:"endDate"`
	CostCents       int64                  `json:"costCents" binding:"min=0"`
	DeductibleCents int64                  `json:"deductibleCents" binding:"min=0"`
	OOPCents        int64                  `json:"oopCents" binding:"min=0"`
	Status          models.TreatmentStatus `json:"status" binding:"required,oneof=SCHEDULED IN_PROGRESS COMPLETED PARTIALLY_COMPLETED CANCELLED"`
}

// GenerateReportRequest generates the accumulator file for one payer
type GenerateReportRequest struct {
	PayerCode string `json:"payerCode" binding:"required"`
}

// ReconcileResult summarizes a processed payer response file. Skipped counts
// rows whose mapping was not awaiting a response.
type ReconcileResult struct {
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Unmatched int `json:"unmatched"`
	Skipped   int `json:"skipped"`
}
