package dto

import "github.com/carebridge/carebridge/internal/app/models"

// DepositExportResponse describes a generated deposit file
type DepositExportResponse struct {
	Transfer *models.EdiTransfer `json:"transfer"`
}

// ResultImportResponse summarizes an imported result file
type ResultImportResponse struct {
	Reimbursed int `json:"reimbursed"`
	Failed     int `json:"failed"`
	Unmatched  int `json:"unmatched"`
}
