package dto

import "github.com/carebridge/carebridge/internal/app/models"

// SetRiskRequest sets or updates a member's risk flag
type SetRiskRequest struct {
	Value *string `json:"value"`
}

// BMIRequest carries measurements in inches and pounds
type BMIRequest struct {
	HeightInches float64 `json:"heightInches" binding:"required,gt=0"`
	WeightLbs    float64 `json:"weightLbs" binding:"required,gt=0"`
}

// RiskChangeResponse reports what a risk mutation did
type RiskChangeResponse struct {
	Flag   string            `json:"flag"`
	Change models.RiskChange `json:"change"`
}

// BMIResponse reports the computed BMI and resulting flag changes
type BMIResponse struct {
	BMI     float64              `json:"bmi"`
	Changes []RiskChangeResponse `json:"changes"`
}
