package models

import "time"

// RiskSeverity grades a risk flag
type RiskSeverity string

const (
	RiskNone   RiskSeverity = "NONE"
	RiskLow    RiskSeverity = "LOW_RISK"
	RiskMedium RiskSeverity = "MEDIUM_RISK"
	RiskHigh   RiskSeverity = "HIGH_RISK"
)

// Well-known flag names
const (
	RiskFlagHighBMI    = "High BMI"
	RiskFlagOverweight = "Overweight"
)

// RiskFlag is a catalogue entry
type RiskFlag struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Severity  RiskSeverity `json:"severity" db:"severity"`
	IsChronic bool         `json:"isChronic" db:"is_chronic"`
}

// MemberRiskFlag records a flag on a member over a date range.
// A nil EndDate means the flag is active.
type MemberRiskFlag struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"userId" db:"user_id"`
	RiskFlagID int64      `json:"riskFlagId" db:"risk_flag_id"`
	Value      *string    `json:"value,omitempty" db:"value"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	EndDate    *time.Time `json:"endDate,omitempty" db:"end_date"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`

	RiskFlag *RiskFlag `json:"riskFlag,omitempty"`
}

// Active reports whether the flag has not been ended
func (m *MemberRiskFlag) Active() bool {
	return m.EndDate == nil
}

// RiskChange describes what SetRisk/ClearRisk did
type RiskChange string

const (
	RiskAdded   RiskChange = "added"
	RiskUpdated RiskChange = "updated"
	RiskCleared RiskChange = "cleared"
	RiskNoop    RiskChange = "none"
)
