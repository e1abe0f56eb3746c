package models

import "time"

// MemberHealthPlan links a member to a payer plan over a date range
type MemberHealthPlan struct {
	ID                  int64      `json:"id" db:"id"`
	MemberID            int64      `json:"memberId" db:"member_id"`
	PayerID             int64      `json:"payerId" db:"payer_id"`
	SubscriberID        string     `json:"subscriberId" db:"subscriber_id"`
	PlanName            string     `json:"planName" db:"plan_name"`
	IsFamilyPlan        bool       `json:"isFamilyPlan" db:"is_family_plan"`
	PlanStart           time.Time  `json:"planStart" db:"plan_start"`
	PlanEnd             *time.Time `json:"planEnd,omitempty" db:"plan_end"`
	SubscriberFirstName string     `json:"subscriberFirstName" db:"subscriber_first_name"`
	SubscriberLastName  string     `json:"subscriberLastName" db:"subscriber_last_name"`
	SubscriberDOB       time.Time  `json:"subscriberDob" db:"subscriber_dob"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
}

// ActiveOn reports whether the plan covers the calendar day of at.
// PlanEnd is inclusive.
func (p *MemberHealthPlan) ActiveOn(at time.Time) bool {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(p.PlanStart) {
		return false
	}
	return p.PlanEnd == nil || !day.After(*p.PlanEnd)
}

// EligibilityInfo is the real-time eligibility snapshot for a plan
type EligibilityInfo struct {
	PlanID                   int64     `json:"planId"`
	IsActive                 bool      `json:"isActive"`
	DeductibleCents          int64     `json:"deductibleCents"`
	DeductibleRemainingCents int64     `json:"deductibleRemainingCents"`
	OOPCents                 int64     `json:"oopCents"`
	OOPRemainingCents        int64     `json:"oopRemainingCents"`
	CoinsurancePct           int       `json:"coinsurancePct"`
	CopayCents               int64     `json:"copayCents"`
	RetrievedAt              time.Time `json:"retrievedAt"`
	Cached                   bool      `json:"cached"`
}

// CostBreakdown splits a procedure cost between member and employer
type CostBreakdown struct {
	CostCents                   int64 `json:"costCents"`
	DeductibleAppliedCents      int64 `json:"deductibleAppliedCents"`
	CoinsuranceCents            int64 `json:"coinsuranceCents"`
	OOPAppliedCents             int64 `json:"oopAppliedCents"`
	MemberResponsibilityCents   int64 `json:"memberResponsibilityCents"`
	EmployerResponsibilityCents int64 `json:"employerResponsibilityCents"`
}
