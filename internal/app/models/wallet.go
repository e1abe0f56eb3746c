package models

import "time"

// WalletState is the lifecycle state of a benefits wallet
type WalletState string

const (
	WalletPending      WalletState = "PENDING"
	WalletQualified    WalletState = "QUALIFIED"
	WalletDisqualified WalletState = "DISQUALIFIED"
	WalletRunout       WalletState = "RUNOUT"
	WalletExpired      WalletState = "EXPIRED"
)

var walletTransitions = map[WalletState][]WalletState{
	WalletPending:   {WalletQualified, WalletDisqualified},
	WalletQualified: {WalletRunout, WalletExpired},
	WalletRunout:    {WalletExpired},
}

// CanTransitionTo reports whether the wallet state graph allows s -> next
func (s WalletState) CanTransitionTo(next WalletState) bool {
	for _, allowed := range walletTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsReimbursements reports whether members may submit requests
func (s WalletState) AcceptsReimbursements() bool {
	return s == WalletQualified || s == WalletRunout
}

// Wallet is a member's employer-sponsored benefit account
type Wallet struct {
	ID               int64       `json:"id" db:"id"`
	UserID           int64       `json:"userId" db:"user_id"`
	OrganizationName string      `json:"organizationName" db:"organization_name"`
	EmployeeID       string      `json:"employeeId" db:"employee_id"`
	State            WalletState `json:"state" db:"state"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

// WalletCategory is a benefit bucket with its own limit
type WalletCategory struct {
	ID         int64     `json:"id" db:"id"`
	WalletID   int64     `json:"walletId" db:"wallet_id"`
	Label      string    `json:"label" db:"label"`
	LimitCents int64     `json:"limitCents" db:"limit_cents"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// ReimbursementState is the lifecycle state of a reimbursement request
type ReimbursementState string

const (
	ReimbursementNew        ReimbursementState = "NEW"
	ReimbursementPending    ReimbursementState = "PENDING"
	ReimbursementApproved   ReimbursementState = "APPROVED"
	ReimbursementDenied     ReimbursementState = "DENIED"
	ReimbursementReimbursed ReimbursementState = "REIMBURSED"
)

var reimbursementTransitions = map[ReimbursementState][]ReimbursementState{
	ReimbursementNew:      {ReimbursementPending, ReimbursementApproved, ReimbursementDenied},
	ReimbursementPending:  {ReimbursementApproved, ReimbursementDenied},
	ReimbursementApproved: {ReimbursementReimbursed},
}

// CanTransitionTo reports whether the reimbursement graph allows s -> next
func (s ReimbursementState) CanTransitionTo(next ReimbursementState) bool {
	for _, allowed := range reimbursementTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReimbursementRequest is a member's claim against a wallet category
type ReimbursementRequest struct {
	ID           int64              `json:"id" db:"id"`
	WalletID     int64              `json:"walletId" db:"wallet_id"`
	CategoryID   int64              `json:"categoryId" db:"category_id"`
	AmountCents  int64              `json:"amountCents" db:"amount_cents"`
	ServiceDate  time.Time          `json:"serviceDate" db:"service_date"`
	Description  string             `json:"description" db:"description"`
	State        ReimbursementState `json:"state" db:"state"`
	DenialReason *string            `json:"denialReason,omitempty" db:"denial_reason"`
	DecidedAt    *time.Time         `json:"decidedAt,omitempty" db:"decided_at"`
	DecidedBy    *int64             `json:"decidedBy,omitempty" db:"decided_by"`
	ExportedAt   *time.Time         `json:"exportedAt,omitempty" db:"exported_at"`
	CreatedAt    time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" db:"updated_at"`
}

// CategoryBalance is the computed balance of one category
type CategoryBalance struct {
	CategoryID     int64  `json:"categoryId"`
	Label          string `json:"label"`
	LimitCents     int64  `json:"limitCents"`
	SpentCents     int64  `json:"spentCents"`
	PendingCents   int64  `json:"pendingCents"`
	AvailableCents int64  `json:"availableCents"`
}

// CategoryTotals are the per-state sums a balance is computed from
type CategoryTotals struct {
	CategoryID   int64
	SpentCents   int64
	PendingCents int64
}

// DepositCandidate is an approved request joined with what the EDI export needs
type DepositCandidate struct {
	RequestID     int64
	EmployeeID    string
	CategoryLabel string
	AmountCents   int64
	DecidedAt     time.Time
}
