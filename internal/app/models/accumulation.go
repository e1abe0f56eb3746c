package models

import "time"

// Payer is a health insurance carrier that receives accumulator files
type Payer struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	// Code selects the accumulator file format
	Code                 string `json:"code" db:"code"`
	ReceiverID           string `json:"receiverId" db:"receiver_id"`
	EligibilityPayerCode string `json:"eligibilityPayerCode" db:"eligibility_payer_code"`
}

// TreatmentStatus is the clinical status of a procedure
type TreatmentStatus string

const (
	TreatmentScheduled          TreatmentStatus = "SCHEDULED"
	TreatmentInProgress         TreatmentStatus = "IN_PROGRESS"
	TreatmentCompleted          TreatmentStatus = "COMPLETED"
	TreatmentPartiallyCompleted TreatmentStatus = "PARTIALLY_COMPLETED"
	TreatmentCancelled          TreatmentStatus = "CANCELLED"
)

// Billable reports whether a procedure in this status can accumulate
func (s TreatmentStatus) Billable() bool {
	return s == TreatmentCompleted || s == TreatmentPartiallyCompleted
}

// TreatmentProcedure is a member's procedure with its member-paid amounts
type TreatmentProcedure struct {
	ID              int64           `json:"id" db:"id"`
	MemberID        int64           `json:"memberId" db:"member_id"`
	PayerID         *int64          `json:"payerId,omitempty" db:"payer_id"`
	ProcedureName   string          `json:"procedureName" db:"procedure_name"`
	StartDate       time.Time       `json:"startDate" db:"start_date"`
	EndDate         *time.Time      `json:"endDate,omitempty" db:"end_date"`
	CostCents       int64           `json:"costCents" db:"cost_cents"`
	DeductibleCents int64           `json:"deductibleCents" db:"deductible_cents"`
	OOPCents        int64           `json:"oopCents" db:"oop_cents"`
	Status          TreatmentStatus `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

// ServiceDate is the end date when known, else the start date
func (t *TreatmentProcedure) ServiceDate() time.Time {
	if t.EndDate != nil {
		return *t.EndDate
	}
	return t.StartDate
}

// AccumulationStatus tracks a mapping through the file exchange
type AccumulationStatus string

const (
	AccumulationPaid      AccumulationStatus = "PAID"
	AccumulationWaiting   AccumulationStatus = "WAITING"
	AccumulationProcessed AccumulationStatus = "PROCESSED"
	AccumulationSubmitted AccumulationStatus = "SUBMITTED"
	AccumulationAccepted  AccumulationStatus = "ACCEPTED"
	AccumulationRejected  AccumulationStatus = "REJECTED"
	AccumulationRowError  AccumulationStatus = "ROW_ERROR"
	AccumulationSkip      AccumulationStatus = "SKIP"
)

// AccumulationTreatmentMapping is one procedure's row in a payer file
type AccumulationTreatmentMapping struct {
	ID                   int64              `json:"id" db:"id"`
	TreatmentProcedureID int64              `json:"treatmentProcedureId" db:"treatment_procedure_id"`
	PayerID              int64              `json:"payerId" db:"payer_id"`
	ReportID             *int64             `json:"reportId,omitempty" db:"report_id"`
	Status               AccumulationStatus `json:"status" db:"status"`
	DeductibleCents      int64              `json:"deductibleCents" db:"deductible_cents"`
	OOPCents             int64              `json:"oopCents" db:"oop_cents"`
	IsRefund             bool               `json:"isRefund" db:"is_refund"`
	RowErrorReason       *string            `json:"rowErrorReason,omitempty" db:"row_error_reason"`
	TransmissionID       string             `json:"transmissionId" db:"transmission_id"`
	CreatedAt            time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time          `json:"updatedAt" db:"updated_at"`
}

// AccumulationDetail is a mapping joined with the member data a file row needs
type AccumulationDetail struct {
	Mapping       AccumulationTreatmentMapping
	SubscriberID  string
	FirstName     string
	LastName      string
	DateOfBirth   time.Time
	DateOfService time.Time
	ProcedureName string
}

// MappingResolution is a payer's verdict on one submitted mapping
type MappingResolution struct {
	MappingID int64
	Status    AccumulationStatus
	Reason    *string
}

// ReportStatus is the lifecycle state of an accumulation report
type ReportStatus string

const (
	ReportNew       ReportStatus = "NEW"
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportFailure   ReportStatus = "FAILURE"
)

// PayerAccumulationReport is one generated payer file
type PayerAccumulationReport struct {
	ID                   int64        `json:"id" db:"id"`
	PayerID              int64        `json:"payerId" db:"payer_id"`
	Filename             string       `json:"filename" db:"filename"`
	StoragePath          string       `json:"storagePath" db:"storage_path"`
	ReportDate           time.Time    `json:"reportDate" db:"report_date"`
	Status               ReportStatus `json:"status" db:"status"`
	DetailCount          int          `json:"detailCount" db:"detail_count"`
	TotalDeductibleCents int64        `json:"totalDeductibleCents" db:"total_deductible_cents"`
	TotalOOPCents        int64        `json:"totalOopCents" db:"total_oop_cents"`
	SubmittedAt          *time.Time   `json:"submittedAt,omitempty" db:"submitted_at"`
	CreatedAt            time.Time    `json:"createdAt" db:"created_at"`
}
