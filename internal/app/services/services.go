// Package services holds the business rules of the platform. Each service
// depends on the narrow repository behaviour it needs, declared here, so the
// postgres repositories and in-memory test doubles are interchangeable.
package services

import (
	"context"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
)

// Services defined in this package:
// - AuthService: registration, login and refresh-token rotation
// - AppointmentService: products, availability, booking and reminders
// - RiskService: member risk flags and BMI evaluation
// - WalletService: employer wallets, categories and reimbursements
// - EligibilityService: health plans, real-time eligibility and cost breakdown
// - AccumulationService: payer accumulator files
// - EdiService: benefits-administrator deposit and result files

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
}

type tokenStore interface {
	CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	GetToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeToken(ctx context.Context, token string) error
	RotateToken(ctx context.Context, oldToken, newToken string, userID int64, expiryDate time.Time) error
	CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type productStore interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	ListActive(ctx context.Context, practitionerID *int64) ([]*models.Product, error)
}

type availabilityStore interface {
	Create(ctx context.Context, a *models.Availability) error
	ListOverlapping(ctx context.Context, practitionerID int64, start, end time.Time) ([]*models.Availability, error)
}

type appointmentStore interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	HasOverlap(ctx context.Context, practitionerID, memberID int64, start, end time.Time) (bool, error)
	Transition(ctx context.Context, a *models.Appointment) error
	ListByMember(ctx context.Context, memberID int64, offset, limit uint64) ([]*models.Appointment, int64, error)
	ListByPractitioner(ctx context.Context, practitionerID int64, offset, limit uint64) ([]*models.Appointment, int64, error)
	ListDueReminders(ctx context.Context, from, until time.Time) ([]*models.Appointment, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error
}

type riskStore interface {
	GetFlagByName(ctx context.Context, name string) (*models.RiskFlag, error)
	GetActive(ctx context.Context, userID, flagID int64) (*models.MemberRiskFlag, error)
	Insert(ctx context.Context, m *models.MemberRiskFlag) error
	UpdateValue(ctx context.Context, id int64, value *string) error
	End(ctx context.Context, id int64, endDate time.Time) error
	ListActive(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error)
	ListHistory(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error)
}

type walletStore interface {
	Create(ctx context.Context, w *models.Wallet) error
	GetByID(ctx context.Context, id int64) (*models.Wallet, error)
	UpdateState(ctx context.Context, id int64, from, to models.WalletState) error
	CreateCategory(ctx context.Context, c *models.WalletCategory) error
	GetCategory(ctx context.Context, id int64) (*models.WalletCategory, error)
	ListCategories(ctx context.Context, walletID int64) ([]*models.WalletCategory, error)
	CategoryTotals(ctx context.Context, walletID int64) ([]models.CategoryTotals, error)
	CreateReimbursement(ctx context.Context, req *models.ReimbursementRequest) error
	GetReimbursement(ctx context.Context, id int64) (*models.ReimbursementRequest, error)
	Approve(ctx context.Context, id, decidedBy int64, at time.Time) error
	Deny(ctx context.Context, id int64, from models.ReimbursementState, decidedBy int64, reason string, at time.Time) error
}

type depositStore interface {
	ClaimDepositCandidates(ctx context.Context, at time.Time) ([]models.DepositCandidate, error)
	ReleaseExported(ctx context.Context, ids []int64, at time.Time) error
	MarkReimbursed(ctx context.Context, id int64) error
	ClearExported(ctx context.Context, id int64) error
}

type payerStore interface {
	GetByID(ctx context.Context, id int64) (*models.Payer, error)
	GetByCode(ctx context.Context, code string) (*models.Payer, error)
	List(ctx context.Context) ([]*models.Payer, error)
}

type healthPlanStore interface {
	Create(ctx context.Context, p *models.MemberHealthPlan) error
	FindActive(ctx context.Context, memberID int64, day time.Time) (*models.MemberHealthPlan, error)
}

type treatmentStore interface {
	Create(ctx context.Context, t *models.TreatmentProcedure) error
	GetByID(ctx context.Context, id int64) (*models.TreatmentProcedure, error)
}

type accumulationStore interface {
	CreateMapping(ctx context.Context, m *models.AccumulationTreatmentMapping) error
	GetMapping(ctx context.Context, procedureID int64, isRefund bool) (*models.AccumulationTreatmentMapping, error)
	ListWaitingDetails(ctx context.Context, payerID int64) ([]*models.AccumulationDetail, error)
	ListReportDetails(ctx context.Context, reportID int64) ([]*models.AccumulationDetail, error)
	MarkRowErrors(ctx context.Context, ids []int64, reason string) error
	CreateReport(ctx context.Context, rep *models.PayerAccumulationReport, mappingIDs []int64) error
	GetReport(ctx context.Context, id int64) (*models.PayerAccumulationReport, error)
	UpdateReportFile(ctx context.Context, id int64, filename, storagePath string) error
	SubmitReport(ctx context.Context, id int64, at time.Time) error
	FindByTransmissionIDs(ctx context.Context, payerID int64, ids []string) (map[string]*models.AccumulationTreatmentMapping, error)
	ResolveMappings(ctx context.Context, resolutions []models.MappingResolution) ([]bool, error)
}

type ediStore interface {
	CreateTransfer(ctx context.Context, t *models.EdiTransfer) error
}
