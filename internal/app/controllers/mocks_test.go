package controllers

import (
	"context"
	"time"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/stretchr/testify/mock"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	args := m.Called(ctx, refreshToken)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *mockAuthService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	resp, _ := args.Get(0).(*dto.UserResponse)
	return resp, args.Error(1)
}

type mockAppointmentService struct{ mock.Mock }

func (m *mockAppointmentService) CreateProduct(ctx context.Context, practitionerID int64, req *dto.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, practitionerID, req)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *mockAppointmentService) ListProducts(ctx context.Context, practitionerID *int64) ([]*models.Product, error) {
	args := m.Called(ctx, practitionerID)
	p, _ := args.Get(0).([]*models.Product)
	return p, args.Error(1)
}

func (m *mockAppointmentService) AddAvailability(ctx context.Context, practitionerID int64, req *dto.AddAvailabilityRequest) (*models.Availability, error) {
	args := m.Called(ctx, practitionerID, req)
	a, _ := args.Get(0).(*models.Availability)
	return a, args.Error(1)
}

func (m *mockAppointmentService) Book(ctx context.Context, memberID int64, req *dto.BookAppointmentRequest) (*models.Appointment, error) {
	args := m.Called(ctx, memberID, req)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) Cancel(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	args := m.Called(ctx, actor, appointmentID)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) Complete(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	args := m.Called(ctx, actor, appointmentID)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) MarkNoShow(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	args := m.Called(ctx, actor, appointmentID)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) ListForMember(ctx context.Context, memberID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error) {
	args := m.Called(ctx, memberID, page, size)
	a, _ := args.Get(0).([]*models.Appointment)
	p, _ := args.Get(1).(*dto.PaginationInfo)
	return a, p, args.Error(2)
}

func (m *mockAppointmentService) ListForPractitioner(ctx context.Context, practitionerID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error) {
	args := m.Called(ctx, practitionerID, page, size)
	a, _ := args.Get(0).([]*models.Appointment)
	p, _ := args.Get(1).(*dto.PaginationInfo)
	return a, p, args.Error(2)
}

func (m *mockAppointmentService) SendReminders(ctx context.Context, now time.Time, lead time.Duration) (int, error) {
	args := m.Called(ctx, now, lead)
	return args.Int(0), args.Error(1)
}

type mockRiskService struct{ mock.Mock }

func (m *mockRiskService) SetRisk(ctx context.Context, userID int64, flagName string, value *string) (models.RiskChange, error) {
	args := m.Called(ctx, userID, flagName, value)
	return args.Get(0).(models.RiskChange), args.Error(1)
}

func (m *mockRiskService) ClearRisk(ctx context.Context, userID int64, flagName string) (models.RiskChange, error) {
	args := m.Called(ctx, userID, flagName)
	return args.Get(0).(models.RiskChange), args.Error(1)
}

func (m *mockRiskService) ActiveRisks(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	args := m.Called(ctx, userID)
	f, _ := args.Get(0).([]*models.MemberRiskFlag)
	return f, args.Error(1)
}

func (m *mockRiskService) RiskHistory(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	args := m.Called(ctx, userID)
	f, _ := args.Get(0).([]*models.MemberRiskFlag)
	return f, args.Error(1)
}

func (m *mockRiskService) EvaluateBMI(ctx context.Context, userID int64, heightInches, weightLbs float64) (float64, map[string]models.RiskChange, error) {
	args := m.Called(ctx, userID, heightInches, weightLbs)
	changes, _ := args.Get(1).(map[string]models.RiskChange)
	return args.Get(0).(float64), changes, args.Error(2)
}

type mockWalletService struct{ mock.Mock }

func (m *mockWalletService) wallet(args mock.Arguments) (*models.Wallet, error) {
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *mockWalletService) request(args mock.Arguments) (*models.ReimbursementRequest, error) {
	r, _ := args.Get(0).(*models.ReimbursementRequest)
	return r, args.Error(1)
}

func (m *mockWalletService) Enroll(ctx context.Context, req *dto.EnrollWalletRequest) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, req))
}

func (m *mockWalletService) GetWallet(ctx context.Context, actor authz.Actor, walletID int64) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, actor, walletID))
}

func (m *mockWalletService) ChangeState(ctx context.Context, walletID int64, next models.WalletState) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, walletID, next))
}

func (m *mockWalletService) Qualify(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, walletID))
}

func (m *mockWalletService) Disqualify(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, walletID))
}

func (m *mockWalletService) Runout(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, walletID))
}

func (m *mockWalletService) Expire(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return m.wallet(m.Called(ctx, walletID))
}

func (m *mockWalletService) AddCategory(ctx context.Context, walletID int64, req *dto.AddCategoryRequest) (*models.WalletCategory, error) {
	args := m.Called(ctx, walletID, req)
	c, _ := args.Get(0).(*models.WalletCategory)
	return c, args.Error(1)
}

func (m *mockWalletService) Balance(ctx context.Context, actor authz.Actor, walletID int64) (*dto.WalletBalanceResponse, error) {
	args := m.Called(ctx, actor, walletID)
	b, _ := args.Get(0).(*dto.WalletBalanceResponse)
	return b, args.Error(1)
}

func (m *mockWalletService) SubmitReimbursement(ctx context.Context, actor authz.Actor, walletID int64, req *dto.SubmitReimbursementRequest) (*models.ReimbursementRequest, error) {
	return m.request(m.Called(ctx, actor, walletID, req))
}

func (m *mockWalletService) Approve(ctx context.Context, requestID, opsUserID int64) (*models.ReimbursementRequest, error) {
	return m.request(m.Called(ctx, requestID, opsUserID))
}

func (m *mockWalletService) Deny(ctx context.Context, requestID, opsUserID int64, reason string) (*models.ReimbursementRequest, error) {
	return m.request(m.Called(ctx, requestID, opsUserID, reason))
}

type mockEligibilityService struct{ mock.Mock }

func (m *mockEligibilityService) CreateHealthPlan(ctx context.Context, req *dto.CreateHealthPlanRequest) (*models.MemberHealthPlan, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.MemberHealthPlan)
	return p, args.Error(1)
}

func (m *mockEligibilityService) ListPayers(ctx context.Context) ([]*models.Payer, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*models.Payer)
	return p, args.Error(1)
}

func (m *mockEligibilityService) GetEligibility(ctx context.Context, memberID int64, at time.Time) (*models.EligibilityInfo, error) {
	args := m.Called(ctx, memberID, at)
	info, _ := args.Get(0).(*models.EligibilityInfo)
	return info, args.Error(1)
}

func (m *mockEligibilityService) CostBreakdown(ctx context.Context, memberID, costCents int64, at time.Time) (*models.CostBreakdown, error) {
	args := m.Called(ctx, memberID, costCents, at)
	b, _ := args.Get(0).(*models.CostBreakdown)
	return b, args.Error(1)
}

type mockAccumulationService struct{ mock.Mock }

func (m *mockAccumulationService) CreateTreatment(ctx context.Context, req *dto.CreateTreatmentRequest) (*models.TreatmentProcedure, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*models.TreatmentProcedure)
	return t, args.Error(1)
}

func (m *mockAccumulationService) QueueProcedure(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error) {
	args := m.Called(ctx, procedureID)
	t, _ := args.Get(0).(*models.AccumulationTreatmentMapping)
	return t, args.Error(1)
}

func (m *mockAccumulationService) QueueRefund(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error) {
	args := m.Called(ctx, procedureID)
	t, _ := args.Get(0).(*models.AccumulationTreatmentMapping)
	return t, args.Error(1)
}

func (m *mockAccumulationService) GenerateReport(ctx context.Context, payerCode string, now time.Time) (*models.PayerAccumulationReport, error) {
	args := m.Called(ctx, payerCode, now)
	r, _ := args.Get(0).(*models.PayerAccumulationReport)
	return r, args.Error(1)
}

func (m *mockAccumulationService) GenerateAllReports(ctx context.Context, now time.Time) error {
	return m.Called(ctx, now).Error(0)
}

func (m *mockAccumulationService) SubmitReport(ctx context.Context, reportID int64) (*models.PayerAccumulationReport, error) {
	args := m.Called(ctx, reportID)
	r, _ := args.Get(0).(*models.PayerAccumulationReport)
	return r, args.Error(1)
}

func (m *mockAccumulationService) ReconcileResponse(ctx context.Context, payerCode, body string) (*dto.ReconcileResult, error) {
	args := m.Called(ctx, payerCode, body)
	r, _ := args.Get(0).(*dto.ReconcileResult)
	return r, args.Error(1)
}

func (m *mockAccumulationService) RegenerateReport(ctx context.Context, reportID int64, now time.Time) (*models.PayerAccumulationReport, error) {
	args := m.Called(ctx, reportID, now)
	r, _ := args.Get(0).(*models.PayerAccumulationReport)
	return r, args.Error(1)
}

func (m *mockAccumulationService) ExportReportXLSX(ctx context.Context, reportID int64) ([]byte, string, error) {
	args := m.Called(ctx, reportID)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

type mockEdiService struct{ mock.Mock }

func (m *mockEdiService) ExportDeposits(ctx context.Context, now time.Time) (*models.EdiTransfer, error) {
	args := m.Called(ctx, now)
	t, _ := args.Get(0).(*models.EdiTransfer)
	return t, args.Error(1)
}

func (m *mockEdiService) ImportResults(ctx context.Context, filename string, body []byte) (*dto.ResultImportResponse, error) {
	args := m.Called(ctx, filename, body)
	r, _ := args.Get(0).(*dto.ResultImportResponse)
	return r, args.Error(1)
}
