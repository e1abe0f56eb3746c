package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/email"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// WalletService defines the interface for wallet and reimbursement operations
type WalletService interface {
	Enroll(ctx context.Context, req *dto.EnrollWalletRequest) (*models.Wallet, error)
	GetWallet(ctx context.Context, actor authz.Actor, walletID int64) (*models.Wallet, error)
	ChangeState(ctx context.Context, walletID int64, next models.WalletState) (*models.Wallet, error)
	Qualify(ctx context.Context, walletID int64) (*models.Wallet, error)
	Disqualify(ctx context.Context, walletID int64) (*models.Wallet, error)
	Runout(ctx context.Context, walletID int64) (*models.Wallet, error)
	Expire(ctx context.Context, walletID int64) (*models.Wallet, error)
	AddCategory(ctx context.Context, walletID int64, req *dto.AddCategoryRequest) (*models.WalletCategory, error)
	Balance(ctx context.Context, actor authz.Actor, walletID int64) (*dto.WalletBalanceResponse, error)
	SubmitReimbursement(ctx context.Context, actor authz.Actor, walletID int64, req *dto.SubmitReimbursementRequest) (*models.ReimbursementRequest, error)
	Approve(ctx context.Context, requestID, opsUserID int64) (*models.ReimbursementRequest, error)
	Deny(ctx context.Context, requestID, opsUserID int64, reason string) (*models.ReimbursementRequest, error)
}

type walletServiceImpl struct {
	walletRepo   walletStore
	userRepo     userStore
	authzService *authz.AuthorizationService
	emailService email.EmailService
	logger       zerolog.Logger
	now          func() time.Time
}

// NewWalletService creates a new WalletService
func NewWalletService(
	walletRepo walletStore,
	userRepo userStore,
	authzService *authz.AuthorizationService,
	emailService email.EmailService,
	logger zerolog.Logger,
) WalletService {
	return &walletServiceImpl{
		walletRepo:   walletRepo,
		userRepo:     userRepo,
		authzService: authzService,
		emailService: emailService,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *walletServiceImpl) Enroll(ctx context.Context, req *dto.EnrollWalletRequest) (*models.Wallet, error) {
	if strings.TrimSpace(req.OrganizationName) == "" || strings.TrimSpace(req.EmployeeID) == "" {
		return nil, fmt.Errorf("%w: organization and employee id are required", apperrors.ErrValidationFailed)
	}
	if _, err := s.authzService.ValidateRole(ctx, req.UserID, models.RoleMember); err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		UserID:           req.UserID,
		OrganizationName: strings.TrimSpace(req.OrganizationName),
		EmployeeID:       strings.TrimSpace(req.EmployeeID),
		State:            models.WalletPending,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("walletID", wallet.ID).Int64("userID", wallet.UserID).Msg("Wallet enrolled")
	return wallet, nil
}

func (s *walletServiceImpl) GetWallet(ctx context.Context, actor authz.Actor, walletID int64) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if err := actor.CanAccessMember(wallet.UserID); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *walletServiceImpl) ChangeState(ctx context.Context, walletID int64, next models.WalletState) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.State.CanTransitionTo(next) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidStateTransition,
			fmt.Sprintf("wallet cannot move from %s to %s", wallet.State, next))
	}
	if err := s.walletRepo.UpdateState(ctx, walletID, wallet.State, next); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("walletID", walletID).Str("from", string(wallet.State)).Str("to", string(next)).Msg("Wallet state changed")
	wallet.State = next
	return wallet, nil
}

func (s *walletServiceImpl) Qualify(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return s.ChangeState(ctx, walletID, models.WalletQualified)
}

func (s *walletServiceImpl) Disqualify(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return s.ChangeState(ctx, walletID, models.WalletDisqualified)
}

func (s *walletServiceImpl) Runout(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return s.ChangeState(ctx, walletID, models.WalletRunout)
}

func (s *walletServiceImpl) Expire(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return s.ChangeState(ctx, walletID, models.WalletExpired)
}

func (s *walletServiceImpl) AddCategory(ctx context.Context, walletID int64, req *dto.AddCategoryRequest) (*models.WalletCategory, error) {
	if req.LimitCents <= 0 {
		return nil, fmt.Errorf("%w: category limit must be positive", apperrors.ErrValidationFailed)
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: category label is required", apperrors.ErrValidationFailed)
	}
	if _, err := s.walletRepo.GetByID(ctx, walletID); err != nil {
		return nil, err
	}

	category := &models.WalletCategory{WalletID: walletID, Label: label, LimitCents: req.LimitCents}
	if err := s.walletRepo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *walletServiceImpl) Balance(ctx context.Context, actor authz.Actor, walletID int64) (*dto.WalletBalanceResponse, error) {
	wallet, err := s.GetWallet(ctx, actor, walletID)
	if err != nil {
		return nil, err
	}
	categories, err := s.walletRepo.ListCategories(ctx, walletID)
	if err != nil {
		return nil, err
	}
	totals, err := s.walletRepo.CategoryTotals(ctx, walletID)
	if err != nil {
		return nil, err
	}

	return &dto.WalletBalanceResponse{
		WalletID:   wallet.ID,
		State:      wallet.State,
		Categories: ComputeBalances(categories, totals),
	}, nil
}

// ComputeBalances joins category limits with their reimbursement totals.
// Spent counts APPROVED and REIMBURSED requests, pending counts NEW and
// PENDING, and available is limit minus spent.
func ComputeBalances(categories []*models.WalletCategory, totals []models.CategoryTotals) []models.CategoryBalance {
	byCategory := make(map[int64]models.CategoryTotals, len(totals))
	for _, t := range totals {
		byCategory[t.CategoryID] = t
	}

	out := make([]models.CategoryBalance, 0, len(categories))
	for _, c := range categories {
		t := byCategory[c.ID]
		out = append(out, models.CategoryBalance{
			CategoryID:     c.ID,
			Label:          c.Label,
			LimitCents:     c.LimitCents,
			SpentCents:     t.SpentCents,
			PendingCents:   t.PendingCents,
			AvailableCents: c.LimitCents - t.SpentCents,
		})
	}
	return out
}

func (s *walletServiceImpl) SubmitReimbursement(ctx context.Context, actor authz.Actor, walletID int64, req *dto.SubmitReimbursementRequest) (*models.ReimbursementRequest, error) {
	wallet, err := s.GetWallet(ctx, actor, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.State.AcceptsReimbursements() {
		return nil, apperrors.ErrWalletNotQualified
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidationFailed)
	}

	serviceDate, err := helpers.ParseDate(req.ServiceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: serviceDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	if serviceDate.After(helpers.StartOfDay(s.now().UTC())) {
		return nil, fmt.Errorf("%w: serviceDate cannot be in the future", apperrors.ErrValidationFailed)
	}

	category, err := s.walletRepo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.WalletID != walletID {
		return nil, apperrors.ErrCategoryNotFound
	}

	request := &models.ReimbursementRequest{
		WalletID:    walletID,
		CategoryID:  category.ID,
		AmountCents: req.AmountCents,
		ServiceDate: serviceDate,
		Description: req.Description,
		State:       models.ReimbursementNew,
	}
	if err := s.walletRepo.CreateReimbursement(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *walletServiceImpl) Approve(ctx context.Context, requestID, opsUserID int64) (*models.ReimbursementRequest, error) {
	if err := s.walletRepo.Approve(ctx, requestID, opsUserID, s.now().UTC()); err != nil {
		return nil, err
	}
	request, err := s.walletRepo.GetReimbursement(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("reimbursementID", requestID).Int64("decidedBy", opsUserID).Msg("Reimbursement approved")
	s.notifyDecision(ctx, request, true, "")
	return request, nil
}

func (s *walletServiceImpl) Deny(ctx context.Context, requestID, opsUserID int64, reason string) (*models.ReimbursementRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a denial reason is required", apperrors.ErrValidationFailed)
	}
	request, err := s.walletRepo.GetReimbursement(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.State.CanTransitionTo(models.ReimbursementDenied) {
		return nil, apperrors.ErrInvalidStateTransition
	}
	if err := s.walletRepo.Deny(ctx, requestID, request.State, opsUserID, reason, s.now().UTC()); err != nil {
		return nil, err
	}

	request, err = s.walletRepo.GetReimbursement(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("reimbursementID", requestID).Int64("decidedBy", opsUserID).Msg("Reimbursement denied")
	s.notifyDecision(ctx, request, false, reason)
	return request, nil
}

// notifyDecision emails the wallet owner; failures are logged only
func (s *walletServiceImpl) notifyDecision(ctx context.Context, request *models.ReimbursementRequest, approved bool, reason string) {
	wallet, err := s.walletRepo.GetByID(ctx, request.WalletID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("walletID", request.WalletID).Msg("Cannot load wallet for decision email")
		return
	}
	member, err := s.userRepo.GetByID(ctx, wallet.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("userID", wallet.UserID).Msg("Cannot load member for decision email")
		return
	}
	if err := s.emailService.SendReimbursementDecision(member.Email, member.FullName(), request.AmountCents, approved, reason); err != nil {
		s.logger.Warn().Err(err).Int64("reimbursementID", request.ID).Msg("Failed to send reimbursement decision email")
	}
}
