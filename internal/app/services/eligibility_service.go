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
	"github.com/carebridge/carebridge/internal/pkg/cache"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/carebridge/carebridge/internal/pkg/metrics"
	"github.com/carebridge/carebridge/internal/pkg/pverify"
	"github.com/carebridge/carebridge/internal/pkg/validation"
	"github.com/rs/zerolog"
)

const defaultEligibilityTTL = 12 * time.Hour

type eligibilityClient interface {
	EligibilitySummary(ctx context.Context, req pverify.Request) (*pverify.Summary, error)
}

// EligibilityService defines the interface for plan eligibility operations
type EligibilityService interface {
	CreateHealthPlan(ctx context.Context, req *dto.CreateHealthPlanRequest) (*models.MemberHealthPlan, error)
	ListPayers(ctx context.Context) ([]*models.Payer, error)
	GetEligibility(ctx context.Context, memberID int64, at time.Time) (*models.EligibilityInfo, error)
	CostBreakdown(ctx context.Context, memberID, costCents int64, at time.Time) (*models.CostBreakdown, error)
}

type eligibilityServiceImpl struct {
	planRepo     healthPlanStore
	payerRepo    payerStore
	authzService *authz.AuthorizationService
	client       eligibilityClient
	cache        cache.Cache
	cacheTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEligibilityService creates a new EligibilityService. A nil cache
// disables caching and every lookup goes to the provider.
func NewEligibilityService(
	planRepo healthPlanStore,
	payerRepo payerStore,
	authzService *authz.AuthorizationService,
	client eligibilityClient,
	c cache.Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) EligibilityService {
	if cacheTTL <= 0 {
		cacheTTL = defaultEligibilityTTL
	}
	return &eligibilityServiceImpl{
		planRepo:     planRepo,
		payerRepo:    payerRepo,
		authzService: authzService,
		client:       client,
		cache:        c,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *eligibilityServiceImpl) CreateHealthPlan(ctx context.Context, req *dto.CreateHealthPlanRequest) (*models.MemberHealthPlan, error) {
	subscriberID := strings.TrimSpace(req.SubscriberID)
	if !validation.IsValidSubscriberID(subscriberID) {
		return nil, fmt.Errorf("%w: subscriberId must be 3-20 letters or digits", apperrors.ErrValidationFailed)
	}
	start, err := helpers.ParseDate(req.PlanStart)
	if err != nil {
		return nil, fmt.Errorf("%w: planStart must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	dob, err := helpers.ParseDate(req.SubscriberDOB)
	if err != nil {
		return nil, fmt.Errorf("%w: subscriberDob must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	var end *time.Time
	if req.PlanEnd != "" {
		e, err := helpers.ParseDate(req.PlanEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: planEnd must be YYYY-MM-DD", apperrors.ErrValidationFailed)
		}
		if e.Before(start) {
			return nil, fmt.Errorf("%w: planEnd is before planStart", apperrors.ErrValidationFailed)
		}
		end = &e
	}

	if _, err := s.authzService.ValidateRole(ctx, req.MemberID, models.RoleMember); err != nil {
		return nil, err
	}
	if _, err := s.payerRepo.GetByID(ctx, req.PayerID); err != nil {
		return nil, err
	}

	plan := &models.MemberHealthPlan{
		MemberID:            req.MemberID,
		PayerID:             req.PayerID,
		SubscriberID:        strings.ToUpper(subscriberID),
		PlanName:            strings.TrimSpace(req.PlanName),
		IsFamilyPlan:        req.IsFamilyPlan,
		PlanStart:           start,
		PlanEnd:             end,
		SubscriberFirstName: strings.TrimSpace(req.SubscriberFirstName),
		SubscriberLastName:  strings.TrimSpace(req.SubscriberLastName),
		SubscriberDOB:       dob,
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *eligibilityServiceImpl) ListPayers(ctx context.Context) ([]*models.Payer, error) {
	return s.payerRepo.List(ctx)
}

func eligibilityCacheKey(planID int64) string {
	return fmt.Sprintf("rte:%d", planID)
}

// GetEligibility returns the real-time eligibility of the plan active at at,
// served from cache while fresh.
func (s *eligibilityServiceImpl) GetEligibility(ctx context.Context, memberID int64, at time.Time) (*models.EligibilityInfo, error) {
	plan, err := s.planRepo.FindActive(ctx, memberID, at)
	if err != nil {
		return nil, err
	}

	key := eligibilityCacheKey(plan.ID)
	if s.cache != nil {
		var cached models.EligibilityInfo
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Eligibility cache read failed")
		} else if found {
			metrics.RecordEligibilityLookup("cache")
			cached.Cached = true
			return &cached, nil
		}
	}

	payer, err := s.payerRepo.GetByID(ctx, plan.PayerID)
	if err != nil {
		return nil, err
	}

	summary, err := s.client.EligibilitySummary(ctx, pverify.Request{
		PayerCode:     payer.EligibilityPayerCode,
		SubscriberID:  plan.SubscriberID,
		FirstName:     plan.SubscriberFirstName,
		LastName:      plan.SubscriberLastName,
		DateOfBirth:   plan.SubscriberDOB,
		DateOfService: at,
		FamilyPlan:    plan.IsFamilyPlan,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("planID", plan.ID).Str("subscriberID", logger.MaskID(plan.SubscriberID)).Msg("Eligibility lookup failed")
		return nil, err
	}
	metrics.RecordEligibilityLookup("pverify")

	info := &models.EligibilityInfo{
		PlanID:                   plan.ID,
		IsActive:                 summary.IsActive,
		DeductibleCents:          summary.DeductibleCents,
		DeductibleRemainingCents: summary.DeductibleRemainingCents,
		OOPCents:                 summary.OOPCents,
		OOPRemainingCents:        summary.OOPRemainingCents,
		CoinsurancePct:           summary.CoinsurancePct,
		CopayCents:               summary.CopayCents,
		RetrievedAt:              s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, info, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Eligibility cache write failed")
		}
	}
	return info, nil
}

func (s *eligibilityServiceImpl) CostBreakdown(ctx context.Context, memberID, costCents int64, at time.Time) (*models.CostBreakdown, error) {
	if costCents <= 0 {
		return nil, fmt.Errorf("%w: cost must be positive", apperrors.ErrValidationFailed)
	}
	info, err := s.GetEligibility(ctx, memberID, at)
	if err != nil {
		return nil, err
	}
	return ComputeCostBreakdown(costCents, info), nil
}

// ComputeCostBreakdown splits a cost using the member's remaining deductible
// and out-of-pocket amounts. The deductible is applied first, coinsurance is
// charged on the remainder and the member's total never exceeds the OOP
// remaining when the plan reports an OOP maximum. Inactive coverage leaves
// the whole cost with the employer.
func ComputeCostBreakdown(costCents int64, info *models.EligibilityInfo) *models.CostBreakdown {
	out := &models.CostBreakdown{CostCents: costCents}
	if info == nil || !info.IsActive {
		out.EmployerResponsibilityCents = costCents
		return out
	}

	deductible := min(costCents, max(info.DeductibleRemainingCents, 0))
	rest := costCents - deductible
	coinsurance := (rest*int64(info.CoinsurancePct) + 50) / 100

	if info.OOPCents > 0 {
		oopRemaining := max(info.OOPRemainingCents, 0)
		deductible = min(deductible, oopRemaining)
		coinsurance = min(coinsurance, oopRemaining-deductible)
	}

	member := deductible + coinsurance
	out.DeductibleAppliedCents = deductible
	out.CoinsuranceCents = coinsurance
	out.MemberResponsibilityCents = member
	out.EmployerResponsibilityCents = costCents - member
	if info.OOPCents > 0 {
		out.OOPAppliedCents = member
	}
	return out
}
