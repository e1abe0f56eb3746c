package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// BMI thresholds
const (
	bmiHigh       = 30.0
	bmiOverweight = 25.0
)

// RiskService defines the interface for member risk flag operations
type RiskService interface {
	SetRisk(ctx context.Context, userID int64, flagName string, value *string) (models.RiskChange, error)
	ClearRisk(ctx context.Context, userID int64, flagName string) (models.RiskChange, error)
	ActiveRisks(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error)
	RiskHistory(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error)
	EvaluateBMI(ctx context.Context, userID int64, heightInches, weightLbs float64) (float64, map[string]models.RiskChange, error)
}

type riskServiceImpl struct {
	riskRepo riskStore
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRiskService creates a new RiskService
func NewRiskService(riskRepo riskStore, logger zerolog.Logger) RiskService {
	return &riskServiceImpl{riskRepo: riskRepo, logger: logger, now: time.Now}
}

func (s *riskServiceImpl) today() time.Time {
	return helpers.StartOfDay(s.now().UTC())
}

func (s *riskServiceImpl) SetRisk(ctx context.Context, userID int64, flagName string, value *string) (models.RiskChange, error) {
	flag, err := s.riskRepo.GetFlagByName(ctx, flagName)
	if err != nil {
		return models.RiskNoop, err
	}

	active, err := s.riskRepo.GetActive(ctx, userID, flag.ID)
	switch {
	case err == nil:
		if sameValue(active.Value, value) {
			return models.RiskNoop, nil
		}
		if err := s.riskRepo.UpdateValue(ctx, active.ID, value); err != nil {
			return models.RiskNoop, err
		}
		return models.RiskUpdated, nil
	case !errors.Is(err, apperrors.ErrResourceNotFound):
		return models.RiskNoop, err
	}

	row := &models.MemberRiskFlag{
		UserID:     userID,
		RiskFlagID: flag.ID,
		Value:      value,
		StartDate:  s.today(),
	}
	if err := s.riskRepo.Insert(ctx, row); err != nil {
		return models.RiskNoop, err
	}
	s.logger.Info().Int64("userID", userID).Str("flag", flag.Name).Msg("Risk flag added")
	return models.RiskAdded, nil
}

func (s *riskServiceImpl) ClearRisk(ctx context.Context, userID int64, flagName string) (models.RiskChange, error) {
	flag, err := s.riskRepo.GetFlagByName(ctx, flagName)
	if err != nil {
		return models.RiskNoop, err
	}

	active, err := s.riskRepo.GetActive(ctx, userID, flag.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return models.RiskNoop, nil
		}
		return models.RiskNoop, err
	}

	if err := s.riskRepo.End(ctx, active.ID, s.today()); err != nil {
		return models.RiskNoop, err
	}
	s.logger.Info().Int64("userID", userID).Str("flag", flag.Name).Msg("Risk flag cleared")
	return models.RiskCleared, nil
}

func (s *riskServiceImpl) ActiveRisks(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	return s.riskRepo.ListActive(ctx, userID)
}

func (s *riskServiceImpl) RiskHistory(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	return s.riskRepo.ListHistory(ctx, userID)
}

// EvaluateBMI computes BMI from imperial measurements and keeps the BMI
// flags consistent with it: at most one of High BMI and Overweight is active.
func (s *riskServiceImpl) EvaluateBMI(ctx context.Context, userID int64, heightInches, weightLbs float64) (float64, map[string]models.RiskChange, error) {
	if heightInches <= 0 || weightLbs <= 0 {
		return 0, nil, fmt.Errorf("%w: height and weight must be positive", apperrors.ErrValidationFailed)
	}

	bmi := CalculateBMI(heightInches, weightLbs)
	value := fmt.Sprintf("%.1f", bmi)

	var set, clear []string
	switch {
	case bmi >= bmiHigh:
		set, clear = []string{models.RiskFlagHighBMI}, []string{models.RiskFlagOverweight}
	case bmi >= bmiOverweight:
		set, clear = []string{models.RiskFlagOverweight}, []string{models.RiskFlagHighBMI}
	default:
		clear = []string{models.RiskFlagHighBMI, models.RiskFlagOverweight}
	}

	changes := make(map[string]models.RiskChange, 2)
	for _, name := range clear {
		change, err := s.ClearRisk(ctx, userID, name)
		if err != nil {
			return bmi, changes, err
		}
		changes[name] = change
	}
	for _, name := range set {
		change, err := s.SetRisk(ctx, userID, name, &value)
		if err != nil {
			return bmi, changes, err
		}
		changes[name] = change
	}
	return bmi, changes, nil
}

// CalculateBMI returns 703*w/h^2 rounded to one decimal place
func CalculateBMI(heightInches, weightLbs float64) float64 {
	bmi := 703 * weightLbs / (heightInches * heightInches)
	return math.Round(bmi*10) / 10
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
