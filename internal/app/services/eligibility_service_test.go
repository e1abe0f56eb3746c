package services

import (
	"context"
	"errors"
	"testing"
	"time"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/pverify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eligibilityNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type eligibilityFixture struct {
	svc    *eligibilityServiceImpl
	plans  *fakePlans
	client *fakeEligibilityClient
	cache  *fakeCache
}

func newEligibilityFixture(withCache bool) *eligibilityFixture {
	users := newFakeUsers(
		&models.User{ID: memberID, Email: "member@example.com", RoleType: models.RoleMember, IsActive: true},
		&models.User{ID: practitionerID, Email: "doc@example.com", RoleType: models.RolePractitioner, IsActive: true},
	)
	plans := &fakePlans{}
	client := &fakeEligibilityClient{summary: &pverify.Summary{
		IsActive:                 true,
		DeductibleCents:          150000,
		DeductibleRemainingCents: 30000,
		OOPCents:                 500000,
		OOPRemainingCents:        400000,
		CoinsurancePct:           20,
	}}

	f := &eligibilityFixture{plans: plans, client: client}
	var svc EligibilityService
	if withCache {
		f.cache = newFakeCache()
		svc = NewEligibilityService(plans, newFakePayers(), authz.NewAuthorizationService(users), client, f.cache, time.Hour, zerolog.Nop())
	} else {
		svc = NewEligibilityService(plans, newFakePayers(), authz.NewAuthorizationService(users), client, nil, 0, zerolog.Nop())
	}
	f.svc = svc.(*eligibilityServiceImpl)
	f.svc.now = func() time.Time { return eligibilityNow }
	return f
}

func planRequest() *dto.CreateHealthPlanRequest {
	return &dto.CreateHealthPlanRequest{
		MemberID:            memberID,
		PayerID:             2,
		SubscriberID:        "abc12345",
		PlanName:            "Choice Plus",
		PlanStart:           "2026-01-01",
		PlanEnd:             "2026-12-31",
		SubscriberFirstName: "Ada",
		SubscriberLastName:  "Lovelace",
		SubscriberDOB:       "1990-12-10",
	}
}

func TestCreateHealthPlan(t *testing.T) {
	f := newEligibilityFixture(false)
	ctx := context.Background()

	plan, err := f.svc.CreateHealthPlan(ctx, planRequest())
	require.NoError(t, err)
	assert.Equal(t, "ABC12345", plan.SubscriberID)
	require.NotNil(t, plan.PlanEnd)

	_, err = f.svc.CreateHealthPlan(ctx, planRequest())
	assert.ErrorIs(t, err, apperrors.ErrHealthPlanAlreadyExists)
}

func TestCreateHealthPlanValidation(t *testing.T) {
	f := newEligibilityFixture(false)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*dto.CreateHealthPlanRequest)
		want   error
	}{
		{"short subscriber id", func(r *dto.CreateHealthPlanRequest) { r.SubscriberID = "ab" }, apperrors.ErrValidationFailed},
		{"subscriber id with symbols", func(r *dto.CreateHealthPlanRequest) { r.SubscriberID = "abc-123" }, apperrors.ErrValidationFailed},
		{"bad start date", func(r *dto.CreateHealthPlanRequest) { r.PlanStart = "01/01/2026" }, apperrors.ErrValidationFailed},
		{"end before start", func(r *dto.CreateHealthPlanRequest) { r.PlanEnd = "2025-12-31" }, apperrors.ErrValidationFailed},
		{"not a member", func(r *dto.CreateHealthPlanRequest) { r.MemberID = practitionerID }, apperrors.ErrValidationFailed},
		{"unknown payer", func(r *dto.CreateHealthPlanRequest) { r.PayerID = 9 }, apperrors.ErrPayerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := planRequest()
			tt.mutate(req)
			_, err := f.svc.CreateHealthPlan(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.plans.plans)
}

func TestGetEligibilityUsesCache(t *testing.T) {
	f := newEligibilityFixture(true)
	ctx := context.Background()
	plan, err := f.svc.CreateHealthPlan(ctx, planRequest())
	require.NoError(t, err)

	info, err := f.svc.GetEligibility(ctx, memberID, eligibilityNow)
	require.NoError(t, err)
	assert.False(t, info.Cached)
	assert.Equal(t, int64(30000), info.DeductibleRemainingCents)
	assert.Equal(t, "87726", f.client.last.PayerCode)
	assert.Equal(t, "ABC12345", f.client.last.SubscriberID)
	assert.Contains(t, f.cache.data, eligibilityCacheKey(plan.ID))

	info, err = f.svc.GetEligibility(ctx, memberID, eligibilityNow)
	require.NoError(t, err)
	assert.True(t, info.Cached)
	assert.Equal(t, 1, f.client.calls)
}

func TestGetEligibilityWithoutCache(t *testing.T) {
	f := newEligibilityFixture(false)
	ctx := context.Background()
	_, err := f.svc.CreateHealthPlan(ctx, planRequest())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.svc.GetEligibility(ctx, memberID, eligibilityNow)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.client.calls)
}

func TestGetEligibilityErrors(t *testing.T) {
	f := newEligibilityFixture(true)
	ctx := context.Background()

	_, err := f.svc.GetEligibility(ctx, memberID, eligibilityNow)
	assert.ErrorIs(t, err, apperrors.ErrNoMemberHealthPlan)

	_, err = f.svc.CreateHealthPlan(ctx, planRequest())
	require.NoError(t, err)

	_, err = f.svc.GetEligibility(ctx, memberID, time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, apperrors.ErrNoMemberHealthPlan, "plan ended")

	f.client.err = errors.New("provider unavailable")
	_, err = f.svc.GetEligibility(ctx, memberID, eligibilityNow)
	assert.Error(t, err)
	assert.Empty(t, f.cache.data)
}

func TestCostBreakdown(t *testing.T) {
	f := newEligibilityFixture(false)
	ctx := context.Background()
	_, err := f.svc.CreateHealthPlan(ctx, planRequest())
	require.NoError(t, err)

	out, err := f.svc.CostBreakdown(ctx, memberID, 100000, eligibilityNow)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), out.DeductibleAppliedCents)
	assert.Equal(t, int64(14000), out.CoinsuranceCents)
	assert.Equal(t, int64(44000), out.MemberResponsibilityCents)
	assert.Equal(t, int64(56000), out.EmployerResponsibilityCents)

	_, err = f.svc.CostBreakdown(ctx, memberID, 0, eligibilityNow)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestComputeCostBreakdown(t *testing.T) {
	tests := []struct {
		name string
		cost int64
		info *models.EligibilityInfo
		want models.CostBreakdown
	}{
		{
			name: "inactive coverage",
			cost: 10000,
			info: &models.EligibilityInfo{IsActive: false, DeductibleRemainingCents: 5000},
			want: models.CostBreakdown{CostCents: 10000, EmployerResponsibilityCents: 10000},
		},
		{
			name: "no eligibility",
			cost: 10000,
			want: models.CostBreakdown{CostCents: 10000, EmployerResponsibilityCents: 10000},
		},
		{
			name: "deductible then coinsurance",
			cost: 10000,
			info: &models.EligibilityInfo{IsActive: true, DeductibleRemainingCents: 3000, CoinsurancePct: 20},
			want: models.CostBreakdown{
				CostCents: 10000, DeductibleAppliedCents: 3000, CoinsuranceCents: 1400,
				MemberResponsibilityCents: 4400, EmployerResponsibilityCents: 5600,
			},
		},
		{
			name: "cost inside deductible",
			cost: 2000,
			info: &models.EligibilityInfo{IsActive: true, DeductibleRemainingCents: 3000, CoinsurancePct: 20},
			want: models.CostBreakdown{
				CostCents: 2000, DeductibleAppliedCents: 2000, MemberResponsibilityCents: 2000,
			},
		},
		{
			name: "capped by out of pocket",
			cost: 10000,
			info: &models.EligibilityInfo{IsActive: true, DeductibleRemainingCents: 3000, CoinsurancePct: 20, OOPCents: 500000, OOPRemainingCents: 2000},
			want: models.CostBreakdown{
				CostCents: 10000, DeductibleAppliedCents: 2000, OOPAppliedCents: 2000,
				MemberResponsibilityCents: 2000, EmployerResponsibilityCents: 8000,
			},
		},
		{
			name: "coinsurance rounds half up",
			cost: 1005,
			info: &models.EligibilityInfo{IsActive: true, CoinsurancePct: 10},
			want: models.CostBreakdown{
				CostCents: 1005, CoinsuranceCents: 101,
				MemberResponsibilityCents: 101, EmployerResponsibilityCents: 904,
			},
		},
		{
			name: "out of pocket already met",
			cost: 5000,
			info: &models.EligibilityInfo{IsActive: true, DeductibleRemainingCents: 1000, CoinsurancePct: 30, OOPCents: 300000, OOPRemainingCents: 0},
			want: models.CostBreakdown{CostCents: 5000, EmployerResponsibilityCents: 5000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCostBreakdown(tt.cost, tt.info)
			assert.Equal(t, tt.want, *got)
		})
	}
}
