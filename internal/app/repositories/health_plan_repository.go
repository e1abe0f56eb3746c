package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/dberrors"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PayerRepository handles payer lookups
type PayerRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPayerRepository creates a new PayerRepository
func NewPayerRepository(db *pgxpool.Pool) *PayerRepository {
	return &PayerRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

var payerColumns = []string{"id", "name", "code", "receiver_id", "eligibility_payer_code"}

// GetByID retrieves a payer by ID
func (r *PayerRepository) GetByID(ctx context.Context, id int64) (*models.Payer, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByCode retrieves a payer by its file format code
func (r *PayerRepository) GetByCode(ctx context.Context, code string) (*models.Payer, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code})
}

func (r *PayerRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Payer, error) {
	sql, args, err := r.sb.Select(payerColumns...).From("payers").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get payer query: %w", err)
	}
	var p models.Payer
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.Name, &p.Code, &p.ReceiverID, &p.EligibilityPayerCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPayerNotFound
		}
		return nil, fmt.Errorf("error retrieving payer: %w", err)
	}
	return &p, nil
}

// List returns all payers
func (r *PayerRepository) List(ctx context.Context) ([]*models.Payer, error) {
	sql, args, err := r.sb.Select(payerColumns...).From("payers").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list payers query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing payers: %w", err)
	}
	defer rows.Close()

	var out []*models.Payer
	for rows.Next() {
		var p models.Payer
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.ReceiverID, &p.EligibilityPayerCode); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// HealthPlanRepository handles member health plans
type HealthPlanRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewHealthPlanRepository creates a new HealthPlanRepository
func NewHealthPlanRepository(db *pgxpool.Pool) *HealthPlanRepository {
	return &HealthPlanRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

var healthPlanColumns = []string{
	"id", "member_id", "payer_id", "subscriber_id", "plan_name", "is_family_plan", "plan_start", "plan_end",
	"subscriber_first_name", "subscriber_last_name", "subscriber_dob", "created_at",
}

// Create inserts a plan; plans of one member may not overlap in time
func (r *HealthPlanRepository) Create(ctx context.Context, p *models.MemberHealthPlan) error {
	sql, args, err := r.sb.Insert("member_health_plans").
		Columns(healthPlanColumns[1:]...).
		Values(p.MemberID, p.PayerID, p.SubscriberID, p.PlanName, p.IsFamilyPlan, p.PlanStart, p.PlanEnd,
			p.SubscriberFirstName, p.SubscriberLastName, p.SubscriberDOB, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create health plan query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		if dberrors.IsExclusionViolation(err) {
			return apperrors.ErrHealthPlanAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError("member or payer not found")
		}
		logger.Error().Err(err).Int64("memberID", p.MemberID).Msg("Error creating health plan")
		return fmt.Errorf("error creating health plan: %w", err)
	}
	return nil
}

// FindActive returns the member's plan covering day
func (r *HealthPlanRepository) FindActive(ctx context.Context, memberID int64, day time.Time) (*models.MemberHealthPlan, error) {
	sql, args, err := r.sb.Select(healthPlanColumns...).From("member_health_plans").
		Where(squirrel.Eq{"member_id": memberID}).
		Where(squirrel.LtOrEq{"plan_start": day}).
		Where(squirrel.Or{squirrel.Eq{"plan_end": nil}, squirrel.GtOrEq{"plan_end": day}}).
		OrderBy("plan_start DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find active plan query: %w", err)
	}
	var p models.MemberHealthPlan
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.MemberID, &p.PayerID, &p.SubscriberID, &p.PlanName, &p.IsFamilyPlan,
		&p.PlanStart, &p.PlanEnd, &p.SubscriberFirstName, &p.SubscriberLastName, &p.SubscriberDOB, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNoMemberHealthPlan
		}
		return nil, fmt.Errorf("error retrieving health plan: %w", err)
	}
	return &p, nil
}

// TreatmentRepository handles treatment procedures
type TreatmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewTreatmentRepository creates a new TreatmentRepository
func NewTreatmentRepository(db *pgxpool.Pool) *TreatmentRepository {
	return &TreatmentRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Create inserts a treatment procedure
func (r *TreatmentRepository) Create(ctx context.Context, t *models.TreatmentProcedure) error {
	sql, args, err := r.sb.Insert("treatment_procedures").
		Columns("member_id", "payer_id", "procedure_name", "start_date", "end_date", "cost_cents", "deductible_cents", "oop_cents", "status", "created_at").
		Values(t.MemberID, t.PayerID, t.ProcedureName, t.StartDate, t.EndDate, t.CostCents, t.DeductibleCents, t.OOPCents, t.Status, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create treatment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError("member or payer not found")
		}
		logger.Error().Err(err).Int64("memberID", t.MemberID).Msg("Error creating treatment procedure")
		return fmt.Errorf("error creating treatment procedure: %w", err)
	}
	return nil
}

// GetByID retrieves a treatment procedure by ID
func (r *TreatmentRepository) GetByID(ctx context.Context, id int64) (*models.TreatmentProcedure, error) {
	sql, args, err := r.sb.Select("id", "member_id", "payer_id", "procedure_name", "start_date", "end_date",
		"cost_cents", "deductible_cents", "oop_cents", "status", "created_at").
		From("treatment_procedures").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get treatment query: %w", err)
	}
	var t models.TreatmentProcedure
	err = r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.MemberID, &t.PayerID, &t.ProcedureName, &t.StartDate, &t.EndDate,
		&t.CostCents, &t.DeductibleCents, &t.OOPCents, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTreatmentNotFound
		}
		return nil, fmt.Errorf("error retrieving treatment procedure: %w", err)
	}
	return &t, nil
}
