package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RiskRepository handles risk flag catalogue and member flag storage
type RiskRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRiskRepository creates a new RiskRepository
func NewRiskRepository(db *pgxpool.Pool) *RiskRepository {
	return &RiskRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// GetFlagByName retrieves a catalogue flag by its name
func (r *RiskRepository) GetFlagByName(ctx context.Context, name string) (*models.RiskFlag, error) {
	sql, args, err := r.sb.Select("id", "name", "severity", "is_chronic").From("risk_flags").
		Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get risk flag query: %w", err)
	}
	var f models.RiskFlag
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&f.ID, &f.Name, &f.Severity, &f.IsChronic); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRiskFlagNotFound
		}
		return nil, fmt.Errorf("error retrieving risk flag: %w", err)
	}
	return &f, nil
}

// GetActive returns the member's open row for a flag
func (r *RiskRepository) GetActive(ctx context.Context, userID, flagID int64) (*models.MemberRiskFlag, error) {
	rows, err := r.list(ctx, squirrel.Eq{"m.user_id": userID, "m.risk_flag_id": flagID, "m.end_date": nil})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrResourceNotFound
	}
	return rows[0], nil
}

// Insert adds a member risk flag row
func (r *RiskRepository) Insert(ctx context.Context, m *models.MemberRiskFlag) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("member_risk_flags").
		Columns("user_id", "risk_flag_id", "value", "start_date", "end_date", "created_at", "updated_at").
		Values(m.UserID, m.RiskFlagID, m.Value, m.StartDate, m.EndDate, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert member risk query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		logger.Error().Err(err).Int64("userID", m.UserID).Msg("Error inserting member risk flag")
		return fmt.Errorf("error inserting member risk flag: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// UpdateValue changes the value of an active row
func (r *RiskRepository) UpdateValue(ctx context.Context, id int64, value *string) error {
	return r.update(ctx, id, map[string]interface{}{"value": value})
}

// End closes an active row on the given date
func (r *RiskRepository) End(ctx context.Context, id int64, endDate time.Time) error {
	return r.update(ctx, id, map[string]interface{}{"end_date": endDate})
}

func (r *RiskRepository) update(ctx context.Context, id int64, set map[string]interface{}) error {
	set["updated_at"] = time.Now()
	sql, args, err := r.sb.Update("member_risk_flags").SetMap(set).
		Where(squirrel.Eq{"id": id, "end_date": nil}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update member risk query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("memberRiskFlagID", id).Msg("Error updating member risk flag")
		return fmt.Errorf("error updating member risk flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

// ListActive returns the member's open flags with their catalogue entries
func (r *RiskRepository) ListActive(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	return r.list(ctx, squirrel.Eq{"m.user_id": userID, "m.end_date": nil})
}

// ListHistory returns every flag row the member ever had, newest first
func (r *RiskRepository) ListHistory(ctx context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	return r.list(ctx, squirrel.Eq{"m.user_id": userID})
}

func (r *RiskRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.MemberRiskFlag, error) {
	sql, args, err := r.sb.Select(
		"m.id", "m.user_id", "m.risk_flag_id", "m.value", "m.start_date", "m.end_date", "m.created_at", "m.updated_at",
		"f.id", "f.name", "f.severity", "f.is_chronic",
	).From("member_risk_flags m").
		Join("risk_flags f ON f.id = m.risk_flag_id").
		Where(where).
		OrderBy("m.start_date DESC", "m.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list member risks query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing member risk flags: %w", err)
	}
	defer rows.Close()

	var out []*models.MemberRiskFlag
	for rows.Next() {
		var m models.MemberRiskFlag
		var f models.RiskFlag
		if err := rows.Scan(&m.ID, &m.UserID, &m.RiskFlagID, &m.Value, &m.StartDate, &m.EndDate, &m.CreatedAt, &m.UpdatedAt,
			&f.ID, &f.Name, &f.Severity, &f.IsChronic); err != nil {
			return nil, err
		}
		m.RiskFlag = &f
		out = append(out, &m)
	}
	return out, rows.Err()
}
