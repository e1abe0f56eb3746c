package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/db"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/dberrors"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccumulationRepository handles accumulation mappings and payer reports
type AccumulationRepository struct {
	db *pgxpool.Pool
	tx *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewAccumulationRepository creates a new AccumulationRepository
func NewAccumulationRepository(pg *db.PostgresDB) *AccumulationRepository {
	return &AccumulationRepository{
		db: pg.Pool,
		tx: pg,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var mappingColumns = []string{
	"m.id", "m.treatment_procedure_id", "m.payer_id", "m.report_id", "m.status", "m.deductible_cents",
	"m.oop_cents", "m.is_refund", "m.row_error_reason", "m.transmission_id", "m.created_at", "m.updated_at",
}

// CreateMapping inserts a mapping. A procedure can be queued once as a
// charge and once as a refund.
func (r *AccumulationRepository) CreateMapping(ctx context.Context, m *models.AccumulationTreatmentMapping) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("accumulation_treatment_mappings").
		Columns("treatment_procedure_id", "payer_id", "status", "deductible_cents", "oop_cents", "is_refund",
			"row_error_reason", "transmission_id", "created_at", "updated_at").
		Values(m.TreatmentProcedureID, m.PayerID, m.Status, m.DeductibleCents, m.OOPCents, m.IsRefund,
			m.RowErrorReason, m.TransmissionID, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create mapping query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrTreatmentAlreadyMapped
		}
		logger.Error().Err(err).Int64("treatmentProcedureID", m.TreatmentProcedureID).Msg("Error creating accumulation mapping")
		return fmt.Errorf("error creating accumulation mapping: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// GetMapping returns the charge or refund mapping of a procedure
func (r *AccumulationRepository) GetMapping(ctx context.Context, procedureID int64, isRefund bool) (*models.AccumulationTreatmentMapping, error) {
	sql, args, err := r.sb.Select(mappingColumns...).From("accumulation_treatment_mappings m").
		Where(squirrel.Eq{"m.treatment_procedure_id": procedureID, "m.is_refund": isRefund}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get mapping query: %w", err)
	}
	m, err := scanMapping(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("accumulation mapping not found")
		}
		return nil, fmt.Errorf("error retrieving mapping: %w", err)
	}
	return m, nil
}

func scanMapping(row pgx.Row, extra ...interface{}) (*models.AccumulationTreatmentMapping, error) {
	var m models.AccumulationTreatmentMapping
	dest := []interface{}{&m.ID, &m.TreatmentProcedureID, &m.PayerID, &m.ReportID, &m.Status, &m.DeductibleCents,
		&m.OOPCents, &m.IsRefund, &m.RowErrorReason, &m.TransmissionID, &m.CreatedAt, &m.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &m, nil
}

// detailSelect joins each mapping with its procedure and the member plan
// active on the date of service. Members without such a plan come back with
// an empty subscriber id.
func (r *AccumulationRepository) detailSelect() squirrel.SelectBuilder {
	cols := append(append([]string{}, mappingColumns...),
		"COALESCE(hp.subscriber_id, '')", "COALESCE(hp.subscriber_first_name, '')", "COALESCE(hp.subscriber_last_name, '')",
		"hp.subscriber_dob", "COALESCE(tp.end_date, tp.start_date)", "tp.procedure_name")
	return r.sb.Select(cols...).
		From("accumulation_treatment_mappings m").
		Join("treatment_procedures tp ON tp.id = m.treatment_procedure_id").
		JoinClause(`LEFT JOIN LATERAL (
			SELECT subscriber_id, subscriber_first_name, subscriber_last_name, subscriber_dob
			FROM member_health_plans p
			WHERE p.member_id = tp.member_id
				AND p.plan_start <= COALESCE(tp.end_date, tp.start_date)
				AND (p.plan_end IS NULL OR p.plan_end >= COALESCE(tp.end_date, tp.start_date))
			ORDER BY p.plan_start DESC
			LIMIT 1
		) hp ON TRUE`).
		OrderBy("m.id")
}

func (r *AccumulationRepository) queryDetails(ctx context.Context, q squirrel.SelectBuilder) ([]*models.AccumulationDetail, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build accumulation detail query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing accumulation details: %w", err)
	}
	defer rows.Close()

	var out []*models.AccumulationDetail
	for rows.Next() {
		var d models.AccumulationDetail
		var dob *time.Time
		m, err := scanMapping(rows, &d.SubscriberID, &d.FirstName, &d.LastName, &dob, &d.DateOfService, &d.ProcedureName)
		if err != nil {
			return nil, err
		}
		d.Mapping = *m
		if dob != nil {
			d.DateOfBirth = *dob
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ListWaitingDetails returns the payer's WAITING mappings
func (r *AccumulationRepository) ListWaitingDetails(ctx context.Context, payerID int64) ([]*models.AccumulationDetail, error) {
	return r.queryDetails(ctx, r.detailSelect().
		Where(squirrel.Eq{"m.payer_id": payerID, "m.status": models.AccumulationWaiting}))
}

// ListReportDetails returns the rows encoded in a report
func (r *AccumulationRepository) ListReportDetails(ctx context.Context, reportID int64) ([]*models.AccumulationDetail, error) {
	return r.queryDetails(ctx, r.detailSelect().Where(squirrel.Eq{"m.report_id": reportID}))
}

// MarkRowErrors flags mappings that cannot be encoded
func (r *AccumulationRepository) MarkRowErrors(ctx context.Context, ids []int64, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	sql, args, err := r.sb.Update("accumulation_treatment_mappings").
		Set("status", models.AccumulationRowError).
		Set("row_error_reason", reason).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": ids, "status": models.AccumulationWaiting}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark row errors query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error marking row errors: %w", err)
	}
	return nil
}

var reportColumns = []string{
	"id", "payer_id", "filename", "storage_path", "report_date", "status", "detail_count",
	"total_deductible_cents", "total_oop_cents", "submitted_at", "created_at",
}

// CreateReport inserts a NEW report and moves the given WAITING mappings to
// PROCESSED under it, atomically
func (r *AccumulationRepository) CreateReport(ctx context.Context, rep *models.PayerAccumulationReport, mappingIDs []int64) error {
	return r.tx.WithSerializableTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("payer_accumulation_reports").
			Columns(reportColumns[1:]...).
			Values(rep.PayerID, rep.Filename, rep.StoragePath, rep.ReportDate, rep.Status, rep.DetailCount,
				rep.TotalDeductibleCents, rep.TotalOOPCents, rep.SubmittedAt, time.Now()).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create report query: %w", err)
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&rep.ID, &rep.CreatedAt); err != nil {
			logger.Error().Err(err).Int64("payerID", rep.PayerID).Msg("Error creating accumulation report")
			return fmt.Errorf("error creating report: %w", err)
		}

		if len(mappingIDs) == 0 {
			return nil
		}
		sql, args, err = r.sb.Update("accumulation_treatment_mappings").
			Set("status", models.AccumulationProcessed).
			Set("report_id", rep.ID).
			Set("updated_at", time.Now()).
			Where(squirrel.Eq{"id": mappingIDs, "status": models.AccumulationWaiting}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build process mappings query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error processing mappings: %w", err)
		}
		if tag.RowsAffected() != int64(len(mappingIDs)) {
			return apperrors.NewConflictError("accumulation rows changed while the report was generated")
		}
		return nil
	})
}

// GetReport retrieves a report by ID
func (r *AccumulationRepository) GetReport(ctx context.Context, id int64) (*models.PayerAccumulationReport, error) {
	sql, args, err := r.sb.Select(reportColumns...).From("payer_accumulation_reports").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get report query: %w", err)
	}
	var rep models.PayerAccumulationReport
	err = r.db.QueryRow(ctx, sql, args...).Scan(&rep.ID, &rep.PayerID, &rep.Filename, &rep.StoragePath, &rep.ReportDate, &rep.Status,
		&rep.DetailCount, &rep.TotalDeductibleCents, &rep.TotalOOPCents, &rep.SubmittedAt, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, fmt.Errorf("error retrieving report: %w", err)
	}
	return &rep, nil
}

// UpdateReportFile points a report at a newly written file
func (r *AccumulationRepository) UpdateReportFile(ctx context.Context, id int64, filename, storagePath string) error {
	sql, args, err := r.sb.Update("payer_accumulation_reports").
		Set("filename", filename).
		Set("storage_path", storagePath).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update report file query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating report file: %w", err)
	}
	return nil
}

// SubmitReport moves a NEW report and its PROCESSED mappings to SUBMITTED
func (r *AccumulationRepository) SubmitReport(ctx context.Context, id int64, at time.Time) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("payer_accumulation_reports").
			Set("status", models.ReportSubmitted).
			Set("submitted_at", at).
			Where(squirrel.Eq{"id": id, "status": models.ReportNew}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build submit report query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error submitting report: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrReportAlreadySubmitted
		}

		sql, args, err = r.sb.Update("accumulation_treatment_mappings").
			Set("status", models.AccumulationSubmitted).
			Set("updated_at", time.Now()).
			Where(squirrel.Eq{"report_id": id, "status": models.AccumulationProcessed}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build submit mappings query: %w", err)
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})
}

// FindByTransmissionIDs maps transmission ids of a payer to their mappings
func (r *AccumulationRepository) FindByTransmissionIDs(ctx context.Context, payerID int64, ids []string) (map[string]*models.AccumulationTreatmentMapping, error) {
	out := make(map[string]*models.AccumulationTreatmentMapping, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sql, args, err := r.sb.Select(mappingColumns...).From("accumulation_treatment_mappings m").
		Where(squirrel.Eq{"m.payer_id": payerID, "m.transmission_id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find transmissions query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error finding transmissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out[m.TransmissionID] = m
	}
	return out, rows.Err()
}

// ResolveMappings records the payer's verdicts in one transaction. Only
// SUBMITTED mappings change; applied[i] reports whether resolutions[i] did.
func (r *AccumulationRepository) ResolveMappings(ctx context.Context, resolutions []models.MappingResolution) ([]bool, error) {
	applied := make([]bool, len(resolutions))
	if len(resolutions) == 0 {
		return applied, nil
	}
	err := r.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		now := time.Now()
		for i, res := range resolutions {
			sql, args, err := r.sb.Update("accumulation_treatment_mappings").
				Set("status", res.Status).
				Set("row_error_reason", res.Reason).
				Set("updated_at", now).
				Where(squirrel.Eq{"id": res.MappingID, "status": models.AccumulationSubmitted}).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build resolve mapping query: %w", err)
			}
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return fmt.Errorf("error resolving mapping %d: %w", res.MappingID, err)
			}
			applied[i] = tag.RowsAffected() == 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}
