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

// ProductRepository handles bookable product storage
type ProductRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Create inserts a product
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	sql, args, err := r.sb.Insert("products").
		Columns("practitioner_id", "minutes", "price_cents", "purpose", "is_active", "created_at").
		Values(p.PractitionerID, p.Minutes, p.PriceCents, p.Purpose, p.IsActive, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create product query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("practitionerID", p.PractitionerID).Msg("Error creating product")
		return fmt.Errorf("error creating product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	sql, args, err := r.sb.Select("id", "practitioner_id", "minutes", "price_cents", "purpose", "is_active", "created_at").
		From("products").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get product query: %w", err)
	}
	var p models.Product
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.PractitionerID, &p.Minutes, &p.PriceCents, &p.Purpose, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("error retrieving product: %w", err)
	}
	return &p, nil
}

// ListActive lists active products, optionally for one practitioner
func (r *ProductRepository) ListActive(ctx context.Context, practitionerID *int64) ([]*models.Product, error) {
	q := r.sb.Select("id", "practitioner_id", "minutes", "price_cents", "purpose", "is_active", "created_at").
		From("products").Where(squirrel.Eq{"is_active": true}).OrderBy("id")
	if practitionerID != nil {
		q = q.Where(squirrel.Eq{"practitioner_id": *practitionerID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list products query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.PractitionerID, &p.Minutes, &p.PriceCents, &p.Purpose, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// AvailabilityRepository handles practitioner availability windows
type AvailabilityRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(db *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Create inserts an availability window; overlapping windows are rejected
// by the availability_no_overlap exclusion constraint.
func (r *AvailabilityRepository) Create(ctx context.Context, a *models.Availability) error {
	sql, args, err := r.sb.Insert("availabilities").
		Columns("practitioner_id", "starts_at", "ends_at", "created_at").
		Values(a.PractitionerID, a.StartsAt, a.EndsAt, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create availability query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		if dberrors.IsExclusionViolation(err) {
			return apperrors.ErrAvailabilityConflict
		}
		logger.Error().Err(err).Int64("practitionerID", a.PractitionerID).Msg("Error creating availability")
		return fmt.Errorf("error creating availability: %w", err)
	}
	return nil
}

// ListOverlapping returns the practitioner's windows intersecting [start,end)
func (r *AvailabilityRepository) ListOverlapping(ctx context.Context, practitionerID int64, start, end time.Time) ([]*models.Availability, error) {
	sql, args, err := r.sb.Select("id", "practitioner_id", "starts_at", "ends_at", "created_at").
		From("availabilities").
		Where(squirrel.Eq{"practitioner_id": practitionerID}).
		Where(squirrel.Lt{"starts_at": end}).
		Where(squirrel.Gt{"ends_at": start}).
		OrderBy("starts_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list availability query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing availability: %w", err)
	}
	defer rows.Close()

	var windows []*models.Availability
	for rows.Next() {
		var a models.Availability
		if err := rows.Scan(&a.ID, &a.PractitionerID, &a.StartsAt, &a.EndsAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		windows = append(windows, &a)
	}
	return windows, rows.Err()
}

var appointmentColumns = []string{
	"id", "member_id", "practitioner_id", "product_id", "scheduled_start", "scheduled_end", "state",
	"cancelled_at", "cancelled_by", "late_cancellation", "reminder_sent_at", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.MemberID, &a.PractitionerID, &a.ProductID, &a.ScheduledStart, &a.ScheduledEnd, &a.State,
		&a.CancelledAt, &a.CancelledBy, &a.LateCancellation, &a.ReminderSentAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AppointmentRepository handles appointment storage
type AppointmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Create inserts a SCHEDULED appointment. The appointment_practitioner_no_overlap
// exclusion constraint backs up the service-level overlap check.
func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("appointments").
		Columns("member_id", "practitioner_id", "product_id", "scheduled_start", "scheduled_end", "state", "late_cancellation", "created_at", "updated_at").
		Values(a.MemberID, a.PractitionerID, a.ProductID, a.ScheduledStart, a.ScheduledEnd, a.State, false, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create appointment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		if dberrors.IsExclusionViolation(err) {
			return apperrors.ErrAppointmentConflict
		}
		logger.Error().Err(err).Int64("memberID", a.MemberID).Msg("Error creating appointment")
		return fmt.Errorf("error creating appointment: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// GetByID retrieves an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	sql, args, err := r.sb.Select(appointmentColumns...).From("appointments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get appointment query: %w", err)
	}
	a, err := scanAppointment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("error retrieving appointment: %w", err)
	}
	return a, nil
}

// HasOverlap reports whether the practitioner or the member already has a
// SCHEDULED appointment intersecting [start,end)
func (r *AppointmentRepository) HasOverlap(ctx context.Context, practitionerID, memberID int64, start, end time.Time) (bool, error) {
	sql, args, err := r.sb.Select("1").From("appointments").
		Where(squirrel.Eq{"state": models.AppointmentScheduled}).
		Where(squirrel.Or{squirrel.Eq{"practitioner_id": practitionerID}, squirrel.Eq{"member_id": memberID}}).
		Where(squirrel.Lt{"scheduled_start": end}).
		Where(squirrel.Gt{"scheduled_end": start}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build overlap query: %w", err)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking appointment overlap: %w", err)
	}
	return exists, nil
}

// Transition moves a SCHEDULED appointment to a.State, persisting the
// cancellation fields. It fails with ErrInvalidStateTransition if the row
// is no longer SCHEDULED.
func (r *AppointmentRepository) Transition(ctx context.Context, a *models.Appointment) error {
	sql, args, err := r.sb.Update("appointments").
		Set("state", a.State).
		Set("cancelled_at", a.CancelledAt).
		Set("cancelled_by", a.CancelledBy).
		Set("late_cancellation", a.LateCancellation).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": a.ID, "state": models.AppointmentScheduled}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("appointmentID", a.ID).Msg("Error updating appointment state")
		return fmt.Errorf("error updating appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidStateTransition
	}
	return nil
}

// ListByMember returns a page of the member's appointments, newest first
func (r *AppointmentRepository) ListByMember(ctx context.Context, memberID int64, offset, limit uint64) ([]*models.Appointment, int64, error) {
	return r.list(ctx, squirrel.Eq{"member_id": memberID}, offset, limit)
}

// ListByPractitioner returns a page of the practitioner's appointments, newest first
func (r *AppointmentRepository) ListByPractitioner(ctx context.Context, practitionerID int64, offset, limit uint64) ([]*models.Appointment, int64, error) {
	return r.list(ctx, squirrel.Eq{"practitioner_id": practitionerID}, offset, limit)
}

func (r *AppointmentRepository) list(ctx context.Context, where squirrel.Sqlizer, offset, limit uint64) ([]*models.Appointment, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("appointments").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting appointments: %w", err)
	}

	sql, args, err := r.sb.Select(appointmentColumns...).From("appointments").Where(where).
		OrderBy("scheduled_start DESC").Offset(offset).Limit(limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list appointments query: %w", err)
	}
	appts, err := r.query(ctx, sql, args...)
	return appts, total, err
}

// ListDueReminders returns SCHEDULED appointments starting in [from,until)
// that have not been reminded yet
func (r *AppointmentRepository) ListDueReminders(ctx context.Context, from, until time.Time) ([]*models.Appointment, error) {
	sql, args, err := r.sb.Select(appointmentColumns...).From("appointments").
		Where(squirrel.Eq{"state": models.AppointmentScheduled, "reminder_sent_at": nil}).
		Where(squirrel.GtOrEq{"scheduled_start": from}).
		Where(squirrel.Lt{"scheduled_start": until}).
		OrderBy("scheduled_start").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build due reminders query: %w", err)
	}
	return r.query(ctx, sql, args...)
}

// MarkReminderSent stamps the reminder time
func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, id int64, at time.Time) error {
	sql, args, err := r.sb.Update("appointments").Set("reminder_sent_at", at).
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark reminder query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error marking reminder sent: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) query(ctx context.Context, sql string, args ...interface{}) ([]*models.Appointment, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying appointments: %w", err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
