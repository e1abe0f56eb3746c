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

// WalletRepository handles wallets, categories and reimbursement requests
type WalletRepository struct {
	db *pgxpool.Pool
	tx *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(pg *db.PostgresDB) *WalletRepository {
	return &WalletRepository{
		db: pg.Pool,
		tx: pg,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var walletColumns = []string{"id", "user_id", "organization_name", "employee_id", "state", "created_at", "updated_at"}

// Create inserts a wallet; a second wallet for the same user is rejected
func (r *WalletRepository) Create(ctx context.Context, w *models.Wallet) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("wallets").
		Columns("user_id", "organization_name", "employee_id", "state", "created_at", "updated_at").
		Values(w.UserID, w.OrganizationName, w.EmployeeID, w.State, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create wallet query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&w.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrWalletAlreadyExists
		}
		logger.Error().Err(err).Int64("userID", w.UserID).Msg("Error creating wallet")
		return fmt.Errorf("error creating wallet: %w", err)
	}
	w.CreatedAt, w.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id int64) (*models.Wallet, error) {
	sql, args, err := r.sb.Select(walletColumns...).From("wallets").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get wallet query: %w", err)
	}
	var w models.Wallet
	err = r.db.QueryRow(ctx, sql, args...).Scan(&w.ID, &w.UserID, &w.OrganizationName, &w.EmployeeID, &w.State, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("error retrieving wallet: %w", err)
	}
	return &w, nil
}

// UpdateState moves a wallet from one state to another. The update only
// applies if the stored state still equals from.
func (r *WalletRepository) UpdateState(ctx context.Context, id int64, from, to models.WalletState) error {
	sql, args, err := r.sb.Update("wallets").
		Set("state", to).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "state": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update wallet state query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating wallet state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidStateTransition
	}
	return nil
}

// CreateCategory inserts a benefit category
func (r *WalletRepository) CreateCategory(ctx context.Context, c *models.WalletCategory) error {
	sql, args, err := r.sb.Insert("wallet_categories").
		Columns("wallet_id", "label", "limit_cents", "created_at").
		Values(c.WalletID, c.Label, c.LimitCents, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create category query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("category %q already exists", c.Label))
		}
		return fmt.Errorf("error creating category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID
func (r *WalletRepository) GetCategory(ctx context.Context, id int64) (*models.WalletCategory, error) {
	sql, args, err := r.sb.Select("id", "wallet_id", "label", "limit_cents", "created_at").
		From("wallet_categories").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get category query: %w", err)
	}
	var c models.WalletCategory
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.WalletID, &c.Label, &c.LimitCents, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error retrieving category: %w", err)
	}
	return &c, nil
}

// ListCategories lists a wallet's categories
func (r *WalletRepository) ListCategories(ctx context.Context, walletID int64) ([]*models.WalletCategory, error) {
	sql, args, err := r.sb.Select("id", "wallet_id", "label", "limit_cents", "created_at").
		From("wallet_categories").Where(squirrel.Eq{"wallet_id": walletID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list categories query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	defer rows.Close()

	var out []*models.WalletCategory
	for rows.Next() {
		var c models.WalletCategory
		if err := rows.Scan(&c.ID, &c.WalletID, &c.Label, &c.LimitCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

const categoryTotalsSQL = `
	SELECT category_id,
		COALESCE(SUM(amount_cents) FILTER (WHERE state IN ('APPROVED', 'REIMBURSED')), 0),
		COALESCE(SUM(amount_cents) FILTER (WHERE state IN ('NEW', 'PENDING')), 0)
	FROM reimbursement_requests`

// CategoryTotals sums spent and pending amounts per category of a wallet
func (r *WalletRepository) CategoryTotals(ctx context.Context, walletID int64) ([]models.CategoryTotals, error) {
	rows, err := r.db.Query(ctx, categoryTotalsSQL+` WHERE wallet_id = $1 GROUP BY category_id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("error summing reimbursements: %w", err)
	}
	defer rows.Close()

	var out []models.CategoryTotals
	for rows.Next() {
		var t models.CategoryTotals
		if err := rows.Scan(&t.CategoryID, &t.SpentCents, &t.PendingCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var reimbursementColumns = []string{
	"id", "wallet_id", "category_id", "amount_cents", "service_date", "description", "state",
	"denial_reason", "decided_at", "decided_by", "exported_at", "created_at", "updated_at",
}

// CreateReimbursement inserts a reimbursement request
func (r *WalletRepository) CreateReimbursement(ctx context.Context, req *models.ReimbursementRequest) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("reimbursement_requests").
		Columns("wallet_id", "category_id", "amount_cents", "service_date", "description", "state", "created_at", "updated_at").
		Values(req.WalletID, req.CategoryID, req.AmountCents, req.ServiceDate, req.Description, req.State, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create reimbursement query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&req.ID); err != nil {
		logger.Error().Err(err).Int64("walletID", req.WalletID).Msg("Error creating reimbursement request")
		return fmt.Errorf("error creating reimbursement request: %w", err)
	}
	req.CreatedAt, req.UpdatedAt = now, now
	return nil
}

// GetReimbursement retrieves a reimbursement request by ID
func (r *WalletRepository) GetReimbursement(ctx context.Context, id int64) (*models.ReimbursementRequest, error) {
	sql, args, err := r.sb.Select(reimbursementColumns...).From("reimbursement_requests").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get reimbursement query: %w", err)
	}
	var q models.ReimbursementRequest
	err = r.db.QueryRow(ctx, sql, args...).Scan(&q.ID, &q.WalletID, &q.CategoryID, &q.AmountCents, &q.ServiceDate, &q.Description,
		&q.State, &q.DenialReason, &q.DecidedAt, &q.DecidedBy, &q.ExportedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReimbursementNotFound
		}
		return nil, fmt.Errorf("error retrieving reimbursement request: %w", err)
	}
	return &q, nil
}

// Approve marks a NEW or PENDING request APPROVED. The category row is locked
// so concurrent approvals against one category cannot overspend its limit.
func (r *WalletRepository) Approve(ctx context.Context, id, decidedBy int64, at time.Time) error {
	return r.tx.WithSerializableTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var categoryID, amount, limit int64
		var state models.ReimbursementState
		err := tx.QueryRow(ctx, `
			SELECT r.category_id, r.amount_cents, r.state, c.limit_cents
			FROM reimbursement_requests r
			JOIN wallet_categories c ON c.id = r.category_id
			WHERE r.id = $1
			FOR UPDATE OF c`, id).Scan(&categoryID, &amount, &state, &limit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrReimbursementNotFound
			}
			return fmt.Errorf("error locking category: %w", err)
		}
		if !state.CanTransitionTo(models.ReimbursementApproved) {
			return apperrors.ErrInvalidStateTransition
		}

		var spent, pending int64
		if err := tx.QueryRow(ctx, categoryTotalsSQL+` WHERE category_id = $1 GROUP BY category_id`, categoryID).
			Scan(&categoryID, &spent, &pending); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("error summing category: %w", err)
		}
		if spent+amount > limit {
			return apperrors.ErrInsufficientBalance
		}

		return r.decide(ctx, tx, id, state, models.ReimbursementApproved, decidedBy, nil, at)
	})
}

// Deny marks a request DENIED with a reason
func (r *WalletRepository) Deny(ctx context.Context, id int64, from models.ReimbursementState, decidedBy int64, reason string, at time.Time) error {
	return r.decide(ctx, r.db, id, from, models.ReimbursementDenied, decidedBy, &reason, at)
}

func (r *WalletRepository) decide(ctx context.Context, q querier, id int64, from, to models.ReimbursementState, decidedBy int64, reason *string, at time.Time) error {
	sql, args, err := r.sb.Update("reimbursement_requests").
		Set("state", to).
		Set("denial_reason", reason).
		Set("decided_at", at).
		Set("decided_by", decidedBy).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "state": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build decide reimbursement query: %w", err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("reimbursementID", id).Msg("Error deciding reimbursement")
		return fmt.Errorf("error deciding reimbursement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidStateTransition
	}
	return nil
}

// MarkReimbursed moves an APPROVED request to REIMBURSED
func (r *WalletRepository) MarkReimbursed(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Update("reimbursement_requests").
		Set("state", models.ReimbursementReimbursed).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "state": models.ReimbursementApproved}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark reimbursed query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error marking reimbursed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidStateTransition
	}
	return nil
}

// ClearExported makes an APPROVED request eligible for the next export
func (r *WalletRepository) ClearExported(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Update("reimbursement_requests").
		Set("exported_at", nil).
		Where(squirrel.Eq{"id": id, "state": models.ReimbursementApproved}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear exported query: %w", err)
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ClaimDepositCandidates stamps exported_at on every APPROVED request not yet
// exported and returns the claimed rows. Rows locked by a concurrent claim are
// skipped, so each request is handed to exactly one export.
func (r *WalletRepository) ClaimDepositCandidates(ctx context.Context, at time.Time) ([]models.DepositCandidate, error) {
	rows, err := r.db.Query(ctx, `
		WITH claimed AS (
			UPDATE reimbursement_requests
			SET exported_at = $1
			WHERE id IN (
				SELECT id FROM reimbursement_requests
				WHERE state = 'APPROVED' AND exported_at IS NULL
				ORDER BY id
				FOR UPDATE SKIP LOCKED
			) AND exported_at IS NULL
			RETURNING id, wallet_id, category_id, amount_cents, decided_at
		)
		SELECT cl.id, w.employee_id, c.label, cl.amount_cents, cl.decided_at
		FROM claimed cl
		JOIN wallets w ON w.id = cl.wallet_id
		JOIN wallet_categories c ON c.id = cl.category_id
		ORDER BY cl.id`, at)
	if err != nil {
		return nil, fmt.Errorf("error claiming deposit candidates: %w", err)
	}
	defer rows.Close()

	var out []models.DepositCandidate
	for rows.Next() {
		var d models.DepositCandidate
		if err := rows.Scan(&d.RequestID, &d.EmployeeID, &d.CategoryLabel, &d.AmountCents, &d.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ReleaseExported undoes a claim made at `at`, leaving requests that a later
// export has since claimed untouched.
func (r *WalletRepository) ReleaseExported(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	sql, args, err := r.sb.Update("reimbursement_requests").
		Set("exported_at", nil).
		Where(squirrel.Eq{"id": ids, "state": models.ReimbursementApproved, "exported_at": at}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build release exported query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error releasing exported requests: %w", err)
	}
	return nil
}
