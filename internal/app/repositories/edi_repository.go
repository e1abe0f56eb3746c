package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EdiRepository records files exchanged with the benefits administrator
type EdiRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewEdiRepository creates a new EdiRepository
func NewEdiRepository(db *pgxpool.Pool) *EdiRepository {
	return &EdiRepository{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// CreateTransfer inserts a transfer record
func (r *EdiRepository) CreateTransfer(ctx context.Context, t *models.EdiTransfer) error {
	sql, args, err := r.sb.Insert("edi_transfers").
		Columns("filename", "storage_path", "direction", "record_count", "created_at").
		Values(t.Filename, t.StoragePath, t.Direction, t.RecordCount, time.Now()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create transfer query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("error creating transfer: %w", err)
	}
	return nil
}
