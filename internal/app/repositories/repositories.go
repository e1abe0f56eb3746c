package repositories

import (
	"context"

	"github.com/carebridge/carebridge/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	TokenRepository        *TokenRepository
	ProductRepository      *ProductRepository
	AvailabilityRepository *AvailabilityRepository
	AppointmentRepository  *AppointmentRepository
	RiskRepository         *RiskRepository
	WalletRepository       *WalletRepository
	PayerRepository        *PayerRepository
	HealthPlanRepository   *HealthPlanRepository
	TreatmentRepository    *TreatmentRepository
	AccumulationRepository *AccumulationRepository
	EdiRepository          *EdiRepository
}

// NewRepositories initializes all repositories
func NewRepositories(pg *db.PostgresDB) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(pg.Pool),
		TokenRepository:        NewTokenRepository(pg),
		ProductRepository:      NewProductRepository(pg.Pool),
		AvailabilityRepository: NewAvailabilityRepository(pg.Pool),
		AppointmentRepository:  NewAppointmentRepository(pg.Pool),
		RiskRepository:         NewRiskRepository(pg.Pool),
		WalletRepository:       NewWalletRepository(pg),
		PayerRepository:        NewPayerRepository(pg.Pool),
		HealthPlanRepository:   NewHealthPlanRepository(pg.Pool),
		TreatmentRepository:    NewTreatmentRepository(pg.Pool),
		AccumulationRepository: NewAccumulationRepository(pg),
		EdiRepository:          NewEdiRepository(pg.Pool),
	}
}
