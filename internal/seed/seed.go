package seed

import (
	"context"
	"errors"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/auth"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// execer is the part of *pgxpool.Pool the seed needs
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UserCreator creates users; satisfied by repositories.UserRepository
type UserCreator interface {
	Create(ctx context.Context, user *models.User) error
}

// OpsAccount is the optional operations user created on first start
type OpsAccount struct {
	Email    string
	Password string
}

// DefaultPayers are the carriers whose accumulator formats are built in
var DefaultPayers = []models.Payer{
	{Name: "Express Scripts", Code: "esi", ReceiverID: "ESI", EligibilityPayerCode: "00192"},
	{Name: "UnitedHealthcare", Code: "uhc", ReceiverID: "UHC", EligibilityPayerCode: "00192"},
}

// DefaultRiskFlags is the risk flag catalogue
var DefaultRiskFlags = []models.RiskFlag{
	{Name: models.RiskFlagHighBMI, Severity: models.RiskHigh, IsChronic: true},
	{Name: models.RiskFlagOverweight, Severity: models.RiskMedium, IsChronic: true},
	{Name: "Diabetes", Severity: models.RiskHigh, IsChronic: true},
	{Name: "Hypertension", Severity: models.RiskMedium, IsChronic: true},
	{Name: "Smoker", Severity: models.RiskMedium},
	{Name: "Pregnancy", Severity: models.RiskLow},
}

// CreateDefaultData inserts catalogue rows that do not exist yet and the ops
// account when one is configured. Failures are collected, not fatal.
func CreateDefaultData(ctx context.Context, db execer, users UserCreator, ops OpsAccount, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (payers, risk flags)...")
	var finalErr error

	for _, p := range DefaultPayers {
		_, err := db.Exec(ctx, `
			INSERT INTO payers (name, code, receiver_id, eligibility_payer_code)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO NOTHING`,
			p.Name, p.Code, p.ReceiverID, p.EligibilityPayerCode)
		if err != nil {
			lgr.Error().Err(err).Str("payer", p.Code).Msg("Error creating payer")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, f := range DefaultRiskFlags {
		_, err := db.Exec(ctx, `
			INSERT INTO risk_flags (name, severity, is_chronic)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
			f.Name, f.Severity, f.IsChronic)
		if err != nil {
			lgr.Error().Err(err).Str("flag", f.Name).Msg("Error creating risk flag")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if ops.Email != "" && ops.Password != "" {
		finalErr = errors.Join(finalErr, createOpsUser(ctx, users, ops, lgr))
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

func createOpsUser(ctx context.Context, users UserCreator, ops OpsAccount, lgr zerolog.Logger) error {
	hashed, err := auth.HashPassword(ops.Password)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:     ops.Email,
		Password:  hashed,
		FirstName: "CareBridge",
		LastName:  "Operations",
		RoleType:  models.RoleOps,
		IsActive:  true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			lgr.Info().Msg("Ops user already exists, skipping creation")
			return nil
		}
		lgr.Error().Err(err).Msg("Error creating ops user")
		return err
	}
	lgr.Info().Int64("userID", user.ID).Msg("Default ops user created successfully")
	return nil
}
