package jobs

import (
	"context"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/rs/zerolog"
)

// Job names, also used as metric labels.
const (
	AccumulationReports  = "accumulation_reports"
	EdiDepositExport     = "edi_deposit_export"
	AppointmentReminders = "appointment_reminders"
	TokenCleanup         = "token_cleanup"
)

type reportGenerator interface {
	GenerateAllReports(ctx context.Context, now time.Time) error
}

type depositExporter interface {
	ExportDeposits(ctx context.Context, now time.Time) (*models.EdiTransfer, error)
}

type reminderSender interface {
	SendReminders(ctx context.Context, now time.Time, lead time.Duration) (int, error)
}

type tokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// Schedules holds the cron spec of every job
type Schedules struct {
	Accumulation string
	EdiExport    string
	Reminders    string
	TokenCleanup string
	ReminderLead time.Duration
}

// Dependencies are the services the jobs drive
type Dependencies struct {
	Accumulation reportGenerator
	Edi          depositExporter
	Appointments reminderSender
	Auth         tokenCleaner
	Logger       zerolog.Logger
	Now          func() time.Time
}

// RegisterAll registers the platform jobs on the scheduler
func RegisterAll(s *Scheduler, schedules Schedules, deps Dependencies) error {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	jobs := []Job{
		{
			Name: AccumulationReports,
			Spec: schedules.Accumulation,
			Run: func(ctx context.Context) error {
				return deps.Accumulation.GenerateAllReports(ctx, now().UTC())
			},
		},
		{
			Name: EdiDepositExport,
			Spec: schedules.EdiExport,
			Run: func(ctx context.Context) error {
				transfer, err := deps.Edi.ExportDeposits(ctx, now().UTC())
				if err != nil {
					return err
				}
				if transfer != nil {
					deps.Logger.Info().Str("file", transfer.Filename).Int("records", transfer.RecordCount).Msg("Scheduled deposit export written")
				}
				return nil
			},
		},
		{
			Name: AppointmentReminders,
			Spec: schedules.Reminders,
			Run: func(ctx context.Context) error {
				sent, err := deps.Appointments.SendReminders(ctx, now().UTC(), schedules.ReminderLead)
				deps.Logger.Info().Int("sent", sent).Msg("Appointment reminders processed")
				return err
			},
		},
		{
			Name: TokenCleanup,
			Spec: schedules.TokenCleanup,
			Run: func(ctx context.Context) error {
				removed, err := deps.Auth.CleanupExpiredTokens(ctx)
				if err != nil {
					return err
				}
				deps.Logger.Info().Int64("removed", removed).Msg("Expired refresh tokens removed")
				return nil
			},
		},
	}

	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}
