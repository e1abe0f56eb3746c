package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsBadJobs(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register(Job{Name: "a", Spec: "@every 1h", Run: noop}))
	assert.Error(t, s.Register(Job{Name: "a", Spec: "@every 1h", Run: noop}), "duplicate name")
	assert.Error(t, s.Register(Job{Name: "b", Spec: "not a schedule", Run: noop}))
	assert.Error(t, s.Register(Job{Name: "", Spec: "@hourly", Run: noop}))
	assert.ElementsMatch(t, []string{"a"}, s.Names())
}

func TestRunOutcomes(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, s.Register(Job{Name: "ok", Spec: "@hourly", Run: func(context.Context) error { return nil }}))
	require.NoError(t, s.Register(Job{Name: "fails", Spec: "@hourly", Run: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, s.Register(Job{Name: "panics", Spec: "@hourly", Run: func(context.Context) error { panic("nil map") }}))

	status, err := s.RunNow(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, metrics.JobSuccess, status)

	status, err = s.RunNow(ctx, "fails")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, metrics.JobFailure, status)

	status, err = s.RunNow(ctx, "panics")
	assert.ErrorContains(t, err, "panicked")
	assert.Equal(t, metrics.JobFailure, status)

	_, err = s.RunNow(ctx, "missing")
	assert.Error(t, err)
}

func TestRunSkipsWhileRunning(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	started, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, s.Register(Job{Name: "slow", Spec: "@hourly", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	done := make(chan string)
	go func() {
		status, _ := s.RunNow(context.Background(), "slow")
		done <- status
	}()
	<-started

	status, err := s.RunNow(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, metrics.JobSkipped, status)

	close(release)
	assert.Equal(t, metrics.JobSuccess, <-done)
}

func TestStopCancelsRunningJobs(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Error(t, s.ctx.Err())
}

type fakeReports struct{ at time.Time }

func (f *fakeReports) GenerateAllReports(_ context.Context, now time.Time) error {
	f.at = now
	return nil
}

type fakeExporter struct{ calls int }

func (f *fakeExporter) ExportDeposits(context.Context, time.Time) (*models.EdiTransfer, error) {
	f.calls++
	if f.calls == 1 {
		return &models.EdiTransfer{Filename: "ACME_deposits.csv", RecordCount: 2}, nil
	}
	return nil, nil
}

type fakeReminders struct{ lead time.Duration }

func (f *fakeReminders) SendReminders(_ context.Context, _ time.Time, lead time.Duration) (int, error) {
	f.lead = lead
	return 1, errors.New("one reminder failed")
}

type fakeCleaner struct{}

func (fakeCleaner) CleanupExpiredTokens(context.Context) (int64, error) { return 3, nil }

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	now := time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
	reports, exporter, reminders := &fakeReports{}, &fakeExporter{}, &fakeReminders{}

	err := RegisterAll(s, Schedules{
		Accumulation: "0 2 * * *",
		EdiExport:    "30 6 * * 1-5",
		Reminders:    "*/15 * * * *",
		TokenCleanup: "@daily",
		ReminderLead: 24 * time.Hour,
	}, Dependencies{
		Accumulation: reports,
		Edi:          exporter,
		Appointments: reminders,
		Auth:         fakeCleaner{},
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{AccumulationReports, EdiDepositExport, AppointmentReminders, TokenCleanup}, s.Names())

	ctx := context.Background()
	status, err := s.RunNow(ctx, AccumulationReports)
	require.NoError(t, err)
	assert.Equal(t, metrics.JobSuccess, status)
	assert.Equal(t, now, reports.at)

	for i := 0; i < 2; i++ {
		_, err = s.RunNow(ctx, EdiDepositExport)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, exporter.calls)

	status, _ = s.RunNow(ctx, AppointmentReminders)
	assert.Equal(t, metrics.JobFailure, status)
	assert.Equal(t, 24*time.Hour, reminders.lead)

	status, err = s.RunNow(ctx, TokenCleanup)
	require.NoError(t, err)
	assert.Equal(t, metrics.JobSuccess, status)
}
