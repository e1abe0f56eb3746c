package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/email"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

const (
	// minBookingLead is how far ahead of now an appointment must start
	minBookingLead = 10 * time.Minute
	// lateCancellationWindow marks member cancellations closer to start than this
	lateCancellationWindow = 24 * time.Hour
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	CreateProduct(ctx context.Context, practitionerID int64, req *dto.CreateProductRequest) (*models.Product, error)
	ListProducts(ctx context.Context, practitionerID *int64) ([]*models.Product, error)
	AddAvailability(ctx context.Context, practitionerID int64, req *dto.AddAvailabilityRequest) (*models.Availability, error)
	Book(ctx context.Context, memberID int64, req *dto.BookAppointmentRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error)
	Complete(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error)
	MarkNoShow(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error)
	ListForMember(ctx context.Context, memberID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error)
	ListForPractitioner(ctx context.Context, practitionerID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error)
	SendReminders(ctx context.Context, now time.Time, lead time.Duration) (int, error)
}

type appointmentServiceImpl struct {
	productRepo      productStore
	availabilityRepo availabilityStore
	appointmentRepo  appointmentStore
	userRepo         userStore
	emailService     email.EmailService
	logger           zerolog.Logger
	now              func() time.Time
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(
	productRepo productStore,
	availabilityRepo availabilityStore,
	appointmentRepo appointmentStore,
	userRepo userStore,
	emailService email.EmailService,
	logger zerolog.Logger,
) AppointmentService {
	return &appointmentServiceImpl{
		productRepo:      productRepo,
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		userRepo:         userRepo,
		emailService:     emailService,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *appointmentServiceImpl) CreateProduct(ctx context.Context, practitionerID int64, req *dto.CreateProductRequest) (*models.Product, error) {
	if req.Minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", apperrors.ErrValidationFailed)
	}
	if req.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", apperrors.ErrValidationFailed)
	}
	product := &models.Product{
		PractitionerID: practitionerID,
		Minutes:        req.Minutes,
		PriceCents:     req.PriceCents,
		Purpose:        req.Purpose,
		IsActive:       true,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *appointmentServiceImpl) ListProducts(ctx context.Context, practitionerID *int64) ([]*models.Product, error) {
	return s.productRepo.ListActive(ctx, practitionerID)
}

func (s *appointmentServiceImpl) AddAvailability(ctx context.Context, practitionerID int64, req *dto.AddAvailabilityRequest) (*models.Availability, error) {
	start, end := req.StartsAt.UTC(), req.EndsAt.UTC()
	if !end.After(start) {
		return nil, fmt.Errorf("%w: availability must end after it starts", apperrors.ErrValidationFailed)
	}

	existing, err := s.availabilityRepo.ListOverlapping(ctx, practitionerID, start, end)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperrors.ErrAvailabilityConflict
	}

	window := &models.Availability{PractitionerID: practitionerID, StartsAt: start, EndsAt: end}
	if err := s.availabilityRepo.Create(ctx, window); err != nil {
		return nil, err
	}
	return window, nil
}

// Book schedules productId for the member. The practitioner must have one
// availability window covering the whole slot and neither party may have
// another SCHEDULED appointment overlapping it.
func (s *appointmentServiceImpl) Book(ctx context.Context, memberID int64, req *dto.BookAppointmentRequest) (*models.Appointment, error) {
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.ErrProductNotFound
	}

	start := req.StartsAt.UTC()
	if start.Before(s.now().Add(minBookingLead)) {
		return nil, fmt.Errorf("%w: appointments must start at least %s from now", apperrors.ErrValidationFailed, minBookingLead)
	}
	end := start.Add(time.Duration(product.Minutes) * time.Minute)

	windows, err := s.availabilityRepo.ListOverlapping(ctx, product.PractitionerID, start, end)
	if err != nil {
		return nil, err
	}
	covered := false
	for _, w := range windows {
		if w.Covers(start, end) {
			covered = true
			break
		}
	}
	if !covered {
		return nil, apperrors.ErrNoAvailability
	}

	overlap, err := s.appointmentRepo.HasOverlap(ctx, product.PractitionerID, memberID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, apperrors.ErrAppointmentConflict
	}

	appt := &models.Appointment{
		MemberID:       memberID,
		PractitionerID: product.PractitionerID,
		ProductID:      product.ID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		State:          models.AppointmentScheduled,
	}
	if err := s.appointmentRepo.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("appointmentID", appt.ID).Int64("memberID", memberID).
		Int64("practitionerID", appt.PractitionerID).Time("start", start).Msg("Appointment booked")
	return appt, nil
}

func (s *appointmentServiceImpl) Cancel(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != appt.MemberID && actor.UserID != appt.PractitionerID && !actor.IsOps() {
		return nil, apperrors.NewForbiddenError("only the member, the practitioner or ops can cancel this appointment")
	}
	if !appt.State.CanTransitionTo(models.AppointmentCancelled) {
		return nil, apperrors.ErrInvalidStateTransition
	}

	now := s.now().UTC()
	by := actor.UserID
	appt.State = models.AppointmentCancelled
	appt.CancelledAt = &now
	appt.CancelledBy = &by
	appt.LateCancellation = actor.UserID == appt.MemberID && appt.ScheduledStart.Sub(now) < lateCancellationWindow

	if err := s.appointmentRepo.Transition(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *appointmentServiceImpl) Complete(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	return s.finish(ctx, actor, appointmentID, models.AppointmentCompleted)
}

func (s *appointmentServiceImpl) MarkNoShow(ctx context.Context, actor authz.Actor, appointmentID int64) (*models.Appointment, error) {
	return s.finish(ctx, actor, appointmentID, models.AppointmentNoShow)
}

// finish moves a started appointment to a terminal state
func (s *appointmentServiceImpl) finish(ctx context.Context, actor authz.Actor, appointmentID int64, next models.AppointmentState) (*models.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != appt.PractitionerID && !actor.IsOps() {
		return nil, apperrors.NewForbiddenError("only the practitioner or ops can close this appointment")
	}
	if !appt.State.CanTransitionTo(next) {
		return nil, apperrors.ErrInvalidStateTransition
	}
	if s.now().Before(appt.ScheduledStart) {
		return nil, fmt.Errorf("%w: appointment has not started yet", apperrors.ErrValidationFailed)
	}

	appt.State = next
	if err := s.appointmentRepo.Transition(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *appointmentServiceImpl) ListForMember(ctx context.Context, memberID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error) {
	p := helpers.NormalizePage(page, size)
	items, total, err := s.appointmentRepo.ListByMember(ctx, memberID, p.Offset(), p.Limit())
	if err != nil {
		return nil, nil, err
	}
	return items, p.Info(total), nil
}

func (s *appointmentServiceImpl) ListForPractitioner(ctx context.Context, practitionerID int64, page, size int) ([]*models.Appointment, *dto.PaginationInfo, error) {
	p := helpers.NormalizePage(page, size)
	items, total, err := s.appointmentRepo.ListByPractitioner(ctx, practitionerID, p.Offset(), p.Limit())
	if err != nil {
		return nil, nil, err
	}
	return items, p.Info(total), nil
}

// SendReminders emails members whose appointment starts within lead of now.
// A failed send leaves the reminder unmarked so the next run retries it.
func (s *appointmentServiceImpl) SendReminders(ctx context.Context, now time.Time, lead time.Duration) (int, error) {
	due, err := s.appointmentRepo.ListDueReminders(ctx, now, now.Add(lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, appt := range due {
		member, err := s.userRepo.GetByID(ctx, appt.MemberID)
		if err != nil {
			errs = append(errs, fmt.Errorf("appointment %d: %w", appt.ID, err))
			continue
		}
		purpose := ""
		if product, err := s.productRepo.GetByID(ctx, appt.ProductID); err == nil {
			purpose = product.Purpose
		}

		if err := s.emailService.SendAppointmentReminder(member.Email, member.FullName(), appt.ScheduledStart, purpose); err != nil {
			s.logger.Warn().Err(err).Int64("appointmentID", appt.ID).Msg("Failed to send appointment reminder")
			errs = append(errs, fmt.Errorf("appointment %d: %w", appt.ID, err))
			continue
		}
		if err := s.appointmentRepo.MarkReminderSent(ctx, appt.ID, now); err != nil {
			errs = append(errs, fmt.Errorf("appointment %d: %w", appt.ID, err))
			continue
		}
		sent++
	}

	s.logger.Info().Int("due", len(due)).Int("sent", sent).Msg("Appointment reminders processed")
	return sent, errors.Join(errs...)
}
