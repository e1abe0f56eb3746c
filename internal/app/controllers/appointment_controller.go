package controllers

import (
	"context"
	"net/http"
	"strconv"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AppointmentController handles products, availability and appointments
type AppointmentController struct {
	appointmentService services.AppointmentService
	logger             zerolog.Logger
}

// NewAppointmentController creates a new AppointmentController
func NewAppointmentController(appointmentService services.AppointmentService, logger zerolog.Logger) *AppointmentController {
	return &AppointmentController{
		appointmentService: appointmentService,
		logger:             logger.With().Str("controller", "appointment").Logger(),
	}
}

// CreateProduct adds a bookable product for the calling practitioner
// POST /products
func (c *AppointmentController) CreateProduct(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	product, err := c.appointmentService.CreateProduct(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(product))
}

// ListProducts lists active products, optionally for one practitioner
// GET /products?practitionerId=
func (c *AppointmentController) ListProducts(ctx *gin.Context) {
	var practitionerID *int64
	if raw := ctx.Query("practitionerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("practitionerId must be a positive integer"))
			return
		}
		practitionerID = &id
	}

	products, err := c.appointmentService.ListProducts(ctx.Request.Context(), practitionerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(products))
}

// AddAvailability opens a booking window for the calling practitioner
// POST /practitioners/availability
func (c *AppointmentController) AddAvailability(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.AddAvailabilityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	window, err := c.appointmentService.AddAvailability(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(window))
}

// Book books an appointment for the calling member
// POST /appointments
func (c *AppointmentController) Book(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.BookAppointmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	appointment, err := c.appointmentService.Book(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("memberID", actor.UserID).Int64("productID", req.ProductID).Msg("Booking rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("appointmentID", appointment.ID).
		Int64("memberID", appointment.MemberID).
		Int64("practitionerID", appointment.PractitionerID).
		Msg("Appointment booked")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(appointment))
}

// List returns the caller's appointments. Members see their own, practitioners
// their schedule; ops must pass memberId or practitionerId.
// GET /appointments
func (c *AppointmentController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	var (
		items      []*models.Appointment
		pagination *dto.PaginationInfo
		err        error
	)
	switch actor.Role {
	case models.RoleMember:
		items, pagination, err = c.appointmentService.ListForMember(ctx.Request.Context(), actor.UserID, page, size)
	case models.RolePractitioner:
		items, pagination, err = c.appointmentService.ListForPractitioner(ctx.Request.Context(), actor.UserID, page, size)
	default:
		memberID, _ := strconv.ParseInt(ctx.Query("memberId"), 10, 64)
		practitionerID, _ := strconv.ParseInt(ctx.Query("practitionerId"), 10, 64)
		switch {
		case memberID > 0:
			items, pagination, err = c.appointmentService.ListForMember(ctx.Request.Context(), memberID, page, size)
		case practitionerID > 0:
			items, pagination, err = c.appointmentService.ListForPractitioner(ctx.Request.Context(), practitionerID, page, size)
		default:
			err = apperrors.NewValidationError("memberId or practitionerId is required")
		}
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(items, pagination))
}

// Cancel cancels a scheduled appointment
// POST /appointments/:id/cancel
func (c *AppointmentController) Cancel(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	appointment, err := c.appointmentService.Cancel(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("appointmentID", id).
		Int64("cancelledBy", actor.UserID).
		Bool("late", appointment.LateCancellation).
		Msg("Appointment cancelled")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(appointment))
}

// Complete marks an appointment as held
// POST /appointments/:id/complete
func (c *AppointmentController) Complete(ctx *gin.Context) {
	c.finish(ctx, c.appointmentService.Complete)
}

// MarkNoShow records that the member did not attend
// POST /appointments/:id/no-show
func (c *AppointmentController) MarkNoShow(ctx *gin.Context) {
	c.finish(ctx, c.appointmentService.MarkNoShow)
}

func (c *AppointmentController) finish(ctx *gin.Context, transition func(context.Context, authz.Actor, int64) (*models.Appointment, error)) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	appointment, err := transition(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(appointment))
}
