package middleware

import (
	"errors"
	"net/http"

	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err     error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first sentinel matched with
// errors.Is decides the response.
var errorMappings = []errorMapping{
	// Authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token format"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},

	// Validation
	{apperrors.ErrInvalidEmail, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Bad request"},
	{apperrors.ErrMalformedFile, http.StatusBadRequest, dto.ErrorCodeMalformedFile, "Malformed file"},

	// Not found
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrAppointmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Appointment not found"},
	{apperrors.ErrProductNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Product not found"},
	{apperrors.ErrWalletNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Wallet not found"},
	{apperrors.ErrCategoryNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Wallet category not found"},
	{apperrors.ErrReimbursementNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Reimbursement request not found"},
	{apperrors.ErrRiskFlagNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Risk flag not found"},
	{apperrors.ErrTreatmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Treatment procedure not found"},
	{apperrors.ErrReportNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Accumulation report not found"},
	{apperrors.ErrPayerNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Payer not found"},
	{apperrors.ErrNoMemberHealthPlan, http.StatusNotFound, dto.ErrorCodeNoHealthPlan, "Member has no active health plan"},

	// Conflicts and domain rules
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrWalletAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Member already has a wallet"},
	{apperrors.ErrHealthPlanAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Overlapping health plan exists"},
	{apperrors.ErrTreatmentAlreadyMapped, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Procedure already queued"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrAppointmentConflict, http.StatusConflict, dto.ErrorCodeConflict, "Appointment conflict"},
	{apperrors.ErrAvailabilityConflict, http.StatusConflict, dto.ErrorCodeConflict, "Availability conflict"},
	{apperrors.ErrReportAlreadySubmitted, http.StatusConflict, dto.ErrorCodeConflict, "Report already submitted"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrInvalidStateTransition, http.StatusUnprocessableEntity, dto.ErrorCodeInvalidStateTransition, "Invalid state transition"},
	{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity, dto.ErrorCodeInsufficientBalance, "Insufficient balance"},
	{apperrors.ErrWalletNotQualified, http.StatusUnprocessableEntity, dto.ErrorCodeWalletNotQualified, "Wallet is not qualified"},
	{apperrors.ErrNoAvailability, http.StatusUnprocessableEntity, dto.ErrorCodeNoAvailability, "Practitioner not available"},

	// Upstream
	{apperrors.ErrEligibilityCall, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "Eligibility provider unavailable"},
}

// HandleAPIError handles common API errors and returns appropriate responses.
// Client errors carry err's text as details; anything unmapped is logged
// and answered with a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if m.status < http.StatusInternalServerError {
			if msg := err.Error(); msg != m.err.Error() {
				detail = detail.WithDetails(msg)
			}
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		} else {
			logger.Error().Err(err).Str("path", c.FullPath()).Msg("Upstream failure")
		}
		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Str("requestID", c.GetString(ContextRequestID)).Msg("Unhandled error")
	detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
}
