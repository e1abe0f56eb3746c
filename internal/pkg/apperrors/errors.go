package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Appointment errors
var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentConflict  = errors.New("appointment overlaps an existing appointment")
	ErrNoAvailability       = errors.New("practitioner is not available at the requested time")
	ErrAvailabilityConflict = errors.New("availability overlaps an existing window")
	ErrProductNotFound      = errors.New("product not found")
)

// Wallet errors
var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrWalletAlreadyExists     = errors.New("user already has a wallet")
	ErrWalletNotQualified      = errors.New("wallet is not qualified for reimbursements")
	ErrInsufficientBalance     = errors.New("insufficient wallet balance")
	ErrCategoryNotFound        = errors.New("wallet category not found")
	ErrReimbursementNotFound   = errors.New("reimbursement request not found")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrRiskFlagNotFound        = errors.New("risk flag not found")
	ErrTreatmentNotFound       = errors.New("treatment procedure not found")
	ErrReportNotFound          = errors.New("accumulation report not found")
	ErrReportAlreadySubmitted  = errors.New("accumulation report already submitted")
	ErrPayerNotFound           = errors.New("payer not found")
	ErrTreatmentAlreadyMapped  = errors.New("treatment procedure already queued for accumulation")
	ErrMalformedFile           = errors.New("malformed file")
	ErrHealthPlanAlreadyExists = errors.New("member already has an overlapping health plan")
)

// Eligibility errors
var (
	// ErrNoMemberHealthPlan is returned when a member has no plan active on the requested date.
	ErrNoMemberHealthPlan = errors.New("member has no active health plan")
	// ErrEligibilityCall wraps failures talking to the real-time eligibility provider.
	ErrEligibilityCall = errors.New("eligibility provider call failed")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a new custom error for validation failures with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
