package types

import (
	"errors"
	"fmt"
)

// ErrorCategory groups error codes by how a caller should react to them
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryUnauthorized  ErrorCategory = "unauthorized"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryForbidden     ErrorCategory = "forbidden"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryExternal      ErrorCategory = "external"
	CategoryConfiguration ErrorCategory = "configuration"
)

type ErrorCode string

const (
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeConflict             ErrorCode = "CONFLICT"
	CodePricingNotConfigured ErrorCode = "PRICING_NOT_CONFIGURED"
	CodeAlreadyAssigned      ErrorCode = "ALREADY_ASSIGNED"
	CodeDuplicateRequest     ErrorCode = "DUPLICATE_REQUEST"
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	CodeNotCapturable        ErrorCode = "NOT_CAPTURABLE"
	CodeNotRefundable        ErrorCode = "NOT_REFUNDABLE"
	CodePaymentSetupFailed   ErrorCode = "PAYMENT_SETUP_FAILED"
	CodePayoutBlocked        ErrorCode = "PAYOUT_BLOCKED"
	CodeProviderError        ErrorCode = "PROVIDER_ERROR"
	CodeLookupFailed         ErrorCode = "LOOKUP_FAILED"
)

// AppError is the typed failure returned by lifecycle and payment operations.
// Message is safe to show to end users; Reason carries provider codes or
// other detail for logs and the audit trail.
type AppError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
	Reason   string        `json:"reason,omitempty"`
	cause    error
}

func (e *AppError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches on code so callers can use errors.Is with the sentinel values below.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func (e *AppError) WithReason(reason string) *AppError {
	clone := *e
	clone.Reason = reason
	return &clone
}

func (e *AppError) WithCause(err error) *AppError {
	clone := *e
	clone.cause = err
	if clone.Reason == "" && err != nil {
		clone.Reason = err.Error()
	}
	return &clone
}

func NewAppError(code ErrorCode, category ErrorCategory, message string) *AppError {
	return &AppError{Code: code, Category: category, Message: message}
}

func Validation(message string) *AppError {
	return NewAppError(CodeValidationFailed, CategoryValidation, message)
}

func Unauthorized(message string) *AppError {
	return NewAppError(CodeUnauthorized, CategoryUnauthorized, message)
}

func NotFound(message string) *AppError {
	return NewAppError(CodeNotFound, CategoryNotFound, message)
}

func Forbidden(message string) *AppError {
	return NewAppError(CodeForbidden, CategoryForbidden, message)
}

func Conflict(message string) *AppError {
	return NewAppError(CodeConflict, CategoryConflict, message)
}

func InvalidTransition(from, to string) *AppError {
	return NewAppError(
		CodeInvalidTransition,
		CategoryConflict,
		fmt.Sprintf("cannot move from %s to %s", from, to),
	)
}

var (
	ErrPricingNotConfigured = NewAppError(
		CodePricingNotConfigured,
		CategoryConfiguration,
		"no price is configured for this service and property size",
	)
	ErrAlreadyAssigned = NewAppError(
		CodeAlreadyAssigned,
		CategoryConflict,
		"this job already has a cleaner assigned",
	)
	ErrDuplicateRequest = NewAppError(
		CodeDuplicateRequest,
		CategoryConflict,
		"you have already requested this job",
	)
	ErrNotCapturable = NewAppError(
		CodeNotCapturable,
		CategoryConflict,
		"the payment cannot be captured in its current state",
	)
	ErrNotRefundable = NewAppError(
		CodeNotRefundable,
		CategoryConflict,
		"the payment cannot be refunded in its current state",
	)
	ErrPaymentSetupFailed = NewAppError(
		CodePaymentSetupFailed,
		CategoryExternal,
		"the payment could not be set up",
	)
	ErrPayoutBlocked = NewAppError(
		CodePayoutBlocked,
		CategoryExternal,
		"the cleaner cannot receive payouts yet",
	)
	ErrProviderError = NewAppError(
		CodeProviderError,
		CategoryExternal,
		"the payment provider returned an error",
	)
	ErrLookupFailed = NewAppError(
		CodeLookupFailed,
		CategoryExternal,
		"the lookup service is unavailable",
	)
)

// AsAppError returns the AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
