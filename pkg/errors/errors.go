package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Session creation gates, surfaced in a fixed order: course/topic
	// validity, restrictions, quota, ToS/account state, consent, enrolment.
	ErrInvalidCourseTopic = New("INVALID_COURSE_TOPIC", http.StatusBadRequest, "invalid course/topic")
	ErrDailyLimitReached  = New("DAILY_LIMIT_REACHED", http.StatusForbidden, "daily tutorial limit reached by parent/guardian restrictions")
	ErrWeeklyLimitReached = New("WEEKLY_LIMIT_REACHED", http.StatusForbidden, "weekly tutorial limit reached by parent/guardian restrictions")
	ErrTimeBlocked        = New("TIME_BLOCKED", http.StatusForbidden, "tutorials are blocked at this time by parent/guardian restrictions")
	ErrQuotaExceeded      = New("QUOTA_EXCEEDED", http.StatusPaymentRequired, "subscription quota exceeded")
	ErrTermsNotAccepted   = New("TERMS_NOT_ACCEPTED", http.StatusForbidden, "terms of service not accepted")
	ErrAccountDeleted     = New("ACCOUNT_DELETED", http.StatusForbidden, "account deleted")
	ErrConsentRequired    = New("CONSENT_REQUIRED", http.StatusForbidden, "parental consent required")
	ErrNotEnrolled        = New("NOT_ENROLLED", http.StatusForbidden, "not enrolled in this subject/exam board")

	// ErrCacheMiss is a sentinel for cache lookups, never surfaced over HTTP.
	ErrCacheMiss = errors.New("cache miss")

	ErrSessionNotFound = New("SESSION_NOT_FOUND", http.StatusNotFound, "session not found")
	ErrRoomProvision   = New("ROOM_PROVISIONING_FAILED", http.StatusBadGateway, "failed to provision realtime room")
	ErrInviteInvalid   = New("INVITE_CODE_INVALID", http.StatusBadRequest, "invite code invalid or expired")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of the error carrying structured details, such
// as the quota ledger breakdown behind a QUOTA_EXCEEDED response.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
