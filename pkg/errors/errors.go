package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Is matches errors sharing the same code so cloned errors still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
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
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrStatusNotFound        = New("STATUS_NOT_FOUND", http.StatusNotFound, "status not found in process")
	ErrMilestoneNotFound     = New("MILESTONE_NOT_FOUND", http.StatusNotFound, "milestone not defined in process")
	ErrApplicationTerminated = New("APPLICATION_TERMINATED", http.StatusConflict, "application is cancelled or rejected")
	ErrNotCancellable        = New("NOT_CANCELLABLE", http.StatusConflict, "application cannot be cancelled from its current status")
	ErrInFlight              = New("OPERATION_IN_PROGRESS", http.StatusConflict, "another request for this application is still in progress")
	ErrNotEligible           = New("NOT_ELIGIBLE", http.StatusPreconditionFailed, "application is not eligible for enrollment booking")
	ErrPayloadMismatch       = New("PAYLOAD_MISMATCH", http.StatusBadRequest, "payload does not match milestone type")
	ErrInvalidAmount         = New("INVALID_AMOUNT", http.StatusBadRequest, "amounts must not be negative")
	ErrInvalidScholarship    = New("INVALID_SCHOLARSHIP", http.StatusBadRequest, "scholarship amount exceeds tuition fee")
	ErrDepositExceedsPayable = New("DEPOSIT_EXCEEDS_PAYABLE", http.StatusBadRequest, "initial deposit exceeds fee payable")
	ErrTotalExceedsPayable   = New("TOTAL_EXCEEDS_PAYABLE", http.StatusBadRequest, "total paid exceeds fee payable")
	ErrRemote                = New("REMOTE_ERROR", http.StatusBadGateway, "upstream service request failed")
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

// Remote builds a RemoteError preferring the upstream detail when one was supplied.
func Remote(err error, detail string) *Error {
	if detail == "" {
		return Wrap(err, ErrRemote.Code, ErrRemote.Status, ErrRemote.Message)
	}
	return Wrap(err, ErrRemote.Code, ErrRemote.Status, detail)
}
