package lifecycle

import (
	"fmt"

	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// ValidationKind names the local check that rejected an input.
type ValidationKind string

const (
	KindInvalidPayload        ValidationKind = "INVALID_PAYLOAD"
	KindPayloadMismatch       ValidationKind = "PAYLOAD_MISMATCH"
	KindInvalidAmount         ValidationKind = "INVALID_AMOUNT"
	KindInvalidScholarship    ValidationKind = "INVALID_SCHOLARSHIP"
	KindDepositExceedsPayable ValidationKind = "DEPOSIT_EXCEEDS_PAYABLE"
	KindTotalExceedsPayable   ValidationKind = "TOTAL_EXCEEDS_PAYABLE"
)

var kindErrors = map[ValidationKind]*appErrors.Error{
	KindInvalidPayload:        appErrors.ErrValidation,
	KindPayloadMismatch:       appErrors.ErrPayloadMismatch,
	KindInvalidAmount:         appErrors.ErrInvalidAmount,
	KindInvalidScholarship:    appErrors.ErrInvalidScholarship,
	KindDepositExceedsPayable: appErrors.ErrDepositExceedsPayable,
	KindTotalExceedsPayable:   appErrors.ErrTotalExceedsPayable,
}

// ValidationError is returned by local checks that run before any persistence call.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func newValidationError(kind ValidationKind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the HTTP-aware error for the kind so response rendering picks the right code.
func (e *ValidationError) Unwrap() error {
	if appErr, ok := kindErrors[e.Kind]; ok {
		if e.Detail == "" {
			return appErr
		}
		return appErrors.Clone(appErr, e.Detail)
	}
	return appErrors.Clone(appErrors.ErrValidation, e.Detail)
}

func statusNotFound(processID, statusID string) error {
	return appErrors.Clone(appErrors.ErrStatusNotFound, fmt.Sprintf("status %q not found in process %q", statusID, processID))
}
