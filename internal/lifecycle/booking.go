package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// moneyScale is the number of decimal places stored for every amount.
const moneyScale = 2

// ValidateAndCompute derives the booking figures and rejects inconsistent amounts.
// It performs no I/O; a failure here must stop the booking before any store call.
func ValidateAndCompute(figures models.BookingFigures) (*models.BookingQuote, error) {
	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"tuition fee", figures.TuitionFee},
		{"scholarship amount", figures.ScholarshipAmount},
		{"initial deposit", figures.InitialDeposit},
		{"enrollment fee", figures.EnrollmentFee},
	}
	for _, amount := range amounts {
		if amount.value.IsNegative() {
			return nil, newValidationError(KindInvalidAmount, "%s must not be negative", amount.name)
		}
		if !amount.value.Equal(amount.value.Round(moneyScale)) {
			return nil, newValidationError(KindInvalidAmount, "%s must have at most %d decimal places", amount.name, moneyScale)
		}
	}

	feePayable := figures.TuitionFee.Sub(figures.ScholarshipAmount)
	if feePayable.IsNegative() {
		return nil, newValidationError(KindInvalidScholarship, "scholarship %s exceeds tuition fee %s", figures.ScholarshipAmount, figures.TuitionFee)
	}
	totalPaid := figures.InitialDeposit.Add(figures.EnrollmentFee)
	if figures.InitialDeposit.GreaterThan(feePayable) {
		return nil, newValidationError(KindDepositExceedsPayable, "initial deposit %s exceeds fee payable %s", figures.InitialDeposit, feePayable)
	}
	if totalPaid.GreaterThan(feePayable) {
		return nil, newValidationError(KindTotalExceedsPayable, "total paid %s exceeds fee payable %s", totalPaid, feePayable)
	}
	return &models.BookingQuote{
		FeePayable:   feePayable,
		TotalPaid:    totalPaid,
		RemainingFee: feePayable.Sub(totalPaid),
	}, nil
}
