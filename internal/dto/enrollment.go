package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// BookingRequest carries the amounts of an enrollment booking. Amounts accept JSON numbers or strings.
type BookingRequest struct {
	TuitionFee        decimal.Decimal `json:"tuitionFee"`
	ScholarshipAmount decimal.Decimal `json:"scholarshipAmount"`
	InitialDeposit    decimal.Decimal `json:"initialDeposit"`
	EnrollmentFee     decimal.Decimal `json:"enrollmentFee"`
}

// Figures converts the request into booking figures.
func (r BookingRequest) Figures() models.BookingFigures {
	return models.BookingFigures{
		TuitionFee:        r.TuitionFee,
		ScholarshipAmount: r.ScholarshipAmount,
		InitialDeposit:    r.InitialDeposit,
		EnrollmentFee:     r.EnrollmentFee,
	}
}

// EnrollmentResponse returns a booked enrollment with its outstanding balance.
type EnrollmentResponse struct {
	Enrollment   *models.Enrollment `json:"enrollment"`
	RemainingFee decimal.Decimal    `json:"remainingFee"`
}
