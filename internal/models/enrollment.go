package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enrollment is the financial booking made once an application completes its pipeline.
type Enrollment struct {
	ID                string          `db:"id" json:"id"`
	ApplicationID     string          `db:"application_id" json:"applicationId"`
	TuitionFee        decimal.Decimal `db:"tuition_fee" json:"tuitionFee"`
	ScholarshipAmount decimal.Decimal `db:"scholarship_amount" json:"scholarshipAmount"`
	FeePayable        decimal.Decimal `db:"fee_payable" json:"feePayable"`
	InitialDeposit    decimal.Decimal `db:"initial_deposit" json:"initialDeposit"`
	EnrollmentFee     decimal.Decimal `db:"enrollment_fee" json:"enrollmentFee"`
	TotalPaid         decimal.Decimal `db:"total_paid" json:"totalPaid"`
	BookedBy          string          `db:"booked_by" json:"bookedBy"`
	BookedAt          time.Time       `db:"booked_at" json:"bookedAt"`
}

// BookingFigures are the caller-supplied amounts of an enrollment booking.
type BookingFigures struct {
	TuitionFee        decimal.Decimal `json:"tuitionFee"`
	ScholarshipAmount decimal.Decimal `json:"scholarshipAmount"`
	InitialDeposit    decimal.Decimal `json:"initialDeposit"`
	EnrollmentFee     decimal.Decimal `json:"enrollmentFee"`
}

// BookingQuote holds the derived figures of a valid booking.
type BookingQuote struct {
	FeePayable   decimal.Decimal `json:"feePayable"`
	TotalPaid    decimal.Decimal `json:"totalPaid"`
	RemainingFee decimal.Decimal `json:"remainingFee"`
}
