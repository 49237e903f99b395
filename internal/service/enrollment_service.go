package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/internal/repository"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/events"
	"github.com/noah-isme/agent-portal-api/pkg/tracing"
)

type enrollmentStore interface {
	Book(ctx context.Context, enrollment *models.Enrollment) error
	GetByApplication(ctx context.Context, applicationID string) (*models.Enrollment, error)
}

// EnrollmentService validates and books enrollments.
type EnrollmentService struct {
	lifecycleBase
	apps        applicationReader
	enrollments enrollmentStore
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(apps applicationReader, enrollments enrollmentStore, opts ...LifecycleOption) *EnrollmentService {
	return &EnrollmentService{lifecycleBase: newLifecycleBase(opts), apps: apps, enrollments: enrollments}
}

// Quote validates the figures and returns the derived amounts without persisting anything.
func (s *EnrollmentService) Quote(req dto.BookingRequest) (*models.BookingQuote, error) {
	return lifecycle.ValidateAndCompute(req.Figures())
}

// Book validates the figures locally, checks eligibility and books the enrollment.
// A failed attempt leaves no enrollment behind and is not retried.
func (s *EnrollmentService) Book(ctx context.Context, applicationID string, req dto.BookingRequest, actor *models.JWTClaims) (resp *dto.EnrollmentResponse, err error) {
	quote, err := lifecycle.ValidateAndCompute(req.Figures())
	if err != nil {
		s.metrics.RecordBooking(OutcomeRejected)
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "enrollment.book", attribute.String("application.id", applicationID))
	defer func() {
		if err != nil {
			s.metrics.RecordBooking(OutcomeFailure)
		} else {
			s.metrics.RecordBooking(OutcomeSuccess)
		}
		tracing.End(span, err)
	}()

	release, err := s.guard.Acquire(ctx, applicationID, OperationBooking)
	if err != nil {
		return nil, err
	}
	defer release()

	app, err := s.loadApplication(ctx, s.apps, applicationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, app); err != nil {
		return nil, err
	}

	figures := req.Figures()
	enrollment := &models.Enrollment{
		ApplicationID:     applicationID,
		TuitionFee:        figures.TuitionFee,
		ScholarshipAmount: figures.ScholarshipAmount,
		FeePayable:        quote.FeePayable,
		InitialDeposit:    figures.InitialDeposit,
		EnrollmentFee:     figures.EnrollmentFee,
		TotalPaid:         quote.TotalPaid,
		BookedBy:          actorIDOf(actor),
		BookedAt:          s.clock(),
	}
	if err := s.enrollments.Book(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already booked for this application")
		}
		return nil, mapStoreError(err, "enrollment", "failed to book enrollment")
	}

	s.logger.Info("enrollment booked",
		zap.String("application_id", applicationID),
		zap.String("enrollment_id", enrollment.ID),
		zap.String("fee_payable", quote.FeePayable.String()))

	s.emitAudit(ctx, enrollment.BookedBy, models.AuditActionEnrollmentBook, applicationID, nil, enrollment)
	s.emitEvent(ctx, events.EnrollmentBooked, applicationID, enrollment.BookedBy, map[string]interface{}{
		"enrollmentId": enrollment.ID,
		"feePayable":   quote.FeePayable,
		"totalPaid":    quote.TotalPaid,
		"remainingFee": quote.RemainingFee,
	})

	stored, err := s.enrollments.GetByApplication(ctx, applicationID)
	if err != nil {
		return nil, mapStoreError(err, "enrollment", "failed to load booked enrollment")
	}
	return &dto.EnrollmentResponse{Enrollment: stored, RemainingFee: stored.FeePayable.Sub(stored.TotalPaid)}, nil
}

// Get returns the enrollment booked for an application.
func (s *EnrollmentService) Get(ctx context.Context, applicationID string) (*dto.EnrollmentResponse, error) {
	enrollment, err := s.enrollments.GetByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no enrollment booked for application %s", applicationID))
		}
		return nil, mapStoreError(err, "enrollment", "failed to load enrollment")
	}
	return &dto.EnrollmentResponse{Enrollment: enrollment, RemainingFee: enrollment.FeePayable.Sub(enrollment.TotalPaid)}, nil
}

func (s *EnrollmentService) checkEligibility(ctx context.Context, app *models.Application) error {
	if app.Terminated() {
		return appErrors.Clone(appErrors.ErrApplicationTerminated, "cancelled or rejected applications cannot be enrolled")
	}
	if !app.CompletionFlags.All() {
		return appErrors.Clone(appErrors.ErrNotEligible, "all completion checkpoints must be confirmed before booking")
	}
	if app.ReferralChannel != models.ReferralChannelAgent {
		return appErrors.Clone(appErrors.ErrNotEligible, "only agent-referred applications can be booked through the portal")
	}
	existing, err := s.enrollments.GetByApplication(ctx, app.ID)
	switch {
	case err == nil && existing != nil:
		return appErrors.Clone(appErrors.ErrConflict, "enrollment already booked for this application")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return mapStoreError(err, "enrollment", "failed to check existing enrollment")
	}
	return nil
}
