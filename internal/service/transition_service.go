package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

type transitionStore interface {
	applicationReader
	UpdateStatus(ctx context.Context, id, statusID string, at time.Time) error
	Cancel(ctx context.Context, params repository.TerminateParams) error
	Reject(ctx context.Context, params repository.TerminateParams) error
}

// TransitionService moves applications between statuses and terminates them.
type TransitionService struct {
	lifecycleBase
	apps      transitionStore
	processes processGetter
	policy    lifecycle.CancelPolicy
}

// NewTransitionService constructs the service.
func NewTransitionService(apps transitionStore, processes processGetter, policy lifecycle.CancelPolicy, opts ...LifecycleOption) *TransitionService {
	return &TransitionService{
		lifecycleBase: newLifecycleBase(opts),
		apps:          apps,
		processes:     processes,
		policy:        policy,
	}
}

// Evaluate returns the milestone checklist of statusID for the application.
func (s *TransitionService) Evaluate(ctx context.Context, applicationID, statusID string) (*lifecycle.Evaluation, error) {
	app, process, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return lifecycle.EvaluateMissing(process, statusID, app.Milestones)
}

// RequestTransition applies the transition when every required milestone of the
// target is complete. A BLOCKED response is a normal outcome and writes nothing.
func (s *TransitionService) RequestTransition(ctx context.Context, applicationID string, req dto.TransitionRequest, actor *models.JWTClaims) (resp *dto.TransitionResponse, err error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "application.transition",
		attribute.String("application.id", applicationID),
		attribute.String("status.target", req.TargetStatusID))
	defer func() { tracing.End(span, err) }()

	release, err := s.guard.Acquire(ctx, applicationID, OperationTransition)
	if err != nil {
		s.metrics.RecordTransition(OutcomeInFlight)
		return nil, err
	}
	defer release()

	app, process, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	decision, err := lifecycle.DecideTransition(process, app, req.TargetStatusID)
	if err != nil {
		s.metrics.RecordTransition(OutcomeRejected)
		return nil, err
	}
	span.SetAttributes(attribute.String("transition.outcome", string(decision.Outcome)))

	if !decision.Applied() {
		s.metrics.RecordTransition(OutcomeBlocked)
		return &dto.TransitionResponse{
			Outcome:         decision.Outcome,
			Status:          decision.Target,
			MissingRequired: decision.Evaluation.MissingRequired,
			Application:     app,
		}, nil
	}

	previous := app.CurrentStatusID
	if err := s.apps.UpdateStatus(ctx, applicationID, req.TargetStatusID, s.clock()); err != nil {
		s.metrics.RecordTransition(OutcomeFailure)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrApplicationTerminated, "application was terminated or removed before the transition was saved")
		}
		return nil, mapStoreError(err, "application", "failed to update application status")
	}
	s.metrics.RecordTransition(OutcomeApplied)

	actorID := actorIDOf(actor)
	change := map[string]string{"from": previous, "to": req.TargetStatusID}
	s.emitAudit(ctx, actorID, models.AuditActionStatusChange, applicationID,
		map[string]string{"currentStatusId": previous},
		map[string]string{"currentStatusId": req.TargetStatusID})
	s.emitEvent(ctx, events.ApplicationStatusChanged, applicationID, actorID, change)

	fresh, err := s.loadApplication(ctx, s.apps, applicationID)
	if err != nil {
		return nil, err
	}
	return &dto.TransitionResponse{
		Outcome:         decision.Outcome,
		Status:          decision.Target,
		MissingRequired: []models.MilestoneDefinition{},
		Application:     fresh,
	}, nil
}

// Cancel terminates the application on the agent's request. Allowed only from the
// policy's cancellable statuses.
func (s *TransitionService) Cancel(ctx context.Context, applicationID string, req dto.TerminateRequest, actor *models.JWTClaims) (*models.Application, error) {
	return s.terminate(ctx, applicationID, req, actor, terminationCancel)
}

// Reject terminates the application on the institution's decision.
func (s *TransitionService) Reject(ctx context.Context, applicationID string, req dto.TerminateRequest, actor *models.JWTClaims) (*models.Application, error) {
	return s.terminate(ctx, applicationID, req, actor, terminationReject)
}

type terminationKind string

const (
	terminationCancel terminationKind = "cancel"
	terminationReject terminationKind = "reject"
)

func (s *TransitionService) terminate(ctx context.Context, applicationID string, req dto.TerminateRequest, actor *models.JWTClaims, kind terminationKind) (app *models.Application, err error) {
	reason, err := lifecycle.NormalizeReason(req.Reason)
	if err != nil {
		return nil, err
	}
	req.Reason = reason
	if err := s.validate(req); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "application."+string(kind), attribute.String("application.id", applicationID))
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		s.metrics.RecordTermination(string(kind), outcome)
		tracing.End(span, err)
	}()

	release, err := s.guard.Acquire(ctx, applicationID, OperationTerminate)
	if err != nil {
		return nil, err
	}
	defer release()

	current, process, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if current.Terminated() {
		return nil, appErrors.Clone(appErrors.ErrApplicationTerminated, fmt.Sprintf("application %s is already cancelled or rejected", applicationID))
	}
	if kind == terminationCancel && !s.policy.Allows(process, current) {
		return nil, appErrors.Clone(appErrors.ErrNotCancellable, fmt.Sprintf("application cannot be cancelled from status %s", current.CurrentStatusID))
	}

	actorID := actorIDOf(actor)
	params := repository.TerminateParams{
		ID:             applicationID,
		ExpectedStatus: current.CurrentStatusID,
		Actor:          actorID,
		Reason:         reason,
		At:             s.clock(),
	}
	action, eventType := models.AuditActionCancel, events.ApplicationCancelled
	store := s.apps.Cancel
	if kind == terminationReject {
		action, eventType = models.AuditActionReject, events.ApplicationRejected
		store = s.apps.Reject
	}
	if err := store(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application changed before the request was saved; reload and retry")
		}
		return nil, mapStoreError(err, "application", "failed to "+string(kind)+" application")
	}

	s.logger.Info("application terminated",
		zap.String("application_id", applicationID),
		zap.String("kind", string(kind)),
		zap.String("status_id", current.CurrentStatusID),
		zap.String("actor_id", actorID))

	payload := map[string]string{"statusId": current.CurrentStatusID, "reason": reason}
	s.emitAudit(ctx, actorID, action, applicationID, map[string]string{"currentStatusId": current.CurrentStatusID}, payload)
	s.emitEvent(ctx, eventType, applicationID, actorID, payload)

	return s.loadApplication(ctx, s.apps, applicationID)
}

func (s *TransitionService) snapshot(ctx context.Context, applicationID string) (*models.Application, *models.Process, error) {
	app, err := s.loadApplication(ctx, s.apps, applicationID)
	if err != nil {
		return nil, nil, err
	}
	process, _, err := s.processes.Get(ctx, app.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	return app, process, nil
}

func actorIDOf(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
