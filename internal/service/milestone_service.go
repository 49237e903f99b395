package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/events"
	"github.com/noah-isme/agent-portal-api/pkg/tracing"
)

type milestoneStore interface {
	applicationReader
	UpsertMilestone(ctx context.Context, record models.MilestoneRecord) error
}

// MilestoneService records file and form milestones against applications.
type MilestoneService struct {
	lifecycleBase
	apps      milestoneStore
	processes processGetter
}

// NewMilestoneService constructs the service.
func NewMilestoneService(apps milestoneStore, processes processGetter, opts ...LifecycleOption) *MilestoneService {
	return &MilestoneService{lifecycleBase: newLifecycleBase(opts), apps: apps, processes: processes}
}

// RecordFile merges file references into a file milestone, completing it when Save is set.
func (s *MilestoneService) RecordFile(ctx context.Context, applicationID, key string, req dto.FileMilestoneRequest, actor *models.JWTClaims) (*dto.MilestoneResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.record(ctx, applicationID, key, lifecycle.FilePayload{Files: req.Files, Save: req.Save}, actor)
}

// RecordForm replaces the values of a form milestone and completes it.
func (s *MilestoneService) RecordForm(ctx context.Context, applicationID, key string, req dto.FormMilestoneRequest, actor *models.JWTClaims) (*dto.MilestoneResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.record(ctx, applicationID, key, lifecycle.FormPayload{Values: req.Values}, actor)
}

func (s *MilestoneService) record(ctx context.Context, applicationID, key string, payload lifecycle.MilestonePayload, actor *models.JWTClaims) (resp *dto.MilestoneResponse, err error) {
	milestoneType := string(payload.MilestoneType())
	ctx, span := tracing.Start(ctx, "application.milestone",
		attribute.String("application.id", applicationID),
		attribute.String("milestone.key", key),
		attribute.String("milestone.type", milestoneType))
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		s.metrics.RecordMilestoneSave(milestoneType, outcome)
		tracing.End(span, err)
	}()

	release, err := s.guard.Acquire(ctx, applicationID, OperationMilestone)
	if err != nil {
		return nil, err
	}
	defer release()

	app, err := s.loadApplication(ctx, s.apps, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Terminated() {
		return nil, appErrors.Clone(appErrors.ErrApplicationTerminated, fmt.Sprintf("application %s no longer accepts milestones", applicationID))
	}
	process, _, err := s.processes.Get(ctx, app.ProcessID)
	if err != nil {
		return nil, err
	}
	def, ok := lifecycle.FindMilestone(process, key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMilestoneNotFound, fmt.Sprintf("milestone %s is not defined in process %s", key, process.ID))
	}

	record, err := lifecycle.RecordMilestone(applicationID, app.Milestone(key), def, payload, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.apps.UpsertMilestone(ctx, record); err != nil {
		return nil, mapStoreError(err, "application", "failed to save milestone")
	}

	actorID := actorIDOf(actor)
	s.logger.Debug("milestone recorded",
		zap.String("application_id", applicationID),
		zap.String("milestone_key", key),
		zap.Bool("completed", record.Completed))

	var before interface{}
	if prior := app.Milestone(key); prior != nil {
		before = map[string]interface{}{"completed": prior.Completed, "data": prior.Data}
	}
	s.emitAudit(ctx, actorID, models.AuditActionMilestoneRecord, applicationID, before,
		map[string]interface{}{"key": key, "completed": record.Completed, "data": record.Data})
	s.emitEvent(ctx, events.ApplicationMilestoneRecorded, applicationID, actorID,
		map[string]interface{}{"key": key, "type": milestoneType, "completed": record.Completed})

	fresh, err := s.loadApplication(ctx, s.apps, applicationID)
	if err != nil {
		return nil, err
	}
	if stored := fresh.Milestone(key); stored != nil {
		record = *stored
	}
	return &dto.MilestoneResponse{Record: record, Application: fresh}, nil
}
