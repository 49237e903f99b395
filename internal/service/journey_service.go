package service

import (
	"context"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

// JourneyService projects applications onto their process for display.
type JourneyService struct {
	apps      applicationReader
	processes processGetter
}

// NewJourneyService constructs the service.
func NewJourneyService(apps applicationReader, processes processGetter) *JourneyService {
	return &JourneyService{apps: apps, processes: processes}
}

// Journey returns the stage trail of the application.
func (s *JourneyService) Journey(ctx context.Context, applicationID string) (*dto.JourneyResponse, error) {
	app, process, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	stages, err := lifecycle.Project(process, app)
	if err != nil {
		return nil, err
	}
	return &dto.JourneyResponse{ApplicationID: app.ID, ProcessID: process.ID, Stages: stages}, nil
}

// ChecklistItem is one milestone of the process with the application's progress on it.
type ChecklistItem struct {
	StageName  string
	StatusName string
	Definition models.MilestoneDefinition
	Record     *models.MilestoneRecord
}

func (s *JourneyService) load(ctx context.Context, applicationID string) (*models.Application, *models.Process, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, nil, mapStoreError(err, "application", "failed to load application")
	}
	process, _, err := s.processes.Get(ctx, app.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	return app, process, nil
}

// checklist lists every milestone in declared process order.
func checklist(process *models.Process, app *models.Application) []ChecklistItem {
	items := make([]ChecklistItem, 0)
	for _, stage := range process.Stages {
		for _, binding := range stage.Statuses {
			for _, def := range binding.Milestones {
				items = append(items, ChecklistItem{
					StageName:  stage.Name,
					StatusName: binding.Status.Name,
					Definition: def,
					Record:     app.Milestone(def.Key),
				})
			}
		}
	}
	return items
}
