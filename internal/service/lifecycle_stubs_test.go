package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/internal/repository"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func docsProcess() *models.Process {
	return &models.Process{
		ID:   "proc-au",
		Name: "AU Postgraduate",
		Stages: []models.Stage{
			{ID: "intake", Name: "Intake", Statuses: []models.StatusBinding{
				{Status: models.Status{ID: "pending", Name: "Pending"}},
			}},
			{ID: "documents", Name: "Documents", Statuses: []models.StatusBinding{
				{
					Status: models.Status{ID: "docs-pending", Name: "Docs Pending"},
					Milestones: []models.MilestoneDefinition{
						{Key: "passport", Title: "Passport", Type: models.MilestoneTypeFile, Required: true},
						{Key: "essay", Title: "Essay", Type: models.MilestoneTypeForm, Required: false, FormSchema: "essay-v1"},
					},
				},
			}},
			{ID: "offer", Name: "Offer", Statuses: []models.StatusBinding{
				{Status: models.Status{ID: "offer-received", Name: "Offer Received"}},
			}},
		},
	}
}

type processGetterStub struct {
	processes map[string]*models.Process
}

func newProcessGetterStub(processes ...*models.Process) *processGetterStub {
	stub := &processGetterStub{processes: make(map[string]*models.Process)}
	for _, p := range processes {
		stub.processes[p.ID] = p
	}
	return stub
}

func (s *processGetterStub) Get(ctx context.Context, id string) (*models.Process, bool, error) {
	p, ok := s.processes[id]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "process not found")
	}
	return p, false, nil
}

// applicationStoreStub mirrors the repository's guarded updates in memory.
type applicationStoreStub struct {
	mu   sync.Mutex
	apps map[string]*models.Application

	getErr    error
	updateErr error
	upsertErr error

	statusUpdates int
	upserts       int
}

func newApplicationStoreStub(apps ...*models.Application) *applicationStoreStub {
	stub := &applicationStoreStub{apps: make(map[string]*models.Application)}
	for _, app := range apps {
		stub.apps[app.ID] = app
	}
	return stub
}

func (s *applicationStoreStub) GetByID(ctx context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	app, ok := s.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *app
	clone.Milestones = append([]models.MilestoneRecord(nil), app.Milestones...)
	return &clone, nil
}

func (s *applicationStoreStub) UpdateStatus(ctx context.Context, id, statusID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	app, ok := s.apps[id]
	if !ok || app.Terminated() {
		return sql.ErrNoRows
	}
	s.statusUpdates++
	app.CurrentStatusID = statusID
	app.UpdatedAt = at
	return nil
}

func (s *applicationStoreStub) Cancel(ctx context.Context, params repository.TerminateParams) error {
	return s.terminate(params, func(app *models.Application) {
		app.IsCancelled = true
		app.CancelledBy = &params.Actor
		app.CancelReason = &params.Reason
		app.CancelledAt = &params.At
	})
}

func (s *applicationStoreStub) Reject(ctx context.Context, params repository.TerminateParams) error {
	return s.terminate(params, func(app *models.Application) {
		app.IsRejected = true
		app.RejectedBy = &params.Actor
		app.RejectReason = &params.Reason
		app.RejectedAt = &params.At
	})
}

func (s *applicationStoreStub) terminate(params repository.TerminateParams, apply func(*models.Application)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	app, ok := s.apps[params.ID]
	if !ok || app.Terminated() || app.CurrentStatusID != params.ExpectedStatus {
		return sql.ErrNoRows
	}
	apply(app)
	return nil
}

func (s *applicationStoreStub) UpsertMilestone(ctx context.Context, record models.MilestoneRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	app, ok := s.apps[record.ApplicationID]
	if !ok {
		return errors.New("foreign key violation")
	}
	s.upserts++
	for i := range app.Milestones {
		if app.Milestones[i].Key == record.Key {
			prior := app.Milestones[i]
			if prior.Completed {
				record.Completed = true
			}
			if record.CompletedAt == nil {
				record.CompletedAt = prior.CompletedAt
			}
			app.Milestones[i] = record
			return nil
		}
	}
	app.Milestones = append(app.Milestones, record)
	return nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return a.err
}

func (a *auditStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		out = append(out, log.Action)
	}
	return out
}

type dispatchedEvent struct {
	Type          string
	ApplicationID string
	ActorID       string
	Data          interface{}
}

type eventSinkStub struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (e *eventSinkStub) Dispatch(ctx context.Context, eventType, applicationID, actorID string, data interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, dispatchedEvent{Type: eventType, ApplicationID: applicationID, ActorID: actorID, Data: data})
}

func (e *eventSinkStub) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Type)
	}
	return out
}

func agentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "agent-7", Role: models.RoleAgent}
}
