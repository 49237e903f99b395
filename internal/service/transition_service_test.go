package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/events"
)

func newTransitionFixture(app *models.Application, policy lifecycle.CancelPolicy) (*TransitionService, *applicationStoreStub, *auditStub, *eventSinkStub) {
	store := newApplicationStoreStub(app)
	audit := &auditStub{}
	sink := &eventSinkStub{}
	svc := NewTransitionService(store, newProcessGetterStub(docsProcess()), policy,
		WithAuditWriter(audit), WithEventSink(sink), WithClock(fixedClock), WithMetrics(NewMetricsService()))
	return svc, store, audit, sink
}

func pendingApplication() *models.Application {
	return &models.Application{
		ID:              "app-1",
		ProcessID:       "proc-au",
		ApplicantName:   "Ana Lima",
		ReferralChannel: models.ReferralChannelAgent,
		CurrentStatusID: "pending",
	}
}

func TestTransitionServiceBlockedThenApplied(t *testing.T) {
	store := newApplicationStoreStub(pendingApplication())
	processes := newProcessGetterStub(docsProcess())
	audit := &auditStub{}
	sink := &eventSinkStub{}
	opts := []LifecycleOption{WithAuditWriter(audit), WithEventSink(sink), WithClock(fixedClock)}
	transitions := NewTransitionService(store, processes, lifecycle.CancelPolicy{}, opts...)
	milestones := NewMilestoneService(store, processes, opts...)
	ctx := context.Background()

	resp, err := transitions.RequestTransition(ctx, "app-1", dto.TransitionRequest{TargetStatusID: "docs-pending"}, agentClaims())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomeBlocked, resp.Outcome)
	require.Len(t, resp.MissingRequired, 1)
	assert.Equal(t, "passport", resp.MissingRequired[0].Key)
	assert.Equal(t, 0, store.statusUpdates, "blocked transitions must not persist")
	assert.Empty(t, audit.logs)

	_, err = milestones.RecordFile(ctx, "app-1", "passport", dto.FileMilestoneRequest{
		Files: []models.FileRef{{ID: "file-1", Name: "passport.pdf", Size: 2048}},
		Save:  true,
	}, agentClaims())
	require.NoError(t, err)

	resp, err = transitions.RequestTransition(ctx, "app-1", dto.TransitionRequest{TargetStatusID: "docs-pending"}, agentClaims())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomeApplied, resp.Outcome)
	assert.Empty(t, resp.MissingRequired)
	require.NotNil(t, resp.Application)
	assert.Equal(t, "docs-pending", resp.Application.CurrentStatusID)
	assert.Equal(t, 1, store.statusUpdates)
	assert.Equal(t, []string{models.AuditActionMilestoneRecord, models.AuditActionStatusChange}, audit.actions())
	assert.Equal(t, []string{events.ApplicationMilestoneRecorded, events.ApplicationStatusChanged}, sink.types())
}

func TestTransitionServiceUnknownStatus(t *testing.T) {
	svc, store, _, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	_, err := svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{TargetStatusID: "graduated"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStatusNotFound))
	assert.Equal(t, 0, store.statusUpdates)
}

func TestTransitionServiceValidatesRequest(t *testing.T) {
	svc, _, _, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	_, err := svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTransitionServiceApplicationNotFound(t *testing.T) {
	svc, _, _, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	_, err := svc.RequestTransition(context.Background(), "missing", dto.TransitionRequest{TargetStatusID: "offer-received"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTransitionServiceRefusesTerminated(t *testing.T) {
	app := pendingApplication()
	app.IsRejected = true
	svc, store, _, _ := newTransitionFixture(app, lifecycle.CancelPolicy{})

	_, err := svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{TargetStatusID: "offer-received"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationTerminated))
	assert.Equal(t, 0, store.statusUpdates)
}

func TestTransitionServicePersistenceFailure(t *testing.T) {
	svc, store, audit, sink := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})
	store.updateErr = errors.New("connection reset")

	_, err := svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{TargetStatusID: "offer-received"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, audit.logs)
	assert.Empty(t, sink.events)
	assert.Equal(t, "pending", store.apps["app-1"].CurrentStatusID)
}

func TestTransitionServiceRefusesConcurrentRequest(t *testing.T) {
	guard := NewMemoryInFlight()
	release, err := guard.Acquire(context.Background(), "app-1", OperationTransition)
	require.NoError(t, err)
	defer release()

	store := newApplicationStoreStub(pendingApplication())
	svc := NewTransitionService(store, newProcessGetterStub(docsProcess()), lifecycle.CancelPolicy{}, WithInFlightGuard(guard))

	_, err = svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{TargetStatusID: "offer-received"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInFlight))
	assert.Equal(t, 0, store.statusUpdates)
}

func TestTransitionServiceEvaluate(t *testing.T) {
	svc, _, _, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	eval, err := svc.Evaluate(context.Background(), "app-1", "docs-pending")
	require.NoError(t, err)
	assert.Equal(t, []string{"passport"}, eval.MissingKeys())
	require.Len(t, eval.OptionalRemaining, 1)
	assert.Equal(t, "essay", eval.OptionalRemaining[0].Key)
}

func TestTransitionServiceCancel(t *testing.T) {
	svc, store, audit, sink := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	app, err := svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "  changed plans  "}, agentClaims())
	require.NoError(t, err)
	assert.True(t, app.IsCancelled)
	require.NotNil(t, app.CancelReason)
	assert.Equal(t, "changed plans", *app.CancelReason)
	require.NotNil(t, app.CancelledBy)
	assert.Equal(t, "agent-7", *app.CancelledBy)
	assert.Equal(t, fixedNow, *store.apps["app-1"].CancelledAt)
	assert.Equal(t, []string{models.AuditActionCancel}, audit.actions())
	assert.Equal(t, []string{events.ApplicationCancelled}, sink.types())

	_, err = svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "again"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationTerminated))
}

func TestTransitionServiceCancelRequiresReason(t *testing.T) {
	svc, _, _, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})

	_, err := svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "   "}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTransitionServiceCancelPolicy(t *testing.T) {
	app := pendingApplication()
	app.CurrentStatusID = "offer-received"

	svc, _, _, _ := newTransitionFixture(app, lifecycle.CancelPolicy{})
	_, err := svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "late"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotCancellable))

	app = pendingApplication()
	app.CurrentStatusID = "offer-received"
	svc, _, _, _ = newTransitionFixture(app, lifecycle.CancelPolicy{CancellableStatuses: []string{"pending", "offer-received"}})
	cancelled, err := svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "late"}, agentClaims())
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
}

func TestTransitionServiceReject(t *testing.T) {
	app := pendingApplication()
	app.CurrentStatusID = "docs-pending"
	svc, _, audit, sink := newTransitionFixture(app, lifecycle.CancelPolicy{})

	rejected, err := svc.Reject(context.Background(), "app-1", dto.TerminateRequest{Reason: "entry requirements not met"}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAgentAdmin})
	require.NoError(t, err)
	assert.True(t, rejected.IsRejected)
	assert.False(t, rejected.IsCancelled)
	assert.Equal(t, []string{models.AuditActionReject}, audit.actions())
	assert.Equal(t, []string{events.ApplicationRejected}, sink.types())

	_, err = svc.Cancel(context.Background(), "app-1", dto.TerminateRequest{Reason: "too late"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationTerminated))
}

// movingStore simulates another actor changing the status right after the snapshot is read.
type movingStore struct {
	*applicationStoreStub
	moveTo string
}

func (m *movingStore) GetByID(ctx context.Context, id string) (*models.Application, error) {
	app, err := m.applicationStoreStub.GetByID(ctx, id)
	if err == nil && m.moveTo != "" {
		m.mu.Lock()
		m.apps[id].CurrentStatusID = m.moveTo
		m.mu.Unlock()
		m.moveTo = ""
	}
	return app, err
}

func TestTransitionServiceTerminateLosesRace(t *testing.T) {
	store := &movingStore{applicationStoreStub: newApplicationStoreStub(pendingApplication()), moveTo: "docs-pending"}
	svc := NewTransitionService(store, newProcessGetterStub(docsProcess()), lifecycle.CancelPolicy{})

	_, err := svc.Reject(context.Background(), "app-1", dto.TerminateRequest{Reason: "stale"}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.False(t, store.apps["app-1"].IsRejected)
}

func TestTransitionServiceAuditFailureDoesNotFailTransition(t *testing.T) {
	svc, store, audit, _ := newTransitionFixture(pendingApplication(), lifecycle.CancelPolicy{})
	audit.err = errors.New("audit table locked")

	resp, err := svc.RequestTransition(context.Background(), "app-1", dto.TransitionRequest{TargetStatusID: "offer-received"}, agentClaims())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomeApplied, resp.Outcome)
	assert.Equal(t, 1, store.statusUpdates)
}
