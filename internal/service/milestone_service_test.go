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
)

func newMilestoneFixture(app *models.Application) (*MilestoneService, *applicationStoreStub, *auditStub) {
	store := newApplicationStoreStub(app)
	audit := &auditStub{}
	svc := NewMilestoneService(store, newProcessGetterStub(docsProcess()), WithAuditWriter(audit), WithClock(fixedClock))
	return svc, store, audit
}

func TestMilestoneServiceFileCollectThenSave(t *testing.T) {
	svc, store, _ := newMilestoneFixture(pendingApplication())
	ctx := context.Background()

	resp, err := svc.RecordFile(ctx, "app-1", "passport", dto.FileMilestoneRequest{
		Files: []models.FileRef{{ID: "f1", Name: "page1.jpg"}},
	}, agentClaims())
	require.NoError(t, err)
	assert.False(t, resp.Record.Completed, "collecting files does not complete the milestone")

	resp, err = svc.RecordFile(ctx, "app-1", "passport", dto.FileMilestoneRequest{
		Files: []models.FileRef{{ID: "f1", Name: "page1.jpg"}, {ID: "f2", Name: "page2.jpg"}},
		Save:  true,
	}, agentClaims())
	require.NoError(t, err)
	assert.True(t, resp.Record.Completed)
	require.NotNil(t, resp.Record.CompletedAt)
	assert.Equal(t, fixedNow, *resp.Record.CompletedAt)

	files, err := lifecycle.DecodeFiles(resp.Record.Data)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Len(t, store.apps["app-1"].Milestones, 1, "exactly one record per key")
}

func TestMilestoneServiceIdempotentRepeats(t *testing.T) {
	svc, store, _ := newMilestoneFixture(pendingApplication())
	req := dto.FileMilestoneRequest{Files: []models.FileRef{{ID: "f1"}}, Save: true}

	for i := 0; i < 3; i++ {
		resp, err := svc.RecordFile(context.Background(), "app-1", "passport", req, agentClaims())
		require.NoError(t, err)
		assert.True(t, resp.Record.Completed)
	}
	require.Len(t, store.apps["app-1"].Milestones, 1)
	files, err := lifecycle.DecodeFiles(store.apps["app-1"].Milestones[0].Data)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// A later save without the flag never reverts completion.
	resp, err := svc.RecordFile(context.Background(), "app-1", "passport", dto.FileMilestoneRequest{Files: []models.FileRef{{ID: "f9"}}}, agentClaims())
	require.NoError(t, err)
	assert.True(t, resp.Record.Completed)
}

func TestMilestoneServiceForm(t *testing.T) {
	svc, _, audit := newMilestoneFixture(pendingApplication())

	resp, err := svc.RecordForm(context.Background(), "app-1", "essay", dto.FormMilestoneRequest{
		Values: map[string]interface{}{"motivation": "research"},
	}, agentClaims())
	require.NoError(t, err)
	assert.True(t, resp.Record.Completed)
	values, err := lifecycle.DecodeForm(resp.Record.Data)
	require.NoError(t, err)
	assert.Equal(t, "research", values["motivation"])
	assert.Equal(t, []string{models.AuditActionMilestoneRecord}, audit.actions())
}

func TestMilestoneServicePayloadMismatch(t *testing.T) {
	svc, store, _ := newMilestoneFixture(pendingApplication())

	_, err := svc.RecordForm(context.Background(), "app-1", "passport", dto.FormMilestoneRequest{
		Values: map[string]interface{}{"number": "X123"},
	}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadMismatch))
	assert.Equal(t, 0, store.upserts)
}

func TestMilestoneServiceUnknownMilestone(t *testing.T) {
	svc, _, _ := newMilestoneFixture(pendingApplication())

	_, err := svc.RecordFile(context.Background(), "app-1", "birth-certificate", dto.FileMilestoneRequest{Files: []models.FileRef{{ID: "f1"}}}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMilestoneNotFound))
}

func TestMilestoneServiceRefusesTerminated(t *testing.T) {
	app := pendingApplication()
	app.IsCancelled = true
	svc, store, _ := newMilestoneFixture(app)

	_, err := svc.RecordFile(context.Background(), "app-1", "passport", dto.FileMilestoneRequest{Files: []models.FileRef{{ID: "f1"}}, Save: true}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationTerminated))
	assert.Equal(t, 0, store.upserts)
}

func TestMilestoneServicePersistenceFailureLeavesStateUnchanged(t *testing.T) {
	svc, store, audit := newMilestoneFixture(pendingApplication())
	store.upsertErr = errors.New("timeout")

	_, err := svc.RecordFile(context.Background(), "app-1", "passport", dto.FileMilestoneRequest{Files: []models.FileRef{{ID: "f1"}}, Save: true}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, store.apps["app-1"].Milestones)
	assert.Empty(t, audit.logs)
}

func TestMilestoneServiceRejectsBlankFileID(t *testing.T) {
	svc, _, _ := newMilestoneFixture(pendingApplication())

	_, err := svc.RecordFile(context.Background(), "app-1", "passport", dto.FileMilestoneRequest{Files: []models.FileRef{{Name: "no-id.pdf"}}}, agentClaims())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
