package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

type processSourceStub struct {
	processes map[string]*models.Process
	err       error
	calls     int
}

func (s *processSourceStub) GetProcess(ctx context.Context, id string) (*models.Process, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.processes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

// memoryCacheRepo stores JSON payloads the way the Redis repository does.
type memoryCacheRepo struct {
	entries map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	delete(m.entries, pattern)
	return nil
}

func TestProcessServiceReadThroughCache(t *testing.T) {
	source := &processSourceStub{processes: map[string]*models.Process{"proc-au": docsProcess()}}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	svc := NewProcessService(source, cache, time.Minute, nil)

	process, hit, err := svc.Get(context.Background(), "proc-au")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "AU Postgraduate", process.Name)
	assert.Contains(t, repo.entries, DefaultCacheNamespace+"process:proc-au")

	process, hit, err = svc.Get(context.Background(), "proc-au")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, source.calls)
	require.Len(t, process.Stages, 3)
	assert.Equal(t, "passport", process.Stages[1].Statuses[0].Milestones[0].Key)

	require.NoError(t, svc.Invalidate(context.Background(), "proc-au"))
	assert.Equal(t, []string{DefaultCacheNamespace + "process:proc-au"}, repo.deleted)
	_, hit, err = svc.Get(context.Background(), "proc-au")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, source.calls)
}

func TestProcessServiceWithoutCache(t *testing.T) {
	source := &processSourceStub{processes: map[string]*models.Process{"proc-au": docsProcess()}}
	svc := NewProcessService(source, nil, 0, nil)

	_, hit, err := svc.Get(context.Background(), "proc-au")
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Invalidate(context.Background(), "proc-au"))
}

func TestProcessServiceErrors(t *testing.T) {
	invalid := docsProcess()
	invalid.Stages[2].Statuses[0].Status.ID = "pending"

	cases := []struct {
		name   string
		source *processSourceStub
		want   *appErrors.Error
	}{
		{"missing", &processSourceStub{processes: map[string]*models.Process{}}, appErrors.ErrNotFound},
		{"remote failure passes through", &processSourceStub{err: appErrors.Remote(errors.New("503"), "maintenance window")}, appErrors.ErrRemote},
		{"store failure", &processSourceStub{err: errors.New("connection refused")}, appErrors.ErrInternal},
		{"invalid definition", &processSourceStub{processes: map[string]*models.Process{"proc-au": invalid}}, appErrors.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewProcessService(tc.source, nil, 0, nil)
			_, _, err := svc.Get(context.Background(), "proc-au")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestProcessServiceRemoteDetailSurvives(t *testing.T) {
	svc := NewProcessService(&processSourceStub{err: appErrors.Remote(errors.New("503"), "maintenance window")}, nil, 0, nil)

	_, _, err := svc.Get(context.Background(), "proc-au")
	require.Error(t, err)
	assert.Equal(t, "maintenance window", appErrors.FromError(err).Message)
}
