package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

type cacheClientStub struct {
	values   map[string]string
	getErr   error
	setTTL   time.Duration
	scans    [][]string
	scanCall int
	unlinked [][]string
}

func (s *cacheClientStub) Get(_ context.Context, key string) *redis.StringCmd {
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *cacheClientStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = string(value.([]byte))
	s.setTTL = ttl
	return redis.NewStatusResult("OK", nil)
}

func (s *cacheClientStub) Scan(_ context.Context, _ uint64, _ string, _ int64) *redis.ScanCmd {
	page := s.scans[s.scanCall]
	s.scanCall++
	var next uint64
	if s.scanCall < len(s.scans) {
		next = uint64(s.scanCall)
	}
	return redis.NewScanCmdResult(page, next, nil)
}

func (s *cacheClientStub) Unlink(_ context.Context, keys ...string) *redis.IntCmd {
	s.unlinked = append(s.unlinked, keys)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	client := &cacheClientStub{}
	repo := newCacheRepository(client, nil)
	ctx := context.Background()

	in := models.Process{ID: "uk-ug", Name: "UK Undergraduate"}
	require.NoError(t, repo.Set(ctx, "agent-portal:process:uk-ug", in, time.Minute))
	assert.Equal(t, time.Minute, client.setTTL)

	var out models.Process
	require.NoError(t, repo.Get(ctx, "agent-portal:process:uk-ug", &out))
	assert.Equal(t, "UK Undergraduate", out.Name)
}

func TestCacheRepositoryMissAndErrors(t *testing.T) {
	ctx := context.Background()
	var out models.Process

	repo := newCacheRepository(&cacheClientStub{}, nil)
	assert.ErrorIs(t, repo.Get(ctx, "absent", &out), appErrors.ErrCacheMiss)

	repo = newCacheRepository(&cacheClientStub{getErr: errors.New("i/o timeout")}, nil)
	err := repo.Get(ctx, "k", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)

	assert.ErrorIs(t, NewCacheRepository(nil, nil).Get(ctx, "k", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDropsCorruptEntry(t *testing.T) {
	client := &cacheClientStub{values: map[string]string{"k": "{not json"}}
	repo := newCacheRepository(client, nil)

	var out models.Process
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.Equal(t, [][]string{{"k"}}, client.unlinked)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	ctx := context.Background()

	client := &cacheClientStub{}
	require.NoError(t, newCacheRepository(client, nil).DeleteByPattern(ctx, "agent-portal:process:uk-ug"))
	assert.Equal(t, [][]string{{"agent-portal:process:uk-ug"}}, client.unlinked)
	assert.Zero(t, client.scanCall)

	client = &cacheClientStub{scans: [][]string{{"a", "b"}, {}, {"c"}}}
	require.NoError(t, newCacheRepository(client, nil).DeleteByPattern(ctx, "agent-portal:process:*"))
	assert.Equal(t, 3, client.scanCall)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, client.unlinked)
}
