package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/tracing"
)

const processCachePrefix = "process:"

// ProcessSource resolves process definitions by id. Implementations report a
// missing process with sql.ErrNoRows or appErrors.ErrNotFound.
type ProcessSource interface {
	GetProcess(ctx context.Context, id string) (*models.Process, error)
}

type processCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ProcessService loads and validates process definitions, caching the result.
type ProcessService struct {
	source ProcessSource
	cache  processCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewProcessService constructs the service. cache may be nil.
func NewProcessService(source ProcessSource, cache processCache, ttl time.Duration, logger *zap.Logger) *ProcessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the validated process and whether it was served from cache.
func (s *ProcessService) Get(ctx context.Context, id string) (*models.Process, bool, error) {
	if id == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "process id is required")
	}
	ctx, span := tracing.Start(ctx, "process.get", attribute.String("process.id", id))
	process, hit, err := s.get(ctx, id)
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	tracing.End(span, err)
	return process, hit, err
}

func (s *ProcessService) get(ctx context.Context, id string) (*models.Process, bool, error) {
	key := processCachePrefix + id
	if s.cache != nil {
		var cached models.Process
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("process cache read failed", zap.String("process_id", id), zap.Error(err))
		}
		if hit && err == nil {
			return &cached, true, nil
		}
	}

	process, err := s.source.GetProcess(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("process %s not found", id))
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, false, err
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load process")
	}
	if err := lifecycle.ValidateProcess(process); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "process definition is invalid")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, process, s.ttl); err != nil {
			s.logger.Warn("process cache write failed", zap.String("process_id", id), zap.Error(err))
		}
	}
	return process, false, nil
}

// Invalidate drops the cached definition of a process.
func (s *ProcessService) Invalidate(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, processCachePrefix+id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate process cache")
	}
	return nil
}
