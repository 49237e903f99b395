package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

type processGetter interface {
	Get(ctx context.Context, id string) (*models.Process, bool, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type eventSink interface {
	Dispatch(ctx context.Context, eventType, applicationID, actorID string, data interface{})
}

// lifecycleBase carries the collaborators shared by the application mutation services.
type lifecycleBase struct {
	audit     auditWriter
	events    eventSink
	metrics   *MetricsService
	guard     InFlightGuard
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// LifecycleOption configures the mutation services.
type LifecycleOption func(*lifecycleBase)

// WithAuditWriter persists an audit row for every successful mutation.
func WithAuditWriter(audit auditWriter) LifecycleOption {
	return func(b *lifecycleBase) {
		b.audit = audit
	}
}

// WithEventSink publishes domain events for successful mutations.
func WithEventSink(sink eventSink) LifecycleOption {
	return func(b *lifecycleBase) {
		b.events = sink
	}
}

// WithMetrics records lifecycle counters.
func WithMetrics(metrics *MetricsService) LifecycleOption {
	return func(b *lifecycleBase) {
		b.metrics = metrics
	}
}

// WithInFlightGuard overrides the default in-memory guard.
func WithInFlightGuard(guard InFlightGuard) LifecycleOption {
	return func(b *lifecycleBase) {
		if guard != nil {
			b.guard = guard
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) LifecycleOption {
	return func(b *lifecycleBase) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) LifecycleOption {
	return func(b *lifecycleBase) {
		if now != nil {
			b.now = now
		}
	}
}

func newLifecycleBase(opts []LifecycleOption) lifecycleBase {
	base := lifecycleBase{
		guard:     NewMemoryInFlight(),
		validator: validator.New(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	return base
}

func (b *lifecycleBase) clock() time.Time {
	return b.now().UTC()
}

func (b *lifecycleBase) validate(req interface{}) error {
	if err := b.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	return nil
}

func (b *lifecycleBase) loadApplication(ctx context.Context, apps applicationReader, id string) (*models.Application, error) {
	app, err := apps.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "application", "failed to load application")
	}
	return app, nil
}

func (b *lifecycleBase) emitAudit(ctx context.Context, actorID, action, applicationID string, oldValues, newValues interface{}) {
	if b.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "application",
		ResourceID: &applicationID,
		IPAddress:  "system",
		UserAgent:  "lifecycle-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	log.OldValues = marshalAuditValues(oldValues)
	log.NewValues = marshalAuditValues(newValues)
	if err := b.audit.CreateAuditLog(context.WithoutCancel(ctx), log); err != nil {
		b.logger.Warn("failed to persist audit log", zap.String("action", action), zap.String("application_id", applicationID), zap.Error(err))
	}
}

func (b *lifecycleBase) emitEvent(ctx context.Context, eventType, applicationID, actorID string, data interface{}) {
	if b.events == nil {
		return
	}
	b.events.Dispatch(ctx, eventType, applicationID, actorID, data)
}

func marshalAuditValues(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
