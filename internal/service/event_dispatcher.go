package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/pkg/events"
	"github.com/noah-isme/agent-portal-api/pkg/jobs"
)

const eventJobType = "lifecycle.event"

type eventQueue interface {
	Enqueue(job jobs.Job) error
}

// EventDispatcher publishes lifecycle events asynchronously. Delivery is best
// effort: failures are retried by the queue and then logged, never surfaced to
// the request that produced the event.
type EventDispatcher struct {
	publisher events.Publisher
	metrics   *MetricsService
	queue     eventQueue
	logger    *zap.Logger
	timeout   time.Duration
}

// NewEventDispatcher constructs a dispatcher. Call Bind before Dispatch to
// route events through a queue; unbound dispatchers publish inline. metrics may be nil.
func NewEventDispatcher(publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher(logger)
	}
	return &EventDispatcher{publisher: publisher, metrics: metrics, logger: logger, timeout: 5 * time.Second}
}

// Bind attaches the queue events are pushed onto.
func (d *EventDispatcher) Bind(queue eventQueue) {
	d.queue = queue
}

// Handle is the jobs.Handler delivering a queued event.
func (d *EventDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(events.Event)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", job.Payload)
	}
	return d.publish(ctx, evt)
}

// GiveUp is the queue hook for events whose retries are exhausted.
func (d *EventDispatcher) GiveUp(job jobs.Job, err error) {
	eventType := job.Type
	if evt, ok := job.Payload.(events.Event); ok {
		eventType = evt.Type
	}
	d.metrics.RecordEventDelivery(eventType, OutcomeFailure)
	d.logger.Error("dropping lifecycle event", zap.String("event_id", job.ID), zap.String("type", eventType), zap.Int("attempts", job.Attempt), zap.Error(err))
}

// Dispatch builds the event envelope and hands it to the queue.
func (d *EventDispatcher) Dispatch(ctx context.Context, eventType, applicationID, actorID string, data interface{}) {
	if d == nil {
		return
	}
	evt, err := events.New(eventType, applicationID, actorID, data)
	if err != nil {
		d.logger.Warn("failed to build lifecycle event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if d.queue == nil {
		if err := d.publish(context.WithoutCancel(ctx), evt); err != nil {
			d.metrics.RecordEventDelivery(eventType, OutcomeFailure)
			d.logger.Warn("failed to publish lifecycle event", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	if err := d.queue.Enqueue(jobs.Job{ID: evt.ID, Type: eventJobType, Payload: evt}); err != nil {
		d.metrics.RecordEventDelivery(eventType, OutcomeFailure)
		d.logger.Warn("failed to enqueue lifecycle event", zap.String("type", eventType), zap.String("application_id", applicationID), zap.Error(err))
	}
}

func (d *EventDispatcher) publish(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, evt.Type, payload); err != nil {
		return err
	}
	d.metrics.RecordEventDelivery(evt.Type, OutcomeSuccess)
	return nil
}
