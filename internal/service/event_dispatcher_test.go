package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/pkg/events"
	"github.com/noah-isme/agent-portal-api/pkg/jobs"
)

type publisherStub struct {
	mu        sync.Mutex
	published map[string][]byte
	failures  int
	done      chan struct{}
}

func newPublisherStub() *publisherStub {
	return &publisherStub{published: make(map[string][]byte), done: make(chan struct{}, 8)}
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("channel closed")
	}
	p.published[routingKey] = payload
	p.done <- struct{}{}
	return nil
}

func (p *publisherStub) Close() error { return nil }

func TestEventDispatcherInline(t *testing.T) {
	publisher := newPublisherStub()
	dispatcher := NewEventDispatcher(publisher, nil, nil)

	dispatcher.Dispatch(context.Background(), events.ApplicationCancelled, "app-1", "agent-7", map[string]string{"reason": "visa"})

	raw, ok := publisher.published[events.ApplicationCancelled]
	require.True(t, ok)
	var evt events.Event
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "app-1", evt.ApplicationID)
	assert.Equal(t, "agent-7", evt.ActorID)
	assert.JSONEq(t, `{"reason":"visa"}`, string(evt.Data))
}

func TestEventDispatcherThroughQueueRetries(t *testing.T) {
	publisher := newPublisherStub()
	publisher.failures = 1
	dispatcher := NewEventDispatcher(publisher, nil, nil)
	queue := jobs.NewQueue("events", dispatcher.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()
	dispatcher.Bind(queue)

	dispatcher.Dispatch(context.Background(), events.EnrollmentBooked, "app-1", "agent-7", nil)

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Contains(t, publisher.published, events.EnrollmentBooked)
}

func TestEventDispatcherRejectsForeignPayload(t *testing.T) {
	dispatcher := NewEventDispatcher(newPublisherStub(), nil, nil)

	err := dispatcher.Handle(context.Background(), jobs.Job{ID: "x", Payload: "not an event"})
	require.Error(t, err)
}

func TestEventDispatcherNilSafe(t *testing.T) {
	var dispatcher *EventDispatcher
	assert.NotPanics(t, func() {
		dispatcher.Dispatch(context.Background(), events.ApplicationRejected, "app-1", "", nil)
	})
}

func TestEventDispatcherCountsDeliveries(t *testing.T) {
	metrics := NewMetricsService()
	publisher := newPublisherStub()
	publisher.failures = 1
	dispatcher := NewEventDispatcher(publisher, metrics, nil)

	dispatcher.Dispatch(context.Background(), events.ApplicationStatusChanged, "app-1", "agent-7", nil)
	dispatcher.Dispatch(context.Background(), events.ApplicationStatusChanged, "app-1", "agent-7", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventDeliveries.WithLabelValues(events.ApplicationStatusChanged, OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventDeliveries.WithLabelValues(events.ApplicationStatusChanged, OutcomeSuccess)))

	evt, err := events.New(events.EnrollmentBooked, "app-2", "agent-7", nil)
	require.NoError(t, err)
	dispatcher.GiveUp(jobs.Job{ID: evt.ID, Type: eventJobType, Payload: evt, Attempt: 4}, errors.New("channel closed"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventDeliveries.WithLabelValues(events.EnrollmentBooked, OutcomeFailure)))
}
