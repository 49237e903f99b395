package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// Operations guarded against concurrent submission per application.
const (
	OperationTransition = "transition"
	OperationMilestone  = "milestone"
	OperationBooking    = "booking"
	OperationTerminate  = "terminate"
)

const defaultInFlightTTL = 30 * time.Second

// ReleaseFunc frees a previously acquired in-flight slot.
type ReleaseFunc func()

// InFlightGuard rejects a second submission of the same operation for an
// application while the first is still running.
type InFlightGuard interface {
	Acquire(ctx context.Context, applicationID, operation string) (ReleaseFunc, error)
}

func inFlightKey(applicationID, operation string) string {
	return applicationID + ":" + operation
}

func inFlightError(operation string) error {
	return appErrors.Clone(appErrors.ErrInFlight, "a "+operation+" request for this application is already in progress")
}

// MemoryInFlight is a process-local guard suitable for single-instance deployments.
type MemoryInFlight struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryInFlight constructs an empty guard.
func NewMemoryInFlight() *MemoryInFlight {
	return &MemoryInFlight{held: make(map[string]struct{})}
}

// Acquire implements InFlightGuard.
func (g *MemoryInFlight) Acquire(_ context.Context, applicationID, operation string) (ReleaseFunc, error) {
	key := inFlightKey(applicationID, operation)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, inFlightError(operation)
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

type inFlightStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// RedisInFlight shares the guard across instances through Redis locks that
// expire after ttl if a holder dies.
type RedisInFlight struct {
	store  inFlightStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisInFlight constructs a Redis-backed guard.
func NewRedisInFlight(store inFlightStore, ttl time.Duration, logger *zap.Logger) *RedisInFlight {
	if ttl <= 0 {
		ttl = defaultInFlightTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisInFlight{store: store, ttl: ttl, logger: logger}
}

// Acquire implements InFlightGuard.
func (g *RedisInFlight) Acquire(ctx context.Context, applicationID, operation string) (ReleaseFunc, error) {
	key := inFlightKey(applicationID, operation)
	token, ok, err := g.store.Acquire(ctx, key, g.ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire in-flight guard")
	}
	if !ok {
		return nil, inFlightError(operation)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled by the time we release.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := g.store.Release(releaseCtx, key, token); err != nil {
				g.logger.Warn("failed to release in-flight guard", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
