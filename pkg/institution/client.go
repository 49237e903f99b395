package institution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/pkg/config"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

const maxErrorBody = 64 * 1024

// Client reads process definitions from the institution API behind a circuit breaker.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*models.Process]
	logger  *zap.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client from configuration.
func NewClient(cfg config.InstitutionConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[*models.Process](gobreaker.Settings{
		Name:        "institution-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// client-side errors say nothing about upstream health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var appErr *appErrors.Error
			return errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// GetProcess fetches a process definition by id.
func (c *Client) GetProcess(ctx context.Context, id string) (*models.Process, error) {
	process, err := c.breaker.Execute(func() (*models.Process, error) {
		return c.fetchProcess(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, appErrors.Remote(err, "institution service temporarily unavailable")
		}
		return nil, err
	}
	return process, nil
}

func (c *Client) fetchProcess(ctx context.Context, id string) (*models.Process, error) {
	endpoint := fmt.Sprintf("%s/processes/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build institution request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("institution request failed", zap.String("process_id", id), zap.Error(err))
		return nil, appErrors.Remote(err, "")
	}
	defer resp.Body.Close()

	c.logger.Debug("institution response",
		zap.String("process_id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "process not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteError(resp)
	}

	var process models.Process
	if err := json.NewDecoder(resp.Body).Decode(&process); err != nil {
		return nil, appErrors.Remote(err, "institution returned an unreadable process definition")
	}
	return &process, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func remoteError(resp *http.Response) error {
	cause := fmt.Errorf("institution responded %d", resp.StatusCode)
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return appErrors.Remote(cause, "")
	}
	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		return appErrors.Remote(cause, "")
	}
	return appErrors.Remote(cause, body.Message)
}
