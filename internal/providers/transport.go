package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	"github.com/cassiomorais/giftpay/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxResponseBytes = 1 << 20
	healthTimeout    = 5 * time.Second
)

// BreakerSettings tunes the per-provider circuit breaker.
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	Interval     time.Duration
}

// DefaultBreakerSettings mirrors the values used for every gateway unless configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  10,
		FailureRatio: 0.6,
		OpenTimeout:  30 * time.Second,
		Interval:     60 * time.Second,
	}
}

// Deps are the shared collaborators handed to every adapter constructor.
type Deps struct {
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
	HTTPClient  *http.Client
	Breaker     BreakerSettings
	StatusRetry retry.Config
}

type apiRequest struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	idempotency string // header name carrying a fresh idempotency key
}

// restClient is the transport shared by the gateway adapters: bearer auth,
// per-call timeout, circuit breaker, metrics and typed errors.
type restClient struct {
	provider payment.ProviderType
	baseURL  string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	retry    retry.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

func newRESTClient(provider payment.ProviderType, cfg Config, defaultBaseURL string, deps Deps) *restClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	bs := deps.Breaker
	if bs.MinRequests == 0 {
		bs = DefaultBreakerSettings()
	}

	logger := deps.Logger.With().Str("provider", string(provider)).Logger()
	statusRetry := deps.StatusRetry
	statusRetry.RetryIf = domainErrors.IsRetriable
	statusRetry.OnRetry = func(n uint, err error) {
		logger.Debug().Err(err).Uint("attempt", n+1).Msg("retrying status lookup")
	}

	c := &restClient{
		provider: provider,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		timeout:  cfg.timeout(),
		http:     httpClient,
		retry:    statusRetry,
		logger:   logger,
		metrics:  deps.Metrics,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: 1,
		Interval:    bs.Interval,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= bs.MinRequests && failureRatio >= bs.FailureRatio
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			deps.Metrics.SetBreakerState(name, int(to))
		},
	})

	return c
}

// countsAsSuccess keeps client-side mistakes (4xx, caller cancellation) from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var upstream *domainErrors.UpstreamError
	if errors.As(err, &upstream) {
		return !upstream.Retriable()
	}
	return false
}

// open reports whether the breaker currently rejects calls.
func (c *restClient) open() bool {
	return c.breaker.State() == gobreaker.StateOpen
}

func (c *restClient) do(ctx context.Context, req apiRequest) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, req)
	})
	err = c.breakerError(req.operation, err)
	c.metrics.ObserveProviderCall(string(c.provider), req.operation, outcome(err), time.Since(start))
	return body, err
}

// guard runs a call made through a vendor SDK under the same breaker, timeout and metrics as do.
// fn must return typed errors so the breaker can tell client mistakes from outages.
func (c *restClient) guard(ctx context.Context, operation string, fn func(callCtx context.Context) error) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return nil, fn(callCtx)
	})
	err = c.breakerError(operation, err)
	c.metrics.ObserveProviderCall(string(c.provider), operation, outcome(err), time.Since(start))
	return err
}

func (c *restClient) breakerError(operation string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", c.provider, operation, domainErrors.ErrProviderUnavailable)
	}
	return err
}

// doRetrying repeats idempotent lookups on timeouts and retriable upstream failures.
func (c *restClient) doRetrying(ctx context.Context, req apiRequest) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.do(ctx, req)
	})
}

func (c *restClient) roundTrip(ctx context.Context, req apiRequest) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", c.provider, req.operation, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.idempotency != "" {
		httpReq.Header.Set(req.idempotency, uuid.NewString())
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, callCtx, req.operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(ctx, callCtx, req.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domainErrors.UpstreamError{
			Provider:   string(c.provider),
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return data, nil
}

func (c *restClient) transportError(parent, call context.Context, operation string, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%s %s: %w", c.provider, operation, parent.Err())
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &domainErrors.TimeoutError{Provider: string(c.provider), Operation: operation, Err: err}
	}
	return fmt.Errorf("%s %s: %w: %v", c.provider, operation, domainErrors.ErrProviderUnavailable, err)
}

// healthy issues a health request. An open breaker answers false without a network call.
func (c *restClient) healthy(ctx context.Context, path string) bool {
	return c.healthyWith(ctx, func(ctx context.Context) error {
		_, err := c.do(ctx, apiRequest{operation: "health", method: http.MethodGet, path: path})
		return err
	})
}

func (c *restClient) healthyWith(ctx context.Context, check func(context.Context) error) bool {
	if c.open() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, min(healthTimeout, c.timeout))
	defer cancel()

	if err := check(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("health check failed")
		return false
	}
	return true
}

func (c *restClient) postJSON(ctx context.Context, operation, path string, in any, idempotencyHeader string) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encode request: %w", c.provider, operation, err)
	}
	return c.do(ctx, apiRequest{
		operation:   operation,
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
		idempotency: idempotencyHeader,
	})
}

func (c *restClient) decode(operation string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.provider, operation, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domainErrors.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, domainErrors.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, domainErrors.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds; anything else yields zero.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
