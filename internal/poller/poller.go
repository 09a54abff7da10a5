package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxDuration = 10 * time.Minute
)

var (
	ErrPollingStopped  = errors.New("polling stopped")
	ErrPollingTimeout  = errors.New("polling timed out")
	ErrAlreadyStarted  = errors.New("poller already started")
	errInvalidSchedule = errors.New("poller interval and max duration must be positive")
)

// TimeoutError is returned when the payment is still not terminal after the max duration.
type TimeoutError struct {
	PaymentID  string
	LastStatus payment.Status
	After      time.Duration
}

func (e *TimeoutError) Error() string {
	last := string(e.LastStatus)
	if last == "" {
		last = "unknown"
	}
	return fmt.Sprintf("payment %s still %s after %s", e.PaymentID, last, e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrPollingTimeout }

// StatusChecker is the status lookup the poller drives, normally the payment facade.
type StatusChecker interface {
	CheckPaymentStatus(ctx context.Context, paymentID string, method payment.Method) (*payment.StatusResponse, error)
}

// Result is the outcome of a finished poller.
type Result struct {
	Status *payment.StatusResponse // last successful lookup, nil if none succeeded
	Polls  int
	Err    error
}

// Option configures a Poller.
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithMaxDuration(d time.Duration) Option {
	return func(p *Poller) { p.maxDuration = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// OnStatusChange is called when a poll returns a status different from the previous one.
func OnStatusChange(fn func(payment.StatusResponse)) Option {
	return func(p *Poller) { p.onChange = fn }
}

// OnComplete is called once when a terminal status is seen.
func OnComplete(fn func(payment.StatusResponse)) Option {
	return func(p *Poller) { p.onComplete = fn }
}

// OnError is called for every failed poll. Polling continues afterwards.
func OnError(fn func(error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// Poller checks one payment on a fixed interval until it reaches a terminal status.
// Callbacks run on the polling goroutine.
type Poller struct {
	checker     StatusChecker
	paymentID   string
	method      payment.Method
	interval    time.Duration
	maxDuration time.Duration
	logger      zerolog.Logger
	metrics     *observability.Metrics

	onChange   func(payment.StatusResponse)
	onComplete func(payment.StatusResponse)
	onError    func(error)

	// set while a callback runs on the loop goroutine
	inCallback atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelCauseFunc
	done    chan struct{}
	result  Result
}

// New creates a poller for paymentID. method may be empty.
func New(checker StatusChecker, paymentID string, method payment.Method, opts ...Option) *Poller {
	p := &Poller{
		checker:     checker,
		paymentID:   paymentID,
		method:      method,
		interval:    DefaultInterval,
		maxDuration: DefaultMaxDuration,
		logger:      zerolog.Nop(),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With().
		Str("component", "poller").
		Str("run_id", uuid.New().String()).
		Str("payment_id", paymentID).
		Logger()
	return p
}

// Run polls until the payment is terminal, the max duration elapses, Stop is
// called or ctx is cancelled. A poller runs at most once.
func (p *Poller) Run(ctx context.Context) (*payment.StatusResponse, error) {
	ctx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}

	status, polls, err := p.loop(ctx)
	p.finish(status, polls, err)
	return status, err
}

// Start runs the poller in the background.
func (p *Poller) Start(ctx context.Context) error {
	ctx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		status, polls, err := p.loop(ctx)
		p.finish(status, polls, err)
	}()
	return nil
}

// Stop cancels polling and waits for the loop to exit. No status lookup is
// issued after Stop returns. Stopping a poller that never started marks it done.
// Called from a callback, Stop only cancels; the loop exits once the callback returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.started = true
		p.result = Result{Err: ErrPollingStopped}
		close(p.done)
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.mu.Unlock()

	if cancel == nil {
		// stopped before it ever ran
		<-p.done
		return
	}
	cancel(ErrPollingStopped)
	if p.inCallback.Load() {
		return
	}
	<-p.done
}

// Done is closed once the poller has finished.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (p *Poller) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *Poller) finish(status *payment.StatusResponse, polls int, err error) {
	p.mu.Lock()
	p.result = Result{Status: status, Polls: polls, Err: err}
	p.cancel(nil)
	p.mu.Unlock()
	close(p.done)
}

func (p *Poller) begin(parent context.Context) (context.Context, error) {
	if p.interval <= 0 || p.maxDuration <= 0 {
		return nil, errInvalidSchedule
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		select {
		case <-p.done:
			if errors.Is(p.result.Err, ErrPollingStopped) {
				return nil, ErrPollingStopped
			}
		default:
		}
		return nil, ErrAlreadyStarted
	}
	p.started = true

	ctx, cancel := context.WithCancelCause(parent)
	p.cancel = cancel
	return ctx, nil
}

func (p *Poller) loop(ctx context.Context) (*payment.StatusResponse, int, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, p.maxDuration, ErrPollingTimeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug().
		Dur("interval", p.interval).
		Dur("max_duration", p.maxDuration).
		Msg("polling started")

	var (
		last  *payment.StatusResponse
		polls int
	)
	for {
		if ctx.Err() != nil {
			return last, polls, p.stopReason(ctx, last)
		}
		resp, err := p.checker.CheckPaymentStatus(ctx, p.paymentID, p.method)
		polls++

		if err != nil {
			if ctx.Err() != nil {
				return last, polls, p.stopReason(ctx, last)
			}
			p.metrics.IncPoll("error")
			p.logger.Warn().Err(err).Int("poll", polls).Msg("status check failed")
			if p.onError != nil {
				p.callback(func() { p.onError(err) })
			}
		} else {
			p.metrics.IncPoll("success")
			if last == nil || last.Status != resp.Status {
				p.logger.Info().Str("status", string(resp.Status)).Msg("payment status changed")
				if p.onChange != nil {
					p.callback(func() { p.onChange(*resp) })
				}
			}
			last = resp

			if resp.Status.IsTerminal() {
				if p.onComplete != nil {
					p.callback(func() { p.onComplete(*resp) })
				}
				return resp, polls, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, polls, p.stopReason(ctx, last)
		case <-ticker.C:
		}
	}
}

func (p *Poller) callback(fn func()) {
	p.inCallback.Store(true)
	defer p.inCallback.Store(false)
	fn()
}

func (p *Poller) stopReason(ctx context.Context, last *payment.StatusResponse) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrPollingTimeout):
		p.metrics.IncPoll("timeout")
		e := &TimeoutError{PaymentID: p.paymentID, After: p.maxDuration}
		if last != nil {
			e.LastStatus = last.Status
		}
		p.logger.Warn().Str("last_status", string(e.LastStatus)).Msg("polling timed out")
		return e
	case errors.Is(cause, ErrPollingStopped):
		p.logger.Debug().Msg("polling stopped")
		return ErrPollingStopped
	default:
		p.logger.Debug().Err(cause).Msg("polling cancelled")
		return fmt.Errorf("%w: %w", ErrPollingStopped, cause)
	}
}
