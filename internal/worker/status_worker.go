package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/cassiomorais/giftpay/internal/poller"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxInFlight = 100
	readErrorBackoff   = time.Second
)

// EventSource is a consumer-group reader of the payment event stream.
type EventSource interface {
	Read(ctx context.Context) ([]redis.XMessage, error)
	Ack(ctx context.Context, messageID string) error
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, e infraRedis.PaymentEvent) error
}

type Config struct {
	Interval    time.Duration
	MaxDuration time.Duration
	MaxInFlight int
}

// StatusWorker follows every newly created payment until it settles and
// publishes its status transitions back to the stream.
type StatusWorker struct {
	source    EventSource
	checker   poller.StatusChecker
	publisher EventPublisher
	cfg       Config
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

func NewStatusWorker(
	source EventSource,
	checker poller.StatusChecker,
	publisher EventPublisher,
	cfg Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *StatusWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = poller.DefaultInterval
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = poller.DefaultMaxDuration
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &StatusWorker{
		source:    source,
		checker:   checker,
		publisher: publisher,
		cfg:       cfg,
		logger:    observability.ForComponent(logger, "status_worker"),
		metrics:   metrics,
	}
}

// Run consumes events until ctx is cancelled, then waits for in-flight pollers.
// Pollers interrupted by shutdown leave their message unacknowledged for redelivery.
func (w *StatusWorker) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(w.cfg.MaxInFlight)

	for ctx.Err() == nil {
		msgs, err := w.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error().Err(err).Msg("failed to read payment events")
			select {
			case <-ctx.Done():
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			e, err := infraRedis.ParsePaymentEvent(msg)
			if err != nil {
				w.logger.Warn().Err(err).Msg("dropping malformed payment event")
				w.ack(ctx, msg.ID)
				continue
			}
			if e.Type != infraRedis.EventPaymentCreated || e.Status.IsTerminal() {
				w.ack(ctx, msg.ID)
				continue
			}

			id := msg.ID
			g.Go(func() error {
				if w.follow(ctx, e) {
					w.ack(ctx, id)
				}
				return nil
			})
		}
	}

	w.logger.Info().Msg("waiting for in-flight pollers")
	return g.Wait()
}

// follow polls one payment and reports whether its event is done with.
func (w *StatusWorker) follow(ctx context.Context, e infraRedis.PaymentEvent) bool {
	previous := e.Status
	publish := func(s payment.StatusResponse) {
		if s.Status == previous {
			return
		}
		previous = s.Status
		err := w.publisher.PublishPaymentEvent(ctx, infraRedis.PaymentEvent{
			Type:      infraRedis.EventPaymentStatusChanged,
			PaymentID: e.PaymentID,
			Provider:  s.Provider,
			Method:    e.Method,
			Status:    s.Status,
		})
		if err != nil {
			w.logger.Warn().Err(err).Str("payment_id", e.PaymentID).Msg("status change not published")
		}
	}

	p := poller.New(w.checker, e.PaymentID, e.Method,
		poller.WithInterval(w.cfg.Interval),
		poller.WithMaxDuration(w.cfg.MaxDuration),
		poller.WithLogger(w.logger),
		poller.WithMetrics(w.metrics),
		poller.OnStatusChange(publish),
	)

	status, err := p.Run(ctx)
	switch {
	case err == nil:
		w.logger.Info().Str("payment_id", e.PaymentID).Str("status", string(status.Status)).Msg("payment settled")
		return true
	case errors.Is(err, poller.ErrPollingTimeout):
		// Abandoned payments are not retried.
		return true
	default:
		return false
	}
}

func (w *StatusWorker) ack(ctx context.Context, id string) {
	// Acks must survive shutdown of the read loop.
	ctx = context.WithoutCancel(ctx)
	if err := w.source.Ack(ctx, id); err != nil {
		w.logger.Warn().Err(err).Str("message_id", id).Msg("failed to ack payment event")
	}
}
