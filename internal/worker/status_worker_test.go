package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]redis.XMessage
	readErr error
	acked   []string
}

func (f *fakeSource) Read(ctx context.Context) ([]redis.XMessage, error) {
	f.mu.Lock()
	if f.readErr != nil {
		err := f.readErr
		f.readErr = nil
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) Ack(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeSource) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type scriptedChecker struct {
	mu      sync.Mutex
	scripts map[string][]payment.Status
}

func (c *scriptedChecker) CheckPaymentStatus(_ context.Context, id string, _ payment.Method) (*payment.StatusResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	script, ok := c.scripts[id]
	if !ok {
		return nil, errors.New("unknown payment")
	}
	status := script[0]
	if len(script) > 1 {
		c.scripts[id] = script[1:]
	}
	return &payment.StatusResponse{ID: id, Provider: payment.ProviderAbacatePay, Status: status}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []infraRedis.PaymentEvent
}

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, e infraRedis.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) snapshot() []infraRedis.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]infraRedis.PaymentEvent(nil), p.events...)
}

func created(id, paymentID string, status payment.Status) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]any{
		"event_type": infraRedis.EventPaymentCreated,
		"payment_id": paymentID,
		"method":     "pix",
		"status":     string(status),
	}}
}

func fastConfig() Config {
	return Config{Interval: 2 * time.Millisecond, MaxDuration: time.Second, MaxInFlight: 4}
}

func TestStatusWorker_FollowsCreatedPayments(t *testing.T) {
	source := &fakeSource{batches: [][]redis.XMessage{{
		created("1-0", "pix_1", payment.StatusPending),
		created("2-0", "card_1", payment.StatusCompleted),
		{ID: "3-0", Values: map[string]any{"event_type": infraRedis.EventPaymentSimulated, "payment_id": "pix_9"}},
		{ID: "4-0", Values: map[string]any{"payment_id": "broken"}},
	}}}
	checker := &scriptedChecker{scripts: map[string][]payment.Status{
		"pix_1": {payment.StatusPending, payment.StatusProcessing, payment.StatusCompleted},
	}}
	publisher := &recordingPublisher{}
	w := NewStatusWorker(source, checker, publisher, fastConfig(), zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(source.ackedIDs()) == 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []string{"1-0", "2-0", "3-0", "4-0"}, source.ackedIDs())

	events := publisher.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, infraRedis.EventPaymentStatusChanged, events[0].Type)
	assert.Equal(t, payment.StatusProcessing, events[0].Status)
	assert.Equal(t, payment.StatusCompleted, events[1].Status)
	assert.Equal(t, "pix_1", events[1].PaymentID)
	assert.Equal(t, payment.MethodPix, events[1].Method)
}

func TestStatusWorker_ShutdownLeavesPaymentUnacked(t *testing.T) {
	source := &fakeSource{batches: [][]redis.XMessage{{created("1-0", "pix_1", payment.StatusPending)}}}
	checker := &scriptedChecker{scripts: map[string][]payment.Status{"pix_1": {payment.StatusPending}}}
	w := NewStatusWorker(source, checker, &recordingPublisher{}, fastConfig(), zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Empty(t, source.ackedIDs())
}

func TestStatusWorker_TimeoutAcks(t *testing.T) {
	source := &fakeSource{batches: [][]redis.XMessage{{created("1-0", "pix_1", payment.StatusPending)}}}
	checker := &scriptedChecker{scripts: map[string][]payment.Status{"pix_1": {payment.StatusPending}}}
	cfg := Config{Interval: 2 * time.Millisecond, MaxDuration: 20 * time.Millisecond}
	w := NewStatusWorker(source, checker, &recordingPublisher{}, cfg, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return len(source.ackedIDs()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestStatusWorker_ReadErrorBacksOff(t *testing.T) {
	source := &fakeSource{readErr: errors.New("connection refused")}
	w := NewStatusWorker(source, &scriptedChecker{}, &recordingPublisher{}, fastConfig(), zerolog.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, w.Run(ctx))
	assert.Less(t, time.Since(start), readErrorBackoff)
}
