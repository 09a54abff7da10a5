package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the stores use.
type fakeRedis struct {
	redis.Cmdable

	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	streams map[string][]map[string]any
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:  make(map[string]string),
		ttls:    make(map[string]time.Duration),
		streams: make(map[string][]map[string]any),
	}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	f.streams[a.Stream] = append(f.streams[a.Stream], a.Values.(map[string]any))
	return redis.NewStringResult("1-0", nil)
}

func TestOriginStore_RememberAndLookup(t *testing.T) {
	client := newFakeRedis()
	store := NewOriginStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "pi_123", payment.ProviderStripe))

	provider, ok, err := store.Lookup(ctx, "pi_123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payment.ProviderStripe, provider)
	assert.Equal(t, time.Hour, client.ttls["giftpay:origin:pi_123"])
}

func TestOriginStore_LookupUnknown(t *testing.T) {
	store := NewOriginStore(newFakeRedis(), 0)

	provider, ok, err := store.Lookup(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, provider)
	assert.Equal(t, DefaultOriginTTL, store.ttl)
}

func TestOriginStore_ClientErrors(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	store := NewOriginStore(client, time.Hour)
	ctx := context.Background()

	err := store.Remember(ctx, "pi_123", payment.ProviderStripe)
	assert.ErrorContains(t, err, "failed to store payment origin")

	_, ok, err := store.Lookup(ctx, "pi_123")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to read payment origin")
}

func TestStreamProducer_PublishPaymentEvent(t *testing.T) {
	client := newFakeRedis()
	producer := NewStreamProducer(client)

	err := producer.PublishPaymentEvent(context.Background(), PaymentEvent{
		Type:      EventPaymentCreated,
		PaymentID: "pix_1",
		Provider:  payment.ProviderAbacatePay,
		Method:    payment.MethodPix,
		Status:    payment.StatusPending,
		Data:      map[string]any{"amount": "29.90"},
	})
	require.NoError(t, err)

	entries := client.streams[PaymentEventStream]
	require.Len(t, entries, 1)
	assert.Equal(t, "payment.created", entries[0]["event_type"])
	assert.Equal(t, "pix_1", entries[0]["payment_id"])
	assert.Equal(t, "abacatepay", entries[0]["provider"])
	assert.Equal(t, "pending", entries[0]["status"])
	assert.JSONEq(t, `{"amount":"29.90"}`, entries[0]["payload"].(string))
}

func TestIdempotencyStore_SaveAndGet(t *testing.T) {
	client := newFakeRedis()
	store := NewIdempotencyStore(client, 0)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "POST /api/v1/payments/pix:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &CachedResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"id":"pix_1"}`)}
	require.NoError(t, store.Save(ctx, "POST /api/v1/payments/pix:abc", want))

	got, ok, err := store.Get(ctx, "POST /api/v1/payments/pix:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, DefaultIdempotencyTTL, client.ttls["giftpay:idempotency:POST /api/v1/payments/pix:abc"])
}

func TestIdempotencyStore_CorruptEntry(t *testing.T) {
	client := newFakeRedis()
	client.values["giftpay:idempotency:k"] = "not json"
	store := NewIdempotencyStore(client, time.Hour)

	_, ok, err := store.Get(context.Background(), "k")

	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to decode idempotent response")
}
