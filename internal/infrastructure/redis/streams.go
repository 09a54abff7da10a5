package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/redis/go-redis/v9"
)

const (
	PaymentEventStream = "giftpay:payment-events"
	// streamMaxLen caps the stream; trimming is approximate.
	streamMaxLen = 100_000
)

// Event types published on PaymentEventStream.
const (
	EventPaymentCreated       = "payment.created"
	EventPaymentSimulated     = "payment.simulated"
	EventPaymentStatusChanged = "payment.status_changed"
)

// PaymentEvent is one entry of the payment event stream.
type PaymentEvent struct {
	Type      string
	PaymentID string
	Provider  payment.ProviderType
	Method    payment.Method
	Status    payment.Status
	Data      map[string]any
}

// StreamProducer appends payment events for the gift application to consume.
type StreamProducer struct {
	client redis.Cmdable
	stream string
}

func NewStreamProducer(client redis.Cmdable) *StreamProducer {
	return &StreamProducer{client: client, stream: PaymentEventStream}
}

func (p *StreamProducer) PublishPaymentEvent(ctx context.Context, e PaymentEvent) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"event_type": e.Type,
			"payment_id": e.PaymentID,
			"provider":   string(e.Provider),
			"method":     string(e.Method),
			"status":     string(e.Status),
			"payload":    string(payload),
			"timestamp":  time.Now().Unix(),
		},
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	return nil
}

// ParsePaymentEvent decodes a stream entry written by PublishPaymentEvent.
func ParsePaymentEvent(msg redis.XMessage) (PaymentEvent, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	e := PaymentEvent{
		Type:      str("event_type"),
		PaymentID: str("payment_id"),
		Provider:  payment.ProviderType(str("provider")),
		Method:    payment.Method(str("method")),
		Status:    payment.Status(str("status")),
	}
	if e.Type == "" || e.PaymentID == "" {
		return PaymentEvent{}, fmt.Errorf("stream entry %s: missing event_type or payment_id", msg.ID)
	}
	if raw := str("payload"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil {
			return PaymentEvent{}, fmt.Errorf("stream entry %s: invalid payload: %w", msg.ID, err)
		}
	}
	return e, nil
}

// StreamConsumer reads the payment event stream as a member of a consumer group.
type StreamConsumer struct {
	client        redis.Cmdable
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client redis.Cmdable,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        PaymentEventStream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []redis.XMessage
	for _, s := range streams {
		messages = append(messages, s.Messages...)
	}
	return messages, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}
