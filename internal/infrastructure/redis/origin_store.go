package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/redis/go-redis/v9"
)

const (
	originKeyPrefix  = "giftpay:origin:"
	DefaultOriginTTL = 48 * time.Hour
)

// OriginStore remembers which provider created a payment, so status lookups
// without a method hint can go to the right gateway first.
type OriginStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewOriginStore(client redis.Cmdable, ttl time.Duration) *OriginStore {
	if ttl <= 0 {
		ttl = DefaultOriginTTL
	}
	return &OriginStore{client: client, ttl: ttl}
}

func originKey(paymentID string) string {
	return originKeyPrefix + paymentID
}

// Remember records the provider of a payment.
func (s *OriginStore) Remember(ctx context.Context, paymentID string, provider payment.ProviderType) error {
	if err := s.client.Set(ctx, originKey(paymentID), string(provider), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store payment origin: %w", err)
	}
	return nil
}

// Lookup returns the remembered provider. ok is false when the id is unknown or expired.
func (s *OriginStore) Lookup(ctx context.Context, paymentID string) (payment.ProviderType, bool, error) {
	v, err := s.client.Get(ctx, originKey(paymentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read payment origin: %w", err)
	}
	return payment.ProviderType(v), true, nil
}
