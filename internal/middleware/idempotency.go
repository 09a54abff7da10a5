package middleware

import (
	"bytes"
	"context"
	"net/http"

	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/rs/zerolog"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	maxIdempotencyBodySize = 1 << 20
)

// ResponseCache stores responses by idempotency key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*infraRedis.CachedResponse, bool, error)
	Save(ctx context.Context, key string, resp *infraRedis.CachedResponse) error
}

// Idempotency replays the stored response when a payment creation is retried with
// the same Idempotency-Key. Server errors are not stored so the client may retry them.
// A nil cache disables replay.
func Idempotency(cache ResponseCache, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cache == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scoped := r.Method + " " + r.URL.Path + ":" + key

			cached, ok, err := cache.Get(r.Context(), scoped)
			if err != nil {
				logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
			}
			if ok {
				w.Header().Set("Content-Type", cached.ContentType)
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(cached.Status)
				w.Write(cached.Body)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 500 && !rec.bodyTruncated {
				err := cache.Save(r.Context(), scoped, &infraRedis.CachedResponse{
					Status:      rec.statusCode,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				})
				if err != nil {
					logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotent response not stored")
				}
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
