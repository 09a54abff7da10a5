package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/cassiomorais/giftpay/internal/service"
)

// Pinger is an optional dependency checked by readiness (Redis when enabled).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	paymentService *service.PaymentService
	redis          Pinger
}

// NewHealthController creates the health endpoints. redis may be nil.
func NewHealthController(paymentService *service.PaymentService, redis Pinger) *HealthController {
	return &HealthController{paymentService: paymentService, redis: redis}
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness answers ready when at least one provider is healthy and Redis, if used, answers.
func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "redis unavailable",
			})
			return
		}
	}

	healthy := 0
	for _, ok := range h.paymentService.CheckProvidersHealth(ctx) {
		if ok {
			healthy++
		}
	}
	if healthy == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "no healthy payment provider",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "healthy_providers": healthy})
}
