package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/service"
)

const healthCheckTimeout = 5 * time.Second

// ProviderController exposes provider visibility for operators and health dashboards.
type ProviderController struct {
	paymentService *service.PaymentService
}

func NewProviderController(paymentService *service.PaymentService) *ProviderController {
	return &ProviderController{paymentService: paymentService}
}

// List handles GET /api/v1/providers
func (h *ProviderController) List(w http.ResponseWriter, r *http.Request) {
	infos := h.paymentService.AvailableProviders()
	resp := ProvidersResponse{
		Providers:        make([]ProviderResponse, 0, len(infos)),
		SupportedMethods: methodNames(h.paymentService.SupportedMethods()),
	}
	for _, info := range infos {
		resp.Providers = append(resp.Providers, ProviderResponse{
			Type:    string(info.Type),
			Methods: methodNames(info.Methods),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /api/v1/providers/health
func (h *ProviderController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := h.paymentService.CheckProvidersHealth(ctx)
	resp := make(map[string]bool, len(health))
	for t, ok := range health {
		resp[string(t)] = ok
	}
	writeJSON(w, http.StatusOK, resp)
}

// Working handles GET /api/v1/providers/working?method=
func (h *ProviderController) Working(w http.ResponseWriter, r *http.Request) {
	method, err := payment.ParseMethod(r.URL.Query().Get("method"))
	if err != nil {
		writeError(w, err)
		return
	}
	if method == "" {
		method = payment.MethodPix
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	p, err := h.paymentService.WorkingProvider(ctx, method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProviderResponse{
		Type:    string(p.Type()),
		Methods: methodNames(p.SupportedMethods()),
	})
}

func methodNames(methods []payment.Method) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}
