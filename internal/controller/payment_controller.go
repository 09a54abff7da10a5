package controller

import (
	"net/http"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// PaymentController exposes the payment facade over HTTP.
type PaymentController struct {
	paymentService *service.PaymentService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// CreatePixPayment handles POST /api/v1/payments/pix
func (h *PaymentController) CreatePixPayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePixPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.paymentService.CreatePixPayment(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromPixPayment(resp))
}

// ProcessCardPayment handles POST /api/v1/payments/card
func (h *PaymentController) ProcessCardPayment(w http.ResponseWriter, r *http.Request) {
	var req ProcessCardPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.paymentService.ProcessCardPayment(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromCardPayment(resp))
}

// GetStatus handles GET /api/v1/payments/{id}/status?method=
func (h *PaymentController) GetStatus(w http.ResponseWriter, r *http.Request) {
	method, err := payment.ParseMethod(r.URL.Query().Get("method"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.paymentService.CheckPaymentStatus(r.Context(), chi.URLParam(r, "id"), method)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromStatus(resp))
}

// Simulate handles POST /api/v1/payments/{id}/simulate
func (h *PaymentController) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.paymentService.SimulatePayment(r.Context(), payment.SimulationRequest{
		PaymentID: chi.URLParam(r, "id"),
		Action:    payment.SimulationAction(req.Action),
	}, payment.Method(req.Method))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromStatus(resp))
}

// ValidateCard handles POST /api/v1/cards/validate
func (h *PaymentController) ValidateCard(w http.ResponseWriter, r *http.Request) {
	var req ValidateCardRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ValidateCardResponse{
		Valid:  h.paymentService.ValidateCard(req.Number),
		Brand:  string(payment.DetectBrand(req.Number)),
		Masked: payment.MaskCardNumber(req.Number),
	})
}

// Installments handles GET /api/v1/installments?amount=
func (h *PaymentController) Installments(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("amount", "must be a decimal number"))
		return
	}

	options, err := h.paymentService.InstallmentOptions(amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromInstallments(options))
}
