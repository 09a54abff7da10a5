package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/shopspring/decimal"
)

const (
	stripeBaseURL  = "https://api.stripe.com"
	stripeCurrency = "brl"
	formURLEncoded = "application/x-www-form-urlencoded"
)

var stripeInstallments = payment.InstallmentPolicy{
	InterestFree: 3,
	MonthlyRate:  decimal.RequireFromString("0.0299"),
}

// Stripe is the card-only gateway adapter. Requests are form-encoded.
type Stripe struct {
	client *restClient
}

// NewStripe creates the adapter. It fails fast without an API key.
func NewStripe(cfg Config, deps Deps) (*Stripe, error) {
	if cfg.APIKey == "" {
		return nil, domainErrors.NewConfigurationError(string(payment.ProviderStripe), "missing api_key")
	}
	return &Stripe{client: newRESTClient(payment.ProviderStripe, cfg, stripeBaseURL, deps)}, nil
}

func (s *Stripe) Type() payment.ProviderType { return payment.ProviderStripe }

func (s *Stripe) SupportedMethods() []payment.Method {
	return []payment.Method{payment.MethodCreditCard, payment.MethodDebitCard}
}

func (s *Stripe) IsAvailable(ctx context.Context) bool {
	return s.client.healthy(ctx, "/v1/balance")
}

func (s *Stripe) ValidateCard(number string) bool {
	return payment.ValidateCardNumber(number)
}

func (s *Stripe) InstallmentOptions(amount decimal.Decimal) []payment.InstallmentOption {
	return stripeInstallments.Schedule(amount)
}

type stripeObject struct {
	ID string `json:"id"`
}

type stripeCharge struct {
	ID                   string `json:"id"`
	Created              int64  `json:"created"`
	Paid                 bool   `json:"paid"`
	AuthorizationCode    string `json:"authorization_code"`
	PaymentMethodDetails struct {
		Card struct {
			Funding string `json:"funding"`
		} `json:"card"`
	} `json:"payment_method_details"`
}

type stripePaymentIntent struct {
	ID          string            `json:"id"`
	Amount      int64             `json:"amount"`
	Status      string            `json:"status"`
	Created     int64             `json:"created"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	// LatestCharge is an id, or the charge object when expanded.
	LatestCharge json.RawMessage `json:"latest_charge"`
}

func (pi *stripePaymentIntent) charge() *stripeCharge {
	if len(pi.LatestCharge) == 0 || pi.LatestCharge[0] != '{' {
		return nil
	}
	var ch stripeCharge
	if err := json.Unmarshal(pi.LatestCharge, &ch); err != nil {
		return nil
	}
	return &ch
}

// ProcessCardPayment tokenizes the card and confirms a payment intent with the token.
func (s *Stripe) ProcessCardPayment(ctx context.Context, req payment.CardPaymentRequest) (*payment.CardPaymentResponse, error) {
	cents, err := payment.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}

	token, err := s.tokenize(ctx, req.Card)
	if err != nil {
		return nil, fmt.Errorf("card payment: %w", err)
	}

	installments := req.EffectiveInstallments()
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(cents, 10))
	form.Set("currency", stripeCurrency)
	form.Set("description", req.Description)
	form.Set("payment_method", token)
	form.Set("payment_method_types[]", "card")
	form.Set("confirm", "true")
	form.Set("expand[]", "latest_charge")
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	if installments > 1 {
		form.Set("payment_method_options[card][installments][enabled]", "true")
		form.Set("payment_method_options[card][installments][plan][count]", strconv.Itoa(installments))
		form.Set("payment_method_options[card][installments][plan][interval]", "month")
		form.Set("payment_method_options[card][installments][plan][type]", "fixed_count")
	}

	const op = "create payment intent"
	data, err := s.client.do(ctx, apiRequest{
		operation:   op,
		method:      http.MethodPost,
		path:        "/v1/payment_intents",
		body:        []byte(form.Encode()),
		contentType: formURLEncoded,
		idempotency: "Idempotency-Key",
	})
	if err != nil {
		return nil, fmt.Errorf("card payment: %w", err)
	}

	var pi stripePaymentIntent
	if err := s.client.decode(op, data, &pi); err != nil {
		return nil, err
	}

	resp := &payment.CardPaymentResponse{
		ID:           pi.ID,
		Provider:     payment.ProviderStripe,
		Amount:       payment.FromMinorUnits(pi.Amount),
		Description:  req.Description,
		Status:       MapStripeStatus(pi.Status),
		CreatedAt:    unixTime(pi.Created),
		Installments: installments,
		Metadata:     payment.CopyMetadata(req.Metadata),
	}
	if ch := pi.charge(); ch != nil {
		resp.AuthorizationCode = ch.AuthorizationCode
	}
	return resp, nil
}

func (s *Stripe) tokenize(ctx context.Context, card payment.Card) (string, error) {
	const op = "tokenize card"

	form := url.Values{}
	form.Set("type", "card")
	form.Set("card[number]", payment.NormalizeCardNumber(card.Number))
	form.Set("card[exp_month]", strconv.Itoa(card.ExpiryMonth))
	form.Set("card[exp_year]", strconv.Itoa(card.ExpiryYear))
	form.Set("card[cvc]", card.CVV)
	form.Set("billing_details[name]", card.HolderName)

	data, err := s.client.do(ctx, apiRequest{
		operation:   op,
		method:      http.MethodPost,
		path:        "/v1/payment_methods",
		body:        []byte(form.Encode()),
		contentType: formURLEncoded,
		idempotency: "Idempotency-Key",
	})
	if err != nil {
		return "", err
	}

	var pm stripeObject
	if err := s.client.decode(op, data, &pm); err != nil {
		return "", err
	}
	if pm.ID == "" {
		return "", fmt.Errorf("%s %s: %w: missing payment method id", payment.ProviderStripe, op, domainErrors.ErrUpstream)
	}
	s.client.logger.Debug().Str("card", card.String()).Msg("card tokenized")
	return pm.ID, nil
}

func (s *Stripe) CheckPaymentStatus(ctx context.Context, paymentID string) (*payment.StatusResponse, error) {
	const op = "check status"

	data, err := s.client.doRetrying(ctx, apiRequest{
		operation: op,
		method:    http.MethodGet,
		path:      "/v1/payment_intents/" + url.PathEscape(paymentID),
		query:     url.Values{"expand[]": {"latest_charge"}},
	})
	if err != nil {
		return nil, err
	}

	var pi stripePaymentIntent
	if err := s.client.decode(op, data, &pi); err != nil {
		return nil, err
	}

	resp := &payment.StatusResponse{
		ID:       pi.ID,
		Provider: payment.ProviderStripe,
		Status:   MapStripeStatus(pi.Status),
		Amount:   payment.FromMinorUnits(pi.Amount),
		Method:   payment.MethodCreditCard,
		Metadata: payment.CopyMetadata(pi.Metadata),
	}
	if ch := pi.charge(); ch != nil {
		if ch.PaymentMethodDetails.Card.Funding == "debit" {
			resp.Method = payment.MethodDebitCard
		}
		if ch.Paid && resp.Status == payment.StatusCompleted {
			paidAt := unixTime(ch.Created)
			resp.PaidAt = &paidAt
		}
	}
	return resp, nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
