package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/shopspring/decimal"
)

const abacatePayBaseURL = "https://api.abacatepay.com"

// AbacatePay is the PIX-only gateway adapter.
type AbacatePay struct {
	client *restClient
	cfg    Config
}

// NewAbacatePay creates the adapter. It fails fast without an API key.
func NewAbacatePay(cfg Config, deps Deps) (*AbacatePay, error) {
	if cfg.APIKey == "" {
		return nil, domainErrors.NewConfigurationError(string(payment.ProviderAbacatePay), "missing api_key")
	}
	return &AbacatePay{
		client: newRESTClient(payment.ProviderAbacatePay, cfg, abacatePayBaseURL, deps),
		cfg:    cfg,
	}, nil
}

func (a *AbacatePay) Type() payment.ProviderType { return payment.ProviderAbacatePay }

func (a *AbacatePay) SupportedMethods() []payment.Method {
	return []payment.Method{payment.MethodPix}
}

func (a *AbacatePay) IsAvailable(ctx context.Context) bool {
	return a.client.healthy(ctx, "/v1/customer/list")
}

type abacatePixCreateRequest struct {
	Amount      int64             `json:"amount"`
	ExpiresIn   int64             `json:"expiresIn"`
	Description string            `json:"description"`
	CustomerID  string            `json:"customerId,omitempty"`
	CouponCode  string            `json:"couponCode,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type abacatePixCharge struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Status       string            `json:"status"`
	DevMode      bool              `json:"devMode"`
	BRCode       string            `json:"brCode"`
	BRCodeBase64 string            `json:"brCodeBase64"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
	ExpiresAt    string            `json:"expiresAt"`
	Metadata     map[string]string `json:"metadata"`
}

type abacateEnvelope struct {
	Data  *abacatePixCharge `json:"data"`
	Error *string           `json:"error"`
}

func (a *AbacatePay) CreatePixPayment(ctx context.Context, req payment.PixPaymentRequest) (*payment.PixPaymentResponse, error) {
	const op = "create pix"

	cents, err := payment.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}

	// The coupon travels as a top-level field; everything else stays in metadata.
	metadata := payment.CopyMetadata(req.Metadata)
	coupon := metadata[payment.MetadataCoupon]
	delete(metadata, payment.MetadataCoupon)
	if len(metadata) == 0 {
		metadata = nil
	}

	data, err := a.client.postJSON(ctx, op, "/v1/pixQrCode/create", abacatePixCreateRequest{
		Amount:      cents,
		ExpiresIn:   int64(req.Expiration() / time.Second),
		Description: req.Description,
		CustomerID:  req.CustomerID,
		CouponCode:  coupon,
		Metadata:    metadata,
	}, "")
	if err != nil {
		return nil, err
	}

	charge, err := a.unwrap(op, data)
	if err != nil {
		return nil, err
	}

	return &payment.PixPaymentResponse{
		ID:          charge.ID,
		Provider:    payment.ProviderAbacatePay,
		QRCode:      charge.BRCodeBase64,
		PaymentCode: charge.BRCode,
		Amount:      payment.FromMinorUnits(charge.Amount),
		Description: req.Description,
		Status:      MapAbacatePayStatus(charge.Status),
		CreatedAt:   parseTimestamp(charge.CreatedAt),
		ExpiresAt:   parseTimestamp(charge.ExpiresAt),
		Metadata:    payment.CopyMetadata(req.Metadata),
	}, nil
}

func (a *AbacatePay) CheckPaymentStatus(ctx context.Context, paymentID string) (*payment.StatusResponse, error) {
	const op = "check status"

	data, err := a.client.doRetrying(ctx, apiRequest{
		operation: op,
		method:    http.MethodGet,
		path:      "/v1/pixQrCode/check",
		query:     url.Values{"id": {paymentID}},
	})
	if err != nil {
		return nil, err
	}

	charge, err := a.unwrap(op, data)
	if err != nil {
		return nil, err
	}
	return a.toStatus(paymentID, charge), nil
}

// SimulatePayment confirms a PIX charge in dev mode. The gateway cannot simulate a rejection.
func (a *AbacatePay) SimulatePayment(ctx context.Context, paymentID string, action payment.SimulationAction) (*payment.StatusResponse, error) {
	const op = "simulate payment"

	if a.cfg.IsProduction() {
		return nil, &domainErrors.EnvironmentViolationError{Operation: op, Environment: a.cfg.Environment}
	}
	if action != payment.SimulateApprove {
		return nil, domainErrors.NewCapabilityError(string(payment.ProviderAbacatePay), "simulate "+string(action))
	}

	body, err := a.client.do(ctx, apiRequest{
		operation:   op,
		method:      http.MethodPost,
		path:        "/v1/pixQrCode/simulate-payment",
		query:       url.Values{"id": {paymentID}},
		body:        []byte(`{"metadata":{}}`),
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	charge, err := a.unwrap(op, body)
	if err != nil {
		return nil, err
	}
	return a.toStatus(paymentID, charge), nil
}

func (a *AbacatePay) unwrap(op string, data []byte) (*abacatePixCharge, error) {
	var env abacateEnvelope
	if err := a.client.decode(op, data, &env); err != nil {
		return nil, err
	}
	if env.Error != nil && *env.Error != "" {
		return nil, fmt.Errorf("%s %s: %w: %s", payment.ProviderAbacatePay, op, domainErrors.ErrUpstream, *env.Error)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%s %s: %w: empty data", payment.ProviderAbacatePay, op, domainErrors.ErrUpstream)
	}
	return env.Data, nil
}

func (a *AbacatePay) toStatus(paymentID string, charge *abacatePixCharge) *payment.StatusResponse {
	id := charge.ID
	if id == "" {
		id = paymentID
	}

	status := MapAbacatePayStatus(charge.Status)
	resp := &payment.StatusResponse{
		ID:       id,
		Provider: payment.ProviderAbacatePay,
		Status:   status,
		Amount:   decimal.Zero,
		Method:   payment.MethodPix,
		Metadata: payment.CopyMetadata(charge.Metadata),
	}
	if charge.Amount > 0 {
		resp.Amount = payment.FromMinorUnits(charge.Amount)
	}
	if status == payment.StatusCompleted {
		if paidAt := parseTimestamp(charge.UpdatedAt); !paidAt.IsZero() {
			resp.PaidAt = &paidAt
		}
	}
	return resp
}
