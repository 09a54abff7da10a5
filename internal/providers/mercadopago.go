package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/pkg/retry"
	"github.com/mercadopago/sdk-go/pkg/cardtoken"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/paymentmethod"
	"github.com/shopspring/decimal"
)

const mercadoPagoBaseURL = "https://api.mercadopago.com"

var mercadoPagoInstallments = payment.InstallmentPolicy{
	InterestFree: 6,
	MonthlyRate:  decimal.RequireFromString("0.0249"),
}

// MercadoPago is the multi-method gateway adapter (PIX and cards through one payments API).
// Payments, card tokens and health go through the official SDK; the sandbox status
// override has no SDK call and uses the plain REST client.
// Amounts travel in major units on this gateway.
type MercadoPago struct {
	client   *restClient
	cfg      Config
	payments mppayment.Client
	tokens   cardtoken.Client
	methods  paymentmethod.Client
}

// NewMercadoPago creates the adapter. It fails fast without an access token.
func NewMercadoPago(cfg Config, deps Deps) (*MercadoPago, error) {
	provider := string(payment.ProviderMercadoPago)
	if cfg.APIKey == "" {
		return nil, domainErrors.NewConfigurationError(provider, "missing api_key")
	}

	client := newRESTClient(payment.ProviderMercadoPago, cfg, mercadoPagoBaseURL, deps)

	requester, err := newMPRequester(client.http, cfg.BaseURL)
	if err != nil {
		return nil, domainErrors.NewConfigurationError(provider, err.Error())
	}
	sdkCfg, err := config.New(cfg.APIKey, config.WithHTTPClient(requester))
	if err != nil {
		return nil, domainErrors.NewConfigurationError(provider, err.Error())
	}

	return &MercadoPago{
		client:   client,
		cfg:      cfg,
		payments: mppayment.NewClient(sdkCfg),
		tokens:   cardtoken.NewClient(sdkCfg),
		methods:  paymentmethod.NewClient(sdkCfg),
	}, nil
}

func (m *MercadoPago) Type() payment.ProviderType { return payment.ProviderMercadoPago }

func (m *MercadoPago) SupportedMethods() []payment.Method {
	return []payment.Method{payment.MethodPix, payment.MethodCreditCard, payment.MethodDebitCard}
}

func (m *MercadoPago) IsAvailable(ctx context.Context) bool {
	return m.client.healthyWith(ctx, func(ctx context.Context) error {
		return m.call(ctx, "health", func(callCtx context.Context) error {
			_, err := m.methods.List(callCtx)
			return err
		})
	})
}

// ValidateCard accepts any Luhn-valid number; the gateway resolves the network itself.
func (m *MercadoPago) ValidateCard(number string) bool {
	return payment.ValidateCardNumber(number)
}

func (m *MercadoPago) InstallmentOptions(amount decimal.Decimal) []payment.InstallmentOption {
	return mercadoPagoInstallments.Schedule(amount)
}

func (m *MercadoPago) CreatePixPayment(ctx context.Context, req payment.PixPaymentRequest) (*payment.PixPaymentResponse, error) {
	body := m.basePayment(req.Amount, req.Description, req.Metadata)
	body.PaymentMethodID = "pix"
	expires := time.Now().Add(req.Expiration()).UTC().Truncate(time.Millisecond)
	body.DateOfExpiration = &expires

	p, err := m.createPayment(ctx, "create pix", body)
	if err != nil {
		return nil, err
	}

	return &payment.PixPaymentResponse{
		ID:          strconv.Itoa(p.ID),
		Provider:    payment.ProviderMercadoPago,
		QRCode:      p.PointOfInteraction.TransactionData.QRCodeBase64,
		PaymentCode: p.PointOfInteraction.TransactionData.QRCode,
		Amount:      mpAmount(p.TransactionAmount),
		Description: req.Description,
		Status:      MapMercadoPagoStatus(p.Status),
		CreatedAt:   p.DateCreated,
		ExpiresAt:   p.DateOfExpiration,
		Metadata:    payment.CopyMetadata(req.Metadata),
	}, nil
}

func (m *MercadoPago) ProcessCardPayment(ctx context.Context, req payment.CardPaymentRequest) (*payment.CardPaymentResponse, error) {
	token, err := m.tokenize(ctx, req.Card)
	if err != nil {
		return nil, fmt.Errorf("card payment: %w", err)
	}

	body := m.basePayment(req.Amount, req.Description, req.Metadata)
	body.PaymentMethodID = paymentMethodID(payment.DetectBrand(req.Card.Number), req.EffectiveMethod())
	body.Token = token
	body.Installments = req.EffectiveInstallments()

	p, err := m.createPayment(ctx, "create card payment", body)
	if err != nil {
		return nil, fmt.Errorf("card payment: %w", err)
	}

	installments := p.Installments
	if installments == 0 {
		installments = body.Installments
	}
	return &payment.CardPaymentResponse{
		ID:                strconv.Itoa(p.ID),
		Provider:          payment.ProviderMercadoPago,
		Amount:            mpAmount(p.TransactionAmount),
		Description:       req.Description,
		Status:            MapMercadoPagoStatus(p.Status),
		CreatedAt:         p.DateCreated,
		Installments:      installments,
		AuthorizationCode: p.AuthorizationCode,
		Metadata:          payment.CopyMetadata(req.Metadata),
	}, nil
}

// paymentMethodID picks the gateway's payment_method_id discriminator for a card.
// An unrecognized network is left empty so the gateway derives it from the token.
func paymentMethodID(brand payment.Brand, method payment.Method) string {
	if method == payment.MethodDebitCard {
		switch brand {
		case payment.BrandVisa:
			return "debvisa"
		case payment.BrandMastercard:
			return "debmaster"
		case payment.BrandElo:
			return "debelo"
		}
	}
	return string(brand)
}

func (m *MercadoPago) basePayment(amount decimal.Decimal, description string, metadata map[string]string) mppayment.Request {
	body := mppayment.Request{
		TransactionAmount: payment.RoundCurrency(amount).InexactFloat64(),
		Description:       description,
		ExternalReference: metadata[payment.MetadataCorrelationID],
	}
	if len(metadata) > 0 {
		body.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			body.Metadata[k] = v
		}
	}
	if email := metadata[payment.MetadataEmail]; email != "" {
		body.Payer = &mppayment.PayerRequest{Email: email}
	}
	return body
}

func (m *MercadoPago) createPayment(ctx context.Context, op string, body mppayment.Request) (*mppayment.Response, error) {
	var p *mppayment.Response
	err := m.call(ctx, op, func(callCtx context.Context) error {
		var err error
		p, err = m.payments.Create(callCtx, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, emptyMPResponse(op)
	}
	return p, nil
}

func emptyMPResponse(op string) error {
	return fmt.Errorf("%s %s: %w: empty response", payment.ProviderMercadoPago, op, domainErrors.ErrUpstream)
}

func (m *MercadoPago) tokenize(ctx context.Context, card payment.Card) (string, error) {
	const op = "create card token"

	var tok *cardtoken.Response
	err := m.call(ctx, op, func(callCtx context.Context) error {
		var err error
		tok, err = m.tokens.Create(callCtx, cardtoken.Request{
			CardNumber:      payment.NormalizeCardNumber(card.Number),
			ExpirationMonth: strconv.Itoa(card.ExpiryMonth),
			ExpirationYear:  strconv.Itoa(card.ExpiryYear),
			SecurityCode:    card.CVV,
			Cardholder:      &cardtoken.CardholderRequest{Name: card.HolderName},
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if tok == nil || tok.ID == "" {
		return "", fmt.Errorf("%s %s: %w: missing token id", payment.ProviderMercadoPago, op, domainErrors.ErrUpstream)
	}
	m.client.logger.Debug().Str("card", card.String()).Msg("card tokenized")
	return tok.ID, nil
}

func (m *MercadoPago) CheckPaymentStatus(ctx context.Context, paymentID string) (*payment.StatusResponse, error) {
	const op = "check status"

	id, err := strconv.Atoi(paymentID)
	if err != nil {
		// Ids on this gateway are numeric, so anything else cannot exist here.
		return nil, &domainErrors.UpstreamError{
			Provider:   string(payment.ProviderMercadoPago),
			Operation:  op,
			StatusCode: http.StatusNotFound,
			Body:       "non-numeric payment id",
		}
	}

	p, err := retry.DoWithResult(ctx, m.client.retry, func() (*mppayment.Response, error) {
		var p *mppayment.Response
		err := m.call(ctx, op, func(callCtx context.Context) error {
			var err error
			p, err = m.payments.Get(callCtx, id)
			return err
		})
		if err == nil && p == nil {
			err = emptyMPResponse(op)
		}
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return m.toStatus(paymentID, p), nil
}

// SimulatePayment forces a sandbox payment to approved or rejected.
func (m *MercadoPago) SimulatePayment(ctx context.Context, paymentID string, action payment.SimulationAction) (*payment.StatusResponse, error) {
	const op = "simulate payment"

	if m.cfg.IsProduction() {
		return nil, &domainErrors.EnvironmentViolationError{Operation: op, Environment: m.cfg.Environment}
	}

	status := "approved"
	if action == payment.SimulateReject {
		status = "rejected"
	}

	data, err := m.client.do(ctx, apiRequest{
		operation:   op,
		method:      http.MethodPut,
		path:        "/v1/payments/" + url.PathEscape(paymentID),
		body:        []byte(`{"status":"` + status + `"}`),
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var p mppayment.Response
	if err := m.client.decode(op, data, &p); err != nil {
		return nil, err
	}
	return m.toStatus(paymentID, &p), nil
}

func (m *MercadoPago) toStatus(paymentID string, p *mppayment.Response) *payment.StatusResponse {
	id := paymentID
	if p.ID != 0 {
		id = strconv.Itoa(p.ID)
	}

	resp := &payment.StatusResponse{
		ID:       id,
		Provider: payment.ProviderMercadoPago,
		Status:   MapMercadoPagoStatus(p.Status),
		Amount:   mpAmount(p.TransactionAmount),
		Method:   mpMethod(p),
		Metadata: mpMetadata(p.Metadata),
	}
	if !p.DateApproved.IsZero() {
		approved := p.DateApproved
		resp.PaidAt = &approved
	}
	return resp
}

// call runs one SDK request under the shared breaker and maps what the SDK returns to typed errors.
func (m *MercadoPago) call(ctx context.Context, op string, fn func(callCtx context.Context) error) error {
	return m.client.guard(ctx, op, func(callCtx context.Context) error {
		err := fn(callCtx)
		if err == nil {
			return nil
		}

		var resp *mperror.ResponseError
		var transport *mpTransportError
		switch {
		case errors.As(err, &resp) && resp.StatusCode >= http.StatusBadRequest:
			return &domainErrors.UpstreamError{
				Provider:   string(payment.ProviderMercadoPago),
				Operation:  op,
				StatusCode: resp.StatusCode,
				Body:       resp.Message,
			}
		case errors.As(err, &transport):
			return m.client.transportError(ctx, callCtx, op, transport.err)
		case resp != nil:
			// The body read failed after a successful status line.
			return m.client.transportError(ctx, callCtx, op, err)
		default:
			return fmt.Errorf("%s %s: decode response: %w", payment.ProviderMercadoPago, op, err)
		}
	})
}

func mpAmount(v float64) decimal.Decimal {
	return payment.RoundCurrency(decimal.NewFromFloat(v))
}

func mpMethod(p *mppayment.Response) payment.Method {
	switch {
	case p.PaymentMethodID == "pix" || p.PaymentTypeID == "bank_transfer":
		return payment.MethodPix
	case p.PaymentTypeID == "debit_card":
		return payment.MethodDebitCard
	default:
		return payment.MethodCreditCard
	}
}

func mpMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// mpTransportError marks failures below HTTP so call can tell them from decode errors.
type mpTransportError struct{ err error }

func (e *mpTransportError) Error() string { return e.err.Error() }
func (e *mpTransportError) Unwrap() error { return e.err }

// mpRequester sends SDK requests through the instrumented client and, when a base URL
// is configured, rewrites the SDK's fixed host to it.
type mpRequester struct {
	http *http.Client
	base *url.URL
}

func newMPRequester(client *http.Client, baseURL string) (*mpRequester, error) {
	r := &mpRequester{http: client}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" || baseURL == mercadoPagoBaseURL {
		return r, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base_url %q", baseURL)
	}
	r.base = u
	return r, nil
}

func (r *mpRequester) Do(req *http.Request) (*http.Response, error) {
	if r.base != nil {
		req.URL.Scheme = r.base.Scheme
		req.URL.Host = r.base.Host
		req.URL.Path = r.base.Path + req.URL.Path
		req.Host = ""
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &mpTransportError{err: err}
	}
	resp.Body = limitedBody{Reader: io.LimitReader(resp.Body, maxResponseBytes), Closer: resp.Body}
	return resp, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
