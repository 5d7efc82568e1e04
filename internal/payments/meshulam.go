package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tipulhub/tipul-server/pkg/logging"
)

var meshulamTracer = otel.Tracer("tipul.internal.payments.meshulam")

// MeshulamGateway charges cards through the Meshulam (Grow) API. It is
// the full-featured gateway: native refunds, invoicing, and server-side
// status lookups.
type MeshulamGateway struct {
	baseURL    string
	apiKey     string
	pageCode   string
	httpClient *http.Client
	cipher     *CardCipher
	logger     *logging.Logger
}

// NewMeshulamGateway creates a Meshulam client. cipher may be nil when
// card-field encryption is disabled.
func NewMeshulamGateway(baseURL, apiKey, pageCode string, cipher *CardCipher, logger *logging.Logger) *MeshulamGateway {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://sandbox.meshulam.co.il"
	}
	return &MeshulamGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageCode:   pageCode,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cipher:     cipher,
		logger:     logger,
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (g *MeshulamGateway) WithBaseURL(baseURL string) *MeshulamGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

func (g *MeshulamGateway) Name() string { return "meshulam" }

type meshulamEnvelope struct {
	Status int             `json:"status"` // 1 = success
	Data   json.RawMessage `json:"data"`
	Err    struct {
		Message string `json:"message"`
	} `json:"err"`
}

func (g *MeshulamGateway) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	ctx, span := meshulamTracer.Start(ctx, "meshulam.charge")
	defer span.End()
	span.SetAttributes(attribute.Int64("tipul.amount_agorot", req.AmountAgorot))

	cardNumber, cvv, err := g.protectedCardFields(req.Card)
	if err != nil {
		return nil, err
	}

	// Meshulam takes the sum in shekels, not agorot.
	body := map[string]any{
		"apiKey":       g.apiKey,
		"pageCode":     g.pageCode,
		"sum":          fmt.Sprintf("%d.%02d", req.AmountAgorot/100, req.AmountAgorot%100),
		"currency":     req.Currency,
		"description":  req.Description,
		"fullName":     req.ClientName,
		"email":        req.ClientEmail,
		"phone":        req.ClientPhone,
		"cardNumber":   cardNumber,
		"expiryMonth":  req.Card.ExpiryMonth,
		"expiryYear":   req.Card.ExpiryYear,
		"cvv":          cvv,
		"holderName":   req.Card.HolderName,
		"encryptedPan": g.cipher != nil,
	}

	var parsed struct {
		TransactionID string `json:"transactionId"`
		Status        string `json:"status"`
	}
	if err := g.call(ctx, "/api/light/server/1.0/charge", body, &parsed); err != nil {
		return nil, err
	}
	if parsed.TransactionID == "" {
		return nil, fmt.Errorf("%w: meshulam response missing transaction id", ErrProviderFailure)
	}

	return &Result{
		Success:     true,
		ProviderRef: parsed.TransactionID,
		Status:      TxCompleted,
		Provider:    g.Name(),
	}, nil
}

func (g *MeshulamGateway) GetStatus(ctx context.Context, providerRef string) (StatusLookup, error) {
	var parsed struct {
		Status string `json:"status"` // "completed", "pending", "failed"
	}
	body := map[string]any{
		"apiKey":        g.apiKey,
		"transactionId": providerRef,
	}
	if err := g.call(ctx, "/api/light/server/1.0/transactionStatus", body, &parsed); err != nil {
		return StatusLookup{}, err
	}
	status := TxStatus(parsed.Status)
	switch status {
	case TxCompleted, TxPending, TxFailed:
	default:
		status = TxPending
	}
	return StatusLookup{Status: status, Native: true}, nil
}

func (g *MeshulamGateway) Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	ctx, span := meshulamTracer.Start(ctx, "meshulam.refund")
	defer span.End()
	span.SetAttributes(attribute.String("tipul.provider_ref", req.ProviderRef))

	var parsed struct {
		RefundID string `json:"refundId"`
	}
	body := map[string]any{
		"apiKey":        g.apiKey,
		"transactionId": req.ProviderRef,
		"sum":           fmt.Sprintf("%d.%02d", req.AmountAgorot/100, req.AmountAgorot%100),
		"reason":        req.Reason,
	}
	if err := g.call(ctx, "/api/light/server/1.0/refund", body, &parsed); err != nil {
		return nil, err
	}

	g.logger.Info("refund processed",
		"provider", g.Name(),
		"refund_id", parsed.RefundID,
		"provider_ref", req.ProviderRef,
	)
	return &RefundOutcome{
		RefundID:    parsed.RefundID,
		Status:      RefundProcessed,
		ProviderRef: req.ProviderRef,
	}, nil
}

func (g *MeshulamGateway) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var parsed struct {
		InvoiceID     string `json:"invoiceId"`
		InvoiceNumber string `json:"invoiceNumber"`
	}
	body := map[string]any{
		"apiKey":        g.apiKey,
		"transactionId": req.ProviderRef,
		"sum":           fmt.Sprintf("%d.%02d", req.AmountAgorot/100, req.AmountAgorot%100),
		"clientName":    req.ClientName,
		"clientEmail":   req.ClientEmail,
		"description":   req.Description,
	}
	if err := g.call(ctx, "/api/light/server/1.0/createInvoice", body, &parsed); err != nil {
		return nil, err
	}
	return &Invoice{
		ID:       parsed.InvoiceID,
		Number:   parsed.InvoiceNumber,
		Provider: g.Name(),
	}, nil
}

// call posts a JSON body and unwraps Meshulam's status/data envelope.
// Provider error text is folded into the returned error.
func (g *MeshulamGateway) call(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payments: meshulam marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("payments: meshulam request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: meshulam http: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: meshulam api status %d: %s", ErrProviderFailure, resp.StatusCode, string(respBody))
	}

	var envelope meshulamEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("%w: meshulam decode: %v", ErrProviderFailure, err)
	}
	if envelope.Status != 1 {
		return fmt.Errorf("%w: meshulam rejected: %s", ErrProviderFailure, envelope.Err.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: meshulam data decode: %v", ErrProviderFailure, err)
		}
	}
	return nil
}

// protectedCardFields applies the transport cipher to the PAN and CVV
// when enabled. The raw values never leave this function unencrypted.
func (g *MeshulamGateway) protectedCardFields(card *CardDetails) (number, cvv string, err error) {
	if card == nil {
		return "", "", fmt.Errorf("%w: card details are required", ErrInvalidPaymentData)
	}
	if g.cipher == nil {
		return card.Number, card.CVV, nil
	}
	number, err = g.cipher.Encrypt(card.Number)
	if err != nil {
		return "", "", err
	}
	cvv, err = g.cipher.Encrypt(card.CVV)
	if err != nil {
		return "", "", err
	}
	return number, cvv, nil
}
