package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tipulhub/tipul-server/pkg/logging"
)

var tranzilaTracer = otel.Tracer("tipul.internal.payments.tranzila")

// TranzilaGateway charges cards through Tranzila's form-encoded terminal
// API. Tranzila has no refund or invoicing API on this integration
// level, so refunds degrade to manual_required and invoices fall back to
// the internal issuer.
type TranzilaGateway struct {
	baseURL    string
	terminal   string
	password   string
	httpClient *http.Client
	cipher     *CardCipher
	logger     *logging.Logger
}

// NewTranzilaGateway creates a Tranzila client. cipher may be nil when
// card-field encryption is disabled.
func NewTranzilaGateway(baseURL, terminal, password string, cipher *CardCipher, logger *logging.Logger) *TranzilaGateway {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://secure5.tranzila.com"
	}
	return &TranzilaGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		terminal:   terminal,
		password:   password,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cipher:     cipher,
		logger:     logger,
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (g *TranzilaGateway) WithBaseURL(baseURL string) *TranzilaGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

func (g *TranzilaGateway) Name() string { return "tranzila" }

func (g *TranzilaGateway) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tranzilaTracer.Start(ctx, "tranzila.charge")
	defer span.End()
	span.SetAttributes(attribute.Int64("tipul.amount_agorot", req.AmountAgorot))

	if req.Card == nil {
		return nil, fmt.Errorf("%w: card details are required", ErrInvalidPaymentData)
	}

	cardNumber := req.Card.Number
	cvv := req.Card.CVV
	if g.cipher != nil {
		var err error
		if cardNumber, err = g.cipher.Encrypt(cardNumber); err != nil {
			return nil, err
		}
		if cvv, err = g.cipher.Encrypt(cvv); err != nil {
			return nil, err
		}
	}

	// Tranzila's wire format takes the sum in agorot (minor units) and
	// the expiry as MMYY.
	form := url.Values{}
	form.Set("supplier", g.terminal)
	form.Set("TranzilaPW", g.password)
	form.Set("sum", strconv.FormatInt(req.AmountAgorot, 10))
	form.Set("currency", "1") // 1 = ILS
	form.Set("ccno", cardNumber)
	form.Set("expdate", fmt.Sprintf("%02d%02d", req.Card.ExpiryMonth, req.Card.ExpiryYear%100))
	form.Set("mycvv", cvv)
	form.Set("contact", req.ClientName)
	form.Set("email", req.ClientEmail)
	if g.cipher != nil {
		form.Set("encrypted", "1")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/cgi-bin/tranzila71u.cgi", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: tranzila request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: tranzila http: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: tranzila api status %d: %s", ErrProviderFailure, resp.StatusCode, string(respBody))
	}

	fields, err := url.ParseQuery(strings.TrimSpace(string(respBody)))
	if err != nil {
		return nil, fmt.Errorf("%w: tranzila decode: %v", ErrProviderFailure, err)
	}
	if code := fields.Get("Response"); code != "000" {
		return nil, fmt.Errorf("%w: tranzila rejected with code %s", ErrProviderFailure, code)
	}

	index := fields.Get("index")
	if index == "" {
		return nil, fmt.Errorf("%w: tranzila response missing transaction index", ErrProviderFailure)
	}

	return &Result{
		Success:     true,
		ProviderRef: index,
		Status:      TxCompleted,
		Provider:    g.Name(),
	}, nil
}

// GetStatus has no server-side API on this integration level; the
// placeholder carries Native=false.
func (g *TranzilaGateway) GetStatus(ctx context.Context, providerRef string) (StatusLookup, error) {
	return StatusLookup{Status: TxCompleted, Native: false}, nil
}

// Refund is not available through the terminal API. The outcome points
// the operator at the original transaction for an out-of-band refund.
func (g *TranzilaGateway) Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	g.logger.Warn("tranzila has no refund api, flagging for manual refund",
		"provider_ref", req.ProviderRef,
		"amount_agorot", req.AmountAgorot,
	)
	return &RefundOutcome{
		Status:      RefundManualRequired,
		ProviderRef: req.ProviderRef,
	}, nil
}

func (g *TranzilaGateway) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	return nil, ErrNoNativeInvoicing
}
