package payments

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tipulhub/tipul-server/pkg/logging"
)

// InternalProvider records cash and bank-transfer settlements without
// any external call. Cash counts as settled the moment it is recorded;
// a bank transfer stays pending until the money shows up on the account
// statement.
type InternalProvider struct {
	logger     *logging.Logger
	invoiceSeq atomic.Uint64
}

// NewInternalProvider creates the record-only provider.
func NewInternalProvider(logger *logging.Logger) *InternalProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &InternalProvider{logger: logger}
}

func (p *InternalProvider) Name() string { return "internal" }

func (p *InternalProvider) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	result := &Result{
		Success:  true,
		Provider: p.Name(),
	}
	switch req.Method {
	case MethodBankTransfer:
		result.ProviderRef = "BANK_" + ref
		result.Status = TxPending
	default:
		result.ProviderRef = "CASH_" + ref
		result.Status = TxCompleted
	}

	p.logger.Info("offline settlement recorded",
		"method", string(req.Method),
		"provider_ref", result.ProviderRef,
		"status", string(result.Status),
	)
	return result, nil
}

// GetStatus has no upstream to ask; the placeholder answer carries
// Native=false so callers know not to trust its freshness.
func (p *InternalProvider) GetStatus(ctx context.Context, providerRef string) (StatusLookup, error) {
	return StatusLookup{Status: TxCompleted, Native: false}, nil
}

// Refund cannot be executed automatically for cash or a bank transfer;
// the operator settles it out-of-band against the original reference.
func (p *InternalProvider) Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	return &RefundOutcome{
		Status:      RefundManualRequired,
		ProviderRef: req.ProviderRef,
	}, nil
}

func (p *InternalProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	seq := p.invoiceSeq.Add(1)
	now := time.Now().UTC()
	return &Invoice{
		ID:       uuid.NewString(),
		Number:   fmt.Sprintf("%s-%06d", now.Format("20060102"), seq),
		Provider: p.Name(),
	}, nil
}
