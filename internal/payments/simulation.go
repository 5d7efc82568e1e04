package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tipulhub/tipul-server/pkg/logging"
)

// simulationDelay imitates gateway round-trip latency so demo flows
// behave like real ones.
const simulationDelay = 300 * time.Millisecond

// SimulationProvider synthesizes successful charges for demos and tests.
// It must be gated by configuration and never stands in for a real
// charge in production mode.
type SimulationProvider struct {
	delay  time.Duration
	logger *logging.Logger
}

// NewSimulationProvider creates the demo provider.
func NewSimulationProvider(logger *logging.Logger) *SimulationProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &SimulationProvider{delay: simulationDelay, logger: logger}
}

// WithDelay overrides the artificial latency (for tests).
func (p *SimulationProvider) WithDelay(d time.Duration) *SimulationProvider {
	p.delay = d
	return p
}

func (p *SimulationProvider) Name() string { return "simulation" }

func (p *SimulationProvider) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ref := "SIM_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	p.logger.Info("simulated charge",
		"provider_ref", ref,
		"amount_agorot", req.AmountAgorot,
	)
	return &Result{
		Success:     true,
		ProviderRef: ref,
		Status:      TxCompleted,
		Provider:    p.Name(),
	}, nil
}

func (p *SimulationProvider) GetStatus(ctx context.Context, providerRef string) (StatusLookup, error) {
	return StatusLookup{Status: TxCompleted, Native: true}, nil
}

func (p *SimulationProvider) Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	return &RefundOutcome{
		RefundID:    "SIMREF_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
		Status:      RefundProcessed,
		ProviderRef: req.ProviderRef,
	}, nil
}

func (p *SimulationProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	seq := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return &Invoice{
		ID:       "SIMINV_" + seq,
		Number:   fmt.Sprintf("SIM-%s", seq),
		Provider: p.Name(),
	}, nil
}
