package payments

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the uniform capability set every settlement back-end
// implements: charge, status lookup, refund, invoice issuance. Variants
// are the simulation provider, the record-only internal provider (cash
// and bank transfer), and the external card gateways.
type Provider interface {
	Name() string
	ProcessPayment(ctx context.Context, req Request) (*Result, error)
	GetStatus(ctx context.Context, providerRef string) (StatusLookup, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error)
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
}

// ProviderSet holds the configured back-ends. The card gateway is fixed
// by configuration at startup; the request's method only selects within
// this fixed set.
type ProviderSet struct {
	Simulation Provider
	Internal   Provider
	Gateway    Provider
}

// ForMethod selects the provider for a charge method. Pure function of
// the set and the method.
func (p ProviderSet) ForMethod(method Method) (Provider, error) {
	switch method {
	case MethodSimulation:
		if p.Simulation == nil {
			return nil, ErrSimulationDisabled
		}
		return p.Simulation, nil
	case MethodCash, MethodBankTransfer:
		if p.Internal == nil {
			return nil, fmt.Errorf("payments: internal provider not configured")
		}
		return p.Internal, nil
	case MethodCreditCard:
		if p.Gateway == nil {
			return nil, fmt.Errorf("payments: no card gateway configured")
		}
		return p.Gateway, nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidPaymentData, method)
	}
}

// ForName returns the provider that produced a stored transaction, used
// for status lookups and refunds after the fact.
func (p ProviderSet) ForName(name string) (Provider, error) {
	for _, candidate := range []Provider{p.Simulation, p.Internal, p.Gateway} {
		if candidate != nil && strings.EqualFold(candidate.Name(), name) {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("payments: provider %q not configured", name)
}
