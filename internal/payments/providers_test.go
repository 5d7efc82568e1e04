package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimulationProviderCharges(t *testing.T) {
	p := NewSimulationProvider(nil).WithDelay(time.Millisecond)

	result, err := p.ProcessPayment(context.Background(), Request{AmountAgorot: 35000, Method: MethodSimulation})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, TxCompleted, result.Status)
	require.True(t, strings.HasPrefix(result.ProviderRef, "SIM_"))
	require.Len(t, result.ProviderRef, len("SIM_")+16)
}

func TestSimulationProviderHonorsCancellation(t *testing.T) {
	p := NewSimulationProvider(nil).WithDelay(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.ProcessPayment(ctx, Request{AmountAgorot: 35000, Method: MethodSimulation})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulationProviderRefunds(t *testing.T) {
	p := NewSimulationProvider(nil).WithDelay(time.Millisecond)

	outcome, err := p.Refund(context.Background(), RefundRequest{ProviderRef: "SIM_ABC", AmountAgorot: 1000})
	require.NoError(t, err)
	require.Equal(t, RefundProcessed, outcome.Status)
	require.True(t, strings.HasPrefix(outcome.RefundID, "SIMREF_"))
}

func TestInternalProviderCashSettlesImmediately(t *testing.T) {
	p := NewInternalProvider(nil)

	result, err := p.ProcessPayment(context.Background(), Request{AmountAgorot: 35000, Method: MethodCash})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, TxCompleted, result.Status)
	require.True(t, strings.HasPrefix(result.ProviderRef, "CASH_"))
}

func TestInternalProviderBankTransferPending(t *testing.T) {
	p := NewInternalProvider(nil)

	result, err := p.ProcessPayment(context.Background(), Request{AmountAgorot: 35000, Method: MethodBankTransfer})
	require.NoError(t, err)
	require.Equal(t, TxPending, result.Status)
	require.True(t, strings.HasPrefix(result.ProviderRef, "BANK_"))
}

func TestInternalProviderRefundIsManual(t *testing.T) {
	p := NewInternalProvider(nil)

	outcome, err := p.Refund(context.Background(), RefundRequest{ProviderRef: "CASH_ABC", AmountAgorot: 1000})
	require.NoError(t, err)
	require.Equal(t, RefundManualRequired, outcome.Status)
	require.Equal(t, "CASH_ABC", outcome.ProviderRef)
}

func TestInternalProviderInvoiceSequence(t *testing.T) {
	p := NewInternalProvider(nil)

	first, err := p.CreateInvoice(context.Background(), InvoiceRequest{AmountAgorot: 1000})
	require.NoError(t, err)
	second, err := p.CreateInvoice(context.Background(), InvoiceRequest{AmountAgorot: 1000})
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(first.Number, "-000001"))
	require.True(t, strings.HasSuffix(second.Number, "-000002"))
	require.Equal(t, "internal", first.Provider)
}

func TestProviderSetForMethod(t *testing.T) {
	sim := NewSimulationProvider(nil)
	internal := NewInternalProvider(nil)
	gateway := NewTranzilaGateway("", "t1000", "pw", nil, nil)

	set := ProviderSet{Simulation: sim, Internal: internal, Gateway: gateway}

	p, err := set.ForMethod(MethodSimulation)
	require.NoError(t, err)
	require.Equal(t, "simulation", p.Name())

	p, err = set.ForMethod(MethodCash)
	require.NoError(t, err)
	require.Equal(t, "internal", p.Name())

	p, err = set.ForMethod(MethodCreditCard)
	require.NoError(t, err)
	require.Equal(t, "tranzila", p.Name())

	_, err = set.ForMethod("paypal")
	require.ErrorIs(t, err, ErrInvalidPaymentData)
}

func TestProviderSetSimulationGate(t *testing.T) {
	set := ProviderSet{Internal: NewInternalProvider(nil)}

	_, err := set.ForMethod(MethodSimulation)
	require.ErrorIs(t, err, ErrSimulationDisabled)
}

func TestProviderSetForName(t *testing.T) {
	set := ProviderSet{
		Simulation: NewSimulationProvider(nil),
		Internal:   NewInternalProvider(nil),
	}

	p, err := set.ForName("Internal")
	require.NoError(t, err)
	require.Equal(t, "internal", p.Name())

	_, err = set.ForName("meshulam")
	require.Error(t, err)
}
