package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedTransaction(t *testing.T, repo Repository, provider string, status TxStatus) *Transaction {
	t.Helper()
	tx := &Transaction{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		AmountAgorot:  35000,
		Currency:      "ILS",
		Method:        MethodSimulation,
		Provider:      provider,
		ProviderRef:   "SIM_REF123",
		Status:        status,
	}
	require.NoError(t, repo.CreateTransaction(context.Background(), tx))
	return tx
}

func TestCoordinatorFullRefundRecorded(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Simulation: NewSimulationProvider(nil).WithDelay(time.Millisecond)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "simulation", TxCompleted)

	outcome, err := c.Refund(context.Background(), tx.ID, 0, "client cancelled in time")
	require.NoError(t, err)
	require.Equal(t, RefundProcessed, outcome.Status)
	require.NotEmpty(t, outcome.RefundID)

	records, err := repo.ListRefunds(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(35000), records[0].AmountAgorot, "zero amount means full refund")
	require.Equal(t, RefundProcessed, records[0].Status)
	require.Equal(t, "client cancelled in time", records[0].Reason)
}

func TestCoordinatorPartialRefund(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Simulation: NewSimulationProvider(nil).WithDelay(time.Millisecond)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "simulation", TxCompleted)

	_, err := c.Refund(context.Background(), tx.ID, 10000, "late cancellation, partial")
	require.NoError(t, err)

	records, err := repo.ListRefunds(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(10000), records[0].AmountAgorot)
}

func TestCoordinatorRejectsOverRefund(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Simulation: NewSimulationProvider(nil).WithDelay(time.Millisecond)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "simulation", TxCompleted)

	_, err := c.Refund(context.Background(), tx.ID, 35001, "too much")
	require.ErrorIs(t, err, ErrInvalidPaymentData)
}

func TestCoordinatorRejectsUnsettledTransaction(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Simulation: NewSimulationProvider(nil).WithDelay(time.Millisecond)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "simulation", TxPending)

	_, err := c.Refund(context.Background(), tx.ID, 0, "not settled yet")
	require.ErrorIs(t, err, ErrInvalidPaymentData)
}

func TestCoordinatorManualRequiredIsStillRecorded(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Internal: NewInternalProvider(nil)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "internal", TxCompleted)

	outcome, err := c.Refund(context.Background(), tx.ID, 0, "cash back over the counter")
	require.NoError(t, err)
	require.Equal(t, RefundManualRequired, outcome.Status)

	records, err := repo.ListRefunds(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, RefundManualRequired, records[0].Status)
}

func TestCoordinatorRefundAppointment(t *testing.T) {
	repo := NewInMemoryRepository()
	set := ProviderSet{Simulation: NewSimulationProvider(nil).WithDelay(time.Millisecond)}
	c := NewCoordinator(set, repo, nil)

	tx := seedTransaction(t, repo, "simulation", TxCompleted)

	outcome, err := c.RefundAppointment(context.Background(), tx.AppointmentID, 0, "appointment cancelled")
	require.NoError(t, err)
	require.Equal(t, RefundProcessed, outcome.Status)

	_, err = c.RefundAppointment(context.Background(), uuid.New(), 0, "nothing charged")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCoordinatorUnknownTransaction(t *testing.T) {
	repo := NewInMemoryRepository()
	c := NewCoordinator(ProviderSet{}, repo, nil)

	_, err := c.Refund(context.Background(), uuid.New(), 0, "nothing")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}
