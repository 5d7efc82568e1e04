package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tipulhub/tipul-server/internal/observability/metrics"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// Coordinator executes refunds against prior transactions. Providers
// without a refund API yield a manual_required outcome rather than an
// error: the operator refunds out of band and the record keeps the
// audit trail either way.
type Coordinator struct {
	providers ProviderSet
	repo      Repository
	logger    *logging.Logger
	metrics   *metrics.PaymentMetrics
	tracer    trace.Tracer
	now       func() time.Time
}

func NewCoordinator(providers ProviderSet, repo Repository, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		providers: providers,
		repo:      repo,
		logger:    logger,
		tracer:    otel.Tracer("tipul.internal.payments.refund"),
		now:       time.Now,
	}
}

func (c *Coordinator) WithMetrics(m *metrics.PaymentMetrics) *Coordinator {
	c.metrics = m
	return c
}

// Refund attempts to return amountAgorot against a stored transaction.
// Zero amount means a full refund. Every attempt is recorded, including
// manual_required ones.
func (c *Coordinator) Refund(ctx context.Context, transactionID uuid.UUID, amountAgorot int64, reason string) (*RefundOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "payments.Refund",
		trace.WithAttributes(
			attribute.String("payment.transaction_id", transactionID.String()),
			attribute.Int64("payment.refund_agorot", amountAgorot),
		))
	defer span.End()

	tx, err := c.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != TxCompleted {
		return nil, fmt.Errorf("%w: transaction %s is %s, only completed transactions are refundable",
			ErrInvalidPaymentData, tx.ID, tx.Status)
	}
	if amountAgorot == 0 {
		amountAgorot = tx.AmountAgorot
	}
	if amountAgorot < 0 || amountAgorot > tx.AmountAgorot {
		return nil, fmt.Errorf("%w: refund amount %d exceeds charged amount %d",
			ErrInvalidPaymentData, amountAgorot, tx.AmountAgorot)
	}

	provider, err := c.providers.ForName(tx.Provider)
	if err != nil {
		return nil, err
	}

	outcome, err := provider.Refund(ctx, RefundRequest{
		ProviderRef:  tx.ProviderRef,
		AmountAgorot: amountAgorot,
		Currency:     tx.Currency,
		Reason:       reason,
	})
	if err != nil {
		c.metrics.ObserveRefund(string(TxFailed))
		return nil, err
	}

	record := &RefundRecord{
		ID:               uuid.New(),
		TransactionID:    tx.ID,
		AmountAgorot:     amountAgorot,
		Reason:           reason,
		Status:           outcome.Status,
		ProviderRefundID: outcome.RefundID,
		CreatedAt:        c.now(),
	}
	if err := c.repo.CreateRefund(ctx, record); err != nil {
		return nil, fmt.Errorf("payments: persist refund: %w", err)
	}

	c.metrics.ObserveRefund(string(outcome.Status))
	c.logger.Info("refund recorded",
		"transaction_id", tx.ID,
		"refund_id", record.ID,
		"status", outcome.Status,
		"amount_agorot", amountAgorot)
	return outcome, nil
}

// RefundAppointment refunds the latest settled transaction of an
// appointment, used when a paid booking is cancelled.
func (c *Coordinator) RefundAppointment(ctx context.Context, appointmentID uuid.UUID, amountAgorot int64, reason string) (*RefundOutcome, error) {
	tx, err := c.repo.LatestSettledForAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return c.Refund(ctx, tx.ID, amountAgorot, reason)
}
