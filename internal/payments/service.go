package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tipulhub/tipul-server/internal/observability/metrics"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// Service routes charges to the configured provider, persists the
// resulting transaction, and issues invoices after successful charges.
type Service struct {
	limits      Limits
	providers   ProviderSet
	repo        Repository
	invoicing   bool
	logMetadata bool
	logger      *logging.Logger
	metrics     *metrics.PaymentMetrics
	tracer      trace.Tracer
	now         func() time.Time
}

func NewService(limits Limits, providers ProviderSet, repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		limits:    limits,
		providers: providers,
		repo:      repo,
		logger:    logger,
		tracer:    otel.Tracer("tipul.internal.payments"),
		now:       time.Now,
	}
}

// WithInvoicing turns on post-charge invoice issuance.
func (s *Service) WithInvoicing(enabled bool) *Service {
	s.invoicing = enabled
	return s
}

// WithMetadataLogging enables logging of non-sensitive charge metadata
// (amount, method, masked PAN). Card numbers and CVVs are never logged
// regardless of this setting.
func (s *Service) WithMetadataLogging(enabled bool) *Service {
	s.logMetadata = enabled
	return s
}

func (s *Service) WithMetrics(m *metrics.PaymentMetrics) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Charge validates the request, dispatches it to the provider selected
// by its method, and persists the transaction. A charge that settles but
// fails to produce an invoice still succeeds; the degradation is
// reported in Result.Warning.
func (s *Service) Charge(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Charge",
		trace.WithAttributes(
			attribute.String("payment.method", string(req.Method)),
			attribute.Int64("payment.amount_agorot", req.AmountAgorot),
		))
	defer span.End()

	if err := validateRequest(req, s.limits, s.now()); err != nil {
		return nil, err
	}

	provider, err := s.providers.ForMethod(req.Method)
	if err != nil {
		return nil, err
	}

	if s.logMetadata {
		attrs := []any{
			"method", req.Method,
			"provider", provider.Name(),
			"amount_agorot", req.AmountAgorot,
			"appointment_id", req.AppointmentID,
		}
		if req.Card != nil {
			attrs = append(attrs, "card", maskedPAN(req.Card.Number))
		}
		s.logger.Info("processing charge", attrs...)
	}

	started := s.now()
	result, err := provider.ProcessPayment(ctx, req)
	s.metrics.ObserveChargeLatency(provider.Name(), time.Since(started).Seconds())
	if err != nil {
		s.metrics.ObserveCharge(string(req.Method), string(TxFailed))
		s.logger.Error("charge failed",
			"provider", provider.Name(),
			"method", req.Method,
			"error", err)
		return nil, err
	}

	tx := &Transaction{
		ID:            uuid.New(),
		AppointmentID: req.AppointmentID,
		AmountAgorot:  req.AmountAgorot,
		Currency:      s.limits.Currency,
		Method:        req.Method,
		Provider:      provider.Name(),
		ProviderRef:   result.ProviderRef,
		Status:        result.Status,
		CreatedAt:     s.now(),
	}

	if s.invoicing && result.Success {
		invoice, invErr := s.issueInvoice(ctx, provider, req, result.ProviderRef)
		if invErr != nil {
			s.metrics.ObserveInvoiceFailure()
			s.logger.Warn("invoice issuance failed after successful charge",
				"provider", provider.Name(),
				"provider_ref", result.ProviderRef,
				"error", invErr)
			result.Warning = "charge succeeded but invoice issuance failed"
		} else {
			result.Invoice = invoice
			tx.InvoiceID = invoice.ID
			tx.InvoiceNumber = invoice.Number
		}
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("payments: persist transaction: %w", err)
	}

	result.TransactionID = tx.ID.String()
	s.metrics.ObserveCharge(string(req.Method), string(result.Status))
	if s.logMetadata {
		s.logger.Info("charge settled",
			"transaction_id", tx.ID,
			"provider", provider.Name(),
			"status", result.Status)
	}
	return result, nil
}

// issueInvoice asks the charging provider first and falls back to the
// internal invoice sequence when the provider has no invoicing API.
func (s *Service) issueInvoice(ctx context.Context, provider Provider, req Request, providerRef string) (*Invoice, error) {
	invReq := InvoiceRequest{
		ProviderRef:  providerRef,
		AmountAgorot: req.AmountAgorot,
		Currency:     s.limits.Currency,
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		Description:  req.Description,
	}
	invoice, err := provider.CreateInvoice(ctx, invReq)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, ErrNoNativeInvoicing) {
		return nil, err
	}
	if s.providers.Internal == nil {
		return nil, err
	}
	return s.providers.Internal.CreateInvoice(ctx, invReq)
}

// Status looks up the current state of a stored transaction, consulting
// the provider that processed it. Providers without a status API answer
// from the stored record with Native=false.
func (s *Service) Status(ctx context.Context, transactionID uuid.UUID) (*Transaction, StatusLookup, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Status",
		trace.WithAttributes(attribute.String("payment.transaction_id", transactionID.String())))
	defer span.End()

	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, StatusLookup{}, err
	}

	provider, err := s.providers.ForName(tx.Provider)
	if err != nil {
		// Provider no longer configured; answer from the record.
		return tx, StatusLookup{Status: tx.Status, Native: false}, nil
	}

	lookup, err := provider.GetStatus(ctx, tx.ProviderRef)
	if err != nil {
		return nil, StatusLookup{}, err
	}
	if !lookup.Native {
		lookup.Status = tx.Status
	}
	return tx, lookup, nil
}
