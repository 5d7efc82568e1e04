// Package payments presents one processing contract over heterogeneous
// settlement back-ends: a simulation provider, record-only cash and bank
// transfer, and two external card gateways (Meshulam and Tranzila).
package payments

import (
	"time"

	"github.com/google/uuid"
)

// Method selects the settlement back-end for a single charge.
type Method string

const (
	MethodSimulation   Method = "simulation"
	MethodCreditCard   Method = "credit_card"
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) valid() bool {
	switch m {
	case MethodSimulation, MethodCreditCard, MethodCash, MethodBankTransfer:
		return true
	}
	return false
}

// TxStatus is the settlement state of one transaction.
type TxStatus string

const (
	TxCompleted TxStatus = "completed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
)

// CardDetails carries raw card fields for a credit_card charge. They are
// transient: never persisted, never logged, and dropped as soon as the
// gateway call returns.
type CardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	HolderName  string `json:"holder_name"`
}

// Request is the uniform charge request.
type Request struct {
	AppointmentID uuid.UUID    `json:"appointment_id"`
	AmountAgorot  int64        `json:"amount_agorot"`
	Currency      string       `json:"currency"`
	Method        Method       `json:"method"`
	ClientName    string       `json:"client_name"`
	ClientEmail   string       `json:"client_email"`
	ClientPhone   string       `json:"client_phone"`
	Description   string       `json:"description"`
	Card          *CardDetails `json:"card,omitempty"`
}

// Result is the uniform charge outcome.
type Result struct {
	Success       bool     `json:"success"`
	TransactionID string   `json:"transaction_id"`
	ProviderRef   string   `json:"provider_ref"`
	Status        TxStatus `json:"status"`
	Provider      string   `json:"provider"`
	Invoice       *Invoice `json:"invoice,omitempty"`
	// Warning carries non-fatal degradation, e.g. a failed invoice
	// issuance after a successful charge.
	Warning string `json:"warning,omitempty"`
}

// Invoice is the optional artifact issued after a successful charge.
type Invoice struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Provider string `json:"provider"`
}

// InvoiceRequest asks a provider to issue an invoice for a settled charge.
type InvoiceRequest struct {
	ProviderRef  string
	AmountAgorot int64
	Currency     string
	ClientName   string
	ClientEmail  string
	Description  string
}

// StatusLookup is the answer to a status query. Native is false when the
// provider has no server-side status API; callers must not assume
// freshness in that case.
type StatusLookup struct {
	Status TxStatus `json:"status"`
	Native bool     `json:"native"`
}

// RefundStatus describes how a refund was (or was not) executed.
type RefundStatus string

const (
	RefundProcessed      RefundStatus = "processed"
	RefundManualRequired RefundStatus = "manual_required"
)

// RefundRequest asks for money back against a prior charge.
type RefundRequest struct {
	ProviderRef  string
	AmountAgorot int64
	Currency     string
	Reason       string
}

// RefundOutcome reports one refund attempt. When the provider has no
// refund API the status is manual_required and ProviderRef points the
// operator at the original transaction.
type RefundOutcome struct {
	RefundID    string       `json:"refund_id"`
	Status      RefundStatus `json:"status"`
	ProviderRef string       `json:"provider_ref"`
}

// Transaction is the persisted record of one settlement attempt. It is
// immutable after creation; refunds live in their own records.
type Transaction struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	AmountAgorot  int64     `json:"amount_agorot"`
	Currency      string    `json:"currency"`
	Method        Method    `json:"method"`
	Provider      string    `json:"provider"`
	ProviderRef   string    `json:"provider_ref"`
	Status        TxStatus  `json:"status"`
	InvoiceID     string    `json:"invoice_id,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RefundRecord is the durable audit trail of one refund attempt, linked
// to the transaction it refunds.
type RefundRecord struct {
	ID               uuid.UUID    `json:"id"`
	TransactionID    uuid.UUID    `json:"transaction_id"`
	AmountAgorot     int64        `json:"amount_agorot"`
	Reason           string       `json:"reason"`
	Status           RefundStatus `json:"status"`
	ProviderRefundID string       `json:"provider_refund_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}
