package payments

import "errors"

var (
	// ErrInvalidPaymentData is returned when validation fails before any
	// network call is made.
	ErrInvalidPaymentData = errors.New("invalid payment data")

	// ErrProviderFailure wraps a rejection or error from an external
	// gateway. The gateway's own message is folded into the wrapping
	// error text, never swallowed.
	ErrProviderFailure = errors.New("payment provider failure")

	// ErrSimulationDisabled is returned when a simulation charge is
	// requested but the deployment does not allow it.
	ErrSimulationDisabled = errors.New("simulated payments are not enabled")

	// ErrNoNativeInvoicing is returned by providers without an invoicing
	// API; the service falls back to a locally issued invoice.
	ErrNoNativeInvoicing = errors.New("provider has no native invoicing")

	// ErrTransactionNotFound is returned when no transaction matches the
	// identifier.
	ErrTransactionNotFound = errors.New("transaction not found")
)
