package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tipulhub/tipul-server/pkg/logging"
)

// Handler serves the therapist-side payment endpoints: manual charges,
// status lookups, and refunds.
type Handler struct {
	service     *Service
	coordinator *Coordinator
	repo        Repository
	logger      *logging.Logger
}

func NewHandler(service *Service, coordinator *Coordinator, repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, coordinator: coordinator, repo: repo, logger: logger}
}

// Charge runs a manual charge outside the completion flow.
// POST /admin/payments/charge
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		paymentError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Charge(r.Context(), req)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writePaymentJSON(w, http.StatusOK, result)
}

// Status reports the stored transaction alongside the gateway's answer
// where a native lookup exists.
// GET /admin/payments/{id}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		paymentError(w, "invalid_input", "id must be a valid transaction id", http.StatusBadRequest)
		return
	}

	tx, lookup, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writePaymentJSON(w, http.StatusOK, map[string]any{
		"transaction": tx,
		"status":      lookup.Status,
		"native":      lookup.Native,
	})
}

type refundRequest struct {
	AmountAgorot int64  `json:"amount_agorot"`
	Reason       string `json:"reason"`
}

// Refund reverses a settled charge, fully or partially.
// POST /admin/payments/{id}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		paymentError(w, "invalid_input", "id must be a valid transaction id", http.StatusBadRequest)
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		paymentError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.coordinator.Refund(r.Context(), id, req.AmountAgorot, req.Reason)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writePaymentJSON(w, http.StatusOK, outcome)
}

// Refunds lists the refund trail of one transaction.
// GET /admin/payments/{id}/refunds
func (h *Handler) Refunds(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		paymentError(w, "invalid_input", "id must be a valid transaction id", http.StatusBadRequest)
		return
	}

	records, err := h.repo.ListRefunds(r.Context(), id)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writePaymentJSON(w, http.StatusOK, map[string]any{"refunds": records})
}

func (h *Handler) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPaymentData):
		paymentError(w, "invalid_payment_data", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSimulationDisabled):
		paymentError(w, "simulation_disabled", "simulated payments are not enabled", http.StatusForbidden)
	case errors.Is(err, ErrTransactionNotFound):
		paymentError(w, "not_found", "transaction not found", http.StatusNotFound)
	case errors.Is(err, ErrProviderFailure):
		paymentError(w, "provider_failure", "the payment gateway rejected the request", http.StatusBadGateway)
	default:
		h.logger.Error("payment request failed", "error", err)
		paymentError(w, "internal", "internal error", http.StatusInternalServerError)
	}
}

func writePaymentJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func paymentError(w http.ResponseWriter, code, message string, status int) {
	writePaymentJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
