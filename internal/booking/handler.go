// Package booking exposes the client-facing and therapist-facing HTTP
// endpoints of the booking flow.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tipulhub/tipul-server/internal/appointments"
	"github.com/tipulhub/tipul-server/internal/ics"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/internal/practice"
	"github.com/tipulhub/tipul-server/internal/scheduling"
	"github.com/tipulhub/tipul-server/internal/tenancy"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// ProfileStore reads and writes therapist practice profiles.
type ProfileStore interface {
	Get(ctx context.Context, therapistID string) (*practice.Profile, error)
	Set(ctx context.Context, profile *practice.Profile) error
}

// Handler serves the booking endpoints: slot queries, appointment
// lifecycle, calendar export, and the therapist-side admin surface.
type Handler struct {
	service   *appointments.Service
	generator *scheduling.Generator
	profiles  ProfileStore
	exporter  *ics.Exporter
	logger    *logging.Logger
}

func NewHandler(service *appointments.Service, generator *scheduling.Generator, profiles ProfileStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:   service,
		generator: generator,
		profiles:  profiles,
		exporter:  ics.NewExporter(),
		logger:    logger,
	}
}

// Slots answers a slot query for one therapist and day.
// GET /booking/slots?therapist_id=&date=2026-09-06&duration_minutes=60&exclude=<uuid>
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	therapistID := q.Get("therapist_id")
	if therapistID == "" {
		jsonError(w, "invalid_input", "therapist_id is required", http.StatusBadRequest)
		return
	}

	day, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		jsonError(w, "invalid_input", "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	durationMinutes := 60
	if raw := q.Get("duration_minutes"); raw != "" {
		durationMinutes, err = strconv.Atoi(raw)
		if err != nil || durationMinutes < 1 {
			jsonError(w, "invalid_input", "duration_minutes must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	exclude := uuid.Nil
	if raw := q.Get("exclude"); raw != "" {
		exclude, err = uuid.Parse(raw)
		if err != nil {
			jsonError(w, "invalid_input", "exclude must be a valid appointment id", http.StatusBadRequest)
			return
		}
	}

	slots, err := h.generator.SlotsForDay(r.Context(), therapistID, day,
		time.Duration(durationMinutes)*time.Minute, exclude)
	if err != nil {
		h.logger.Error("slot query failed", "therapist_id", therapistID, "error", err)
		jsonError(w, "internal", "could not compute slots", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// Create books a new appointment from the public booking site.
// POST /booking/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointments.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}
	req.Confirmed = false
	// Clients never set their own price; the session fee comes from the
	// practice profile.
	req.AmountAgorot = 0

	appt, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"confirmation_code": appt.ConfirmationCode,
		"appointment":       appt,
	})
}

type authRequest struct {
	Email string `json:"email"`
}

// Authenticate resolves a confirmation code and email for self-service.
// POST /booking/appointments/{code}/authenticate
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Authenticate(r.Context(), code, req.Email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt})
}

type rescheduleRequest struct {
	Email        string    `json:"email"`
	NewStartTime time.Time `json:"new_start_time"`
	NewEndTime   time.Time `json:"new_end_time"`
}

// Reschedule moves an appointment to a new window.
// POST /booking/appointments/{code}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), code, req.Email, req.NewStartTime, req.NewEndTime)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt})
}

type cancelRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Cancel cancels an appointment, refunding a paid fee best-effort.
// POST /booking/appointments/{code}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Cancel(r.Context(), code, req.Email, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Resend re-sends the confirmation email.
// POST /booking/appointments/{code}/resend
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), code, req.Email); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

// Calendar serves the appointment as an iCalendar download.
// GET /booking/appointments/{code}/calendar.ics?email=
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	appt, err := h.service.Authenticate(r.Context(), code, r.URL.Query().Get("email"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	therapistName := ""
	if profile, profErr := h.profiles.Get(r.Context(), appt.TherapistID); profErr == nil {
		therapistName = profile.DisplayName
	}

	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ics.Filename(appt)))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, h.exporter.Render(appt, therapistName))
}

// AdminCreate books an appointment on behalf of the therapist, skipping
// the pending state. The therapist id comes from the auth token, never
// from the request body.
// POST /admin/appointments
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := tenancy.TherapistIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", "no therapist in context", http.StatusUnauthorized)
		return
	}

	var req appointments.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}
	req.TherapistID = therapistID
	req.Confirmed = true

	appt, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"appointment": appt})
}

type completeRequest struct {
	Method payments.Method       `json:"method"`
	Card   *payments.CardDetails `json:"card,omitempty"`
}

// AdminComplete marks the session held and charges the fee.
// POST /admin/appointments/{code}/complete
func (h *Handler) AdminComplete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}

	appt, result, err := h.service.Complete(r.Context(), code, req.Method, req.Card)
	if err != nil {
		if appt != nil {
			// The session completed but the charge did not.
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"appointment": appt,
				"error": map[string]string{
					"code":    errorCode(err),
					"message": "session completed but the charge failed",
				},
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment": appt,
		"payment":     result,
	})
}

// AdminGetProfile returns the caller's practice profile.
// GET /admin/practice/profile
func (h *Handler) AdminGetProfile(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := tenancy.TherapistIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", "no therapist in context", http.StatusUnauthorized)
		return
	}

	profile, err := h.profiles.Get(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("load profile failed", "therapist_id", therapistID, "error", err)
		jsonError(w, "internal", "could not load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// AdminSetProfile replaces the caller's practice profile.
// PUT /admin/practice/profile
func (h *Handler) AdminSetProfile(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := tenancy.TherapistIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", "no therapist in context", http.StatusUnauthorized)
		return
	}

	var profile practice.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		jsonError(w, "invalid_input", "malformed request body", http.StatusBadRequest)
		return
	}
	profile.TherapistID = therapistID

	if err := h.profiles.Set(r.Context(), &profile); err != nil {
		h.logger.Error("save profile failed", "therapist_id", therapistID, "error", err)
		jsonError(w, "internal", "could not save profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &profile)
}

// writeServiceError maps lifecycle errors onto stable HTTP codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointments.ErrInvalidInput):
		jsonError(w, "invalid_input", err.Error(), http.StatusBadRequest)
	case errors.Is(err, appointments.ErrSlotConflict):
		jsonError(w, "slot_conflict", "the requested time is no longer available", http.StatusConflict)
	case errors.Is(err, appointments.ErrWindowClosed):
		jsonError(w, "window_closed", "changes are not possible within 24 hours of the session", http.StatusConflict)
	case errors.Is(err, appointments.ErrAuthMismatch):
		jsonError(w, "auth_mismatch", "confirmation code and email do not match", http.StatusUnauthorized)
	case errors.Is(err, appointments.ErrNotFound):
		jsonError(w, "not_found", "appointment not found", http.StatusNotFound)
	case errors.Is(err, appointments.ErrStaleStatus):
		jsonError(w, "stale_status", "the appointment is already completed or cancelled", http.StatusConflict)
	default:
		h.logger.Error("booking request failed", "error", err)
		jsonError(w, "internal", "internal error", http.StatusInternalServerError)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, payments.ErrInvalidPaymentData):
		return "invalid_payment_data"
	case errors.Is(err, payments.ErrProviderFailure):
		return "provider_failure"
	case errors.Is(err, payments.ErrSimulationDisabled):
		return "simulation_disabled"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
