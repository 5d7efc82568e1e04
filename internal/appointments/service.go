package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tipulhub/tipul-server/internal/observability/metrics"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/internal/scheduling"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// Notifier delivers lifecycle emails. Delivery is best-effort: a failed
// send never rolls back the state transition it announces.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, appt *Appointment) error
	AppointmentRescheduled(ctx context.Context, appt *Appointment) error
	AppointmentCancelled(ctx context.Context, appt *Appointment) error
}

// Charger settles the session fee when a session completes.
type Charger interface {
	Charge(ctx context.Context, req payments.Request) (*payments.Result, error)
}

// Refunder returns money for a paid appointment that gets cancelled.
type Refunder interface {
	RefundAppointment(ctx context.Context, appointmentID uuid.UUID, amountAgorot int64, reason string) (*payments.RefundOutcome, error)
}

// defaultCancelWindow is the protection period before a session during
// which self-service reschedule and cancellation are refused.
const defaultCancelWindow = 24 * time.Hour

// Service is the appointment state machine: create, authenticate,
// reschedule, cancel, resend, complete. Transitions are guarded by
// conditional writes in the repository, never by an application lock.
type Service struct {
	repo         Repository
	generator    *scheduling.Generator
	profiles     scheduling.ProfileSource
	notifier     Notifier
	charger      Charger
	refunder     Refunder
	cancelWindow time.Duration
	logger       *logging.Logger
	metrics      *metrics.BookingMetrics
	tracer       trace.Tracer
	now          func() time.Time
}

func NewService(repo Repository, generator *scheduling.Generator, profiles scheduling.ProfileSource, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:         repo,
		generator:    generator,
		profiles:     profiles,
		cancelWindow: defaultCancelWindow,
		logger:       logger,
		tracer:       otel.Tracer("tipul.internal.appointments"),
		now:          time.Now,
	}
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithCharger(c Charger) *Service {
	s.charger = c
	return s
}

func (s *Service) WithRefunder(r Refunder) *Service {
	s.refunder = r
	return s
}

// WithCancelWindow overrides the protection period before a session.
func (s *Service) WithCancelWindow(d time.Duration) *Service {
	if d > 0 {
		s.cancelWindow = d
	}
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create books a new appointment. The slot is re-checked against the
// calendar, then committed with a conditional insert; the insert is the
// authoritative conflict guard, so two concurrent requests for the same
// window cannot both land.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create",
		trace.WithAttributes(attribute.String("tipul.therapist_id", req.TherapistID)))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.StartTime.After(s.now()) {
		return nil, fmt.Errorf("%w: start_time must be in the future", ErrInvalidInput)
	}

	profile, err := s.profiles.Get(ctx, req.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("appointments: load profile: %w", err)
	}

	available, err := s.generator.WindowAvailable(ctx, req.TherapistID, req.StartTime, req.EndTime, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if !available {
		s.metrics.ObserveSlotConflict()
		return nil, ErrSlotConflict
	}

	status := StatusPending
	if req.Confirmed || profile.AutoConfirm {
		status = StatusConfirmed
	}
	amount := req.AmountAgorot
	if amount == 0 {
		amount = profile.SessionPriceAgorot
	}

	code, err := NewConfirmationCode()
	if err != nil {
		return nil, fmt.Errorf("appointments: generate confirmation code: %w", err)
	}

	appt := &Appointment{
		ID:               uuid.New(),
		ConfirmationCode: code,
		TherapistID:      req.TherapistID,
		Client:           req.Client,
		ServiceType:      req.ServiceType,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		DurationMinutes:  int(req.EndTime.Sub(req.StartTime) / time.Minute),
		Location:         req.Location,
		Status:           status,
		Notes:            req.Notes,
		MeetingURL:       req.MeetingURL,
		AmountAgorot:     amount,
		PaymentStatus:    PaymentUnpaid,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveSlotConflict()
		}
		return nil, err
	}

	s.metrics.ObserveCreated(string(status))
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"therapist_id", appt.TherapistID,
		"status", appt.Status,
		"start_time", appt.StartTime)

	if status == StatusConfirmed {
		s.notify(ctx, appt, s.notifierConfirmed)
	}
	return appt, nil
}

// Authenticate resolves a confirmation code for self-service access. A
// wrong code and a wrong email are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, code, email string) (*Appointment, error) {
	appt, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAuthMismatch
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), appt.Client.Email) {
		return nil, ErrAuthMismatch
	}
	return appt, nil
}

// Reschedule moves an authenticated appointment to a new window. The
// generator pre-check filters obvious conflicts; the repository's
// conditional update is the authoritative guard.
func (s *Service) Reschedule(ctx context.Context, code, email string, newStart, newEnd time.Time) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Reschedule")
	defer span.End()

	appt, err := s.Authenticate(ctx, code, email)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrStaleStatus
	}
	if err := s.checkWindow(appt); err != nil {
		return nil, err
	}
	if newStart.IsZero() || !newEnd.After(newStart) {
		return nil, fmt.Errorf("%w: new end_time must be after new start_time", ErrInvalidInput)
	}
	if !newStart.After(s.now()) {
		return nil, fmt.Errorf("%w: new start_time must be in the future", ErrInvalidInput)
	}

	available, err := s.generator.WindowAvailable(ctx, appt.TherapistID, newStart, newEnd, appt.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		s.metrics.ObserveSlotConflict()
		return nil, ErrSlotConflict
	}

	updated, err := s.repo.Reschedule(ctx, appt.ID, newStart, newEnd)
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveSlotConflict()
		}
		return nil, err
	}

	s.metrics.ObserveReschedule()
	s.logger.Info("appointment rescheduled",
		"appointment_id", updated.ID,
		"start_time", updated.StartTime)
	s.notify(ctx, updated, s.notifierRescheduled)
	return updated, nil
}

// CancelResult reports a cancellation and its best-effort refund.
type CancelResult struct {
	Appointment   *Appointment            `json:"appointment"`
	Refund        *payments.RefundOutcome `json:"refund,omitempty"`
	RefundWarning string                  `json:"refund_warning,omitempty"`
}

// Cancel transitions an authenticated appointment to cancelled. When
// the session fee was already paid, a refund is attempted; a refund
// failure degrades to a warning, never blocks the cancellation.
func (s *Service) Cancel(ctx context.Context, code, email, reason string) (*CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Cancel")
	defer span.End()

	appt, err := s.Authenticate(ctx, code, email)
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(appt); err != nil {
		return nil, err
	}

	cancelled, err := s.repo.UpdateStatus(ctx, appt.ID,
		[]Status{StatusPending, StatusConfirmed}, StatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCancellation()
	s.logger.Info("appointment cancelled",
		"appointment_id", cancelled.ID,
		"reason", reason)

	result := &CancelResult{Appointment: cancelled}
	if cancelled.PaymentStatus == PaymentPaid && s.refunder != nil {
		outcome, refundErr := s.refunder.RefundAppointment(ctx, cancelled.ID, 0, reason)
		if refundErr != nil {
			s.logger.Warn("refund after cancellation failed",
				"appointment_id", cancelled.ID,
				"error", refundErr)
			result.RefundWarning = "cancellation succeeded but the refund failed; contact the practice"
		} else {
			result.Refund = outcome
		}
	}

	s.notify(ctx, cancelled, s.notifierCancelled)
	return result, nil
}

// ResendConfirmation re-dispatches the confirmation email. It changes
// no state and may be called any number of times.
func (s *Service) ResendConfirmation(ctx context.Context, code, email string) error {
	appt, err := s.Authenticate(ctx, code, email)
	if err != nil {
		return err
	}
	if appt.Status == StatusCancelled {
		return ErrStaleStatus
	}
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.AppointmentConfirmed(ctx, appt); err != nil {
		return fmt.Errorf("appointments: resend confirmation: %w", err)
	}
	return nil
}

// Complete marks a session as held and charges the session fee. The
// transition commits before the charge, so a gateway failure leaves a
// completed appointment with an unpaid fee rather than an unfinished
// state machine.
func (s *Service) Complete(ctx context.Context, code string, method payments.Method, card *payments.CardDetails) (*Appointment, *payments.Result, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Complete")
	defer span.End()

	appt, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	completed, err := s.repo.UpdateStatus(ctx, appt.ID,
		[]Status{StatusPending, StatusConfirmed}, StatusCompleted, "")
	if err != nil {
		return nil, nil, err
	}

	if s.charger == nil || completed.PaymentStatus == PaymentPaid || completed.AmountAgorot == 0 {
		return completed, nil, nil
	}

	result, err := s.charger.Charge(ctx, payments.Request{
		AppointmentID: completed.ID,
		AmountAgorot:  completed.AmountAgorot,
		Currency:      "ILS",
		Method:        method,
		ClientName:    completed.Client.Name,
		ClientEmail:   completed.Client.Email,
		ClientPhone:   completed.Client.Phone,
		Description:   completed.ServiceType,
		Card:          card,
	})
	if err != nil {
		return completed, nil, fmt.Errorf("appointments: charge on completion: %w", err)
	}

	settlement := PaymentPaid
	if result.Status == payments.TxPending {
		settlement = PaymentPartiallyPaid
	}
	if err := s.repo.UpdatePaymentStatus(ctx, completed.ID, settlement); err != nil {
		return completed, result, fmt.Errorf("appointments: record payment status: %w", err)
	}
	completed.PaymentStatus = settlement
	return completed, result, nil
}

// checkWindow enforces the protection period before the session start.
func (s *Service) checkWindow(appt *Appointment) error {
	if appt.StartTime.Sub(s.now()) <= s.cancelWindow {
		return ErrWindowClosed
	}
	return nil
}

type notifyFunc func(context.Context, *Appointment) error

func (s *Service) notifierConfirmed(ctx context.Context, appt *Appointment) error {
	return s.notifier.AppointmentConfirmed(ctx, appt)
}

func (s *Service) notifierRescheduled(ctx context.Context, appt *Appointment) error {
	return s.notifier.AppointmentRescheduled(ctx, appt)
}

func (s *Service) notifierCancelled(ctx context.Context, appt *Appointment) error {
	return s.notifier.AppointmentCancelled(ctx, appt)
}

func (s *Service) notify(ctx context.Context, appt *Appointment, send notifyFunc) {
	if s.notifier == nil {
		return
	}
	if err := send(ctx, appt); err != nil {
		s.logger.Warn("lifecycle email failed",
			"appointment_id", appt.ID,
			"error", err)
	}
}
