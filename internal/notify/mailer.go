package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tipulhub/tipul-server/internal/appointments"
	"github.com/tipulhub/tipul-server/internal/practice"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// BookingMailer composes lifecycle emails for appointments and hands
// them to an EmailSender. It satisfies the lifecycle's Notifier
// contract.
type BookingMailer struct {
	sender   EmailSender
	profiles profileSource
	baseURL  string
	logger   *logging.Logger
}

type profileSource interface {
	Get(ctx context.Context, therapistID string) (*practice.Profile, error)
}

// NewBookingMailer creates a mailer. baseURL is the public address of
// the booking site, used to build the self-service link.
func NewBookingMailer(sender EmailSender, profiles profileSource, baseURL string, logger *logging.Logger) *BookingMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingMailer{
		sender:   sender,
		profiles: profiles,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

func (m *BookingMailer) AppointmentConfirmed(ctx context.Context, appt *appointments.Appointment) error {
	subject := "Your appointment is booked"
	if appt.Status == appointments.StatusPending {
		subject = "Your appointment request was received"
	}
	return m.send(ctx, appt, subject, m.detailsBody(ctx, appt,
		"Here are your appointment details:"))
}

func (m *BookingMailer) AppointmentRescheduled(ctx context.Context, appt *appointments.Appointment) error {
	return m.send(ctx, appt, "Your appointment was rescheduled", m.detailsBody(ctx, appt,
		"Your appointment has moved. The updated details:"))
}

func (m *BookingMailer) AppointmentCancelled(ctx context.Context, appt *appointments.Appointment) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", appt.Client.Name)
	fmt.Fprintf(&b, "Your %s appointment on %s has been cancelled.\n",
		appt.ServiceType, m.formatTime(ctx, appt))
	if appt.CancellationReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", appt.CancellationReason)
	}
	b.WriteString("\nIf this was a mistake, please book again or contact the practice.\n")
	return m.send(ctx, appt, "Your appointment was cancelled", b.String())
}

func (m *BookingMailer) detailsBody(ctx context.Context, appt *appointments.Appointment, lead string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s\n\n", appt.Client.Name, lead)
	fmt.Fprintf(&b, "Service:  %s\n", appt.ServiceType)
	fmt.Fprintf(&b, "When:     %s\n", m.formatTime(ctx, appt))
	fmt.Fprintf(&b, "Where:    %s\n", appt.Location.Label())
	if appt.MeetingURL != "" {
		fmt.Fprintf(&b, "Join:     %s\n", appt.MeetingURL)
	}
	fmt.Fprintf(&b, "Code:     %s\n", appt.ConfirmationCode)
	if m.baseURL != "" {
		fmt.Fprintf(&b, "\nManage your booking: %s/booking/manage?code=%s\n",
			m.baseURL, appt.ConfirmationCode)
	}
	b.WriteString("\nKeep the confirmation code; you will need it together with your email address to reschedule or cancel.\n")
	return b.String()
}

// formatTime renders the start time in the therapist's timezone when
// the profile is reachable, UTC otherwise.
func (m *BookingMailer) formatTime(ctx context.Context, appt *appointments.Appointment) string {
	loc := time.UTC
	if m.profiles != nil {
		if profile, err := m.profiles.Get(ctx, appt.TherapistID); err == nil {
			loc = profile.Location()
		}
	}
	return appt.StartTime.In(loc).Format("Monday, 2 January 2006 at 15:04")
}

func (m *BookingMailer) send(ctx context.Context, appt *appointments.Appointment, subject, body string) error {
	if m.sender == nil {
		m.logger.Debug("no email sender configured, skipping",
			"appointment_id", appt.ID, "subject", subject)
		return nil
	}
	return m.sender.Send(ctx, EmailMessage{
		To:      appt.Client.Email,
		ToName:  appt.Client.Name,
		Subject: subject,
		Body:    body,
	})
}

var _ appointments.Notifier = (*BookingMailer)(nil)
