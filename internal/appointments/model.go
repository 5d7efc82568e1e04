package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment. Transitions are
// monotonic: nothing ever returns to pending, and completed/cancelled
// are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Location is where the session takes place.
type Location string

const (
	LocationClinic        Location = "clinic"
	LocationHome          Location = "home"
	LocationOnline        Location = "online"
	LocationTherapistHome Location = "therapist_home"
	LocationOutdoor       Location = "outdoor"
	LocationOther         Location = "other"
)

var locationLabels = map[Location]string{
	LocationClinic:        "Clinic",
	LocationHome:          "Client's home",
	LocationOnline:        "Online session",
	LocationTherapistHome: "Therapist's home",
	LocationOutdoor:       "Outdoor",
	LocationOther:         "Other",
}

// Label returns a human-readable name for the location.
func (l Location) Label() string {
	if label, ok := locationLabels[l]; ok {
		return label
	}
	return locationLabels[LocationOther]
}

func (l Location) valid() bool {
	_, ok := locationLabels[l]
	return ok
}

// PaymentStatus tracks settlement of the session fee.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
)

// ClientInfo identifies the person the session is booked for.
type ClientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Appointment is a scheduled session. The confirmation code is the only
// client-facing identifier; the UUID stays internal.
type Appointment struct {
	ID                 uuid.UUID     `json:"id"`
	ConfirmationCode   string        `json:"confirmation_code"`
	TherapistID        string        `json:"therapist_id"`
	Client             ClientInfo    `json:"client"`
	ServiceType        string        `json:"service_type"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	DurationMinutes    int           `json:"duration_minutes"`
	Location           Location      `json:"location"`
	Status             Status        `json:"status"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	MeetingURL         string        `json:"meeting_url,omitempty"`
	AmountAgorot       int64         `json:"amount_agorot"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Duration returns the session length.
func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// CreateRequest carries everything needed to book a session.
type CreateRequest struct {
	TherapistID  string     `json:"therapist_id"`
	ServiceType  string     `json:"service_type"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Location     Location   `json:"location"`
	Client       ClientInfo `json:"client"`
	Notes        string     `json:"notes"`
	MeetingURL   string     `json:"meeting_url"`
	AmountAgorot int64      `json:"amount_agorot"`

	// Confirmed skips the pending state. Set for therapist-side manual
	// scheduling; client bookings rely on the profile's auto-confirm flag.
	Confirmed bool `json:"-"`
}

// Validate rejects malformed requests before any business logic runs.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.TherapistID) == "" {
		return fmt.Errorf("%w: therapist_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.ServiceType) == "" {
		return fmt.Errorf("%w: service_type is required", ErrInvalidInput)
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", ErrInvalidInput)
	}
	if !r.EndTime.After(r.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}
	if r.EndTime.Sub(r.StartTime)%time.Minute != 0 {
		return fmt.Errorf("%w: duration must be a whole number of minutes", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Client.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Client.Email) == "" {
		return fmt.Errorf("%w: client email is required", ErrInvalidInput)
	}
	if r.Location == "" {
		r.Location = LocationClinic
	}
	if !r.Location.valid() {
		return fmt.Errorf("%w: unknown location %q", ErrInvalidInput, r.Location)
	}
	if r.AmountAgorot < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}
