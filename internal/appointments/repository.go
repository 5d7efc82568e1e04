package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tipulhub/tipul-server/internal/scheduling"
)

// Repository persists appointments. Implementations must make Create and
// Reschedule atomic conditional writes: the overlap check and the write
// happen as one operation, so a concurrent booking for the same window
// loses with ErrSlotConflict instead of corrupting the calendar.
type Repository interface {
	// Create inserts the appointment unless an overlapping non-cancelled
	// appointment exists for the therapist. Returns ErrSlotConflict on
	// overlap.
	Create(ctx context.Context, appt *Appointment) error

	// GetByCode loads an appointment by confirmation code.
	GetByCode(ctx context.Context, code string) (*Appointment, error)

	// Reschedule moves the appointment to [start, end) if its status is
	// not terminal and the new window is free. Returns ErrSlotConflict,
	// ErrStaleStatus, or ErrNotFound accordingly.
	Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error)

	// UpdateStatus transitions the appointment to the target status only
	// if its current status is one of from. Returns ErrStaleStatus when
	// the precondition no longer holds.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error)

	// UpdatePaymentStatus records settlement progress.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error

	// ListBusy reports occupied (non-cancelled) windows overlapping
	// [from, to), skipping the excluded appointment id. Satisfies
	// scheduling.BusySource.
	ListBusy(ctx context.Context, therapistID string, from, to time.Time, exclude uuid.UUID) ([]scheduling.Interval, error)
}

// InMemoryRepository is a mutex-guarded map-backed repository used in
// tests and local development.
type InMemoryRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*Appointment
	byCode map[string]uuid.UUID
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[uuid.UUID]*Appointment),
		byCode: make(map[string]uuid.UUID),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.byID {
		if other.TherapistID != appt.TherapistID || other.Status == StatusCancelled {
			continue
		}
		if appt.StartTime.Before(other.EndTime) && appt.EndTime.After(other.StartTime) {
			return ErrSlotConflict
		}
	}

	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	stored := *appt
	r.byID[appt.ID] = &stored
	r.byCode[appt.ConfirmationCode] = appt.ID
	return nil
}

func (r *InMemoryRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *InMemoryRepository) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status.Terminal() {
		return nil, ErrStaleStatus
	}
	for _, other := range r.byID {
		if other.ID == id || other.TherapistID != appt.TherapistID || other.Status == StatusCancelled {
			continue
		}
		if start.Before(other.EndTime) && end.After(other.StartTime) {
			return nil, ErrSlotConflict
		}
	}

	appt.StartTime = start
	appt.EndTime = end
	appt.DurationMinutes = int(end.Sub(start) / time.Minute)
	appt.UpdatedAt = time.Now().UTC()
	copied := *appt
	return &copied, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(appt.Status, from) {
		return nil, ErrStaleStatus
	}

	appt.Status = to
	if reason != "" {
		appt.CancellationReason = reason
	}
	appt.UpdatedAt = time.Now().UTC()
	copied := *appt
	return &copied, nil
}

func (r *InMemoryRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	appt.PaymentStatus = status
	appt.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) ListBusy(ctx context.Context, therapistID string, from, to time.Time, exclude uuid.UUID) ([]scheduling.Interval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var busy []scheduling.Interval
	for _, appt := range r.byID {
		if appt.TherapistID != therapistID || appt.Status == StatusCancelled || appt.ID == exclude {
			continue
		}
		if appt.StartTime.Before(to) && appt.EndTime.After(from) {
			busy = append(busy, scheduling.Interval{Start: appt.StartTime, End: appt.EndTime})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
