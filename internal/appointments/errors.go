package appointments

import "errors"

var (
	// ErrInvalidInput is returned when a request fails shape validation
	// before any business logic runs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotConflict is returned when the requested window is no longer
	// available at commit time.
	ErrSlotConflict = errors.New("slot no longer available")

	// ErrWindowClosed is returned when a reschedule or cancellation is
	// attempted inside the protection period before the session.
	ErrWindowClosed = errors.New("too close to appointment start")

	// ErrAuthMismatch is returned when self-service authentication fails.
	// It deliberately does not reveal whether the confirmation code exists.
	ErrAuthMismatch = errors.New("confirmation code and email do not match")

	// ErrNotFound is returned when no appointment matches the identifier.
	ErrNotFound = errors.New("appointment not found")

	// ErrStaleStatus is returned when a mutation loses a race against a
	// concurrent transition and the appointment is already finalized.
	ErrStaleStatus = errors.New("appointment already completed or cancelled")
)
