// Package scheduling turns a therapist's working hours into bookable
// candidate windows. Slots are ephemeral: computed on demand, never stored.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tipulhub/tipul-server/internal/practice"
)

var tracer = otel.Tracer("tipul.internal.scheduling")

// Interval is an occupied window on a therapist's calendar.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open interval overlap with [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}

// Slot is a candidate appointment window.
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}

// ProfileSource supplies working-hours configuration.
type ProfileSource interface {
	Get(ctx context.Context, therapistID string) (*practice.Profile, error)
}

// BusySource lists occupied windows for a therapist. Cancelled
// appointments must not be reported; exclude skips one appointment id
// (used while rescheduling it).
type BusySource interface {
	ListBusy(ctx context.Context, therapistID string, from, to time.Time, exclude uuid.UUID) ([]Interval, error)
}

// Generator computes slot sequences. It has no side effects beyond a
// read of the profile and the current calendar.
type Generator struct {
	profiles      ProfileSource
	busy          BusySource
	lookaheadDays int
	now           func() time.Time
}

// NewGenerator constructs a generator with the given booking horizon.
func NewGenerator(profiles ProfileSource, busy BusySource, lookaheadDays int) *Generator {
	if lookaheadDays <= 0 {
		lookaheadDays = 30
	}
	return &Generator{
		profiles:      profiles,
		busy:          busy,
		lookaheadDays: lookaheadDays,
		now:           time.Now,
	}
}

// WithNow overrides the clock (for tests).
func (g *Generator) WithNow(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// SlotsForDay partitions the therapist's working hours on the calendar
// date of day into consecutive windows of the requested duration and
// marks each available or not. A date beyond the booking horizon yields
// an empty sequence with no error. A trailing partial window is never
// offered.
func (g *Generator) SlotsForDay(ctx context.Context, therapistID string, day time.Time, duration time.Duration, exclude uuid.UUID) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.slots_for_day")
	defer span.End()
	span.SetAttributes(
		attribute.String("tipul.therapist_id", therapistID),
		attribute.Int64("tipul.duration_minutes", int64(duration/time.Minute)),
	)

	if duration < time.Minute {
		return nil, fmt.Errorf("scheduling: duration must be at least one minute")
	}

	profile, err := g.profiles.Get(ctx, therapistID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load profile: %w", err)
	}

	loc := profile.Location()
	if dateOf(day.In(loc)).After(dateOf(g.now().In(loc).AddDate(0, 0, g.lookaheadDays))) {
		return []Slot{}, nil
	}

	windowStart, windowEnd, open := profile.WindowFor(day)
	if !open {
		return []Slot{}, nil
	}

	occupied, err := g.busy.ListBusy(ctx, therapistID, windowStart, windowEnd, exclude)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list busy windows: %w", err)
	}

	var slots []Slot
	for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
		end := start.Add(duration)
		slots = append(slots, Slot{
			StartTime: start,
			EndTime:   end,
			Available: !anyOverlap(occupied, start, end),
		})
	}
	return slots, nil
}

// WindowAvailable reports whether the exact [start, end) window is one
// of the available slots for its day. Used as the pre-check before a
// commit-time conditional write.
func (g *Generator) WindowAvailable(ctx context.Context, therapistID string, start, end time.Time, exclude uuid.UUID) (bool, error) {
	slots, err := g.SlotsForDay(ctx, therapistID, start, end.Sub(start), exclude)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.StartTime.Equal(start) && slot.EndTime.Equal(end) {
			return slot.Available, nil
		}
	}
	return false, nil
}

func anyOverlap(occupied []Interval, start, end time.Time) bool {
	for _, interval := range occupied {
		if interval.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
