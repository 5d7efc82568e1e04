// Package practice holds therapist-level configuration: working hours,
// timezone, and booking defaults. Profiles feed the slot generator.
package practice

import (
	"fmt"
	"time"
)

// DayHours represents the working hours for a single day.
// Nil means the therapist does not take sessions that day.
type DayHours struct {
	Start string `json:"start"` // "09:00" in 24-hour format
	End   string `json:"end"`   // "17:00" in 24-hour format
}

// WeeklyHours maps weekdays to their working hours. An Israeli practice
// typically works Sunday through Thursday.
type WeeklyHours struct {
	Sunday    *DayHours `json:"sunday,omitempty"`
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
}

// For returns the hours configured for the given weekday.
func (w *WeeklyHours) For(day time.Weekday) *DayHours {
	switch day {
	case time.Sunday:
		return w.Sunday
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	default:
		return w.Saturday
	}
}

// Profile is the per-therapist configuration record.
type Profile struct {
	TherapistID        string      `json:"therapist_id"`
	DisplayName        string      `json:"display_name"`
	Timezone           string      `json:"timezone"`
	Hours              WeeklyHours `json:"hours"`
	AutoConfirm        bool        `json:"auto_confirm"`
	SessionPriceAgorot int64       `json:"session_price_agorot"`
}

// DefaultProfile returns a profile with standard Sunday-Thursday hours.
func DefaultProfile(therapistID string) *Profile {
	workday := &DayHours{Start: "09:00", End: "17:00"}
	return &Profile{
		TherapistID: therapistID,
		Timezone:    "Asia/Jerusalem",
		Hours: WeeklyHours{
			Sunday:    workday,
			Monday:    workday,
			Tuesday:   workday,
			Wednesday: workday,
			Thursday:  workday,
		},
		SessionPriceAgorot: 35000,
	}
}

// Location resolves the profile timezone, falling back to UTC on a bad name.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WindowFor resolves the working-hours window for the calendar date of t
// in the profile's timezone. ok is false on a day off.
func (p *Profile) WindowFor(t time.Time) (start, end time.Time, ok bool) {
	loc := p.Location()
	local := t.In(loc)
	hours := p.Hours.For(local.Weekday())
	if hours == nil {
		return time.Time{}, time.Time{}, false
	}

	start, err := at(local, hours.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = at(local, hours.End, loc)
	if err != nil || !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func at(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("practice: bad clock value %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}
