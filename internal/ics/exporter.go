// Package ics renders appointments as iCalendar documents for client
// download. It writes the small slice of RFC 5545 the booking flow
// needs; it does not parse calendars.
package ics

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tipulhub/tipul-server/internal/appointments"
)

// ContentType is the media type for a rendered document.
const ContentType = "text/calendar; charset=utf-8"

const timestampLayout = "20060102T150405Z"

// Exporter renders appointment calendar files. The product identifier
// goes into the PRODID line and the UID domain.
type Exporter struct {
	prodID string
	domain string
	now    func() time.Time
}

// NewExporter creates an exporter with the default product identity.
func NewExporter() *Exporter {
	return &Exporter{
		prodID: "-//TipulHub//Tipul Server//EN",
		domain: "tipul-server",
		now:    time.Now,
	}
}

// WithNow overrides the clock used for DTSTAMP (for tests).
func (e *Exporter) WithNow(now func() time.Time) *Exporter {
	if now != nil {
		e.now = now
	}
	return e
}

// Filename returns the download filename for an appointment.
func Filename(appt *appointments.Appointment) string {
	return fmt.Sprintf("appointment-%s.ics", appt.ConfirmationCode)
}

// Render produces the calendar document for one appointment. All times
// are emitted in UTC; therapistName goes into the event summary.
func (e *Exporter) Render(appt *appointments.Appointment, therapistName string) string {
	summary := appt.ServiceType
	if therapistName != "" {
		summary = fmt.Sprintf("%s with %s", appt.ServiceType, therapistName)
	}

	location := appt.Location.Label()
	if appt.Location == appointments.LocationOnline && appt.MeetingURL != "" {
		location = appt.MeetingURL
	}

	description := appt.Notes
	if appt.MeetingURL != "" && appt.Location == appointments.LocationOnline {
		if description != "" {
			description += "\n"
		}
		description += "Join: " + appt.MeetingURL
	}

	var b strings.Builder
	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+e.prodID)
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	writeLine(&b, "BEGIN:VEVENT")
	writeLine(&b, fmt.Sprintf("UID:%s@%s", appt.ID, e.domain))
	writeLine(&b, "DTSTAMP:"+e.now().UTC().Format(timestampLayout))
	writeLine(&b, "DTSTART:"+appt.StartTime.UTC().Format(timestampLayout))
	writeLine(&b, "DTEND:"+appt.EndTime.UTC().Format(timestampLayout))
	writeLine(&b, "SUMMARY:"+escape(summary))
	if description != "" {
		writeLine(&b, "DESCRIPTION:"+escape(description))
	}
	writeLine(&b, "LOCATION:"+escape(location))
	writeLine(&b, "STATUS:"+eventStatus(appt.Status))
	if appt.Client.Name != "" {
		writeLine(&b, fmt.Sprintf("ATTENDEE;CN=%s:mailto:%s", quoteParam(appt.Client.Name), appt.Client.Email))
	}
	writeLine(&b, "END:VEVENT")
	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

func eventStatus(s appointments.Status) string {
	switch s {
	case appointments.StatusCancelled:
		return "CANCELLED"
	case appointments.StatusPending:
		return "TENTATIVE"
	default:
		return "CONFIRMED"
	}
}

// escape applies RFC 5545 text escaping: backslash first, then literal
// newlines, semicolons and commas.
func escape(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"\r\n", `\n`,
		"\n", `\n`,
		";", `\;`,
		",", `\,`,
	)
	return r.Replace(text)
}

// Unescape reverses escape; exported for round-trip verification.
func Unescape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '\\' || i+1 == len(text) {
			b.WriteByte(text[i])
			continue
		}
		i++
		switch text[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}

// quoteParam makes a value safe for a property parameter position.
func quoteParam(value string) string {
	if strings.ContainsAny(value, ":;,") {
		return `"` + strings.ReplaceAll(value, `"`, "") + `"`
	}
	return value
}

// writeLine emits one content line with CRLF termination, folding lines
// longer than 75 octets as the format requires.
func writeLine(b *strings.Builder, line string) {
	const limit = 75
	for len(line) > limit {
		// Never split a multi-octet UTF-8 sequence across a fold.
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
