package ics

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tipulhub/tipul-server/internal/appointments"
)

func testAppointment() *appointments.Appointment {
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)
	return &appointments.Appointment{
		ID:               uuid.MustParse("a2d7d8a4-3b1e-4f27-9c70-15a2f2e60001"),
		ConfirmationCode: "ABCDEFGH23",
		TherapistID:      "t-1",
		Client: appointments.ClientInfo{
			Name:  "Dana Levi",
			Email: "dana@example.com",
		},
		ServiceType: "individual therapy",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Location:    appointments.LocationClinic,
		Status:      appointments.StatusConfirmed,
	}
}

// unfold reverses line folding so assertions can look at logical lines.
func unfold(doc string) string {
	return strings.ReplaceAll(doc, "\r\n ", "")
}

func TestRenderBasicDocument(t *testing.T) {
	e := NewExporter().WithNow(func() time.Time {
		return time.Date(2026, time.August, 30, 8, 0, 0, 0, time.UTC)
	})
	appt := testAppointment()

	doc := unfold(e.Render(appt, "Yael Cohen"))

	require.Contains(t, doc, "BEGIN:VCALENDAR\r\n")
	require.Contains(t, doc, "UID:a2d7d8a4-3b1e-4f27-9c70-15a2f2e60001@tipul-server\r\n")
	require.Contains(t, doc, "DTSTAMP:20260830T080000Z\r\n")
	require.Contains(t, doc, "DTSTART:20260906T100000Z\r\n")
	require.Contains(t, doc, "DTEND:20260906T110000Z\r\n")
	require.Contains(t, doc, "SUMMARY:individual therapy with Yael Cohen\r\n")
	require.Contains(t, doc, "LOCATION:Clinic\r\n")
	require.Contains(t, doc, "STATUS:CONFIRMED\r\n")
	require.Contains(t, doc, "ATTENDEE;CN=Dana Levi:mailto:dana@example.com\r\n")
	require.True(t, strings.HasSuffix(doc, "END:VCALENDAR\r\n"))
}

func TestRenderConvertsToUTC(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	appt := testAppointment()
	appt.StartTime = time.Date(2026, time.September, 6, 13, 0, 0, 0, jerusalem) // UTC+3
	appt.EndTime = appt.StartTime.Add(time.Hour)

	doc := unfold(NewExporter().Render(appt, ""))
	require.Contains(t, doc, "DTSTART:20260906T100000Z\r\n")
}

func TestDescriptionRoundTrip(t *testing.T) {
	appt := testAppointment()
	appt.Notes = "bring forms; room 3, second floor\nring twice"

	doc := unfold(NewExporter().Render(appt, ""))

	var descLine string
	for _, line := range strings.Split(doc, "\r\n") {
		if strings.HasPrefix(line, "DESCRIPTION:") {
			descLine = strings.TrimPrefix(line, "DESCRIPTION:")
		}
	}
	require.NotEmpty(t, descLine)
	require.Contains(t, descLine, `\;`)
	require.Contains(t, descLine, `\,`)
	require.Contains(t, descLine, `\n`)
	require.Equal(t, appt.Notes, Unescape(descLine))
}

func TestEscapeBackslash(t *testing.T) {
	require.Equal(t, `a\\b`, escape(`a\b`))
	require.Equal(t, `a\b`, Unescape(`a\\b`))
}

func TestOnlineSessionUsesMeetingURL(t *testing.T) {
	appt := testAppointment()
	appt.Location = appointments.LocationOnline
	appt.MeetingURL = "https://meet.example.com/abc"

	doc := unfold(NewExporter().Render(appt, ""))
	require.Contains(t, doc, "LOCATION:https://meet.example.com/abc\r\n")
	require.Contains(t, doc, `Join: https://meet.example.com/abc`)
}

func TestCancelledStatus(t *testing.T) {
	appt := testAppointment()
	appt.Status = appointments.StatusCancelled

	doc := unfold(NewExporter().Render(appt, ""))
	require.Contains(t, doc, "STATUS:CANCELLED\r\n")
}

func TestLongLinesAreFolded(t *testing.T) {
	appt := testAppointment()
	appt.Notes = strings.Repeat("long note text ", 20)

	doc := NewExporter().Render(appt, "")
	for _, line := range strings.Split(doc, "\r\n") {
		require.LessOrEqual(t, len(line), 76, "folded lines stay within the octet limit")
	}
}

func TestFoldingKeepsRunesIntact(t *testing.T) {
	appt := testAppointment()
	appt.Notes = strings.Repeat("שלום ", 40)

	doc := NewExporter().Render(appt, "")
	for _, line := range strings.Split(doc, "\r\n") {
		require.LessOrEqual(t, len(line), 76, "folded lines stay within the octet limit")
		require.True(t, utf8.ValidString(line), "a fold must not split a multi-byte rune: %q", line)
	}
	require.Contains(t, unfold(doc), strings.TrimSpace(escape(appt.Notes)))
}

func TestFilename(t *testing.T) {
	require.Equal(t, "appointment-ABCDEFGH23.ics", Filename(testAppointment()))
}
