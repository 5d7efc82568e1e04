package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

// anyArgs builds a wildcard matcher per positional parameter; pgxmock
// requires the argument count to line up even when values don't matter.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func appointmentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "confirmation_code", "therapist_id", "client_name", "client_email", "client_phone",
		"service_type", "start_time", "end_time", "duration_minutes", "location", "status",
		"cancellation_reason", "notes", "meeting_url", "amount_agorot", "payment_status",
		"created_at", "updated_at",
	})
}

func addAppointmentRow(rows *pgxmock.Rows, id uuid.UUID, code string, start, end time.Time, status string) *pgxmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(id, code, "t-1", "Dana Levi", "dana@example.com", "+972501234567",
		"individual therapy", start, end, 60, "clinic", status,
		"", "", "", int64(35000), "unpaid", now, now)
}

func TestPostgresCreateReturnsSlotConflictOnOverlap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)

	appt := &Appointment{
		ID:               uuid.New(),
		ConfirmationCode: "ABCDEFGH23",
		TherapistID:      "t-1",
		Client:           ClientInfo{Name: "Dana Levi", Email: "dana@example.com"},
		ServiceType:      "individual therapy",
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		DurationMinutes:  60,
		Location:         LocationClinic,
		Status:           StatusPending,
		AmountAgorot:     35000,
		PaymentStatus:    PaymentUnpaid,
	}

	// The conditional insert matched no rows: an overlapping appointment
	// already exists.
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(16)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}))

	err = repo.Create(context.Background(), appt)
	require.ErrorIs(t, err, ErrSlotConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateSucceeds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)
	created := time.Now().UTC()

	appt := &Appointment{
		ID:               uuid.New(),
		ConfirmationCode: "ABCDEFGH23",
		TherapistID:      "t-1",
		Client:           ClientInfo{Name: "Dana Levi", Email: "dana@example.com"},
		ServiceType:      "individual therapy",
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		DurationMinutes:  60,
		Location:         LocationClinic,
		Status:           StatusPending,
		AmountAgorot:     35000,
		PaymentStatus:    PaymentUnpaid,
	}

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(16)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	require.NoError(t, repo.Create(context.Background(), appt))
	require.Equal(t, created, appt.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByCodeNormalizesCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE confirmation_code").
		WithArgs("ABCDEFGH23").
		WillReturnRows(addAppointmentRow(appointmentRows(), id, "ABCDEFGH23", start, start.Add(time.Hour), "confirmed"))

	appt, err := repo.GetByCode(context.Background(), "  abcdefgh23 ")
	require.NoError(t, err)
	require.Equal(t, id, appt.ID)
	require.Equal(t, StatusConfirmed, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByCodeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE confirmation_code").
		WithArgs("NOSUCHCODE").
		WillReturnRows(appointmentRows())

	_, err = repo.GetByCode(context.Background(), "NOSUCHCODE")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRescheduleClassifiesMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	start := time.Date(2026, time.September, 6, 14, 0, 0, 0, time.UTC)

	// Conditional update misses, follow-up read shows a cancelled row.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(4)...).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT status FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("cancelled"))

	_, err = repo.Reschedule(context.Background(), id, start, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrStaleStatus)

	// Miss with a live row means the target window was taken.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(4)...).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT status FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("confirmed"))

	_, err = repo.Reschedule(context.Background(), id, start, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrSlotConflict)

	// Miss with no row at all.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(4)...).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT status FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))

	_, err = repo.Reschedule(context.Background(), id, start, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, "cancelled", "client request", []string{"pending", "confirmed"}).
		WillReturnRows(addAppointmentRow(appointmentRows(), id, "ABCDEFGH23", start, start.Add(time.Hour), "cancelled"))

	appt, err := repo.UpdateStatus(context.Background(), id,
		[]Status{StatusPending, StatusConfirmed}, StatusCancelled, "client request")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatusStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(4)...).
		WillReturnRows(appointmentRows())
	mock.ExpectQuery("SELECT status FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("completed"))

	_, err = repo.UpdateStatus(context.Background(), id,
		[]Status{StatusPending, StatusConfirmed}, StatusCancelled, "")
	require.ErrorIs(t, err, ErrStaleStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdatePaymentStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments SET payment_status").
		WithArgs(id, "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdatePaymentStatus(context.Background(), id, PaymentPaid))

	mock.ExpectExec("UPDATE appointments SET payment_status").
		WithArgs(id, "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdatePaymentStatus(context.Background(), id, PaymentPaid)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListBusy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	from := time.Date(2026, time.September, 6, 9, 0, 0, 0, time.UTC)
	to := from.Add(8 * time.Hour)

	mock.ExpectQuery("SELECT start_time, end_time").
		WithArgs("t-1", from, to, uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time"}).
			AddRow(from.Add(time.Hour), from.Add(2*time.Hour)))

	busy, err := repo.ListBusy(context.Background(), "t-1", from, to, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, busy, 1)
	require.True(t, busy[0].Start.Equal(from.Add(time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}
