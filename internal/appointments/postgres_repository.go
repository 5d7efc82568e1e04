package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tipulhub/tipul-server/internal/scheduling"
)

// db is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type db interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
// The conflict guard is an insert-if-no-overlap conditional write, so it
// stays correct across multiple server instances without a lock.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool (or any
// compatible querier).
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, confirmation_code, therapist_id, client_name, client_email, client_phone,
	service_type, start_time, end_time, duration_minutes, location, status,
	cancellation_reason, notes, meeting_url, amount_agorot, payment_status, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, confirmation_code, therapist_id, client_name, client_email, client_phone,
			service_type, start_time, end_time, duration_minutes, location, status,
			notes, meeting_url, amount_agorot, payment_status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE therapist_id = $3
			  AND status <> 'cancelled'
			  AND start_time < $9
			  AND end_time > $8
		)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.ConfirmationCode,
		appt.TherapistID,
		appt.Client.Name,
		appt.Client.Email,
		appt.Client.Phone,
		appt.ServiceType,
		appt.StartTime,
		appt.EndTime,
		appt.DurationMinutes,
		string(appt.Location),
		string(appt.Status),
		appt.Notes,
		appt.MeetingURL,
		appt.AmountAgorot,
		string(appt.PaymentStatus),
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlotConflict
	}
	if err != nil {
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE confirmation_code = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: select by code failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	query := `
		UPDATE appointments a
		SET start_time = $2, end_time = $3, duration_minutes = $4, updated_at = now()
		WHERE a.id = $1
		  AND a.status IN ('pending', 'confirmed')
		  AND NOT EXISTS (
			SELECT 1 FROM appointments o
			WHERE o.therapist_id = a.therapist_id
			  AND o.id <> a.id
			  AND o.status <> 'cancelled'
			  AND o.start_time < $3
			  AND o.end_time > $2
		  )
		RETURNING ` + appointmentColumns
	durationMinutes := int(end.Sub(start) / time.Minute)
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, start, end, durationMinutes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyMiss(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: reschedule failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string) (*Appointment, error) {
	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}
	query := `
		UPDATE appointments
		SET status = $2,
		    cancellation_reason = COALESCE(NULLIF($3, ''), cancellation_reason),
		    updated_at = now()
		WHERE id = $1 AND status = ANY($4)
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, string(to), reason, fromStrings))
	if errors.Is(err, pgx.ErrNoRows) {
		miss := r.classifyMiss(ctx, id)
		if errors.Is(miss, ErrSlotConflict) {
			// The row exists and is not terminal, the precondition simply
			// did not match.
			return nil, ErrStaleStatus
		}
		return nil, miss
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: update status failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("appointments: update payment status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListBusy(ctx context.Context, therapistID string, from, to time.Time, exclude uuid.UUID) ([]scheduling.Interval, error) {
	query := `
		SELECT start_time, end_time
		FROM appointments
		WHERE therapist_id = $1
		  AND status <> 'cancelled'
		  AND id <> $4
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, therapistID, from, to, exclude)
	if err != nil {
		return nil, fmt.Errorf("appointments: list busy failed: %w", err)
	}
	defer rows.Close()

	var busy []scheduling.Interval
	for rows.Next() {
		var interval scheduling.Interval
		if err := rows.Scan(&interval.Start, &interval.End); err != nil {
			return nil, fmt.Errorf("appointments: scan busy window: %w", err)
		}
		busy = append(busy, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate busy windows: %w", err)
	}
	return busy, nil
}

// classifyMiss distinguishes why a conditional write matched no rows.
func (r *PostgresRepository) classifyMiss(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("appointments: classify conditional miss: %w", err)
	}
	if Status(status).Terminal() {
		return ErrStaleStatus
	}
	return ErrSlotConflict
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt     Appointment
		location string
		status   string
		payment  string
	)
	err := row.Scan(
		&appt.ID,
		&appt.ConfirmationCode,
		&appt.TherapistID,
		&appt.Client.Name,
		&appt.Client.Email,
		&appt.Client.Phone,
		&appt.ServiceType,
		&appt.StartTime,
		&appt.EndTime,
		&appt.DurationMinutes,
		&location,
		&status,
		&appt.CancellationReason,
		&appt.Notes,
		&appt.MeetingURL,
		&appt.AmountAgorot,
		&payment,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.Location = Location(location)
	appt.Status = Status(status)
	appt.PaymentStatus = PaymentStatus(payment)
	return &appt, nil
}
