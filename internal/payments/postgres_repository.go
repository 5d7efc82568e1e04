package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type db interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores transactions and refund records in the
// relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool (or any
// compatible querier).
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("payments: db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO payment_transactions
			(id, appointment_id, amount_agorot, currency, method, provider, provider_ref, status, invoice_id, invoice_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		tx.ID,
		tx.AppointmentID,
		tx.AmountAgorot,
		tx.Currency,
		string(tx.Method),
		tx.Provider,
		tx.ProviderRef,
		string(tx.Status),
		tx.InvoiceID,
		tx.InvoiceNumber,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("payments: insert transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, appointment_id, amount_agorot, currency, method, provider, provider_ref,
	status, invoice_id, invoice_number, created_at`

func (r *PostgresRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payments: select transaction: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) LatestSettledForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE appointment_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payments: select latest settled: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) CreateRefund(ctx context.Context, record *RefundRecord) error {
	query := `
		INSERT INTO payment_refunds (id, transaction_id, amount_agorot, reason, status, provider_refund_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		record.ID,
		record.TransactionID,
		record.AmountAgorot,
		record.Reason,
		string(record.Status),
		record.ProviderRefundID,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("payments: insert refund: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRefunds(ctx context.Context, transactionID uuid.UUID) ([]*RefundRecord, error) {
	query := `
		SELECT id, transaction_id, amount_agorot, reason, status, provider_refund_id, created_at
		FROM payment_refunds
		WHERE transaction_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("payments: list refunds: %w", err)
	}
	defer rows.Close()

	var records []*RefundRecord
	for rows.Next() {
		var (
			record RefundRecord
			status string
		)
		if err := rows.Scan(
			&record.ID,
			&record.TransactionID,
			&record.AmountAgorot,
			&record.Reason,
			&status,
			&record.ProviderRefundID,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("payments: scan refund: %w", err)
		}
		record.Status = RefundStatus(status)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payments: iterate refunds: %w", err)
	}
	return records, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		tx       Transaction
		method   string
		txStatus string
	)
	err := row.Scan(
		&tx.ID,
		&tx.AppointmentID,
		&tx.AmountAgorot,
		&tx.Currency,
		&method,
		&tx.Provider,
		&tx.ProviderRef,
		&txStatus,
		&tx.InvoiceID,
		&tx.InvoiceNumber,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Method = Method(method)
	tx.Status = TxStatus(txStatus)
	return &tx, nil
}
