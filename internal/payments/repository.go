package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists transactions and refund records. Transactions are
// write-once; refunds are separate linked records so the original
// settlement is never rewritten.
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// LatestSettledForAppointment returns the most recent completed
	// transaction for the appointment, or ErrTransactionNotFound.
	LatestSettledForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Transaction, error)
	CreateRefund(ctx context.Context, record *RefundRecord) error
	ListRefunds(ctx context.Context, transactionID uuid.UUID) ([]*RefundRecord, error)
}

// InMemoryRepository backs tests and local development.
type InMemoryRepository struct {
	mu      sync.Mutex
	txs     map[uuid.UUID]*Transaction
	refunds map[uuid.UUID][]*RefundRecord
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		txs:     make(map[uuid.UUID]*Transaction),
		refunds: make(map[uuid.UUID][]*RefundRecord),
	}
}

func (r *InMemoryRepository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.CreatedAt = time.Now().UTC()
	stored := *tx
	r.txs[tx.ID] = &stored
	return nil
}

func (r *InMemoryRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (r *InMemoryRepository) LatestSettledForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *Transaction
	for _, tx := range r.txs {
		if tx.AppointmentID != appointmentID || tx.Status != TxCompleted {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, ErrTransactionNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *InMemoryRepository) CreateRefund(ctx context.Context, record *RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.CreatedAt = time.Now().UTC()
	stored := *record
	r.refunds[record.TransactionID] = append(r.refunds[record.TransactionID], &stored)
	return nil
}

func (r *InMemoryRepository) ListRefunds(ctx context.Context, transactionID uuid.UUID) ([]*RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.refunds[transactionID]
	out := make([]*RefundRecord, len(records))
	for i, record := range records {
		copied := *record
		out[i] = &copied
	}
	return out, nil
}
