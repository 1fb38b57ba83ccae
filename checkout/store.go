package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mstgnz/cardsave/provider"
)

// PaymentRecord is the persisted record of a checkout payment. A record is
// created in pending state only after the gateway has approved the charge,
// then marked paid with the gateway references attached.
type PaymentRecord struct {
	ID            int64                  `json:"id"`
	OrderID       string                 `json:"orderId"`
	OrderKey      string                 `json:"orderKey"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	BuyerName     string                 `json:"buyerName,omitempty"`
	BuyerEmail    string                 `json:"buyerEmail,omitempty"`
	BuyerIP       string                 `json:"buyerIp,omitempty"`
	Items         []provider.Item        `json:"items,omitempty"`
	Status        provider.PaymentStatus `json:"status"`
	TransactionID string                 `json:"transactionId,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	PaidAt        *time.Time             `json:"paidAt,omitempty"`
}

// OrderStore persists payment records and their audit notes
type OrderStore interface {
	CreatePendingPayment(ctx context.Context, record *PaymentRecord) (int64, error)
	AddNote(ctx context.Context, paymentID int64, note string) error
	MarkPaid(ctx context.Context, paymentID int64, transactionID string) error
	GetPayment(ctx context.Context, paymentID int64) (*PaymentRecord, error)
	GetNotes(ctx context.Context, paymentID int64) ([]string, error)
}

// SQLiteOrderStore is the OrderStore implementation over the shared SQLite
// database.
type SQLiteOrderStore struct {
	db *sql.DB
}

// NewSQLiteOrderStore prepares the payments schema on the given database
func NewSQLiteOrderStore(db *sql.DB) (*SQLiteOrderStore, error) {
	store := &SQLiteOrderStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize payments schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteOrderStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		order_key TEXT NOT NULL UNIQUE,
		amount REAL NOT NULL,
		currency TEXT NOT NULL,
		buyer_name TEXT,
		buyer_email TEXT,
		buyer_ip TEXT,
		items TEXT,
		status TEXT NOT NULL,
		transaction_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		paid_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments(order_id);
	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);

	CREATE TABLE IF NOT EXISTS payment_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id INTEGER NOT NULL REFERENCES payments(id),
		note TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_payment_notes_payment ON payment_notes(payment_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// CreatePendingPayment inserts a new record in pending state and returns its
// ID. The record's OrderKey is generated when absent.
func (s *SQLiteOrderStore) CreatePendingPayment(ctx context.Context, record *PaymentRecord) (int64, error) {
	if record.OrderID == "" {
		return 0, fmt.Errorf("payment record requires an order ID")
	}
	if record.OrderKey == "" {
		record.OrderKey = uuid.New().String()
	}

	items, err := json.Marshal(record.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payment items: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (order_id, order_key, amount, currency, buyer_name, buyer_email, buyer_ip, items, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.OrderID, record.OrderKey, record.Amount, record.Currency,
		record.BuyerName, record.BuyerEmail, record.BuyerIP, string(items),
		string(provider.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read payment record id: %w", err)
	}

	record.ID = id
	record.Status = provider.StatusPending
	return id, nil
}

// AddNote appends an audit note to a payment record
func (s *SQLiteOrderStore) AddNote(ctx context.Context, paymentID int64, note string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payment_notes (payment_id, note) VALUES (?, ?)", paymentID, note)
	if err != nil {
		return fmt.Errorf("failed to add note to payment %d: %w", paymentID, err)
	}
	return nil
}

// MarkPaid transitions a pending record to published with its gateway
// transaction reference.
func (s *SQLiteOrderStore) MarkPaid(ctx context.Context, paymentID int64, transactionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, transaction_id = ?, paid_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		string(provider.StatusPublished), transactionID, paymentID, string(provider.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment %d paid: %w", paymentID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm payment %d update: %w", paymentID, err)
	}
	if affected == 0 {
		return fmt.Errorf("payment %d is not pending", paymentID)
	}
	return nil
}

// GetPayment loads a payment record by ID
func (s *SQLiteOrderStore) GetPayment(ctx context.Context, paymentID int64) (*PaymentRecord, error) {
	var record PaymentRecord
	var items sql.NullString
	var transactionID sql.NullString
	var paidAt sql.NullTime
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, order_key, amount, currency, buyer_name, buyer_email, buyer_ip,
		       items, status, transaction_id, created_at, paid_at
		FROM payments WHERE id = ?`, paymentID).Scan(
		&record.ID, &record.OrderID, &record.OrderKey, &record.Amount, &record.Currency,
		&record.BuyerName, &record.BuyerEmail, &record.BuyerIP,
		&items, &status, &transactionID, &record.CreatedAt, &paidAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %d not found", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}

	record.Status = provider.PaymentStatus(status)
	if transactionID.Valid {
		record.TransactionID = transactionID.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		record.PaidAt = &t
	}
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &record.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items for payment %d: %w", paymentID, err)
		}
	}

	return &record, nil
}

// GetNotes returns the audit notes of a payment in insertion order
func (s *SQLiteOrderStore) GetNotes(ctx context.Context, paymentID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT note FROM payment_notes WHERE payment_id = ? ORDER BY id", paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes for payment %d: %w", paymentID, err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}
