package checkout

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/cardsave/provider"
)

func newTestStore(t *testing.T) *SQLiteOrderStore {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteOrderStore(db)
	require.NoError(t, err)
	return store
}

func pendingRecord() *PaymentRecord {
	return &PaymentRecord{
		OrderID:    "order-1001",
		Amount:     10.55,
		Currency:   "GBP",
		BuyerName:  "Jane Smith",
		BuyerEmail: "jane@example.com",
		BuyerIP:    "203.0.113.7",
		Items: []provider.Item{
			{ID: "sku-1", Name: "Standard ticket", Price: 10.55, Quantity: 1},
		},
	}
}

func TestCreatePendingPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := pendingRecord()
	id, err := store.CreatePendingPayment(ctx, record)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.NotEmpty(t, record.OrderKey)

	loaded, err := store.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "order-1001", loaded.OrderID)
	assert.Equal(t, provider.StatusPending, loaded.Status)
	assert.Equal(t, record.OrderKey, loaded.OrderKey)
	assert.Equal(t, 10.55, loaded.Amount)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Standard ticket", loaded.Items[0].Name)
	assert.Nil(t, loaded.PaidAt)
}

func TestCreatePendingPaymentRequiresOrderID(t *testing.T) {
	store := newTestStore(t)

	record := pendingRecord()
	record.OrderID = ""

	_, err := store.CreatePendingPayment(context.Background(), record)
	assert.Error(t, err)
}

func TestMarkPaid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreatePendingPayment(ctx, pendingRecord())
	require.NoError(t, err)

	require.NoError(t, store.MarkPaid(ctx, id, "240516123456789012"))

	loaded, err := store.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPublished, loaded.Status)
	assert.Equal(t, "240516123456789012", loaded.TransactionID)
	require.NotNil(t, loaded.PaidAt)

	// A published record cannot be paid again
	assert.Error(t, store.MarkPaid(ctx, id, "duplicate-ref"))
}

func TestMarkPaidUnknownPayment(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.MarkPaid(context.Background(), 9999, "ref"))
}

func TestAddAndGetNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreatePendingPayment(ctx, pendingRecord())
	require.NoError(t, err)

	require.NoError(t, store.AddNote(ctx, id, "Payment approved. AuthCode: 123456, CrossReference: 240516123456789012"))
	require.NoError(t, store.AddNote(ctx, id, "Receipt emailed"))

	notes, err := store.GetNotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Contains(t, notes[0], "AuthCode: 123456")
	assert.Equal(t, "Receipt emailed", notes[1])
}

func TestGetPaymentNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetPayment(context.Background(), 42)
	assert.Error(t, err)
}
