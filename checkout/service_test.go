package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/cardsave/infra/opensearch"
	"github.com/mstgnz/cardsave/provider"
)

// stubGateway returns a scripted response from CreatePayment
type stubGateway struct {
	resp  *provider.PaymentResponse
	err   error
	panic bool
	calls int
}

func (g *stubGateway) Initialize(map[string]string) error                 { return nil }
func (g *stubGateway) GetRequiredConfig(string) []provider.ConfigField    { return nil }
func (g *stubGateway) ValidateConfig(map[string]string) error             { return nil }
func (g *stubGateway) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	g.calls++
	if g.panic {
		panic("gateway exploded")
	}
	return g.resp, g.err
}

// memoryStore is an in-memory OrderStore with injectable failures
type memoryStore struct {
	mu         sync.Mutex
	nextID     int64
	records    map[int64]*PaymentRecord
	notes      map[int64][]string
	failCreate bool
	failNote   bool
	failPaid   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[int64]*PaymentRecord),
		notes:   make(map[int64][]string),
	}
}

func (m *memoryStore) CreatePendingPayment(ctx context.Context, record *PaymentRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return 0, errors.New("disk full")
	}
	m.nextID++
	record.ID = m.nextID
	record.Status = provider.StatusPending
	if record.OrderKey == "" {
		record.OrderKey = fmt.Sprintf("key-%d", m.nextID)
	}
	m.records[m.nextID] = record
	return m.nextID, nil
}

func (m *memoryStore) AddNote(ctx context.Context, paymentID int64, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNote {
		return errors.New("disk full")
	}
	m.notes[paymentID] = append(m.notes[paymentID], note)
	return nil
}

func (m *memoryStore) MarkPaid(ctx context.Context, paymentID int64, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPaid {
		return errors.New("disk full")
	}
	record, ok := m.records[paymentID]
	if !ok {
		return fmt.Errorf("payment %d not found", paymentID)
	}
	record.Status = provider.StatusPublished
	record.TransactionID = transactionID
	return nil
}

func (m *memoryStore) GetPayment(ctx context.Context, paymentID int64) (*PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %d not found", paymentID)
	}
	return record, nil
}

func (m *memoryStore) GetNotes(ctx context.Context, paymentID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notes[paymentID], nil
}

// capturingRecorder collects gateway error and payment log documents
type capturingRecorder struct {
	mu       sync.Mutex
	errors   []opensearch.GatewayErrorLog
	payments []opensearch.PaymentLog
	fail     bool
}

func (r *capturingRecorder) LogGatewayError(ctx context.Context, entry opensearch.GatewayErrorLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("index unreachable")
	}
	r.errors = append(r.errors, entry)
	return nil
}

func (r *capturingRecorder) LogPayment(ctx context.Context, entry opensearch.PaymentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, entry)
	return nil
}

func approvedGateway() *stubGateway {
	return &stubGateway{
		resp: &provider.PaymentResponse{
			Success:       true,
			Status:        provider.StatusSuccessful,
			AuthCode:      "123456",
			TransactionID: "240516123456789012",
			OrderID:       "order-1001",
		},
	}
}

func serviceRequest() provider.PaymentRequest {
	return provider.PaymentRequest{
		OrderID:  "order-1001",
		Currency: "GBP",
		Amount:   10.55,
		Customer: provider.Customer{Name: "Jane", Surname: "Smith", Email: "jane@example.com"},
		ClientIP: "203.0.113.7",
	}
}

func TestProcessPaymentSuccess(t *testing.T) {
	store := newMemoryStore()
	recorder := &capturingRecorder{}
	svc := NewService("cardsave", approvedGateway(), store, recorder, "/success", "/checkout")

	result := svc.ProcessPayment(context.Background(), serviceRequest())

	require.True(t, result.Success)
	assert.Equal(t, "/success", result.RedirectURL)
	assert.Equal(t, "123456", result.AuthCode)
	assert.Empty(t, result.ErrorCode)

	// Exactly one record, published, with one note carrying the auth code
	require.Len(t, store.records, 1)
	record, err := store.GetPayment(context.Background(), result.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPublished, record.Status)
	assert.Equal(t, "240516123456789012", record.TransactionID)
	assert.Equal(t, "Jane Smith", record.BuyerName)

	notes, _ := store.GetNotes(context.Background(), result.PaymentID)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "AuthCode: 123456")

	assert.Empty(t, recorder.errors)
	require.Len(t, recorder.payments, 1)
	assert.Equal(t, "successful", recorder.payments[0].Status)
}

func TestProcessPaymentDeclined(t *testing.T) {
	gateway := &stubGateway{
		resp: &provider.PaymentResponse{Success: false, Status: provider.StatusFailed},
		err:  &provider.DeclinedError{Code: 5, Reason: "Payment failed: Your bank declined the transaction."},
	}
	store := newMemoryStore()
	recorder := &capturingRecorder{}
	svc := NewService("cardsave", gateway, store, recorder, "/success", "/checkout")

	result := svc.ProcessPayment(context.Background(), serviceRequest())

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeCardDeclined, result.ErrorCode)
	assert.Equal(t, "Your card was declined!", result.Message)
	assert.Equal(t, "/checkout", result.RedirectURL)

	// No partial record on a decline
	assert.Empty(t, store.records)

	require.Len(t, recorder.errors, 1)
	assert.Equal(t, "order-1001", recorder.errors[0].OrderID)
	assert.Contains(t, recorder.errors[0].Detail, "bank declined")
}

func TestProcessPaymentGatewayUnavailable(t *testing.T) {
	gateway := &stubGateway{err: provider.ErrGatewayUnavailable}
	store := newMemoryStore()
	recorder := &capturingRecorder{}
	svc := NewService("cardsave", gateway, store, recorder, "/success", "/checkout")

	result := svc.ProcessPayment(context.Background(), serviceRequest())

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeCardDeclined, result.ErrorCode)
	assert.Empty(t, store.records)
	require.Len(t, recorder.errors, 1)
	assert.Equal(t, "Gateway unavailable", recorder.errors[0].Title)
}

func TestProcessPaymentValidationError(t *testing.T) {
	gateway := &stubGateway{err: provider.NewValidationError("currency", "currency is required")}
	store := newMemoryStore()
	recorder := &capturingRecorder{}
	svc := NewService("cardsave", gateway, store, recorder, "/success", "/checkout")

	result := svc.ProcessPayment(context.Background(), serviceRequest())

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeInvalidRequest, result.ErrorCode)
	assert.Empty(t, store.records)
	// Input errors are not gateway errors
	assert.Empty(t, recorder.errors)
}

func TestProcessPaymentRecordingFailure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *memoryStore)
	}{
		{"create fails", func(m *memoryStore) { m.failCreate = true }},
		{"note fails", func(m *memoryStore) { m.failNote = true }},
		{"mark paid fails", func(m *memoryStore) { m.failPaid = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			tt.mutate(store)
			recorder := &capturingRecorder{}
			svc := NewService("cardsave", approvedGateway(), store, recorder, "/success", "/checkout")

			result := svc.ProcessPayment(context.Background(), serviceRequest())

			assert.False(t, result.Success)
			assert.Equal(t, ErrCodeRecordingFailure, result.ErrorCode)
			assert.Equal(t, "/checkout", result.RedirectURL)

			require.Len(t, recorder.errors, 1)
			assert.Equal(t, "Approved payment not recorded", recorder.errors[0].Title)
		})
	}
}

func TestProcessPaymentRecoversPanic(t *testing.T) {
	gateway := &stubGateway{panic: true}
	store := newMemoryStore()
	recorder := &capturingRecorder{}
	svc := NewService("cardsave", gateway, store, recorder, "/success", "/checkout")

	var result *Result
	require.NotPanics(t, func() {
		result = svc.ProcessPayment(context.Background(), serviceRequest())
	})

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeCardDeclined, result.ErrorCode)
	assert.Equal(t, "/checkout", result.RedirectURL)
	require.Len(t, recorder.errors, 1)
	assert.Contains(t, recorder.errors[0].Detail, "gateway exploded")
}

func TestProcessPaymentRecorderFailureDoesNotChangeOutcome(t *testing.T) {
	gateway := &stubGateway{err: provider.ErrGatewayUnavailable}
	store := newMemoryStore()
	recorder := &capturingRecorder{fail: true}
	svc := NewService("cardsave", gateway, store, recorder, "/success", "/checkout")

	result := svc.ProcessPayment(context.Background(), serviceRequest())
	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeCardDeclined, result.ErrorCode)
}
