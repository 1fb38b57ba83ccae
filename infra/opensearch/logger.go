package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// PaymentLog represents a structured payment attempt log entry
type PaymentLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Provider      string    `json:"provider"`
	RequestID     string    `json:"request_id"`
	OrderID       string    `json:"order_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	Status        string    `json:"status,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	Message       string    `json:"message,omitempty"`
	Endpoint      string    `json:"endpoint,omitempty"`
	Attempts      int       `json:"attempts,omitempty"`
	ProcessingMs  int64     `json:"processing_time_ms,omitempty"`
}

// GatewayErrorLog represents a gateway error entry for reconciliation
type GatewayErrorLog struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	OrderID   string    `json:"order_id,omitempty"`
	Response  string    `json:"response,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

var (
	cardNumberPattern = regexp.MustCompile(`\b\d{13,19}\b`)
	cv2Pattern        = regexp.MustCompile(`(?i)(<CV2>)\d{3,4}(</CV2>)`)
)

// sanitize masks PAN and CV2 values before anything reaches an index
func sanitize(body string) string {
	body = cardNumberPattern.ReplaceAllStringFunc(body, func(match string) string {
		if len(match) <= 4 {
			return match
		}
		return "****" + match[len(match)-4:]
	})
	return cv2Pattern.ReplaceAllString(body, "${1}***${2}")
}

// LogPayment logs a payment attempt to OpenSearch
func (l *Logger) LogPayment(ctx context.Context, entry PaymentLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.New().String()
	}
	entry.Message = sanitize(entry.Message)

	return l.index(ctx, IndexPayments, entry)
}

// LogGatewayError writes a gateway error entry with full response context
func (l *Logger) LogGatewayError(ctx context.Context, entry GatewayErrorLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Detail = sanitize(entry.Detail)
	entry.Response = sanitize(entry.Response)

	return l.index(ctx, IndexGatewayErrors, entry)
}

// LogSystemEntry writes an arbitrary structured system log document
func (l *Logger) LogSystemEntry(ctx context.Context, doc any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	return l.index(ctx, IndexSystemLogs, doc)
}

// index marshals and stores a document in the named index
func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(payload),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch returned %s indexing into %s", res.Status(), indexName)
	}

	return nil
}
