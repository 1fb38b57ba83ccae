package checkout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mstgnz/cardsave/infra/logger"
	"github.com/mstgnz/cardsave/infra/opensearch"
	"github.com/mstgnz/cardsave/provider"
)

// User-visible checkout error codes and messages. Failure detail goes to the
// gateway error log, not to the buyer.
const (
	ErrCodeCardDeclined     = "card_declined"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeRecordingFailure = "recording_failure"

	msgCardDeclined     = "Your card was declined!"
	msgRecordingFailure = "Your payment was approved but could not be recorded. Please contact support before retrying."
)

// GatewayErrorRecorder receives gateway error documents for reconciliation.
// *opensearch.Logger satisfies it.
type GatewayErrorRecorder interface {
	LogGatewayError(ctx context.Context, entry opensearch.GatewayErrorLog) error
	LogPayment(ctx context.Context, entry opensearch.PaymentLog) error
}

// Result is the outcome of one checkout payment: what to tell the buyer and
// where to send them next.
type Result struct {
	Success     bool   `json:"success"`
	PaymentID   int64  `json:"paymentId,omitempty"`
	OrderKey    string `json:"orderKey,omitempty"`
	AuthCode    string `json:"authCode,omitempty"`
	RedirectURL string `json:"redirectUrl"`
	ErrorCode   string `json:"errorCode,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Service orchestrates a checkout payment: it drives the payment provider
// and commits the order side effects only after the gateway has confirmed
// the charge.
type Service struct {
	providerName string
	gateway      provider.PaymentProvider
	store        OrderStore
	recorder     GatewayErrorRecorder
	successURL   string
	checkoutURL  string
}

// NewService wires a checkout service around an initialized payment provider
func NewService(providerName string, gateway provider.PaymentProvider, store OrderStore, recorder GatewayErrorRecorder, successURL, checkoutURL string) *Service {
	if successURL == "" {
		successURL = "/checkout/success"
	}
	if checkoutURL == "" {
		checkoutURL = "/checkout"
	}
	return &Service{
		providerName: providerName,
		gateway:      gateway,
		store:        store,
		recorder:     recorder,
		successURL:   successURL,
		checkoutURL:  checkoutURL,
	}
}

// ProcessPayment runs one payment end to end. It always returns a usable
// Result: every failure mode collapses into a checkout error message plus a
// redirect back to the checkout form, and a panic anywhere inside processing
// is contained the same way.
func (s *Service) ProcessPayment(ctx context.Context, request provider.PaymentRequest) (result *Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during payment processing", fmt.Errorf("%v", r), logger.LogContext{
				Provider: s.providerName,
				OrderID:  request.OrderID,
				Fields:   map[string]any{"stack": string(debug.Stack())},
			})
			s.recordGatewayError(request.OrderID, "Panic during payment processing", fmt.Sprintf("%v", r), "")
			result = s.declined(ErrCodeCardDeclined, msgCardDeclined)
		}
	}()

	resp, err := s.gateway.CreatePayment(ctx, request)

	switch {
	case err == nil:
		result = s.commitApproved(ctx, request, resp)

	case provider.IsValidationError(err):
		// Input problem, nothing was sent to the gateway
		result = s.declined(ErrCodeInvalidRequest, err.Error())

	case errors.Is(err, provider.ErrGatewayUnavailable):
		s.recordGatewayError(request.OrderID, "Gateway unavailable",
			"every gateway host and attempt was exhausted without a response", "")
		result = s.declined(ErrCodeCardDeclined, msgCardDeclined)

	case provider.IsDeclined(err):
		var declined *provider.DeclinedError
		errors.As(err, &declined)
		s.recordGatewayError(request.OrderID,
			fmt.Sprintf("Payment declined (status %d)", declined.Code),
			declined.Reason, rawResponse(resp))
		result = s.declined(ErrCodeCardDeclined, msgCardDeclined)

	default:
		s.recordGatewayError(request.OrderID, "Payment processing failed", err.Error(), "")
		result = s.declined(ErrCodeCardDeclined, msgCardDeclined)
	}

	s.logPayment(request, result, time.Since(started))
	return result
}

// commitApproved persists the order side effects for a confirmed charge.
// Exactly one record is created, in pending state, then noted and marked
// paid. A persistence failure after approval is the worst failure mode: the
// gateway believes the charge succeeded, so it is logged loudly and reported
// as a recording failure rather than a decline.
func (s *Service) commitApproved(ctx context.Context, request provider.PaymentRequest, resp *provider.PaymentResponse) *Result {
	record := &PaymentRecord{
		OrderID:    request.OrderID,
		Amount:     request.Amount,
		Currency:   request.Currency,
		BuyerName:  buyerName(request.Customer),
		BuyerEmail: request.Customer.Email,
		BuyerIP:    request.ClientIP,
		Items:      request.Items,
	}

	paymentID, err := s.store.CreatePendingPayment(ctx, record)
	if err != nil {
		return s.recordingFailure(request, resp, fmt.Errorf("create pending payment: %w", err))
	}

	note := fmt.Sprintf("Payment approved. AuthCode: %s, CrossReference: %s", resp.AuthCode, resp.TransactionID)
	if err := s.store.AddNote(ctx, paymentID, note); err != nil {
		return s.recordingFailure(request, resp, fmt.Errorf("add payment note: %w", err))
	}

	if err := s.store.MarkPaid(ctx, paymentID, resp.TransactionID); err != nil {
		return s.recordingFailure(request, resp, fmt.Errorf("mark payment paid: %w", err))
	}

	return &Result{
		Success:     true,
		PaymentID:   paymentID,
		OrderKey:    record.OrderKey,
		AuthCode:    resp.AuthCode,
		RedirectURL: s.successURL,
	}
}

func (s *Service) recordingFailure(request provider.PaymentRequest, resp *provider.PaymentResponse, err error) *Result {
	logger.Error("approved payment could not be recorded", err, logger.LogContext{
		Provider: s.providerName,
		OrderID:  request.OrderID,
	})
	s.recordGatewayError(request.OrderID, "Approved payment not recorded", err.Error(), rawResponse(resp))
	return s.declined(ErrCodeRecordingFailure, msgRecordingFailure)
}

// declined builds the common failure result: checkout error plus redirect
// back to the checkout form.
func (s *Service) declined(code, message string) *Result {
	return &Result{
		Success:     false,
		ErrorCode:   code,
		Message:     message,
		RedirectURL: s.checkoutURL,
	}
}

// recordGatewayError writes a reconciliation document. The error log is best
// effort: a sink failure must never change the payment outcome.
func (s *Service) recordGatewayError(orderID, title, detail, response string) {
	if s.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.recorder.LogGatewayError(ctx, opensearch.GatewayErrorLog{
		Timestamp: time.Now(),
		Provider:  s.providerName,
		Title:     title,
		Detail:    detail,
		OrderID:   orderID,
		Response:  response,
	})
	if err != nil {
		logger.Warn("failed to record gateway error", logger.LogContext{
			Provider: s.providerName,
			OrderID:  orderID,
			Fields:   map[string]any{"title": title, "error": err.Error()},
		})
	}
}

func (s *Service) logPayment(request provider.PaymentRequest, result *Result, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}

	status := "failed"
	if result.Success {
		status = "successful"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = s.recorder.LogPayment(ctx, opensearch.PaymentLog{
		Timestamp:     time.Now(),
		Provider:      s.providerName,
		OrderID:       request.OrderID,
		Amount:        request.Amount,
		Currency:      request.Currency,
		CustomerEmail: request.Customer.Email,
		ClientIP:      request.ClientIP,
		Status:        status,
		Message:       result.Message,
		ProcessingMs:  elapsed.Milliseconds(),
	})
}

func buyerName(customer provider.Customer) string {
	if customer.Surname == "" {
		return customer.Name
	}
	if customer.Name == "" {
		return customer.Surname
	}
	return customer.Name + " " + customer.Surname
}

// rawResponse extracts the provider's raw attempt detail for the error log
func rawResponse(resp *provider.PaymentResponse) string {
	if resp == nil || resp.ProviderResponse == nil {
		return ""
	}
	return fmt.Sprintf("%+v", resp.ProviderResponse)
}
