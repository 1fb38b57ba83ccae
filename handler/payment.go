package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mstgnz/cardsave/checkout"
	"github.com/mstgnz/cardsave/infra/middle"
	"github.com/mstgnz/cardsave/infra/response"
	"github.com/mstgnz/cardsave/provider"
)

// CheckoutService processes one payment end to end and decides where the
// buyer goes next.
type CheckoutService interface {
	ProcessPayment(ctx context.Context, request provider.PaymentRequest) *checkout.Result
}

// PaymentHandler handles checkout payment HTTP requests
type PaymentHandler struct {
	service  CheckoutService
	validate *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service CheckoutService, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validate,
	}
}

// ProcessPayment handles a checkout payment request. The response always
// carries a redirect target: the success page on approval, the checkout form
// with an error code otherwise. Gateway failures answer 402, not 500; the
// request itself was handled.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	// The retry protocol may take up to nine attempts
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req provider.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req.ClientIP = middle.GetClientIP(r)
	req.ClientUserAgent = r.Header.Get("User-Agent")

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	result := h.service.ProcessPayment(ctx, req)
	if !result.Success {
		status := http.StatusPaymentRequired
		if result.ErrorCode == checkout.ErrCodeInvalidRequest {
			status = http.StatusBadRequest
		}
		_ = response.WriteJSON(w, status, response.Response{
			Code:    status,
			Success: false,
			Message: result.Message,
			Error:   result.ErrorCode,
			Data:    result,
		})
		return
	}

	response.Success(w, http.StatusOK, "Payment processed", result)
}
