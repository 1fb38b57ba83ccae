package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/mstgnz/cardsave/checkout"
	"github.com/mstgnz/cardsave/handler"
	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/provider"
)

type noopCheckout struct{}

func (noopCheckout) ProcessPayment(ctx context.Context, request provider.PaymentRequest) *checkout.Result {
	return &checkout.Result{Success: true, RedirectURL: "/checkout/success"}
}

func testRouter() http.Handler {
	validate := validator.New()
	settings := config.NewSettingsStore(nil)
	return New(Handlers{
		Payment: handler.NewPaymentHandler(noopCheckout{}, validate),
		Config:  handler.NewConfigHandler(settings, validate),
		Health:  handler.NewHealthHandler(nil, settings),
	})
}

func TestRoutesRegistered(t *testing.T) {
	r := testRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/health/live"},
		{http.MethodPost, "/v1/checkout"},
		{http.MethodGet, "/v1/config"},
		{http.MethodGet, "/v1/config/required"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, "%s %s should be routed", tt.method, tt.path)
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, "%s %s should be routed", tt.method, tt.path)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	r := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestUnknownRoute(t *testing.T) {
	r := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
