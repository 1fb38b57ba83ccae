package provider

import (
	"context"
	"time"
)

// PaymentStatus represents the current status of a payment
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusSuccessful PaymentStatus = "successful"
	StatusFailed     PaymentStatus = "failed"
	StatusPublished  PaymentStatus = "published"
)

// Address represents a billing address
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country,omitempty"`
}

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "email", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`   // regex pattern for validation
	MinLength   int    `json:"minLength,omitempty"` // minimum length for string fields
	MaxLength   int    `json:"maxLength,omitempty"` // maximum length for string fields
}

// Customer represents the buyer information
type Customer struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Surname   string   `json:"surname,omitempty"`
	Email     string   `json:"email" validate:"required,email"`
	IPAddress string   `json:"ipAddress,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// CardInfo represents credit card information
type CardInfo struct {
	CardHolderName string `json:"cardHolderName"`
	CardNumber     string `json:"cardNumber" validate:"required"`
	ExpireMonth    string `json:"expireMonth" validate:"required"`
	ExpireYear     string `json:"expireYear" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
}

// Item represents a product or service item in the payment
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// PaymentRequest contains all information required to create a payment.
// It is treated as immutable once handed to a provider.
type PaymentRequest struct {
	OrderID         string   `json:"orderId" validate:"required"`
	Currency        string   `json:"currency" validate:"required,len=3"`
	Amount          float64  `json:"amount" validate:"required,gt=0"`
	Customer        Customer `json:"customer"`
	CardInfo        CardInfo `json:"cardInfo"`
	Items           []Item   `json:"items,omitempty"`
	Description     string   `json:"description,omitempty"`
	ClientIP        string   `json:"clientIp,omitempty"`
	ClientUserAgent string   `json:"clientUserAgent,omitempty"`
	Environment     string   `json:"environment,omitempty"`
}

// PaymentResponse contains the result of a payment request
type PaymentResponse struct {
	Success          bool          `json:"success"`
	Status           PaymentStatus `json:"status"`
	Message          string        `json:"message,omitempty"`
	ErrorCode        string        `json:"errorCode,omitempty"`
	TransactionID    string        `json:"transactionId,omitempty"`
	AuthCode         string        `json:"authCode,omitempty"`
	OrderID          string        `json:"orderId,omitempty"`
	Amount           float64       `json:"amount,omitempty"`
	Currency         string        `json:"currency"`
	SystemTime       *time.Time    `json:"systemTime,omitempty"`
	ProviderResponse any           `json:"providerResponse,omitempty"`
}

// PaymentProvider defines the interface that all payment gateways must implement
type PaymentProvider interface {
	// Initialize sets up the payment provider with authentication and configuration
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// CreatePayment makes a card payment request
	CreatePayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error)
}

// ProviderFactory is a function type that creates a new PaymentProvider
type ProviderFactory func() PaymentProvider
