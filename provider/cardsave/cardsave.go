package cardsave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mstgnz/cardsave/provider"
)

const (
	// Gateway hosts gw1..gw3 serve the same API; they are tried in
	// ascending order with a bounded number of attempts each.
	gatewayDomain    = "cardsaveonlinepayments.com"
	gatewayPort      = 4430
	gatewayHostCount = 3
	attemptsPerHost  = 3

	soapAction = "https://www.thepaymentgateway.net/CardDetailsTransaction"

	defaultTimeout = 30 * time.Second
)

// Decline reasons shown to the buyer, composed per failed check.
const (
	reasonUnableToProcess = "Unable to process your payment at this time"
	reasonCardReferred    = "Card referred"
	reasonAddressFailed   = "Billing address check failed."
	reasonPostCodeFailed  = "Billing zip code check failed."
	reasonCV2Failed       = "The CVC code you entered is incorrect."
	reasonBankDeclined    = "Your bank declined the transaction."
	reasonNotSuccessful   = "Your payment was not successful"
)

// CardsaveProvider implements the provider.PaymentProvider interface for the
// Cardsave gateway (SOAP 1.1 card-details transactions).
type CardsaveProvider struct {
	merchantID         string
	password           string
	endpoints          []string
	insecureSkipVerify bool
	isProduction       bool
	httpClient         *provider.ProviderHTTPClient
}

// NewProvider creates a new Cardsave payment provider
func NewProvider() provider.PaymentProvider {
	return &CardsaveProvider{}
}

// GetRequiredConfig returns the configuration fields required for Cardsave
func (p *CardsaveProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "merchantId",
			Required:    true,
			Type:        "string",
			Description: "Cardsave Merchant ID (found under Gateway Account Admin)",
			Example:     "Card2-1234567",
			MinLength:   5,
			MaxLength:   50,
		},
		{
			Key:         "password",
			Required:    true,
			Type:        "string",
			Description: "Cardsave Gateway Password (found under Gateway Account Admin)",
			Example:     "x92kD01mZ",
			MinLength:   5,
			MaxLength:   100,
		},
		{
			Key:         "environment",
			Required:    true,
			Type:        "string",
			Description: "Environment setting (sandbox or production)",
			Example:     "production",
			Pattern:     "^(sandbox|production)$",
		},
	}
}

// ValidateConfig validates the provided configuration against Cardsave requirements
func (p *CardsaveProvider) ValidateConfig(config map[string]string) error {
	requiredFields := p.GetRequiredConfig(config["environment"])
	return provider.ValidateConfigFields("cardsave", config, requiredFields)
}

// Initialize sets up the Cardsave payment provider with authentication credentials
func (p *CardsaveProvider) Initialize(conf map[string]string) error {
	p.merchantID = conf["merchantId"]
	p.password = conf["password"]

	if p.merchantID == "" || p.password == "" {
		return errors.New("cardsave: merchantId and password are required")
	}

	p.isProduction = conf["environment"] == "production"

	// Certificate verification stays on unless explicitly relaxed for the
	// gateway's legacy certificates.
	p.insecureSkipVerify = conf["insecureSkipVerify"] == "true"

	if urls := conf["gatewayURLs"]; urls != "" {
		p.endpoints = splitURLs(urls)
	} else {
		p.endpoints = defaultEndpoints()
	}

	p.httpClient = provider.NewProviderHTTPClient(
		provider.CreateHTTPClientConfig("", defaultTimeout, p.insecureSkipVerify))

	return nil
}

// defaultEndpoints composes the redundant gateway host URLs in order
func defaultEndpoints() []string {
	endpoints := make([]string, 0, gatewayHostCount)
	for i := 1; i <= gatewayHostCount; i++ {
		endpoints = append(endpoints, fmt.Sprintf("https://gw%d.%s:%d/", i, gatewayDomain, gatewayPort))
	}
	return endpoints
}

func splitURLs(urls string) []string {
	parts := strings.Split(urls, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// CreatePayment submits a card payment to the gateway.
//
// The envelope is built once, then posted against each gateway host with a
// bounded number of attempts per host. Transport failures and status 30
// (gateway busy) advance the loop; any other status classifies the outcome
// and terminates it. A terminal decline returns the response together with a
// DeclinedError; exhaustion of every host and attempt returns
// ErrGatewayUnavailable.
func (p *CardsaveProvider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if err := p.validatePaymentRequest(request); err != nil {
		return nil, err
	}

	envelope, err := p.buildEnvelope(request)
	if err != nil {
		return nil, err
	}

	result, err := p.execute(ctx, envelope)
	if err != nil {
		return nil, err
	}

	return p.classify(request, result)
}

// validatePaymentRequest checks request fields that never reach the envelope
func (p *CardsaveProvider) validatePaymentRequest(request provider.PaymentRequest) error {
	if request.Amount <= 0 {
		return provider.NewValidationError("amount", "amount must be greater than 0")
	}
	if request.Currency == "" {
		return provider.NewValidationError("currency", "currency is required")
	}
	if request.CardInfo.ExpireMonth == "" || request.CardInfo.ExpireYear == "" {
		return provider.NewValidationError("expiry", "card expiration month and year are required")
	}
	if request.CardInfo.CVV == "" {
		return provider.NewValidationError("cvv", "CVV is required")
	}
	return nil
}

// execute drives the multi-endpoint retry protocol. The (host, attempt)
// Cartesian product is walked as one bounded sequence so there is no counter
// bookkeeping at the host boundary.
func (p *CardsaveProvider) execute(ctx context.Context, envelope string) (*AttemptResult, error) {
	for _, endpoint := range p.attemptPlan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.httpClient.SendXML(ctx, &provider.HTTPRequest{
			Method:   "POST",
			Endpoint: endpoint,
			Body:     envelope,
		}, soapAction)
		if err != nil {
			// Transport failure is "no response", never a decline
			continue
		}

		result, err := parseAttemptResult(resp.Body)
		if err != nil {
			continue
		}

		if result.StatusCode == statusBusy {
			continue
		}

		return result, nil
	}

	return nil, provider.ErrGatewayUnavailable
}

// attemptPlan expands the ordered endpoints into the full attempt sequence:
// every host is tried attemptsPerHost times before moving to the next.
func (p *CardsaveProvider) attemptPlan() []string {
	plan := make([]string, 0, len(p.endpoints)*attemptsPerHost)
	for _, endpoint := range p.endpoints {
		for attempt := 0; attempt < attemptsPerHost; attempt++ {
			plan = append(plan, endpoint)
		}
	}
	return plan
}

// classify maps a gateway status code onto the payment outcome
func (p *CardsaveProvider) classify(request provider.PaymentRequest, result *AttemptResult) (*provider.PaymentResponse, error) {
	switch result.StatusCode {
	case statusApproved:
		return p.approvedResponse(request, result, result.AuthCode), nil

	case statusUnableToProcess:
		return p.declinedResponse(request, result, reasonUnableToProcess)

	case statusReferred:
		return p.declinedResponse(request, result, reasonCardReferred)

	case statusDeclined:
		return p.declinedResponse(request, result, declineDetail(result))

	case statusDuplicate:
		return p.classifyDuplicate(request, result)

	default:
		// Unrecognized code: decline with the raw gateway message so new
		// codes surface in the error log instead of falling through
		reason := result.Message
		if reason == "" {
			reason = fmt.Sprintf("unrecognized gateway status %d", result.StatusCode)
		}
		return p.declinedResponse(request, result, reason)
	}
}

// classifyDuplicate resolves a duplicate-transaction signal against the
// embedded previous result. A previously approved attempt is reported as a
// success carrying the previous auth code, so an obscured earlier charge is
// never repeated or double-recorded.
func (p *CardsaveProvider) classifyDuplicate(request provider.PaymentRequest, result *AttemptResult) (*provider.PaymentResponse, error) {
	previous := result.Previous
	if previous == nil {
		return p.declinedResponse(request, result, reasonNotSuccessful)
	}

	if previous.StatusCode == statusApproved {
		return p.approvedResponse(request, result, previous.AuthCode), nil
	}

	reason := previous.Message
	if reason == "" {
		reason = reasonNotSuccessful
	}
	return p.declinedResponse(request, result, reason)
}

// declineDetail composes the buyer-facing reason for a status 5 decline,
// one clause per failed check.
func declineDetail(result *AttemptResult) string {
	var sb strings.Builder
	sb.WriteString("Payment failed: ")

	if result.AddressCheck == checkFailed {
		sb.WriteString(reasonAddressFailed + " ")
	}
	if result.PostCodeCheck == checkFailed {
		sb.WriteString(reasonPostCodeFailed + " ")
	}
	if result.CV2Check == checkFailed {
		sb.WriteString(reasonCV2Failed + " ")
	}
	if result.ThreeDSecureCheck == checkFailed {
		sb.WriteString(reasonBankDeclined + " ")
	}
	if result.Message == "Card declined" || result.Message == "Card referred" {
		sb.WriteString(reasonBankDeclined + " ")
	}

	return strings.TrimSpace(sb.String())
}

// approvedResponse builds the success response for an approved attempt
func (p *CardsaveProvider) approvedResponse(request provider.PaymentRequest, result *AttemptResult, authCode string) *provider.PaymentResponse {
	now := time.Now()
	return &provider.PaymentResponse{
		Success:          true,
		Status:           provider.StatusSuccessful,
		Message:          result.Message,
		AuthCode:         authCode,
		TransactionID:    result.CrossReference,
		OrderID:          request.OrderID,
		Amount:           request.Amount,
		Currency:         request.Currency,
		SystemTime:       &now,
		ProviderResponse: result,
	}
}

// declinedResponse builds the terminal decline response plus its typed error
func (p *CardsaveProvider) declinedResponse(request provider.PaymentRequest, result *AttemptResult, reason string) (*provider.PaymentResponse, error) {
	now := time.Now()
	resp := &provider.PaymentResponse{
		Success:          false,
		Status:           provider.StatusFailed,
		Message:          reason,
		ErrorCode:        fmt.Sprintf("%d", result.StatusCode),
		TransactionID:    result.CrossReference,
		OrderID:          request.OrderID,
		Amount:           request.Amount,
		Currency:         request.Currency,
		SystemTime:       &now,
		ProviderResponse: result,
	}
	return resp, &provider.DeclinedError{Code: result.StatusCode, Reason: reason}
}
