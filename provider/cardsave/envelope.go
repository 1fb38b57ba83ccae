package cardsave

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/mstgnz/cardsave/provider"
)

// Maximum field lengths documented by the gateway schema.
const (
	maxOrderDescription = 50
	maxCardName         = 100
	maxAddressLine1     = 100
	maxAddressLine2     = 50
	maxCity             = 50
	maxState            = 50
	maxPostCode         = 50
	maxEmail            = 100
)

const envelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
xmlns:xsd="http://www.w3.org/2001/XMLSchema"
xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<CardDetailsTransaction xmlns="https://www.thepaymentgateway.net/">
<PaymentMessage>
<MerchantAuthentication MerchantID="%s" Password="%s" />
<TransactionDetails Amount="%d" CurrencyCode="%s">
<MessageDetails TransactionType="SALE" />
<OrderID>%s</OrderID>
<OrderDescription>%s</OrderDescription>
<TransactionControl>
<EchoCardType>TRUE</EchoCardType>
<EchoAVSCheckResult>TRUE</EchoAVSCheckResult>
<EchoCV2CheckResult>TRUE</EchoCV2CheckResult>
<EchoAmountReceived>TRUE</EchoAmountReceived>
<DuplicateDelay>20</DuplicateDelay>
<CustomVariables>
<GenericVariable Name="MyInputVariable" Value="Ping" />
</CustomVariables>
</TransactionControl>
</TransactionDetails>
<CardDetails>
<CardName>%s</CardName>
<CardNumber>%s</CardNumber>
<StartDate Month="" Year="" />
<ExpiryDate Month="%s" Year="%s" />
<CV2>%s</CV2>
<IssueNumber></IssueNumber>
</CardDetails>
<CustomerDetails>
<BillingAddress>
<Address1>%s</Address1>
<Address2>%s</Address2>
<Address3></Address3>
<City>%s</City>
<State>%s</State>
<PostCode>%s</PostCode>
<CountryCode></CountryCode>
</BillingAddress>
<EmailAddress>%s</EmailAddress>
<PhoneNumber></PhoneNumber>
<CustomerIPAddress>%s</CustomerIPAddress>
</CustomerDetails>
</PaymentMessage>
</CardDetailsTransaction>
</soap:Body>
</soap:Envelope>`

// buildEnvelope renders the payment authorization envelope for a request.
// It fails with a ValidationError before any network call when a required
// field is absent or the currency cannot be mapped.
func (p *CardsaveProvider) buildEnvelope(request provider.PaymentRequest) (string, error) {
	if p.merchantID == "" {
		return "", provider.NewValidationError("merchantId", "merchant ID is required")
	}
	if p.password == "" {
		return "", provider.NewValidationError("password", "gateway password is required")
	}
	if request.OrderID == "" {
		return "", provider.NewValidationError("orderId", "order ID is required")
	}
	if request.CardInfo.CardNumber == "" {
		return "", provider.NewValidationError("cardNumber", "card number is required")
	}

	currency, err := convertCurrency(request.Currency)
	if err != nil {
		return "", provider.NewValidationError("currency", err.Error())
	}

	// Integer count of minor currency units
	amount := int64(math.Round(request.Amount * 100))

	var address provider.Address
	if request.Customer.Address != nil {
		address = *request.Customer.Address
	}

	envelope := fmt.Sprintf(envelopeTemplate,
		escape(p.merchantID),
		escape(p.password),
		amount,
		currency,
		escape(request.OrderID),
		clean(orderDescription(request), maxOrderDescription),
		clean(request.CardInfo.CardHolderName, maxCardName),
		escape(request.CardInfo.CardNumber),
		escape(request.CardInfo.ExpireMonth),
		escape(shortYear(request.CardInfo.ExpireYear)),
		escape(request.CardInfo.CVV),
		clean(address.Line1, maxAddressLine1),
		clean(address.Line2, maxAddressLine2),
		clean(address.City, maxCity),
		clean(address.State, maxState),
		clean(address.ZipCode, maxPostCode),
		clean(request.Customer.Email, maxEmail),
		escape(request.ClientIP),
	)

	return envelope, nil
}

// orderDescription builds a human-readable summary from the request
// description or, failing that, the purchased items.
func orderDescription(request provider.PaymentRequest) string {
	if request.Description != "" {
		return request.Description
	}

	names := make([]string, 0, len(request.Items))
	for _, item := range request.Items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

// shortYear reduces a 2 or 4 digit expiry year to its 2-digit form
func shortYear(year string) string {
	if len(year) > 2 {
		return year[len(year)-2:]
	}
	return year
}

// clean truncates a free-text value to the schema maximum and escapes XML
// metacharacters. Truncation operates on runes so a multi-byte character is
// never split.
func clean(value string, maxLen int) string {
	runes := []rune(value)
	if len(runes) > maxLen {
		value = string(runes[:maxLen])
	}
	return escape(value)
}

// escape XML-escapes a value for element or attribute insertion
func escape(value string) string {
	var buf bytes.Buffer
	// EscapeText only fails on a broken writer; bytes.Buffer never is
	_ = xml.EscapeText(&buf, []byte(value))
	return buf.String()
}
