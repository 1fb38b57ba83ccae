package cardsave

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/cardsave/provider"
)

func testProvider() *CardsaveProvider {
	return &CardsaveProvider{
		merchantID: "Card2-1234567",
		password:   "secret",
	}
}

func testRequest() provider.PaymentRequest {
	return provider.PaymentRequest{
		OrderID:     "order-1001",
		Currency:    "GBP",
		Amount:      10.55,
		Description: "Test purchase",
		ClientIP:    "203.0.113.7",
		Customer: provider.Customer{
			Name:  "Jane",
			Email: "jane@example.com",
			Address: &provider.Address{
				Line1:   "1 High Street",
				City:    "London",
				ZipCode: "SW1A 1AA",
			},
		},
		CardInfo: provider.CardInfo{
			CardHolderName: "Jane Smith",
			CardNumber:     "4929000000006",
			ExpireMonth:    "09",
			ExpireYear:     "2027",
			CVV:            "123",
		},
	}
}

func TestBuildEnvelope(t *testing.T) {
	p := testProvider()

	envelope, err := p.buildEnvelope(testRequest())
	require.NoError(t, err)

	assert.Contains(t, envelope, `MerchantAuthentication MerchantID="Card2-1234567" Password="secret"`)
	assert.Contains(t, envelope, `TransactionDetails Amount="1055" CurrencyCode="826"`)
	assert.Contains(t, envelope, "<OrderID>order-1001</OrderID>")
	assert.Contains(t, envelope, "<OrderDescription>Test purchase</OrderDescription>")
	assert.Contains(t, envelope, "<CardNumber>4929000000006</CardNumber>")
	assert.Contains(t, envelope, `ExpiryDate Month="09" Year="27"`)
	assert.Contains(t, envelope, "<CV2>123</CV2>")
	assert.Contains(t, envelope, "<Address1>1 High Street</Address1>")
	assert.Contains(t, envelope, "<PostCode>SW1A 1AA</PostCode>")
	assert.Contains(t, envelope, "<CustomerIPAddress>203.0.113.7</CustomerIPAddress>")
	assert.Contains(t, envelope, "<DuplicateDelay>20</DuplicateDelay>")
}

func TestBuildEnvelopeAmountRounding(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   string
	}{
		{"exact pence", 10.55, `Amount="1055"`},
		{"float drift rounds up", 19.999999, `Amount="2000"`},
		{"half pence rounds up", 0.015, `Amount="2"`},
		{"whole units", 250, `Amount="25000"`},
	}

	p := testProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := testRequest()
			request.Amount = tt.amount

			envelope, err := p.buildEnvelope(request)
			require.NoError(t, err)
			assert.Contains(t, envelope, tt.want)
		})
	}
}

func TestBuildEnvelopeEscapesMetacharacters(t *testing.T) {
	p := testProvider()
	request := testRequest()
	request.Description = `Gift <voucher> & "extras"`
	request.CardInfo.CardHolderName = "O'Brien & Sons"

	envelope, err := p.buildEnvelope(request)
	require.NoError(t, err)

	assert.Contains(t, envelope, "Gift &lt;voucher&gt; &amp; &#34;extras&#34;")
	assert.Contains(t, envelope, "O&#39;Brien &amp; Sons")
	assert.NotContains(t, envelope, "<voucher>")
}

func TestBuildEnvelopeTruncatesLongFields(t *testing.T) {
	p := testProvider()
	request := testRequest()
	request.Description = strings.Repeat("x", 80)
	request.Customer.Address.Line1 = strings.Repeat("y", 150)

	envelope, err := p.buildEnvelope(request)
	require.NoError(t, err)

	assert.Contains(t, envelope, "<OrderDescription>"+strings.Repeat("x", 50)+"</OrderDescription>")
	assert.Contains(t, envelope, "<Address1>"+strings.Repeat("y", 100)+"</Address1>")
	assert.NotContains(t, envelope, strings.Repeat("x", 51))
}

func TestBuildEnvelopeItemDescriptionFallback(t *testing.T) {
	p := testProvider()
	request := testRequest()
	request.Description = ""
	request.Items = []provider.Item{
		{Name: "Standard ticket", Price: 5.00, Quantity: 1},
		{Name: "Programme", Price: 5.55, Quantity: 1},
	}

	envelope, err := p.buildEnvelope(request)
	require.NoError(t, err)
	assert.Contains(t, envelope, "<OrderDescription>Standard ticket, Programme</OrderDescription>")
}

func TestBuildEnvelopeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *CardsaveProvider, r *provider.PaymentRequest)
		field  string
	}{
		{"missing merchant", func(p *CardsaveProvider, r *provider.PaymentRequest) { p.merchantID = "" }, "merchantId"},
		{"missing password", func(p *CardsaveProvider, r *provider.PaymentRequest) { p.password = "" }, "password"},
		{"missing order id", func(p *CardsaveProvider, r *provider.PaymentRequest) { r.OrderID = "" }, "orderId"},
		{"missing card number", func(p *CardsaveProvider, r *provider.PaymentRequest) { r.CardInfo.CardNumber = "" }, "cardNumber"},
		{"unsupported currency", func(p *CardsaveProvider, r *provider.PaymentRequest) { r.Currency = "XXX" }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProvider()
			request := testRequest()
			tt.mutate(p, &request)

			_, err := p.buildEnvelope(request)
			require.Error(t, err)

			var vErr *provider.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestShortYear(t *testing.T) {
	assert.Equal(t, "27", shortYear("2027"))
	assert.Equal(t, "27", shortYear("27"))
	assert.Equal(t, "", shortYear(""))
}

func TestConvertCurrency(t *testing.T) {
	code, err := convertCurrency("gbp")
	require.NoError(t, err)
	assert.Equal(t, "826", code)

	code, err = convertCurrency(" EUR ")
	require.NoError(t, err)
	assert.Equal(t, "978", code)

	_, err = convertCurrency("BTC")
	assert.Error(t, err)
}
