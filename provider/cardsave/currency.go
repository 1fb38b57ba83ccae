package cardsave

import (
	"fmt"
	"strings"
)

// currencyCodes maps ISO 4217 alphabetic codes to the numeric codes the
// gateway expects in TransactionDetails/@CurrencyCode.
var currencyCodes = map[string]string{
	"AUD": "036",
	"CAD": "124",
	"CHF": "756",
	"CZK": "203",
	"DKK": "208",
	"EUR": "978",
	"GBP": "826",
	"HKD": "344",
	"HUF": "348",
	"JPY": "392",
	"NOK": "578",
	"NZD": "554",
	"PLN": "985",
	"SEK": "752",
	"SGD": "702",
	"THB": "764",
	"TRY": "949",
	"USD": "840",
	"ZAR": "710",
}

// convertCurrency resolves an ISO alphabetic currency code to the gateway's
// numeric form. An unmapped currency is an input error, not a wire error.
func convertCurrency(alpha string) (string, error) {
	code, ok := currencyCodes[strings.ToUpper(strings.TrimSpace(alpha))]
	if !ok {
		return "", fmt.Errorf("unsupported currency %q", alpha)
	}
	return code, nil
}
