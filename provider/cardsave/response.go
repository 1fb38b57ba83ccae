package cardsave

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Gateway status codes for a single transaction attempt.
const (
	statusApproved        = 0
	statusUnableToProcess = 3
	statusReferred        = 4
	statusDeclined        = 5
	statusDuplicate       = 20
	statusBusy            = 30
)

// Verdict of an individual fraud check as reported by the gateway.
const checkFailed = "FAILED"

// AttemptResult holds the fields extracted from a single gateway response.
// It is transient: produced per network call and never persisted directly.
type AttemptResult struct {
	StatusCode        int
	Message           string
	AuthCode          string
	CrossReference    string
	AddressCheck      string
	PostCodeCheck     string
	CV2Check          string
	ThreeDSecureCheck string

	// Previous carries the embedded PreviousTransactionResult sub-record
	// returned with a duplicate-transaction (status 20) response.
	Previous *AttemptResult
}

// parseAttemptResult extracts the transaction fields from a raw SOAP
// response body. Extraction is tolerant of unexpected surrounding elements:
// values are collected by local element or attribute name wherever they
// appear in the document, so schema additions or namespace changes do not
// break it. A body without a numeric StatusCode is unparseable and reported
// as an error so the caller can treat the attempt as unanswered.
func parseAttemptResult(body []byte) (*AttemptResult, error) {
	outer := make(map[string]string)
	previous := make(map[string]string)

	decoder := xml.NewDecoder(bytes.NewReader(body))
	var inPrevious bool
	var prevDepth int
	var current map[string]string = outer
	var openElement string
	var text strings.Builder

	// A single text run may arrive as several CharData tokens, for example
	// around a CDATA section. Fragments accumulate in text and are recorded
	// as one value when the element closes or a child element opens.
	flush := func() {
		if openElement != "" {
			setIfAbsent(current, openElement, strings.TrimSpace(text.String()))
		}
		text.Reset()
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			break // io.EOF or malformed tail; work with what was collected
		}

		switch t := token.(type) {
		case xml.StartElement:
			flush()
			if t.Name.Local == "PreviousTransactionResult" {
				inPrevious = true
				prevDepth = 0
				current = previous
			} else if inPrevious {
				prevDepth++
			}

			openElement = t.Name.Local
			for _, attr := range t.Attr {
				setIfAbsent(current, attr.Name.Local, attr.Value)
			}

		case xml.CharData:
			if openElement != "" {
				text.Write(t)
			}

		case xml.EndElement:
			flush()
			openElement = ""
			if inPrevious {
				if t.Name.Local == "PreviousTransactionResult" {
					inPrevious = false
					current = outer
				} else if prevDepth > 0 {
					prevDepth--
				}
			}
		}
	}

	result, err := resultFromFields(outer)
	if err != nil {
		return nil, err
	}

	if len(previous) > 0 {
		if prev, err := resultFromFields(previous); err == nil {
			result.Previous = prev
		} else if raw, ok := previous["PreviousTransactionResult"]; ok && strings.Contains(raw, "<") {
			// Sub-record delivered as escaped text rather than nested elements
			if prev, err := parseAttemptResult([]byte(raw)); err == nil {
				result.Previous = prev
			}
		}
	}

	return result, nil
}

// setIfAbsent keeps the first non-empty value seen for a field name
func setIfAbsent(fields map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, exists := fields[key]; !exists {
		fields[key] = value
	}
}

// resultFromFields builds an AttemptResult from collected field values
func resultFromFields(fields map[string]string) (*AttemptResult, error) {
	raw, ok := fields["StatusCode"]
	if !ok {
		return nil, fmt.Errorf("response contains no StatusCode")
	}

	code, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("non-numeric StatusCode %q", raw)
	}

	return &AttemptResult{
		StatusCode:        code,
		Message:           fields["Message"],
		AuthCode:          fields["AuthCode"],
		CrossReference:    fields["CrossReference"],
		AddressCheck:      fields["AddressNumericCheckResult"],
		PostCodeCheck:     fields["PostCodeCheckResult"],
		CV2Check:          fields["CV2CheckResult"],
		ThreeDSecureCheck: fields["ThreeDSecureAuthenticationCheckResult"],
	}, nil
}
