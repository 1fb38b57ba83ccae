// Package cardsave implements a standalone payment service for the Cardsave
// card-payment gateway (SOAP/XML over HTTPS).
//
// # Overview
//
// Cardsave exposes three redundant gateway hosts that all serve the same
// CardDetailsTransaction API. This service builds the signed XML envelope
// once per payment, submits it with a bounded retry protocol (up to three
// attempts against each of the three hosts), classifies the numeric status
// code in the response, and commits the order side effects only after the
// gateway has confirmed the charge.
//
// # Packages
//
//   - provider: the PaymentProvider abstraction, registry, shared HTTP
//     client and error taxonomy
//   - provider/cardsave: the Cardsave envelope builder, transaction
//     executor and status classification
//   - checkout: order persistence and the side-effect orchestration around
//     a payment (pending record, auth-code note, mark paid, redirects)
//   - infra: configuration, SQLite connection, structured logging,
//     OpenSearch reconciliation logs, HTTP middleware
//   - handler, router, cmd: the REST surface and service bootstrap
//
// # Quick start
//
//	gateway, _ := provider.CreateProvider("cardsave")
//	_ = gateway.Initialize(map[string]string{
//		"merchantId":  "Card2-1234567",
//		"password":    "secret",
//		"environment": "production",
//	})
//	resp, err := gateway.CreatePayment(ctx, request)
//
// A decline is returned as a *provider.DeclinedError alongside the failed
// response; exhaustion of every host and attempt is provider.ErrGatewayUnavailable.
package cardsave
