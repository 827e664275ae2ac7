package domain

import "errors"

// Failure classes surfaced by the resolvers and the ledger.
// Callers distinguish them with errors.Is; HTTP handlers map
// upstream failures to 502 and ledger validation failures to 400.
var (
	// ErrUpstreamUnavailable means every configured FX provider failed.
	ErrUpstreamUnavailable = errors.New("all fx providers unavailable")

	// ErrQuoteUnavailable means the quote provider failed and no fresh
	// cached quote could be served instead.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrInvalidSell means a sell was attempted against a symbol with
	// no existing position.
	ErrInvalidSell = errors.New("cannot sell a position that does not exist")

	// ErrInsufficientQuantity means a sell exceeds the held quantity.
	ErrInsufficientQuantity = errors.New("sell quantity exceeds current holdings")

	// ErrMissingCredential means a provider requires an API credential
	// that is not configured. Treated as that provider's failure.
	ErrMissingCredential = errors.New("missing provider credential")
)
