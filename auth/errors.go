package auth

import "errors"

// Sentinel errors for authentication failures.
//
// The Resolver collapses all of them into a single unauthenticated result so
// the request path never reveals which check failed. They exist so failure
// paths can be logged with a precise cause.
var (
	// Token failures.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")

	// API key failures.
	ErrMalformedKey   = errors.New("auth: malformed api key")
	ErrUnknownKey     = errors.New("auth: api key id not found")
	ErrSecretMismatch = errors.New("auth: api key secret mismatch")

	// Signature failures.
	ErrMalformedTimestamp   = errors.New("auth: malformed signature timestamp")
	ErrReplayWindowExceeded = errors.New("auth: signature timestamp outside replay window")
	ErrSignatureMismatch    = errors.New("auth: signature mismatch")

	// ErrMissingCredentials indicates no scheme found usable credentials.
	ErrMissingCredentials = errors.New("auth: missing credentials")
)
