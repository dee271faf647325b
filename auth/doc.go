// Package auth provides request authentication for the spbridge tool server.
//
// It supports three schemes: signed bearer tokens (HS256 JWT), static API
// keys of the form "id:secret", and HMAC-signed webhook requests with a
// timestamp replay window. The Resolver composes them behind a single
// precedence chain and turns request headers into an identity decision.
//
// The package is protocol-agnostic; the hosting layer supplies headers, the
// request path, and the raw body, and maps a nil identity to its own
// rejection response. All secret comparisons are constant-time.
package auth
