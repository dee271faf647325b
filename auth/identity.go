package auth

import "time"

// Method indicates how a request was authenticated.
type Method string

const (
	MethodNone      Method = "none"
	MethodToken     Method = "token"
	MethodAPIKey    Method = "api_key"
	MethodSignature Method = "signature"
	MethodAnonymous Method = "anonymous"
)

// Identity is the outcome of authenticating a single request. It is produced
// fresh per request and never persisted.
type Identity struct {
	// Principal is the subject identifier (token subject, key id, signer id).
	Principal string

	// Authenticated is true when credentials were presented and verified.
	// Anonymous identities for public endpoints carry false.
	Authenticated bool

	// Method indicates which scheme produced this identity.
	Method Method

	// Tier is the rate-limit tier granted by the credential, if any.
	// Empty means the hosting layer picks a tier from Authenticated.
	Tier string

	// Claims holds claims carried by the credential. Token-backed
	// identities copy the full token payload here.
	Claims map[string]any

	// IssuedAt and ExpiresAt bound token-backed identities; zero otherwise.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAnonymous reports whether this identity came from a public-endpoint
// bypass rather than verified credentials.
func (id *Identity) IsAnonymous() bool {
	return id.Method == MethodAnonymous || !id.Authenticated
}

// Anonymous returns the identity used for public endpoints.
func Anonymous() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    MethodAnonymous,
	}
}
