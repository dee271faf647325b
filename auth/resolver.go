package auth

import (
	"context"
	"strings"

	"github.com/sellerops/spbridge/observe"
)

// Request carries the request attributes the resolver inspects. The hosting
// layer fills it from its transport; http.Header satisfies the Headers type
// directly.
type Request struct {
	// Headers is the request header map. Lookups are case-insensitive.
	Headers map[string][]string

	// Path is the request path, matched against the public-endpoint set.
	Path string

	// Body is the raw request body, needed for signature verification.
	Body string
}

// GetHeader returns the first value for a header, matching the key
// case-insensitively. Returns empty string when absent.
func (r *Request) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	if values := r.Headers[key]; len(values) > 0 {
		return values[0]
	}
	for k, values := range r.Headers {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// Authenticator validates one credential scheme.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns a sentinel from errors.go on failure; the
//   resolver logs it and moves on, never exposing it to the request path.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports returns true if the request carries this scheme's credentials.
	Supports(ctx context.Context, req *Request) bool

	// Authenticate validates the credentials and builds an identity.
	Authenticate(ctx context.Context, req *Request) (*Identity, error)
}

// TokenAuthenticator authenticates "Authorization: Bearer <token>" headers
// via a TokenCodec.
type TokenAuthenticator struct {
	codec *TokenCodec
}

// NewTokenAuthenticator creates a bearer-token authenticator.
func NewTokenAuthenticator(codec *TokenCodec) *TokenAuthenticator {
	return &TokenAuthenticator{codec: codec}
}

const bearerPrefix = "Bearer "

// Name returns "token".
func (a *TokenAuthenticator) Name() string {
	return "token"
}

// Supports returns true if the request has a bearer Authorization header.
func (a *TokenAuthenticator) Supports(_ context.Context, req *Request) bool {
	return strings.HasPrefix(req.GetHeader("Authorization"), bearerPrefix)
}

// Authenticate verifies the token and builds a token-backed identity.
func (a *TokenAuthenticator) Authenticate(_ context.Context, req *Request) (*Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(req.GetHeader("Authorization"), bearerPrefix))
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	payload, err := a.codec.Verify(raw)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Principal:     payload.Subject,
		Authenticated: true,
		Method:        MethodToken,
		Claims:        payload.Claims,
		IssuedAt:      payload.IssuedAt,
		ExpiresAt:     payload.ExpiresAt,
	}
	if tier, ok := payload.Claims["tier"].(string); ok {
		identity.Tier = tier
	}
	return identity, nil
}

// APIKeyAuthenticator authenticates "X-API-Key: <id>:<secret>" headers
// against a CredentialStore.
type APIKeyAuthenticator struct {
	store *CredentialStore
}

// NewAPIKeyAuthenticator creates an API-key authenticator.
func NewAPIKeyAuthenticator(store *CredentialStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports returns true if the request has an X-API-Key header.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *Request) bool {
	return req.GetHeader("X-API-Key") != ""
}

// Authenticate splits the key on the first colon, looks up the id, and
// compares secrets in constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Identity, error) {
	apiKey := strings.TrimSpace(req.GetHeader("X-API-Key"))
	keyID, secret, ok := strings.Cut(apiKey, ":")
	if !ok {
		return nil, ErrMalformedKey
	}

	stored, ok := a.store.Lookup(keyID)
	if !ok {
		return nil, ErrUnknownKey
	}
	if !ConstantTimeCompare(stored, secret) {
		return nil, ErrSecretMismatch
	}

	return &Identity{
		Principal:     keyID,
		Authenticated: true,
		Method:        MethodAPIKey,
	}, nil
}

// SignatureAuthenticator authenticates HMAC-signed requests carrying
// X-Signature and X-Timestamp headers. The signer identity comes from the
// pre-shared X-Signer-Id header; signers that omit it share the "signer"
// principal.
type SignatureAuthenticator struct {
	verifier *SignatureVerifier
}

// NewSignatureAuthenticator creates a signature authenticator.
func NewSignatureAuthenticator(verifier *SignatureVerifier) *SignatureAuthenticator {
	return &SignatureAuthenticator{verifier: verifier}
}

// DefaultSignerID is the principal for signed requests without X-Signer-Id.
const DefaultSignerID = "signer"

// Name returns "signature".
func (a *SignatureAuthenticator) Name() string {
	return "signature"
}

// Supports returns true if both signature headers are present.
func (a *SignatureAuthenticator) Supports(_ context.Context, req *Request) bool {
	return req.GetHeader("X-Signature") != "" && req.GetHeader("X-Timestamp") != ""
}

// Authenticate verifies the body signature and builds a signer identity.
func (a *SignatureAuthenticator) Authenticate(_ context.Context, req *Request) (*Identity, error) {
	err := a.verifier.Verify(req.Body, req.GetHeader("X-Signature"), req.GetHeader("X-Timestamp"))
	if err != nil {
		return nil, err
	}

	signer := req.GetHeader("X-Signer-Id")
	if signer == "" {
		signer = DefaultSignerID
	}

	return &Identity{
		Principal:     signer,
		Authenticated: true,
		Method:        MethodSignature,
	}, nil
}

// ResolverConfig configures the resolver.
type ResolverConfig struct {
	// PublicPaths bypass authentication entirely; requests to them resolve
	// to an anonymous identity regardless of headers.
	PublicPaths []string

	// Logger receives failure causes. Optional.
	Logger observe.Logger
}

// Resolver turns request headers into an identity decision by trying each
// authenticator in precedence order. Branches are independent: a failing
// scheme never stops evaluation of the next, and the first success wins.
type Resolver struct {
	public map[string]struct{}
	chain  []Authenticator
	logger observe.Logger
}

// NewResolver creates a resolver over the given authenticator chain,
// in precedence order.
func NewResolver(config ResolverConfig, authenticators ...Authenticator) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	public := make(map[string]struct{}, len(config.PublicPaths))
	for _, p := range config.PublicPaths {
		public[p] = struct{}{}
	}

	return &Resolver{
		public: public,
		chain:  authenticators,
		logger: logger,
	}
}

// NewDefaultResolver wires the standard chain: bearer token, then API key,
// then request signature.
func NewDefaultResolver(config ResolverConfig, codec *TokenCodec, store *CredentialStore, verifier *SignatureVerifier) *Resolver {
	return NewResolver(config,
		NewTokenAuthenticator(codec),
		NewAPIKeyAuthenticator(store),
		NewSignatureAuthenticator(verifier),
	)
}

// Resolve returns the identity for the request, or nil when no scheme
// authenticates it. Callers must treat nil as unauthenticated. Failure
// causes are logged, never returned, so the response cannot act as an
// oracle for which check failed.
func (r *Resolver) Resolve(ctx context.Context, req *Request) *Identity {
	if _, ok := r.public[req.Path]; ok {
		return Anonymous()
	}

	for _, a := range r.chain {
		if !a.Supports(ctx, req) {
			continue
		}
		identity, err := a.Authenticate(ctx, req)
		if err != nil {
			r.logger.Warn(ctx, "authentication failed",
				observe.F("auth.method", a.Name()),
				observe.F("path", req.Path),
				observe.F("reason", err.Error()))
			continue
		}
		return identity
	}
	return nil
}

// IsPublic reports whether the path is in the public-endpoint set.
func (r *Resolver) IsPublic(path string) bool {
	_, ok := r.public[path]
	return ok
}

// Ensure scheme implementations satisfy Authenticator.
var (
	_ Authenticator = (*TokenAuthenticator)(nil)
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ Authenticator = (*SignatureAuthenticator)(nil)
)
