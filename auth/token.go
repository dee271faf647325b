package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodecConfig configures the token codec.
type TokenCodecConfig struct {
	// Secret is the process-wide signing secret.
	Secret []byte

	// TTL is the lifetime of issued tokens.
	// Default: 1 hour.
	TTL time.Duration

	// SubjectClaim is the claim holding the subject identifier.
	// Default: "sub"
	SubjectClaim string

	// Now overrides the clock used when issuing tokens, for tests.
	Now func() time.Time
}

// TokenCodec issues and verifies signed, time-bounded identity tokens.
// Tokens are self-contained HS256 JWTs; there is no server-side session
// store. Both operations are pure and safe for concurrent use.
type TokenCodec struct {
	config TokenCodecConfig
}

// NewTokenCodec creates a new token codec.
func NewTokenCodec(config TokenCodecConfig) *TokenCodec {
	// Apply defaults
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.SubjectClaim == "" {
		config.SubjectClaim = "sub"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &TokenCodec{config: config}
}

// TokenPayload is the verified content of a token.
type TokenPayload struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]any
}

// Issue creates a signed token for the subject. Extra claims are merged into
// the payload; reserved claims (subject, iat, exp) cannot be overridden.
func (c *TokenCodec) Issue(subject string, extraClaims map[string]any) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("auth: subject is required")
	}

	now := c.config.Now()
	claims := jwt.MapClaims{
		c.config.SubjectClaim: subject,
		"iat":                 now.Unix(),
		"exp":                 now.Add(c.config.TTL).Unix(),
	}
	for k, v := range extraClaims {
		if k == c.config.SubjectClaim || k == "iat" || k == "exp" {
			continue
		}
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature, and expiry. It returns ErrExpiredToken
// for structurally valid but expired tokens and ErrInvalidToken for
// everything else. Callers treat both as a denial; the distinction exists
// for logging.
func (c *TokenCodec) Verify(tokenString string) (*TokenPayload, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		// Parse joins validation errors, so a tampered token that is also
		// past its expiry reports both. A bad signature outranks expiry.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidToken
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	payload := &TokenPayload{Claims: make(map[string]any, len(claims))}
	for k, v := range claims {
		payload.Claims[k] = v
	}
	if sub, ok := claims[c.config.SubjectClaim].(string); ok {
		payload.Subject = sub
	}
	if payload.Subject == "" {
		return nil, ErrInvalidToken
	}
	if iat, ok := claims["iat"].(float64); ok {
		payload.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		payload.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return payload, nil
}
