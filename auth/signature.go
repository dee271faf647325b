package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SignatureVerifierConfig configures the signature verifier.
type SignatureVerifierConfig struct {
	// Secret is the shared HMAC secret.
	Secret []byte

	// ReplayWindow bounds the allowed clock skew between the request
	// timestamp and now, in both directions. A timestamp exactly at the
	// boundary passes.
	// Default: 5 minutes.
	ReplayWindow time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// SignatureVerifier validates HMAC-SHA256 request signatures for
// webhook-style authentication. The signed message is "{timestamp}.{body}",
// which binds the signature to both the payload and its freshness window.
type SignatureVerifier struct {
	config SignatureVerifierConfig
}

// NewSignatureVerifier creates a new signature verifier.
func NewSignatureVerifier(config SignatureVerifierConfig) *SignatureVerifier {
	// Apply defaults
	if config.ReplayWindow <= 0 {
		config.ReplayWindow = 5 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &SignatureVerifier{config: config}
}

// Sign computes the hex signature for body at the given epoch-seconds
// timestamp. It is the counterpart of Verify and is what senders use.
func (v *SignatureVerifier) Sign(body string, timestamp int64) string {
	mac := hmac.New(sha256.New, v.config.Secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks timestamp freshness and signature authenticity. A nil return
// means the signature is valid. The comparison is constant-time; this is a
// security invariant, not an optimization.
func (v *SignatureVerifier) Verify(body, signature, timestamp string) error {
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return ErrMalformedTimestamp
	}

	skew := v.config.Now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(v.config.ReplayWindow/time.Second) {
		return ErrReplayWindowExceeded
	}

	expected := v.Sign(body, ts)
	if !ConstantTimeCompare(expected, signature) {
		return ErrSignatureMismatch
	}
	return nil
}
