package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/sellerops/spbridge/observe"
)

// Fallback development credential inserted when no keys are configured
// outside production. This insecure default is deliberate and loudly logged.
const (
	DevKeyID     = "dev-key"
	DevKeySecret = "dev-secret-change-me"
)

// CredentialStoreConfig configures the credential store.
type CredentialStoreConfig struct {
	// Pairs is the comma-separated "id:secret" credential list.
	Pairs string

	// Production disables the development fallback credential.
	Production bool

	// Logger receives load warnings. Optional.
	Logger observe.Logger
}

// CredentialStore holds static API-key credentials loaded once at startup.
// The map is immutable after construction, so lookups are safe for
// concurrent use without locking. Reloading requires a process restart.
type CredentialStore struct {
	secrets map[string]string
}

// NewCredentialStore parses the configured "id:secret" pairs. Malformed
// pairs (no separator) are skipped with a warning. An empty store outside
// production gets the development fallback credential.
func NewCredentialStore(cfg CredentialStoreConfig) *CredentialStore {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	ctx := context.Background()

	secrets := make(map[string]string)
	for _, pair := range strings.Split(cfg.Pairs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok {
			logger.Warn(ctx, "skipping malformed api key pair")
			continue
		}
		secrets[strings.TrimSpace(id)] = strings.TrimSpace(secret)
	}

	if len(secrets) == 0 && !cfg.Production {
		secrets[DevKeyID] = DevKeySecret
		logger.Warn(ctx, "no api keys configured, using default development credential; change in production",
			observe.F("key_id", DevKeyID))
	}

	return &CredentialStore{secrets: secrets}
}

// Lookup returns the secret for the key id. The second return is false when
// the id is not registered. It never logs or exposes other secrets.
func (s *CredentialStore) Lookup(keyID string) (string, bool) {
	secret, ok := s.secrets[keyID]
	return secret, ok
}

// Len reports how many credentials are loaded.
func (s *CredentialStore) Len() int {
	return len(s.secrets)
}

// ConstantTimeCompare performs constant-time comparison of two strings.
// Ordinary equality on secrets is a timing side-channel; always compare
// credential material through this.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
