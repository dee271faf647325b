package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sellerops/spbridge/observe"
	"github.com/sellerops/spbridge/ratelimit"
)

// Configuration errors.
var (
	ErrMissingSecret   = errors.New("config: MCP_SECRET_KEY is required in production")
	ErrInvalidDuration = errors.New("config: invalid duration value")
	ErrInvalidTier     = errors.New("config: invalid rate tier entry")
)

// DevSecretKey is the fallback signing secret outside production.
const DevSecretKey = "your-secret-key-change-in-production"

// Config is the full runtime configuration of the bridge.
type Config struct {
	// Environment is "production" or anything else for development mode.
	Environment string

	// ListenAddr is host:port for the HTTP server.
	ListenAddr string

	// SecretKey signs bearer tokens and webhook payloads.
	SecretKey string

	// APIKeys is the raw comma-separated "id:secret" credential list,
	// parsed by the credential store.
	APIKeys string

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration

	// ReplayWindow is the accepted clock skew for signed webhooks.
	ReplayWindow time.Duration

	// RateTiers overrides the rate-limit tier table when non-empty.
	RateTiers map[string]ratelimit.Policy

	// FailOpen admits requests when the rate-limit store is unavailable.
	FailOpen bool

	// Redis configures the shared rate-limit store. Empty Addr selects
	// the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CacheTTL is the lifetime of cached tool results.
	CacheTTL time.Duration

	// Amazon holds the SP-API credentials.
	Amazon AmazonConfig

	// Observe configures telemetry.
	Observe observe.Config
}

// AmazonConfig holds Selling Partner API settings.
type AmazonConfig struct {
	Endpoint      string
	MarketplaceID string
	SellerID      string
	RefreshToken  string
	ClientID      string
	ClientSecret  string
}

// Production reports whether the bridge runs in production mode.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment, applying defaults and
// strict ${VAR} expansion to every value. A value that references a
// missing variable fails Load rather than silently using the default.
func Load() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Environment: env.get("ENVIRONMENT", "development"),
	}

	host := env.get("MCP_HOST", "0.0.0.0")
	port := env.get("MCP_PORT", "8000")
	cfg.ListenAddr = net.JoinHostPort(host, port)

	cfg.SecretKey = env.get("MCP_SECRET_KEY", "")
	if cfg.SecretKey == "" {
		if env.err != nil {
			return nil, env.err
		}
		if cfg.Production() {
			return nil, ErrMissingSecret
		}
		cfg.SecretKey = DevSecretKey
	}

	cfg.APIKeys = env.get("MCP_API_KEYS", "")

	var err error
	if cfg.TokenTTL, err = env.duration("MCP_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReplayWindow, err = env.duration("MCP_REPLAY_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = env.duration("MCP_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.RateTiers, err = parseTiers(env.get("MCP_RATE_TIERS", "")); err != nil {
		return nil, err
	}
	cfg.FailOpen = env.boolean("MCP_RATE_FAIL_OPEN", false)

	cfg.RedisAddr = env.get("REDIS_ADDR", "")
	cfg.RedisPassword = env.get("REDIS_PASSWORD", "")
	if db := env.get("REDIS_DB", ""); db != "" {
		if cfg.RedisDB, err = strconv.Atoi(db); err != nil {
			return nil, fmt.Errorf("config: invalid REDIS_DB: %w", err)
		}
	}

	cfg.Amazon = AmazonConfig{
		Endpoint:      env.get("SPAPI_ENDPOINT", ""),
		MarketplaceID: env.get("AMAZON_MARKETPLACE_ID", ""),
		SellerID:      env.get("SELLER_ID", ""),
		RefreshToken:  env.get("AMAZON_REFRESH_TOKEN", ""),
		ClientID:      env.get("AMAZON_LWA_APP_ID", ""),
		ClientSecret:  env.get("AMAZON_LWA_CLIENT_SECRET", ""),
	}

	cfg.Observe = observe.Config{
		ServiceName: env.get("OTEL_SERVICE_NAME", "spbridge"),
		Version:     env.get("SERVICE_VERSION", "dev"),
		Tracing: observe.TracingConfig{
			Enabled:   env.boolean("TRACING_ENABLED", false),
			Exporter:  env.get("TRACING_EXPORTER", "stdout"),
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  env.boolean("METRICS_ENABLED", false),
			Exporter: env.get("METRICS_EXPORTER", "prometheus"),
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   env.get("LOG_LEVEL", "info"),
		},
	}

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.Observe.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envReader reads variables with strict expansion, retaining the first
// expansion failure so Load can surface it.
type envReader struct {
	err error
}

// get reads a variable and falls back when it is unset or blank. An
// expansion failure records the error and returns the fallback; Load
// refuses to proceed once err is set.
func (r *envReader) get(key, fallback string) string {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	expanded, err := ExpandEnvStrict(raw)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("config: expanding %s: %w", key, err)
		}
		return fallback
	}
	if expanded == "" {
		return fallback
	}
	return expanded
}

func (r *envReader) duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := r.get(key, "")
	if raw == "" {
		return fallback, nil
	}
	// Plain integers are seconds; otherwise Go duration syntax.
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, raw)
	}
	return d, nil
}

func (r *envReader) boolean(key string, fallback bool) bool {
	raw := r.get(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

// parseTiers parses "tier=requests,tier=requests" into hourly policies.
// An empty spec returns nil so the limiter applies its defaults.
func parseTiers(spec string) (map[string]ratelimit.Policy, error) {
	if spec == "" {
		return nil, nil
	}
	tiers := make(map[string]ratelimit.Policy)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTier, entry)
		}
		max, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || max <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTier, entry)
		}
		tiers[strings.TrimSpace(name)] = ratelimit.Policy{
			MaxRequests: max,
			Window:      time.Hour,
		}
	}
	return tiers, nil
}
