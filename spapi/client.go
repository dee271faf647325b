package spapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerops/spbridge/observe"
)

// Sentinel errors for marketplace lookups.
var (
	// ErrNotFound indicates the SKU has no listing (or no pricing data).
	ErrNotFound = errors.New("spapi: not found")

	// ErrMissingCredentials indicates the LWA credentials are incomplete.
	ErrMissingCredentials = errors.New("spapi: missing LWA credentials")
)

// APIError is a non-retryable error response from the marketplace API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spapi: upstream returned %d: %s", e.StatusCode, e.Message)
}

// Config configures the client.
type Config struct {
	// Endpoint is the SP-API base URL.
	// Default: the EU endpoint.
	Endpoint string

	// TokenURL is the LWA token endpoint.
	// Default: https://api.amazon.com/auth/o2/token
	TokenURL string

	// MarketplaceID selects the marketplace.
	// Default: A1PA6795UKMFR9 (amazon.de).
	MarketplaceID string

	// SellerID identifies the selling account for listings lookups.
	SellerID string

	// LWA credentials.
	RefreshToken string
	ClientID     string
	ClientSecret string

	// HTTPClient overrides the transport. Default: 30s timeout client.
	HTTPClient *http.Client

	// RequestsPerSecond and Burst bound the client-side throttle.
	// Defaults: 5 rps, burst 10.
	RequestsPerSecond float64
	Burst             int

	// MaxAttempts bounds retries on 429/5xx responses. Default: 3.
	MaxAttempts int

	// BreakerMaxFailures opens the circuit after this many consecutive
	// upstream failures. Default: 5.
	BreakerMaxFailures int

	// BreakerResetAfter is how long the circuit stays open before a trial
	// request. Default: 30s.
	BreakerResetAfter time.Duration

	// Logger and Metrics are optional.
	Logger  observe.Logger
	Metrics observe.Metrics
}

// Client calls the Selling Partner API. Safe for concurrent use.
type Client struct {
	config  Config
	limiter *rate.Limiter
	breaker *breaker
	logger  observe.Logger
	metrics observe.Metrics

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new SP-API client.
func NewClient(config Config) *Client {
	// Apply defaults
	if config.Endpoint == "" {
		config.Endpoint = "https://sellingpartnerapi-eu.amazon.com"
	}
	if config.TokenURL == "" {
		config.TokenURL = "https://api.amazon.com/auth/o2/token"
	}
	if config.MarketplaceID == "" {
		config.MarketplaceID = "A1PA6795UKMFR9"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}

	return &Client{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		breaker: newBreaker(config.BreakerMaxFailures, config.BreakerResetAfter),
		logger:  config.Logger,
		metrics: config.Metrics,
	}
}

// includedData mirrors the listing facets the tool surface needs.
const includedData = "attributes,summaries,issues,offers,fulfillmentAvailability,procurement,relationships,productTypes"

// GetProductInfo fetches and formats the listing for a SKU.
func (c *Client) GetProductInfo(ctx context.Context, sku string) (*Product, error) {
	if sku == "" {
		return nil, fmt.Errorf("spapi: sku is required")
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s",
		url.PathEscape(c.config.SellerID), url.PathEscape(sku))
	query := url.Values{
		"marketplaceIds": {c.config.MarketplaceID},
		"includedData":   {includedData},
	}

	body, err := c.do(ctx, "listings.get", path, query)
	if err != nil {
		return nil, err
	}

	var item listingsItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("spapi: decoding listings payload: %w", err)
	}
	return formatProduct(&item), nil
}

// GetCompetitivePricing fetches competitive pricing for a SKU.
func (c *Client) GetCompetitivePricing(ctx context.Context, sku string) (*Pricing, error) {
	if sku == "" {
		return nil, fmt.Errorf("spapi: sku is required")
	}

	query := url.Values{
		"MarketplaceId": {c.config.MarketplaceID},
		"Skus":          {sku},
		"ItemType":      {"Sku"},
	}

	body, err := c.do(ctx, "pricing.competitive", "/products/pricing/v0/competitivePrice", query)
	if err != nil {
		return nil, err
	}

	var resp pricingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("spapi: decoding pricing payload: %w", err)
	}
	if len(resp.Payload) == 0 {
		return nil, ErrNotFound
	}
	return &Pricing{SKU: sku, Offers: resp.Payload}, nil
}

// do performs one throttled, retried GET against the API, behind the
// circuit breaker.
func (c *Client) do(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.attempt(ctx, path, query)
	for attempt := 1; attempt < c.config.MaxAttempts && isRetryable(err); attempt++ {
		delay := backoffDelay(attempt)
		c.logger.Warn(ctx, "retrying upstream request",
			observe.F("operation", operation),
			observe.F("attempt", attempt),
			observe.F("delay_ms", delay.Milliseconds()))

		select {
		case <-ctx.Done():
			c.metrics.RecordUpstreamFetch(ctx, operation, time.Since(start), ctx.Err())
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		body, err = c.attempt(ctx, path, query)
	}

	c.metrics.RecordUpstreamFetch(ctx, operation, time.Since(start), err)
	if err != nil {
		c.logger.Error(ctx, "upstream request failed",
			observe.F("operation", operation),
			observe.F("error", err.Error()))
	}
	return body, err
}

// attempt runs one request through the breaker.
func (c *Client) attempt(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.breaker.allow(); err != nil {
		return nil, err
	}
	body, err := c.doOnce(ctx, path, query)
	c.breaker.observe(err)
	return body, err
}

func (c *Client) doOnce(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.Endpoint+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-amz-access-token", token)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("spapi: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}
}

// token returns a cached LWA access token, refreshing it when it expires
// within the next minute.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	if c.config.RefreshToken == "" || c.config.ClientID == "" || c.config.ClientSecret == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.config.RefreshToken},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("spapi: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("spapi: reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("spapi: decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("spapi: token response missing access_token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// isRetryable reports whether the upstream failure is worth another attempt.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// backoffDelay computes an exponential delay with jitter for the attempt.
func backoffDelay(attempt int) time.Duration {
	delay := 200 * time.Millisecond << (attempt - 1)
	if delay > 5*time.Second {
		delay = 5 * time.Second
	}
	// Up to 25% jitter to avoid synchronized retries.
	jitter := time.Duration(rand.Int64N(int64(delay) / 4))
	return delay + jitter
}

func apiMessage(body []byte) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		return payload.Errors[0].Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
