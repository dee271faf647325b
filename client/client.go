package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrToolFailed indicates the server executed the tool and reported an
// error result.
var ErrToolFailed = errors.New("client: tool call failed")

// APIError is a non-2xx response from the bridge.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}

// Config configures the client.
type Config struct {
	// BaseURL is the bridge's base URL. Default http://localhost:8000.
	BaseURL string

	// Token authenticates requests as a bearer token. Takes precedence
	// over APIKey when both are set.
	Token string

	// APIKey authenticates requests in id:secret form.
	APIKey string

	// HTTPClient overrides the transport. Default: 30s timeout client.
	HTTPClient *http.Client
}

// Client calls the bridge's tool API. Safe for concurrent use.
type Client struct {
	config Config
}

// New creates a client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{config: config}
}

// ToolDefinition is one listable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// TextContent is one text block in a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ListTools returns the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	body, err := c.rpc(ctx, map[string]any{"method": "tools/list", "params": map[string]any{}})
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []ToolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("client: decoding tool list: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool and returns its text payload.
// A server-side tool failure returns an error wrapping ErrToolFailed.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	body, err := c.rpc(ctx, map[string]any{
		"method": "tools/call",
		"params": map[string]any{"name": name, "arguments": arguments},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []TextContent `json:"content"`
		IsError bool          `json:"isError"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("client: decoding tool result: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("client: empty tool result")
	}
	if result.IsError {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, result.Content[0].Text)
	}
	return result.Content[0].Text, nil
}

// GetProductInfo fetches the product payload for a SKU as a decoded map.
func (c *Client) GetProductInfo(ctx context.Context, sku string) (map[string]any, error) {
	return c.callJSON(ctx, "get_amazon_product_info", map[string]any{"sku": sku})
}

// GetProductPricing fetches the pricing payload for a SKU as a decoded map.
func (c *Client) GetProductPricing(ctx context.Context, sku string) (map[string]any, error) {
	return c.callJSON(ctx, "get_amazon_product_pricing", map[string]any{"sku": sku})
}

// OptimizeListing fetches the optimization payload for an ASIN.
// An empty focus defaults server-side to "all".
func (c *Client) OptimizeListing(ctx context.Context, asin, focus string) (map[string]any, error) {
	args := map[string]any{"asin": asin}
	if focus != "" {
		args["optimization_focus"] = focus
	}
	return c.callJSON(ctx, "optimize_product_listing", args)
}

// HealthCheck reports whether the bridge answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) callJSON(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	text, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("client: decoding %s payload: %w", tool, err)
	}
	return decoded, nil
}

func (c *Client) rpc(ctx context.Context, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("client: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/rpc", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	switch {
	case c.config.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	case c.config.APIKey != "":
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: serverMessage(body)}
	}
	return body, nil
}

func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
