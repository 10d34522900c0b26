// Package supabase implements the REST client for the hosted backend:
// PostgREST database access, GoTrue auth, Storage, and Realtime.
package supabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Config holds client configuration.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// AnonKey is sent as the apikey header on every request.
	AnonKey string
	// ServiceKey authorizes requests that bypass row-level security.
	ServiceKey string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// Retry configures retries on transient failures. Zero value disables.
	Retry RetryConfig
}

// Client is the process-wide handle to the hosted backend. It is stateless
// beyond its configuration and safe for concurrent use.
type Client struct {
	baseURL     string
	restURL     string
	authURL     string
	storageURL  string
	realtimeURL string
	anonKey     string
	serviceKey  string
	httpClient  *http.Client
	retry       RetryConfig

	auth    *AuthClient
	storage *StorageClient
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}
	baseURL := strings.TrimRight(cfg.URL, "/")
	parsed, err := neturl.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("supabase URL must be a valid URL")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		transport := http.DefaultTransport
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			cloned := base.Clone()
			if cloned.TLSClientConfig == nil {
				cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			} else if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
				cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
				cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
			}
			transport = cloned
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	anonKey := cfg.AnonKey
	if anonKey == "" {
		anonKey = cfg.ServiceKey
	}

	wsURL := baseURL
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + wsURL[len("https"):]
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + wsURL[len("http"):]
	}

	c := &Client{
		baseURL:     baseURL,
		restURL:     baseURL + "/rest/v1",
		authURL:     baseURL + "/auth/v1",
		storageURL:  baseURL + "/storage/v1",
		realtimeURL: wsURL + "/realtime/v1/websocket",
		anonKey:     anonKey,
		serviceKey:  cfg.ServiceKey,
		httpClient:  httpClient,
		retry:       cfg.Retry,
	}
	c.auth = &AuthClient{client: c}
	c.storage = &StorageClient{client: c}
	return c, nil
}

// Auth returns the auth sub-client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Storage returns the storage sub-client.
func (c *Client) Storage() *StorageClient { return c.storage }

// Rest performs a PostgREST request against table with an optional raw query
// string (already encoded filter expressions). The service key is used, so
// row-level security is bypassed; authorization happens in this service.
func (c *Client) Rest(ctx context.Context, method, table string, body any, query string) ([]byte, error) {
	url := c.restURL + "/" + table
	if query != "" {
		url += "?" + query
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	headers := map[string]string{"Prefer": "return=representation"}
	resp, err := c.do(ctx, method, url, payload, headers, c.serviceKey)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.Body, resp.StatusCode)
	}
	return resp.Body, nil
}

// response is the raw result of one HTTP call.
type response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// do executes a request with the apikey header plus a bearer key, retrying
// transient failures per the retry config.
func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string, bearer string) (*response, error) {
	attempt := 0
	for {
		resp, err := c.doOnce(ctx, method, url, body, headers, bearer)
		if !c.retry.shouldRetry(attempt, resp, err) {
			return resp, err
		}
		attempt++
		if waitErr := sleepContext(ctx, c.retry.backoff(attempt)); waitErr != nil {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, headers map[string]string, bearer string) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBytes)
	if resp.StatusCode >= 400 {
		limit = maxErrorBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{StatusCode: resp.StatusCode, Body: data, Headers: resp.Header}, nil
}

// Error is a failure reported by the hosted backend.
type Error struct {
	Code       string
	Message    string
	Details    string
	Hint       string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("supabase error %d", e.StatusCode)
}

func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{Code: "unknown", Message: strings.TrimSpace(string(body)), StatusCode: statusCode}
	}
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Msg
	}
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = errResp.ErrorDescription
	}
	return &Error{
		Code:       errResp.Code,
		Message:    msg,
		Details:    errResp.Details,
		Hint:       errResp.Hint,
		StatusCode: statusCode,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
