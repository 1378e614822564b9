// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the Gemini API.
const (
	// DefaultBaseURL is the public Generative Language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout bounds a single generateContent call.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum accepted response body size.
	MaxResponseSize = 4 * 1024 * 1024

	// apiKeyHeader carries the credential. Keeping it out of the query string
	// keeps it out of URLs and logs.
	apiKeyHeader = "x-goog-api-key"
)

// Client talks to the Gemini REST API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a client for apiKey. An empty key is allowed; every call
// then fails with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     slog.Default(),
		userAgent:  "grace-tui",
	}
}

// WithBaseURL sets a custom base URL (tests, proxies).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithRateLimit caps outgoing calls at perMinute requests per minute.
// Zero or negative disables limiting.
func (c *Client) WithRateLimit(perMinute int) *Client {
	if perMinute <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return c
}

// WithLogger sets the logger used for request diagnostics.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key. It is
// the only form of the key that may appear in logs or on screen.
func (c *Client) KeyFingerprint() string {
	return Fingerprint(c.apiKey)
}

// Fingerprint returns the first 8 hex chars of sha256(key), or "none".
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// Generate performs one generateContent call against model.
//
// On success the response is guaranteed to carry non-blank text. Every other
// outcome is returned as an error (see package doc for the classes).
func (c *Client) Generate(ctx context.Context, model string, req *Request) (*Response, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		return nil, fmt.Errorf("model name is empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	status, raw, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}

	return parseGenerate(status, raw)
}

// parseGenerate classifies a generateContent response body.
func parseGenerate(status int, raw []byte) (*Response, error) {
	var resp Response
	decodeErr := json.Unmarshal(raw, &resp)

	if decodeErr == nil && resp.Error != nil {
		return nil, &APIError{
			HTTPStatus: status,
			Code:       resp.Error.Code,
			Status:     resp.Error.Status,
			Message:    resp.Error.Message,
		}
	}
	if status < 200 || status > 299 {
		return nil, &APIError{HTTPStatus: status, Message: snippet(raw)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if strings.TrimSpace(resp.Text()) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, resp.emptyReason())
	}
	return &resp, nil
}

// ListModels returns the models visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var all []ModelInfo
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("pageSize", "100")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		status, raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/models?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			var env struct {
				Error *ErrorBody `json:"error"`
			}
			if json.Unmarshal(raw, &env) == nil && env.Error != nil {
				return nil, &APIError{HTTPStatus: status, Code: env.Error.Code, Status: env.Error.Status, Message: env.Error.Message}
			}
			return nil, &APIError{HTTPStatus: status, Message: snippet(raw)}
		}

		var page modelsResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		all = append(all, page.Models...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// do sends one request and returns the status and size-limited body.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter: %w", err)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Only method and path are logged. Headers carry the key.
	c.logger.Debug("gemini request", "method", method, "path", req.URL.Path, "key", c.KeyFingerprint())
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	c.logger.Debug("gemini response", "status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
