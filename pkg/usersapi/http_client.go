package usersapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// HTTPConfig configures the HTTP users client. A zero Timeout means the
// request waits as long as the context allows.
type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClient reads the user directory over REST.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	validator *PayloadValidator
}

// NewHTTPClient builds a client for the given base URL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("usersapi: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	validator, err := NewPayloadValidator()
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    httpClient,
		validator: validator,
	}, nil
}

// FetchUsers implements UsersClient via GET <base>/users.
func (c *HTTPClient) FetchUsers(ctx context.Context, token string) ([]dashboard.UserRecord, error) {
	url := c.baseURL + "/users"
	var raw any
	if err := c.FetchJSON(ctx, url, token, &raw); err != nil {
		return nil, err
	}
	if err := c.validator.Validate(raw); err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	// the schema guarantees the shape, so re-encoding cannot fail in practice
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	var users []dashboard.UserRecord
	if err := json.Unmarshal(encoded, &users); err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	return users, nil
}

// FetchJSON issues a single GET and decodes the body into target. A non-empty
// token is sent as a bearer credential. There is no retry.
func (c *HTTPClient) FetchJSON(ctx context.Context, url, token string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("usersapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("usersapi: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("usersapi: read body: %w", err)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}
