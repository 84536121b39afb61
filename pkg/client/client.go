package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
)

// clientCookie must match the server's client id cookie
const clientCookie = "cid"

// Client is a Go SDK for the compare-engine JSON API. It keeps the
// server-issued client id in a cookie jar, so one Client is one browser.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A jar is added when it has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClientID resumes an existing client identity instead of letting the
// server issue one
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// NewClient creates a new compare-engine client
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	if c.clientID != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: clientCookie, Value: c.clientID, Path: "/"}})
	}

	return c, nil
}

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Snapshot is the full view state of the client
type Snapshot struct {
	Seq  uint64      `json:"seq"`
	Page render.Page `json:"page"`
}

// Catalog is a filtered catalog listing
type Catalog struct {
	Products []*models.Product `json:"products"`
	Total    int               `json:"total"`
	Types    []string          `json:"types"`
	Metrics  []string          `json:"metrics"`
}

// CatalogOptions narrows a catalog listing
type CatalogOptions struct {
	Type   string
	Search string
}

// ClientID returns the client id the server knows this client by, once
// issued
func (c *Client) ClientID() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.clientID
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == clientCookie {
			return ck.Value
		}
	}
	return c.clientID
}

// Catalog lists products matching opts
func (c *Client) Catalog(ctx context.Context, opts CatalogOptions) (*Catalog, error) {
	q := url.Values{}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	path := "/api/v1/catalog"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out Catalog
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// State returns every view for this client
func (c *Client) State(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apply runs one action and returns the resulting views
func (c *Client) Apply(ctx context.Context, action session.Action) (*Snapshot, error) {
	body, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out Snapshot
	if err := c.do(ctx, http.MethodPost, "/api/v1/actions", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Choose places product id into slot
func (c *Client) Choose(ctx context.Context, slot, productID int) (*Snapshot, error) {
	return c.Apply(ctx, session.Action{Type: session.ActionChoose, Slot: slot, ProductID: productID})
}

// Remove empties slot and shifts later slots left
func (c *Client) Remove(ctx context.Context, slot int) (*Snapshot, error) {
	return c.Apply(ctx, session.Action{Type: session.ActionRemove, Slot: slot})
}

// Health checks server liveness
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do performs an HTTP request and decodes the data of the envelope into out
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("HTTP %d: failed to unmarshal response: %w", resp.StatusCode, err)
	}

	if !result.Success {
		if result.Error == nil {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: http.StatusText(resp.StatusCode)}
		}
		result.Error.Status = resp.StatusCode
		return result.Error
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}
