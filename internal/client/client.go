// Package client talks to the invoice API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/pkg/api"
)

// ErrUnauthorized is returned for 401 responses, meaning the session has expired
var ErrUnauthorized = errors.New("Unauthorized")

// StatusError carries any other non-2xx response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Config holds API client settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is the invoice API client
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a new API client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// GetInvoices fetches the invoices of a month key such as "2024-03"
func (c *Client) GetInvoices(ctx context.Context, monthKey string) ([]api.Invoice, error) {
	var out []api.Invoice
	q := url.Values{"month": {monthKey}}
	if err := c.do(ctx, http.MethodGet, "/api/invoices", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInvoice uploads a new invoice
func (c *Client) CreateInvoice(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
	var out api.Invoice
	if err := c.do(ctx, http.MethodPost, "/api/invoices", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInvoice removes an invoice. fileKey is the storage key of its document.
func (c *Client) DeleteInvoice(ctx context.Context, invoiceID, fileKey string) error {
	q := url.Values{"fileKey": {fileKey}}
	return c.do(ctx, http.MethodDelete, "/api/invoices/"+url.PathEscape(invoiceID), q, nil, nil)
}

// Session returns the user behind the configured token
func (c *Client) Session(ctx context.Context) (*api.Session, error) {
	var out api.Session
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches per-category totals for a month key
func (c *Client) Summary(ctx context.Context, monthKey string) (*api.Summary, error) {
	var out api.Summary
	q := url.Values{"month": {monthKey}}
	if err := c.do(ctx, http.MethodGet, "/api/invoices/summary", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveLink turns a relative image link into an absolute URL
func (c *Client) ResolveLink(link string) string {
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb api.ErrorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(raw))
		}
		c.logger.Debug("API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", eb.Error))
		return &StatusError{StatusCode: resp.StatusCode, Message: eb.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
