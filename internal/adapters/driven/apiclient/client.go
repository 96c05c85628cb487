// Package apiclient is the JSON-over-HTTP plumbing shared by the embedding
// and LLM adapters. It maps transport failures, error statuses and
// undecodable bodies onto *domain.ServiceError so callers can tell an
// unreachable service from a malformed reply.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// maxErrorBody caps how much of an error response is quoted in errors.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	// Name prefixes error messages, e.g. "ollama".
	Name string

	// BaseURL is prepended to every request path.
	BaseURL string

	// Stage is recorded on every ServiceError.
	Stage domain.Stage

	// Timeout bounds each request. Zero means no client-side limit.
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string
}

// Client issues JSON requests against a single API.
type Client struct {
	http    *http.Client
	name    string
	baseURL string
	stage   domain.Stage
	headers map[string]string
}

// New creates a Client.
func New(cfg Config) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		stage:   cfg.Stage,
		headers: cfg.Headers,
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON sends in as JSON to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get requests path and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.ServiceError{
			Stage:      c.stage,
			Kind:       domain.ServiceUnavailable,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return c.transportError(ctx.Err())
		}
		return c.Malformed("decode response: %v", err)
	}
	return nil
}

// Malformed builds a ServiceError for a reply that cannot be used.
func (c *Client) Malformed(format string, args ...any) error {
	return &domain.ServiceError{
		Stage: c.stage,
		Kind:  domain.ServiceMalformed,
		Err:   fmt.Errorf("%s: "+format, append([]any{c.name}, args...)...),
	}
}

func (c *Client) transportError(err error) error {
	kind := domain.ServiceUnavailable
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = domain.ServiceTimeout
	}
	return domain.NewServiceError(c.stage, kind, fmt.Errorf("%s: %w", c.name, err))
}

// Float32s converts an API vector to float32.
func Float32s(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
