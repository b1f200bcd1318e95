// Package transport owns the HTTP exchange with the upstream market-data
// API. The pipeline itself never performs I/O; it consumes this client as a
// collaborator and propagates its failures unchanged.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ProtocolError reports a non-2xx upstream response.
type ProtocolError struct {
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// Client is a thin fetcher for the upstream query endpoint. It is safe for
// concurrent use; all request parameters are per-call.
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient configures the underlying resty client with the base URL,
// timeout, and default headers. The API key is appended to every request as
// the upstream expects.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json, text/csv",
			"User-Agent": "avpulse/1.0",
		})

	return &Client{http: httpClient, apiKey: apiKey}
}

// Fetch executes one GET against the query endpoint with the given
// function parameters and returns the raw body. No retries happen here: a
// failed fetch fails the request that needed it.
func (c *Client) Fetch(ctx context.Context, params map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apikey", c.apiKey).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ProtocolError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}
