// Package apiclient provides a client for the arraymorph HTTP gateway.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the gateway at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient returns a new client using hc for requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: hc,
	}
}

// BaseURL returns the gateway address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the JSON wrapper every gateway response uses.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// send performs an HTTP request and returns the status code and body
// without interpreting either.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// do performs an HTTP request and returns the body of a successful
// response. Statuses of 400 and above become an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	status, respBody, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, newAPIError(status, respBody)
	}
	return respBody, nil
}

// getData performs a GET and decodes the envelope's data into result.
func (c *Client) getData(ctx context.Context, path string, query url.Values, result any) error {
	respBody, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
