// Package gateways holds clients for the external collaborators the draft
// runtimes depend on: the league service, the player pool service, and the
// chat notifier.
package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type baseClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func newBaseClient(baseURL string) *baseClient {
	return &baseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *baseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *baseClient) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, nil
}

func (c *baseClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.makeRequest(ctx, http.MethodGet, endpoint, nil)
}
