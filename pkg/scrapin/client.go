// Package scrapin provides a client for the ScrapIn profile scraping API.
package scrapin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutline/sourcing-cli/internal/resilience"
)

// Client defines the ScrapIn profile operations.
type Client interface {
	// ScrapeProfile fetches the full raw profile payload for a profile URL.
	ScrapeProfile(ctx context.Context, profileURL string) (*ProfileResponse, error)
}

// ProfileResponse is the parsed scrape response. Person is kept as an
// untyped map: the payload shape varies and downstream extraction handles
// the field aliases.
type ProfileResponse struct {
	Success bool           `json:"success"`
	Person  map[string]any `json:"person"`
	Company map[string]any `json:"company,omitempty"`
}

// Option configures the ScrapIn client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new ScrapIn client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.scrapin.io",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ScrapeProfile(ctx context.Context, profileURL string) (*ProfileResponse, error) {
	reqURL := c.baseURL + "/enrichment/profile?apikey=" + url.QueryEscape(c.apiKey) +
		"&linkedInUrl=" + url.QueryEscape(profileURL)

	body, statusCode, err := c.retryDo(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "scrapin: scrape request failed")
	}

	if statusCode != http.StatusOK {
		if resilience.IsTransientHTTPStatus(statusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("scrapin: status %d: %s", statusCode, string(body)), statusCode)
		}
		return nil, eris.Errorf("scrapin: unexpected status %d: %s", statusCode, string(body))
	}

	var result ProfileResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "scrapin: unmarshal response")
	}
	if !result.Success {
		return nil, eris.Errorf("scrapin: provider reported failure for %s", profileURL)
	}
	return &result, nil
}

func (c *httpClient) retryDo(ctx context.Context, reqURL string) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, 0, eris.Wrap(err, "scrapin: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "scrapin: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("scrapin: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}
