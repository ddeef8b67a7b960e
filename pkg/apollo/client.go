// Package apollo provides a client for the Apollo.io people search API.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutline/sourcing-cli/internal/resilience"
)

// Client defines the Apollo people search operations.
type Client interface {
	// SearchPeople runs a people search and returns one page of results.
	SearchPeople(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the people search query. Empty fields are omitted from
// the request body.
type SearchRequest struct {
	PersonTitles    []string `json:"person_titles,omitempty"`
	QKeywords       string   `json:"q_keywords,omitempty"`
	PersonLocations []string `json:"person_locations,omitempty"`
	Industries      []string `json:"organization_industry_tag_ids,omitempty"`
	Page            int      `json:"page,omitempty"`
	PerPage         int      `json:"per_page,omitempty"`
}

// SearchResponse is the parsed people search response.
type SearchResponse struct {
	People     []Person   `json:"people"`
	Pagination Pagination `json:"pagination"`
}

// Person is a single search hit. LinkedinURL is the identity the pipeline
// keys on; hits without one are discarded by the caller.
type Person struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	LinkedinURL string `json:"linkedin_url"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	PhotoURL    string `json:"photo_url"`
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
}

// Pagination describes the result page window.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_entries"`
}

// Option configures the Apollo client.
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

// NewClient creates a new Apollo client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.apollo.io/api/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) SearchPeople(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal search request")
	}

	body, statusCode, err := c.retryDo(ctx, http.MethodPost, c.baseURL+"/mixed_people/search", payload)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: search request failed")
	}

	if statusCode != http.StatusOK {
		if resilience.IsTransientHTTPStatus(statusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("apollo: status %d: %s", statusCode, string(body)), statusCode)
		}
		return nil, eris.Errorf("apollo: unexpected status %d: %s", statusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "apollo: unmarshal search response")
	}
	return &result, nil
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures. The request is rebuilt each attempt so the body can
// be re-sent.
func (c *httpClient) retryDo(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "apollo: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

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
			return nil, resp.StatusCode, eris.Wrap(readErr, "apollo: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("apollo: status %d: %s", resp.StatusCode, string(body))
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
