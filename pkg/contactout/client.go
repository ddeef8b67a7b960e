// Package contactout provides a client for the ContactOut contact
// enrichment API.
package contactout

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

// Client defines the ContactOut enrichment operations.
type Client interface {
	// Enrich looks up contact details for a profile URL. A nil result with a
	// nil error means the provider has no contact data for that profile;
	// that is an expected outcome, not a failure.
	Enrich(ctx context.Context, profileURL string) (*Contact, error)
}

// Contact is the enrichment result for one profile.
type Contact struct {
	Emails []Email `json:"emails"`
	Phones []Phone `json:"phones"`
}

// Email is one discovered email address with its classification.
type Email struct {
	Address string `json:"address"`
	// Type is "personal" or "work".
	Type string `json:"type"`
	// Status is "verified" or "unverified".
	Status string `json:"status"`
}

// Phone is one discovered phone number.
type Phone struct {
	Number string `json:"number"`
	// Type is "work", "mobile", or empty when unknown.
	Type string `json:"type"`
}

// HasAny reports whether the contact carries at least one usable method.
func (c *Contact) HasAny() bool {
	return c != nil && (len(c.Emails) > 0 || len(c.Phones) > 0)
}

// apiResponse is the raw provider payload.
type apiResponse struct {
	StatusCode int `json:"status_code"`
	Profile    struct {
		Email         []string `json:"email"`
		WorkEmail     []string `json:"work_email"`
		PersonalEmail []string `json:"personal_email"`
		Phone         []string `json:"phone"`
		WorkPhone     []string `json:"work_phone"`
		VerifiedEmails []string `json:"verified_emails"`
	} `json:"profile"`
}

// Option configures the ContactOut client.
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

// NewClient creates a new ContactOut client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.contactout.com/v1",
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

func (c *httpClient) Enrich(ctx context.Context, profileURL string) (*Contact, error) {
	reqURL := c.baseURL + "/people/linkedin?profile=" + url.QueryEscape(profileURL)

	body, statusCode, err := c.retryDo(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "contactout: enrich request failed")
	}

	// 404 means no contact data exists for this profile.
	if statusCode == http.StatusNotFound {
		return nil, nil
	}
	if statusCode != http.StatusOK {
		if resilience.IsTransientHTTPStatus(statusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("contactout: status %d: %s", statusCode, string(body)), statusCode)
		}
		return nil, eris.Errorf("contactout: unexpected status %d: %s", statusCode, string(body))
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "contactout: unmarshal response")
	}

	contact := normalize(&raw)
	if !contact.HasAny() {
		return nil, nil
	}
	return contact, nil
}

// normalize maps the provider's flat email/phone lists into typed entries.
// Verification status comes from membership in verified_emails.
func normalize(raw *apiResponse) *Contact {
	verified := make(map[string]bool, len(raw.Profile.VerifiedEmails))
	for _, e := range raw.Profile.VerifiedEmails {
		verified[e] = true
	}

	status := func(addr string) string {
		if verified[addr] {
			return "verified"
		}
		return "unverified"
	}

	contact := &Contact{}
	seen := make(map[string]bool)

	for _, addr := range raw.Profile.PersonalEmail {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		contact.Emails = append(contact.Emails, Email{Address: addr, Type: "personal", Status: status(addr)})
	}
	for _, addr := range raw.Profile.WorkEmail {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		contact.Emails = append(contact.Emails, Email{Address: addr, Type: "work", Status: status(addr)})
	}
	for _, addr := range raw.Profile.Email {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		contact.Emails = append(contact.Emails, Email{Address: addr, Status: status(addr)})
	}

	seenPhone := make(map[string]bool)
	for _, num := range raw.Profile.WorkPhone {
		if num == "" || seenPhone[num] {
			continue
		}
		seenPhone[num] = true
		contact.Phones = append(contact.Phones, Phone{Number: num, Type: "work"})
	}
	for _, num := range raw.Profile.Phone {
		if num == "" || seenPhone[num] {
			continue
		}
		seenPhone[num] = true
		contact.Phones = append(contact.Phones, Phone{Number: num})
	}

	return contact
}

func (c *httpClient) retryDo(ctx context.Context, reqURL string) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, 0, eris.Wrap(err, "contactout: create request")
		}
		req.Header.Set("Authorization", "basic "+c.apiKey)
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
			return nil, resp.StatusCode, eris.Wrap(readErr, "contactout: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("contactout: status %d: %s", resp.StatusCode, string(body))
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
