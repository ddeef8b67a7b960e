package contactout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/sourcing-cli/internal/resilience"
)

func TestEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/linkedin", r.URL.Path)
		assert.Equal(t, "https://linkedin.com/in/janedoe", r.URL.Query().Get("profile"))
		assert.Equal(t, "basic test-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"status_code": 200,
			"profile": {
				"personal_email": ["jane@gmail.com"],
				"work_email": ["jane@acme.com"],
				"email": ["jane@gmail.com", "jane.doe@other.com"],
				"work_phone": ["+49 30 1234"],
				"phone": ["+49 170 5678"],
				"verified_emails": ["jane@gmail.com"]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	contact, err := client.Enrich(context.Background(), "https://linkedin.com/in/janedoe")
	require.NoError(t, err)
	require.NotNil(t, contact)

	// The duplicate in the generic email list is dropped.
	require.Len(t, contact.Emails, 3)
	assert.Equal(t, Email{Address: "jane@gmail.com", Type: "personal", Status: "verified"}, contact.Emails[0])
	assert.Equal(t, Email{Address: "jane@acme.com", Type: "work", Status: "unverified"}, contact.Emails[1])
	assert.Equal(t, Email{Address: "jane.doe@other.com", Status: "unverified"}, contact.Emails[2])

	require.Len(t, contact.Phones, 2)
	assert.Equal(t, Phone{Number: "+49 30 1234", Type: "work"}, contact.Phones[0])
	assert.Equal(t, Phone{Number: "+49 170 5678"}, contact.Phones[1])
}

func TestEnrich_NotFoundMeansNoContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	contact, err := client.Enrich(context.Background(), "https://linkedin.com/in/nobody")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestEnrich_EmptyProfileMeansNoContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code": 200, "profile": {}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	contact, err := client.Enrich(context.Background(), "https://linkedin.com/in/ghost")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestEnrich_ForbiddenIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))
	_, err := client.Enrich(context.Background(), "https://linkedin.com/in/janedoe")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestContact_HasAny(t *testing.T) {
	assert.False(t, (*Contact)(nil).HasAny())
	assert.False(t, (&Contact{}).HasAny())
	assert.True(t, (&Contact{Emails: []Email{{Address: "a@b.c"}}}).HasAny())
	assert.True(t, (&Contact{Phones: []Phone{{Number: "+1"}}}).HasAny())
}
