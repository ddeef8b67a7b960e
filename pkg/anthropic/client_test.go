package anthropic

import (
	"fmt"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestFirstText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "thinking", Text: "hmm"},
		{Type: "text", Text: "the answer"},
		{Type: "text", Text: "ignored"},
	}}
	assert.Equal(t, "the answer", resp.FirstText())

	assert.Empty(t, (&MessageResponse{}).FirstText())
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	usage := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	// Cache writes bill at 1.25x input, reads at 0.1x.
	assert.InDelta(t, 0.80*1.25+0.80*0.1, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestShouldRetryAPIError(t *testing.T) {
	assert.True(t, shouldRetryAPIError(&sdk.Error{StatusCode: 429}))
	assert.True(t, shouldRetryAPIError(&sdk.Error{StatusCode: 500}))
	assert.True(t, shouldRetryAPIError(&sdk.Error{StatusCode: 529}))
	assert.True(t, shouldRetryAPIError(fmt.Errorf("wrapped: %w", &sdk.Error{StatusCode: 503})))

	assert.False(t, shouldRetryAPIError(&sdk.Error{StatusCode: 400}))
	assert.False(t, shouldRetryAPIError(&sdk.Error{StatusCode: 401}))
	assert.False(t, shouldRetryAPIError(eris.New("invalid request")))
}
