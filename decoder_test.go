package gochat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeltaContent(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[{"delta":{"content":"Hello"}}]}`)

	require.NoError(t, err)
	assert.Equal(t, ContentDelta("Hello"), delta)
}

func TestDecodeDeltaReasoning(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[{"delta":{"reasoning":"thinking..."}}]}`)

	require.NoError(t, err)
	assert.Equal(t, ReasoningDelta("thinking..."), delta)
}

func TestDecodeDeltaUsage(t *testing.T) {
	payload := `{"choices":[],"usage":{
		"prompt_tokens":10,
		"completion_tokens":20,
		"total_tokens":30,
		"prompt_tokens_details":{"cached_tokens":4},
		"completion_tokens_details":{"reasoning_tokens":8}
	}}`

	delta, err := decodeDelta(payload)

	require.NoError(t, err)
	assert.Equal(t, UsageDelta(TokenUsage{
		InputTokens:       10,
		CachedInputTokens: 4,
		OutputTokens:      20,
		ReasoningTokens:   8,
	}), delta)
}

func TestDecodeDeltaUsageWithoutDetails(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)

	require.NoError(t, err)
	assert.Equal(t, UsageDelta(TokenUsage{InputTokens: 1, OutputTokens: 2}), delta)
}

func TestDecodeDeltaRefusal(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[{"delta":{"refusal":"I cannot help with that"}}]}`)

	assert.Nil(t, delta)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeRefusal, ErrorTypeOf(err))
	assert.Contains(t, err.Error(), "I cannot help with that")
}

func TestDecodeDeltaMalformed(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[{`)

	assert.Nil(t, delta)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeDecode, ErrorTypeOf(err))
}

func TestDecodeDeltaIgnored(t *testing.T) {
	ignored := []string{
		// role-only opener
		`{"choices":[{"delta":{"role":"assistant"}}]}`,
		// bare finish_reason marker
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		// empty choices without usage
		`{"choices":[]}`,
		// empty delta
		`{"choices":[{"delta":{}}]}`,
	}

	for _, payload := range ignored {
		delta, err := decodeDelta(payload)
		assert.NoError(t, err, payload)
		assert.Nil(t, delta, payload)
	}
}

func TestDecodeDeltaNullContent(t *testing.T) {
	delta, err := decodeDelta(`{"choices":[{"delta":{"content":null},"finish_reason":"stop"}]}`)

	assert.NoError(t, err)
	assert.Nil(t, delta)
}
