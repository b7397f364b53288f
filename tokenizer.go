package gochat

import (
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter maps text to a deterministic token count. It is consumed
// as an opaque capability; a counter is only required when history
// bounds are configured on the conversation.
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// TiktokenCounter counts tokens with the tiktoken BPE used by GPT
// models.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter initializes a counter with the cl100k_base
// encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, NewTokenizerError(err)
	}
	return &TiktokenCounter{codec: codec}, nil
}

// CountTokens returns the number of BPE tokens in text.
func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, NewTokenizerError(err)
	}
	return len(ids), nil
}

// HeuristicCounter estimates tokens at ~4 characters per token. Good
// enough for window thresholds, not billing-accurate.
type HeuristicCounter struct{}

// CountTokens returns a rounded-up length/4 estimate.
func (HeuristicCounter) CountTokens(text string) (int, error) {
	return (len(text) + 3) / 4, nil
}
