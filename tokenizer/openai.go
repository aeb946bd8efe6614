// Package tokenizer provides local token counting for embedding inputs.
package tokenizer

import (
	tiktoken "github.com/tiktoken-go/tokenizer"
)

// OpenAITokenizer counts tokens using tiktoken. Counting is local and fast;
// no API call is made.
type OpenAITokenizer struct {
	codec tiktoken.Codec
}

// NewOpenAITokenizer creates a tokenizer with the Cl100kBase encoding used by
// OpenAI's embedding models.
func NewOpenAITokenizer() (*OpenAITokenizer, error) {
	codec, err := tiktoken.Get(tiktoken.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &OpenAITokenizer{codec: codec}, nil
}

// CountTokens returns the token count of a single text.
func (t *OpenAITokenizer) CountTokens(text string) int {
	ids, _, _ := t.codec.Encode(text)
	return len(ids)
}
