// Package providers creates embedding providers by type.
package providers

import (
	"context"

	"github.com/botirk38/embedcache/providers/gemini"
	"github.com/botirk38/embedcache/providers/openai"
	"github.com/botirk38/embedcache/types"
)

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(config openai.OpenAIConfig) (types.EmbeddingProvider, error) {
	return openai.NewOpenAIProvider(config)
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, config gemini.GeminiConfig) (types.EmbeddingProvider, error) {
	return gemini.NewGeminiProvider(ctx, config)
}
