package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/botirk38/embedcache/tokenizer"
)

const (
	DefaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Small

	// API limits per embeddings request. Larger input lists are split into
	// sub-requests transparently.
	maxBatchInputs = 2048
	maxBatchTokens = 300000
)

// OpenAIProvider uses OpenAI's API to embed text.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	tok    *tokenizer.OpenAITokenizer
}

// OpenAIConfig provides configuration options for OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	OrgID   string
	Model   string
}

// NewOpenAIProvider creates an embedding provider for OpenAI.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OpenAI API key is required")
		}
	}

	model := config.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}

	tok, err := tokenizer.NewOpenAITokenizer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model, tok: tok}, nil
}

// EmbedTexts embeds a batch of texts, one vector per text in input order.
// Batches exceeding the API's per-request input or token limits are split into
// multiple requests.
func (p *OpenAIProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range p.splitBatches(texts) {
		vectors, err := p.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// splitBatches greedily packs texts into sub-batches under the request limits,
// preserving order. A single oversized text still goes out alone; the API
// rejects it with its own error.
func (p *OpenAIProvider) splitBatches(texts []string) [][]string {
	var batches [][]string
	var current []string
	tokens := 0
	for _, text := range texts {
		n := p.tok.CountTokens(text)
		if len(current) > 0 && (len(current) >= maxBatchInputs || tokens+n > maxBatchTokens) {
			batches = append(batches, current)
			current, tokens = nil, 0
		}
		current = append(current, text)
		tokens += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// OpenAI returns []float64 rows tagged with their input index; convert to
	// []float32 and place by index.
	out := make([][]float32, len(texts))
	for _, row := range resp.Data {
		if row.Index < 0 || int(row.Index) >= len(texts) {
			return nil, fmt.Errorf("OpenAI returned embedding for out-of-range index %d", row.Index)
		}
		vec := make([]float32, len(row.Embedding))
		for i, v := range row.Embedding {
			vec[i] = float32(v)
		}
		out[row.Index] = vec
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("OpenAI returned no embedding for input %d", i)
		}
	}
	return out, nil
}

func (p *OpenAIProvider) Close() {}
