package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder calls OpenAI's embeddings API.
type OpenAIEmbedder struct {
	model   openai.EmbeddingModel
	client  *openai.Client
	timeout time.Duration
}

const defaultEmbeddingTimeout = 30 * time.Second

// NewOpenAIEmbedder creates a new OpenAI embedder with automatic retries disabled.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel, timeout time.Duration, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.EmbeddingModelTextEmbeddingAda002
	}
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	cli := openai.NewClient(opts...)
	return &OpenAIEmbedder{
		model:   model,
		client:  &cli,
		timeout: timeout,
	}, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string { return string(e.model) }

func (e *OpenAIEmbedder) Embed(ctx context.Context, inputs []string) ([]Vector, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("%w: nil openai client", ErrUpstream)
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(reqCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUpstream, len(resp.Data), len(inputs))
	}

	// Data carries its own index; place each vector at its input position.
	out := make([]Vector, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: unexpected embedding index %d", ErrUpstream, d.Index)
		}
		vec := make(Vector, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
