package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrNoEmbeddingInResponse is returned when the API response carries no embedding.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrEmptyInput is returned for blank input text.
	ErrEmptyInput = errors.New("openai: input text is empty")
)

const defaultOpenAIDimensions = 256

// OpenAIEmbedder calls the OpenAI embeddings API via the official SDK.
type OpenAIEmbedder struct {
	sdk         openaisdk.Client
	model       openaisdk.EmbeddingModel
	dimensions  int
	requestOpts []option.RequestOption
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithOpenAIDimensions sets the requested embedding dimension.
func WithOpenAIDimensions(dim int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if dim > 0 {
			e.dimensions = dim
		}
	}
}

// WithOpenAIModel overrides the embedding model (default text-embedding-3-small).
func WithOpenAIModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if model != "" {
			e.model = openaisdk.EmbeddingModel(model)
		}
	}
}

// WithOpenAIRequestOptions passes extra SDK options (base URL, HTTP client, retries).
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.requestOpts = append(e.requestOpts, opts...)
	}
}

// NewOpenAIEmbedder creates an embedder authenticated with apiKey.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		model:      openaisdk.EmbeddingModelTextEmbedding3Small,
		dimensions: defaultOpenAIDimensions,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sdk = openaisdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, e.requestOpts...)...)
	return e
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	resp, err := e.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
		Model:      e.model,
		Dimensions: param.NewOpt(int64(e.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}
	return out, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
