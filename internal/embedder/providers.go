package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/recallkit/recall-mcp/internal/retry"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Embedding dimensions per provider
const (
	OpenAIDimension = 1536
	LocalDimension  = 256
)

// OpenAIModel is the embedding model used for the online mode
const OpenAIModel = string(openai.EmbeddingModelTextEmbedding3Small)

// OpenAIProvider generates embeddings through the OpenAI API
type OpenAIProvider struct {
	client openai.Client
	cache  *Cache
	retry  retry.Config
}

// NewOpenAIProvider creates an OpenAI-backed embedder
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrNoProviderEnabled)
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		cache:  cache,
		retry:  retry.DefaultConfig(),
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if vector, ok := p.cache.Get(hash); ok {
			return vector, nil
		}
	}

	// The embedding call is the only network hop here; retry it with
	// backoff before surfacing a provider failure.
	resp, err := retry.Do(ctx, p.retry, func() (*openai.CreateEmbeddingResponse, error) {
		return p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModelTextEmbedding3Small,
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProviderFailed)
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}

	if p.cache != nil {
		p.cache.Set(hash, vector)
	}
	return vector, nil
}

func (p *OpenAIProvider) Dimension() int {
	return OpenAIDimension
}

func (p *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) Model() string {
	return OpenAIModel
}

func (p *OpenAIProvider) Close() error {
	return nil
}

// LocalProvider is the offline fallback: a deterministic bag-of-tokens
// embedding. Each token hashes into a fixed bucket, so texts sharing
// vocabulary land near each other in cosine space. Quality is far below a
// learned model but the vectors are stable, free, and computed on device.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the on-device embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-token-hash",
		cache: cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if vector, ok := l.cache.Get(hash); ok {
			return vector, nil
		}
	}

	vector := make([]float32, LocalDimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%LocalDimension]++
	}

	normalize(vector)

	if l.cache != nil {
		l.cache.Set(hash, vector)
	}
	return vector, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// normalize scales a vector to unit length in place
func normalize(v []float32) {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
