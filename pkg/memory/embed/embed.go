package embed

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
)

// Embedder is a pluggable text-embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrNotSupported is returned by providers that do not offer embeddings.
var ErrNotSupported = errors.New("embeddings not supported by this provider")

// DummyEmbedder is the deterministic offline fallback. Retrieval quality
// degrades but the memory subsystem stays functional without any API key.
type DummyEmbedder struct{}

func (DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return DummyEmbedding(text), nil
}

// DummyEmbedding folds the text bytes into a fixed 768-dim vector.
func DummyEmbedding(text string) []float32 {
	vec := make([]float32, 768)
	for i, ch := range []byte(text) {
		vec[i%768] += float32(ch) / 255.0
	}
	return vec
}

// AutoEmbedder chooses a provider from env:
// CAREBRIDGE_EMBED_PROVIDER=openai|google|gemini|ollama|claude|fastembed
// CAREBRIDGE_EMBED_MODEL=<model string>
// Unset or failed providers fall back to DummyEmbedder.
func AutoEmbedder() Embedder {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("CAREBRIDGE_EMBED_PROVIDER")))
	model := strings.TrimSpace(os.Getenv("CAREBRIDGE_EMBED_MODEL"))

	switch provider {
	case "openai":
		if e, err := NewOpenAIEmbedder(model); err == nil {
			return e
		}
	case "google", "gemini", "vertex", "vertexai":
		if e, err := NewGeminiEmbedder(model); err == nil {
			return e
		}
	case "ollama":
		if e, err := NewOllamaEmbedder(model); err == nil {
			return e
		}
	case "claude", "anthropic":
		if e, err := NewClaudeEmbedder(model); err == nil {
			return e
		}
	case "fastembed":
		if opts := defaultFastEmbedOptions(); opts != nil {
			if e, err := NewFastEmbedder(context.Background(), opts); err == nil {
				return e
			}
		}
	}

	log.Printf("AutoEmbedder: falling back to DummyEmbedder")
	return DummyEmbedder{}
}

// SafeEmbed never fails: provider errors and empty vectors fall back to the
// dummy embedding so a flaky backend cannot take retrieval down.
func SafeEmbed(ctx context.Context, e Embedder, text string) []float32 {
	if e == nil {
		return DummyEmbedding(text)
	}
	v, err := e.Embed(ctx, text)
	if err != nil || len(v) == 0 {
		return DummyEmbedding(text)
	}
	return v
}
