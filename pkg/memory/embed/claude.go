package embed

import "context"

// Claude/Anthropic does not offer an embeddings endpoint; keep a stub so
// config pointing at it won't panic.
type ClaudeEmbedder struct {
	model string
}

func NewClaudeEmbedder(model string) (Embedder, error) {
	return &ClaudeEmbedder{model: model}, nil
}

func (c *ClaudeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrNotSupported
}
