//go:build !fastembed

package embed

import (
	"context"
	"errors"
)

// FastEmbedOptions configures the local ONNX embedding runtime. The real
// implementation is behind the fastembed build tag; without it the provider
// reports itself unavailable and AutoEmbedder moves on.
type FastEmbedOptions struct {
	Model     string
	CacheDir  string
	MaxLength int
	BatchSize int
}

func defaultFastEmbedOptions() *FastEmbedOptions { return nil }

func NewFastEmbedder(_ context.Context, _ *FastEmbedOptions) (Embedder, error) {
	return nil, errors.New("fastembed support not compiled in (build with -tags fastembed)")
}
