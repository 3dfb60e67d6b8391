// Package store provides the vector index backends the long-term memory
// layer persists to. The in-memory index serves tests and single-node
// deployments; Postgres (pgvector), Qdrant and MongoDB Atlas back larger
// installs.
package store

import (
	"context"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

// Document pairs a memory item with its embedding for indexing.
type Document struct {
	Item      model.MemoryItem
	Embedding []float32
}

// SearchHit is one nearest-neighbour result. Distance is cosine distance:
// 0 means identical, larger means less similar.
type SearchHit struct {
	Item      model.MemoryItem
	Embedding []float32
	Distance  float64
}

// VectorIndex is the contract for long-term memory backends. All operations
// are scoped to a single user; ids are the deterministic document ids built
// by the model package, so re-upserting the same id replaces the entry.
type VectorIndex interface {
	Upsert(ctx context.Context, doc Document) error
	// Search returns up to limit hits for the user, nearest first.
	Search(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]SearchHit, error)
	// All returns every document for the user, optionally filtered by kind
	// ("" matches all kinds).
	All(ctx context.Context, userID string, kind model.Kind) ([]Document, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context, userID string) (int, error)
}
