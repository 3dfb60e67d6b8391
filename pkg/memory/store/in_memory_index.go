package store

import (
	"context"
	"sort"
	"sync"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

// InMemoryIndex implements VectorIndex for tests and lightweight deployments.
type InMemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{docs: make(map[string]Document)}
}

func (s *InMemoryIndex) Upsert(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs == nil {
		s.docs = make(map[string]Document)
	}
	doc.Embedding = append([]float32(nil), doc.Embedding...)
	s.docs[doc.Item.ID] = doc
	return nil
}

func (s *InMemoryIndex) Search(_ context.Context, userID string, queryEmbedding []float32, limit int) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	hits := make([]SearchHit, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.Item.UserID != userID {
			continue
		}
		hits = append(hits, SearchHit{
			Item:      doc.Item,
			Embedding: doc.Embedding,
			Distance:  model.CosineDistance(queryEmbedding, doc.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *InMemoryIndex) All(_ context.Context, userID string, kind model.Kind) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.docs {
		if doc.Item.UserID != userID {
			continue
		}
		if kind != "" && doc.Item.Kind != kind {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Item.CreatedAt.Equal(out[j].Item.CreatedAt) {
			return out[i].Item.ID < out[j].Item.ID
		}
		return out[i].Item.CreatedAt.Before(out[j].Item.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryIndex) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

func (s *InMemoryIndex) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, doc := range s.docs {
		if doc.Item.UserID == userID {
			n++
		}
	}
	return n, nil
}
