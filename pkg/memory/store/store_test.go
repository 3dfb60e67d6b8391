package store

import (
	"context"
	"testing"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

func itemDoc(id, userID string, kind model.Kind, text string, created time.Time) Document {
	return Document{
		Item: model.MemoryItem{
			ID:        id,
			UserID:    userID,
			Kind:      kind,
			Text:      text,
			CreatedAt: created,
		},
		Embedding: []float32{float32(len(text)), 1, 0},
	}
}

func TestInMemoryIndexSearchIsUserScoped(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	now := time.Now().UTC()

	docs := []Document{
		itemDoc("user_1_conv_1", "1", model.KindConversation, "took my medication", now),
		itemDoc("user_1_conv_2", "1", model.KindConversation, "went for a walk", now),
		itemDoc("user_2_conv_1", "2", model.KindConversation, "other user entry", now),
	}
	for _, doc := range docs {
		if err := idx.Upsert(ctx, doc); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	hits, err := idx.Search(ctx, "1", docs[0].Embedding, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, hit := range hits {
		if hit.Item.UserID != "1" {
			t.Fatalf("hit leaked across users: %+v", hit.Item)
		}
	}
	if hits[0].Distance > hits[1].Distance {
		t.Fatal("hits not ordered nearest first")
	}
	if hits[0].Item.ID != "user_1_conv_1" {
		t.Fatalf("nearest hit = %s", hits[0].Item.ID)
	}
}

func TestInMemoryIndexUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	now := time.Now().UTC()

	doc := itemDoc("user_1_conv_1", "1", model.KindConversation, "original", now)
	if err := idx.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	doc.Item.Text = "replaced"
	if err := idx.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := idx.Count(ctx, "1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d after re-upsert, want 1", n)
	}
	docs, err := idx.All(ctx, "1", "")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if docs[0].Item.Text != "replaced" {
		t.Fatalf("text = %q, want replaced", docs[0].Item.Text)
	}
}

func TestInMemoryIndexAllFiltersByKind(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	now := time.Now().UTC()

	_ = idx.Upsert(ctx, itemDoc("user_1_conv_1", "1", model.KindConversation, "conv", now))
	_ = idx.Upsert(ctx, itemDoc("user_1_summary_20250601", "1", model.KindSummary, "summary", now.Add(time.Hour)))

	summaries, err := idx.All(ctx, "1", model.KindSummary)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Item.Kind != model.KindSummary {
		t.Fatalf("kind filter failed: %+v", summaries)
	}

	all, err := idx.All(ctx, "1", "")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d docs, want 2", len(all))
	}
	if !all[0].Item.CreatedAt.Before(all[1].Item.CreatedAt) {
		t.Fatal("All not ordered oldest first")
	}
}

func TestInMemoryIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	now := time.Now().UTC()

	_ = idx.Upsert(ctx, itemDoc("a", "1", model.KindConversation, "a", now))
	_ = idx.Upsert(ctx, itemDoc("b", "1", model.KindConversation, "b", now))
	if err := idx.Delete(ctx, []string{"a", "missing"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, _ := idx.Count(ctx, "1")
	if n != 1 {
		t.Fatalf("count = %d after delete, want 1", n)
	}
}

func TestQdrantPointIDDeterministic(t *testing.T) {
	a := pointID("user_1_conv_42")
	b := pointID("user_1_conv_42")
	if a != b {
		t.Fatalf("point id not deterministic: %s vs %s", a, b)
	}
	if len(a) != 36 {
		t.Fatalf("point id not UUID-shaped: %s", a)
	}
	if a == pointID("user_1_conv_43") {
		t.Fatal("distinct doc ids collided")
	}
}
