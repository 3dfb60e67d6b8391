package longterm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/embed"
	"github.com/carebridge-ai/carebridge/pkg/memory/model"
	"github.com/carebridge-ai/carebridge/pkg/memory/store"
)

func newTestStore(now time.Time) (*Store, *store.InMemoryIndex) {
	idx := store.NewInMemoryIndex()
	s := NewStore(idx, Options{Clock: func() time.Time { return now }}).WithEmbedder(embed.DummyEmbedder{})
	return s, idx
}

func TestUpsertConversationIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, idx := newTestStore(now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.UpsertConversation(ctx, "1", "42", "I have a doctor's appointment tomorrow", "Got it, I'll remind you", now)
		if err != nil {
			t.Fatalf("UpsertConversation: %v", err)
		}
	}
	n, _ := idx.Count(ctx, "1")
	if n != 1 {
		t.Fatalf("re-upsert produced %d items, want 1", n)
	}
	items, err := s.ListItems(ctx, "1", model.KindConversation, 10)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	want := model.ContentHash("I have a doctor's appointment tomorrow Got it, I'll remind you")
	if items[0].ContentHash != want {
		t.Fatalf("content hash changed: %s", items[0].ContentHash)
	}
}

func TestDeduplicateByHashKeepsFirstStored(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, idx := newTestStore(now)
	ctx := context.Background()

	// Three distinct ids sharing identical content.
	for i := 0; i < 3; i++ {
		err := s.UpsertConversation(ctx, "1", fmt.Sprintf("%d", i+1),
			"I walked around the garden", "That sounds lovely",
			now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("UpsertConversation: %v", err)
		}
	}
	removed, err := s.DeduplicateByHash(ctx, "1")
	if err != nil {
		t.Fatalf("DeduplicateByHash: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d duplicates, want 2", removed)
	}
	docs, _ := idx.All(ctx, "1", "")
	if len(docs) != 1 {
		t.Fatalf("%d items remain, want 1", len(docs))
	}
	if docs[0].Item.ID != "user_1_conv_1" {
		t.Fatalf("survivor is %s, want the first-stored entry", docs[0].Item.ID)
	}
}

func TestCleanupOldConversationsEvictionBound(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, idx := newTestStore(now)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		err := s.UpsertConversation(ctx, "1", fmt.Sprintf("%d", i),
			fmt.Sprintf("message number %d about my health", i), "noted",
			now.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("UpsertConversation: %v", err)
		}
	}
	if err := s.UpsertSummary(ctx, "1", "A good day overall. Medication taken on time.", now, []string{"health"}); err != nil {
		t.Fatalf("UpsertSummary: %v", err)
	}

	removed, err := s.CleanupOldConversations(ctx, "1", 5)
	if err != nil {
		t.Fatalf("CleanupOldConversations: %v", err)
	}
	if removed != 7 {
		t.Fatalf("removed %d, want 7", removed)
	}
	convs, _ := idx.All(ctx, "1", model.KindConversation)
	if len(convs) != 5 {
		t.Fatalf("%d conversations remain, want 5", len(convs))
	}
	for _, doc := range convs {
		// Survivors must be the newest five (hours 7..11).
		if doc.Item.CreatedAt.Before(now.Add(7 * time.Hour)) {
			t.Fatalf("old conversation %s survived cleanup", doc.Item.ID)
		}
	}
	summaries, _ := idx.All(ctx, "1", model.KindSummary)
	if len(summaries) != 1 {
		t.Fatal("summary was evicted by conversation cleanup")
	}
}

func TestRetrieveSimilarMixCap(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(now)
	ctx := context.Background()

	// Five summaries, all highly relevant to the query text.
	for i := 0; i < 5; i++ {
		day := now.AddDate(0, 0, -i-1)
		err := s.UpsertSummary(ctx, "1",
			"Talked about blood pressure medication and morning walks.", day, []string{"medication"})
		if err != nil {
			t.Fatalf("UpsertSummary: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		err := s.UpsertConversation(ctx, "1", fmt.Sprintf("%d", i),
			"my blood pressure medication", "remember to take it daily",
			now.Add(-time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("UpsertConversation: %v", err)
		}
	}

	got, err := s.RetrieveSimilar(ctx, "tell me about blood pressure medication", "1", 7, "")
	if err != nil {
		t.Fatalf("RetrieveSimilar: %v", err)
	}
	summaryCount := 0
	for _, cand := range got {
		if cand.Item.Kind == model.KindSummary {
			summaryCount++
		}
	}
	if summaryCount > 2 {
		t.Fatalf("%d summaries in result, mix cap is 2", summaryCount)
	}
}

func TestRecencyMonotonicity(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(now)

	newer := s.recencyScore(now.AddDate(0, 0, -1))
	older := s.recencyScore(now.AddDate(0, 0, -40))
	if newer <= older {
		t.Fatalf("recency not monotonic: newer=%f older=%f", newer, older)
	}
	// Half-life semantics: a 30-day-old item scores ~0.5.
	half := s.recencyScore(now.AddDate(0, 0, -30))
	if half < 0.45 || half > 0.55 {
		t.Fatalf("30-day recency = %f, want ~0.5", half)
	}
	if got := s.recencyScore(time.Time{}); got != 0.5 {
		t.Fatalf("zero timestamp recency = %f, want 0.5", got)
	}
}

func TestRetrieveSimilarExcludesQueryEcho(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(now)
	ctx := context.Background()

	if err := s.UpsertConversation(ctx, "1", "1", "did I take my medication today", "yes you did", now.Add(-time.Hour)); err != nil {
		t.Fatalf("UpsertConversation: %v", err)
	}
	if err := s.UpsertConversation(ctx, "1", "2", "my medication schedule changed", "noted", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("UpsertConversation: %v", err)
	}

	got, err := s.RetrieveSimilar(ctx, "did I take my medication today", "1", 5, "did I take my medication today")
	if err != nil {
		t.Fatalf("RetrieveSimilar: %v", err)
	}
	for _, cand := range got {
		if strings.EqualFold(cand.Item.UserMessage, "did I take my medication today") {
			t.Fatal("echo of the current query was returned")
		}
	}
}

func TestUpsertProfileFactAppendsDistinctIDs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, idx := newTestStore(now)
	ctx := context.Background()

	id1, err := s.UpsertProfileFact(ctx, "1", "Daughter Mary visits on Sundays", "family")
	if err != nil {
		t.Fatalf("UpsertProfileFact: %v", err)
	}
	id2, err := s.UpsertProfileFact(ctx, "1", "Daughter Mary visits on Sundays", "family")
	if err != nil {
		t.Fatalf("UpsertProfileFact: %v", err)
	}
	if id1 == id2 {
		t.Fatal("profile facts should get fresh ids per call")
	}
	n, _ := idx.Count(ctx, "1")
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if !strings.HasPrefix(id1, "user_1_fact_family_") {
		t.Fatalf("unexpected fact id %s", id1)
	}
}

func TestMissingUserIDIsAnError(t *testing.T) {
	s, _ := newTestStore(time.Now())
	ctx := context.Background()
	if err := s.UpsertConversation(ctx, "", "1", "a", "b", time.Now()); err != ErrMissingUserID {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
	if _, err := s.RetrieveSimilar(ctx, "q", "", 3, ""); err != ErrMissingUserID {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
}
