package episodic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/storage"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

func newTestGenerator(now time.Time) (*Generator, *storage.Memstore) {
	store := storage.NewMemstore()
	clock := timeutil.NewFixedClock(now, "UTC")
	return NewGenerator(store, store, clock), store
}

func ptrFloat(f float64) *float64 { return &f }

func seedDay(t *testing.T, store *storage.Memstore, now time.Time) {
	t.Helper()
	ctx := context.Background()
	conversations := []storage.Conversation{
		{
			ID: "c1", UserID: "u1",
			Message:        "I took my medication this morning and then went for a long walk",
			Response:       "That walk sounds wonderful, and well done taking your medication on time",
			Timestamp:      now.Add(-8 * time.Hour),
			SentimentScore: ptrFloat(0.6),
		},
		{
			ID: "c2", UserID: "u1",
			Message:        "My daughter is coming to visit this weekend",
			Response:       "How lovely, a family visit to look forward to",
			Timestamp:      now.Add(-4 * time.Hour),
			SentimentScore: ptrFloat(0.4),
		},
		{
			ID: "c3", UserID: "u1",
			Message:   "ok",
			Response:  "Alright",
			Timestamp: now.Add(-1 * time.Hour),
		},
	}
	for _, conv := range conversations {
		if err := store.AddConversation(ctx, conv); err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
	}
}

func TestGenerateBuildsSummaryRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	g, store := newTestGenerator(now)
	seedDay(t, store, now)

	summary, err := g.Generate(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.TotalConversations != 3 {
		t.Fatalf("expected 3 conversations, got %d", summary.TotalConversations)
	}
	if summary.MedicationsMentioned != 1 {
		t.Fatalf("expected 1 medication mention, got %d", summary.MedicationsMentioned)
	}
	if summary.MoodAverage == nil || *summary.MoodAverage != 0.5 {
		t.Fatalf("expected mood average 0.5, got %v", summary.MoodAverage)
	}
	if !summary.Date.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected local midnight date, got %v", summary.Date)
	}
	if summary.SummaryText == "" || !strings.HasSuffix(summary.SummaryText, ".") {
		t.Fatalf("unexpected summary text %q", summary.SummaryText)
	}
	wantTopics := []string{"medication", "family", "activities"}
	if len(summary.KeyTopics) != len(wantTopics) {
		t.Fatalf("unexpected topics %v", summary.KeyTopics)
	}
	for i, topic := range wantTopics {
		if summary.KeyTopics[i] != topic {
			t.Fatalf("topic %d: expected %q, got %v", i, topic, summary.KeyTopics)
		}
	}
}

func TestGenerateSameDayReplacesRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	g, store := newTestGenerator(now)
	seedDay(t, store, now)
	ctx := context.Background()

	if _, err := g.Generate(ctx, "u1", now); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if err := store.AddConversation(ctx, storage.Conversation{
		ID: "c9", UserID: "u1",
		Message:   "I also had soup for dinner tonight with fresh bread",
		Response:  "Soup and bread make a comforting dinner",
		Timestamp: now.Add(-10 * time.Minute),
	}); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	second, err := g.Generate(ctx, "u1", now)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if store.SummaryCount("u1") != 1 {
		t.Fatalf("expected one summary row, got %d", store.SummaryCount("u1"))
	}
	if second.TotalConversations != 4 {
		t.Fatalf("expected regenerated count 4, got %d", second.TotalConversations)
	}
}

func TestGenerateEmptyDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	g, store := newTestGenerator(now)

	_, err := g.Generate(context.Background(), "u1", now)
	if !errors.Is(err, ErrNoConversations) {
		t.Fatalf("expected ErrNoConversations, got %v", err)
	}
	if store.SummaryCount("u1") != 0 {
		t.Fatalf("expected no summary row, got %d", store.SummaryCount("u1"))
	}
}

type stubSummarizer struct {
	text string
	err  error
}

func (s stubSummarizer) Summarize(context.Context, []string) (string, error) {
	return s.text, s.err
}

func TestGenerateUsesSummarizerWithFallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	g, store := newTestGenerator(now)
	seedDay(t, store, now)
	ctx := context.Background()

	g.WithSummarizer(stubSummarizer{text: "A calm day with a walk and a family call."})
	summary, err := g.Generate(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.SummaryText != "A calm day with a walk and a family call." {
		t.Fatalf("summarizer text not used: %q", summary.SummaryText)
	}

	g.WithSummarizer(stubSummarizer{err: errors.New("api down")})
	summary, err = g.Generate(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Generate with failing summarizer: %v", err)
	}
	if summary.SummaryText == "" || strings.Contains(summary.SummaryText, "api down") {
		t.Fatalf("expected extractive fallback, got %q", summary.SummaryText)
	}
}

func TestFormattedSummary(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	g, store := newTestGenerator(now)
	seedDay(t, store, now)
	ctx := context.Background()

	if _, err := g.Generate(ctx, "u1", now); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got, err := g.FormattedSummary(ctx, "u1", now)
	if err != nil {
		t.Fatalf("FormattedSummary: %v", err)
	}
	if !strings.HasPrefix(got, "Summary for June 01, 2025:\n") {
		t.Fatalf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "Key topics: medication, family, activities\n") {
		t.Fatalf("missing topics line: %q", got)
	}
	if !strings.Contains(got, "Total conversations: 3\n") {
		t.Fatalf("missing count line: %q", got)
	}
	if !strings.Contains(got, "Overall mood: positive\n") {
		t.Fatalf("missing mood line: %q", got)
	}

	missing, err := g.FormattedSummary(ctx, "u1", now.AddDate(0, 0, -3))
	if err != nil {
		t.Fatalf("FormattedSummary missing day: %v", err)
	}
	if missing != "No summary available for this day." {
		t.Fatalf("unexpected missing-day text: %q", missing)
	}
}

func TestExtractiveSummaryKeepsChronologicalOrder(t *testing.T) {
	texts := []string{
		"The garden roses bloomed today and the garden looked beautiful.",
		"Something short.",
		"I watered the garden roses again because the garden soil was dry.",
	}
	got := ExtractiveSummary(texts, 2)
	first := strings.Index(got, "The garden roses bloomed")
	second := strings.Index(got, "I watered the garden roses")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("sentences missing or reordered: %q", got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected trailing period: %q", got)
	}
}

func TestExtractiveSummaryEmptyInput(t *testing.T) {
	if got := ExtractiveSummary([]string{"hi", "ok!"}, 3); got != "No significant content to summarize." {
		t.Fatalf("unexpected empty-input text: %q", got)
	}
}

func TestMoodLabelBuckets(t *testing.T) {
	cases := []struct {
		avg  float64
		want string
	}{
		{0.5, "positive"},
		{0.2, "neutral"},
		{0.0, "neutral"},
		{-0.2, "concerned"},
		{-0.8, "concerned"},
	}
	for _, tc := range cases {
		if got := MoodLabel(tc.avg); got != tc.want {
			t.Fatalf("MoodLabel(%v) = %q, want %q", tc.avg, got, tc.want)
		}
	}
}
