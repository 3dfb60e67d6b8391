// Package episodic condenses each local calendar day of conversation into a
// stored daily summary: an extractive summary text, the topics touched, the
// day's average mood and a medication-mention count.
package episodic

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/storage"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

// ErrNoConversations reports that the requested day has no exchanges, so
// there is nothing to summarize and no row is written.
var ErrNoConversations = errors.New("episodic: no conversations on that day")

const (
	summarySentences = 3
	maxTopics        = 5
)

// topicVocabulary maps a topic label to the words that signal it. Order
// matters: topics are reported in this order.
var topicVocabulary = []struct {
	Topic    string
	Keywords []string
}{
	{"medication", []string{"medication", "medicine", "pill", "dose", "prescription"}},
	{"health", []string{"health", "feeling", "pain", "symptom", "doctor"}},
	{"mood", []string{"happy", "sad", "worried", "anxious", "good", "bad"}},
	{"family", []string{"family", "daughter", "son", "grandchild", "visit"}},
	{"activities", []string{"walk", "exercise", "hobby", "activity", "book", "music"}},
	{"meals", []string{"breakfast", "lunch", "dinner", "food", "eat", "meal"}},
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	wordRe          = regexp.MustCompile(`\w+`)
)

// Summarizer produces a prose summary of a day's exchanges. It is optional;
// when absent or failing, the extractive fallback is used.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Generator builds and serves daily summaries.
type Generator struct {
	conversations storage.ConversationStore
	summaries     storage.SummaryStore
	clock         *timeutil.Clock
	summarizer    Summarizer
	logger        *log.Logger
}

func NewGenerator(conversations storage.ConversationStore, summaries storage.SummaryStore, clock *timeutil.Clock) *Generator {
	return &Generator{
		conversations: conversations,
		summaries:     summaries,
		clock:         clock,
		logger:        log.New(os.Stderr, "episodic: ", log.LstdFlags),
	}
}

// WithSummarizer routes summary text through an LLM, keeping the extractive
// path as fallback.
func (g *Generator) WithSummarizer(s Summarizer) *Generator {
	g.summarizer = s
	return g
}

func (g *Generator) WithLogger(l *log.Logger) *Generator {
	if l != nil {
		g.logger = l
	}
	return g
}

func (g *Generator) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}

// Generate summarizes one local calendar day and upserts the row. Running it
// twice for the same day replaces the first result.
func (g *Generator) Generate(ctx context.Context, userID string, date time.Time) (storage.DailySummary, error) {
	dayStart, dayEnd := g.clock.DayBounds(date)
	convs, err := g.conversations.ConversationsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return storage.DailySummary{}, fmt.Errorf("episodic: load day: %w", err)
	}
	if len(convs) == 0 {
		return storage.DailySummary{}, ErrNoConversations
	}

	texts := make([]string, 0, 2*len(convs))
	var moodScores []float64
	medicationMentions := 0
	for _, conv := range convs {
		texts = append(texts, conv.Message, conv.Response)
		if conv.SentimentScore != nil {
			moodScores = append(moodScores, *conv.SentimentScore)
		}
		lowered := strings.ToLower(conv.Message + " " + conv.Response)
		if strings.Contains(lowered, "medication") {
			medicationMentions++
		}
	}

	summaryText := g.summaryText(ctx, texts)

	summary := storage.DailySummary{
		UserID:               userID,
		Date:                 dayStart,
		SummaryText:          summaryText,
		KeyTopics:            KeyTopics(texts, maxTopics),
		TotalConversations:   len(convs),
		MedicationsMentioned: medicationMentions,
		CreatedAt:            g.clock.NowUTC(),
	}
	if len(moodScores) > 0 {
		var sum float64
		for _, s := range moodScores {
			sum += s
		}
		avg := sum / float64(len(moodScores))
		summary.MoodAverage = &avg
	}

	if err := g.summaries.UpsertDailySummary(ctx, summary); err != nil {
		return storage.DailySummary{}, fmt.Errorf("episodic: store summary: %w", err)
	}
	return summary, nil
}

func (g *Generator) summaryText(ctx context.Context, texts []string) string {
	if g.summarizer != nil {
		text, err := g.summarizer.Summarize(ctx, texts)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			g.logf("summarizer failed, using extractive fallback: %v", err)
		}
	}
	return ExtractiveSummary(texts, summarySentences)
}

// Summary returns the stored summary for one local day.
func (g *Generator) Summary(ctx context.Context, userID string, date time.Time) (storage.DailySummary, error) {
	dayStart, dayEnd := g.clock.DayBounds(date)
	return g.summaries.DailySummaryOn(ctx, userID, dayStart, dayEnd)
}

// RecentSummaries returns summaries from the last N days, newest first.
func (g *Generator) RecentSummaries(ctx context.Context, userID string, days int) ([]storage.DailySummary, error) {
	cutoff := g.clock.DaysAgo(days)
	return g.summaries.RecentDailySummaries(ctx, userID, cutoff)
}

// FormattedSummary renders the stored summary for prompt context. A missing
// summary is not an error.
func (g *Generator) FormattedSummary(ctx context.Context, userID string, date time.Time) (string, error) {
	summary, err := g.Summary(ctx, userID, date)
	if errors.Is(err, storage.ErrNotFound) {
		return "No summary available for this day.", nil
	}
	if err != nil {
		return "", fmt.Errorf("episodic: load summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summary for %s:\n", summary.Date.In(g.clock.Location()).Format("January 02, 2006"))
	b.WriteString(summary.SummaryText + "\n\n")
	fmt.Fprintf(&b, "Key topics: %s\n", strings.Join(summary.KeyTopics, ", "))
	fmt.Fprintf(&b, "Total conversations: %d\n", summary.TotalConversations)
	if summary.MoodAverage != nil {
		b.WriteString("Overall mood: " + MoodLabel(*summary.MoodAverage) + "\n")
	}
	return b.String(), nil
}

// MoodLabel buckets an average sentiment score into a display word.
func MoodLabel(avg float64) string {
	switch {
	case avg > 0.2:
		return "positive"
	case avg > -0.2:
		return "neutral"
	default:
		return "concerned"
	}
}

// ExtractiveSummary scores sentences by the day's word frequencies and keeps
// the top few in chronological order. Short fragments are dropped before
// scoring.
func ExtractiveSummary(texts []string, numSentences int) string {
	combined := strings.Join(texts, " ")
	var sentences []string
	for _, raw := range sentenceSplitRe.Split(combined, -1) {
		if s := strings.TrimSpace(raw); len(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return "No significant content to summarize."
	}

	freq := make(map[string]int)
	for _, sentence := range sentences {
		for _, word := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
			if len(word) > 3 {
				freq[word]++
			}
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sentence := range sentences {
		words := wordRe.FindAllString(strings.ToLower(sentence), -1)
		total := 0
		for _, word := range words {
			if len(word) > 3 {
				total += freq[word]
			}
		}
		ranked[i] = scored{index: i, score: float64(total) / float64(len(words)+1)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if numSentences < len(ranked) {
		ranked = ranked[:numSentences]
	}

	keep := make([]int, len(ranked))
	for i, r := range ranked {
		keep[i] = r.index
	}
	sort.Ints(keep)

	parts := make([]string, len(keep))
	for i, idx := range keep {
		parts[i] = sentences[idx]
	}
	return strings.Join(parts, ". ") + "."
}

// KeyTopics reports which known topics the day's text touched, in taxonomy
// order, capped at topN.
func KeyTopics(texts []string, topN int) []string {
	combined := strings.ToLower(strings.Join(texts, " "))
	var found []string
	for _, entry := range topicVocabulary {
		for _, keyword := range entry.Keywords {
			if strings.Contains(combined, keyword) {
				found = append(found, entry.Topic)
				break
			}
		}
		if len(found) == topN {
			break
		}
	}
	return found
}
