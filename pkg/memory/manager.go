// Package memory unifies the four memory layers behind one orchestrator: the
// short-term window, the long-term semantic store, the episodic daily
// summarizer and the structured fact provider. The Manager assembles prompt
// context, gates what is worth persisting, routes recall queries and runs
// periodic long-term hygiene.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/episodic"
	"github.com/carebridge-ai/carebridge/pkg/memory/longterm"
	"github.com/carebridge-ai/carebridge/pkg/memory/shortterm"
	"github.com/carebridge-ai/carebridge/pkg/memory/structured"
	"github.com/carebridge-ai/carebridge/pkg/storage"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

// ErrMissingUserID reports a programmer error: every manager operation is
// scoped to a user.
var ErrMissingUserID = errors.New("memory: userID is required")

const (
	contextTopK        = 3
	shortTermExchanges = 10
	// hygieneInterval is the accepted-turn period between dedup+cleanup runs.
	hygieneInterval = 10
)

// Manager composes the memory layers. Long-term failures degrade to "no
// long-term context" and are logged and counted; they never reach the
// conversational flow.
type Manager struct {
	longTerm      *longterm.Store
	shortTerm     *shortterm.Provider
	episodic      *episodic.Generator
	structured    *structured.Provider
	conversations storage.ConversationStore
	clock         *timeutil.Clock
	vocab         Vocabulary
	logger        *log.Logger
	metrics       *Metrics

	mu    sync.Mutex
	turns map[string]int // accepted turns per user since startup
}

func NewManager(
	longTerm *longterm.Store,
	shortTerm *shortterm.Provider,
	episodicGen *episodic.Generator,
	structuredProv *structured.Provider,
	conversations storage.ConversationStore,
	clock *timeutil.Clock,
) *Manager {
	return &Manager{
		longTerm:      longTerm,
		shortTerm:     shortTerm,
		episodic:      episodicGen,
		structured:    structuredProv,
		conversations: conversations,
		clock:         clock,
		vocab:         DefaultVocabulary(),
		logger:        log.New(os.Stderr, "memory: ", log.LstdFlags),
		metrics:       &Metrics{},
		turns:         make(map[string]int),
	}
}

func (m *Manager) WithVocabulary(v Vocabulary) *Manager {
	m.vocab = v
	return m
}

func (m *Manager) WithLogger(logger *log.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// MetricsSnapshot reports counters since startup.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// IsWorthPersisting decides whether an exchange belongs in the long-term
// store. It is a conservative allow-list: short small talk is rejected, and
// everything else must carry at least one worthy indicator. False negatives
// are accepted in exchange for storage hygiene.
func (m *Manager) IsWorthPersisting(userMessage, assistantResponse string) bool {
	combined := strings.ToLower(userMessage + " " + assistantResponse)
	if len(strings.Fields(combined)) <= 5 && containsAny(combined, m.vocab.SmallTalk) {
		return false
	}
	if len(strings.Fields(userMessage)) < 4 && len(strings.Fields(assistantResponse)) < 6 {
		return false
	}
	return containsAny(combined, m.vocab.Worthy)
}

// RecordExchange persists a worthy exchange to the long-term store and runs
// hygiene (dedup then eviction) every tenth accepted turn for that user.
// Store failures are logged and counted, never returned.
func (m *Manager) RecordExchange(ctx context.Context, userID, sourceID, userMessage, assistantResponse string, timestamp time.Time) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if !m.IsWorthPersisting(userMessage, assistantResponse) {
		m.metrics.IncSkipped()
		return nil
	}
	if timestamp.IsZero() {
		timestamp = m.clock.NowUTC()
	}
	if err := m.longTerm.UpsertConversation(ctx, userID, sourceID, userMessage, assistantResponse, timestamp); err != nil {
		m.metrics.IncDegradedWrites()
		m.logf("long-term write skipped for user %s: %v", userID, err)
		return nil
	}
	m.metrics.IncRecorded()

	m.mu.Lock()
	m.turns[userID]++
	runHygiene := m.turns[userID]%hygieneInterval == 0
	m.mu.Unlock()

	if runHygiene {
		m.runHygiene(ctx, userID)
	}
	return nil
}

// TurnCount reports the accepted-turn counter for a user.
func (m *Manager) TurnCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turns[userID]
}

func (m *Manager) runHygiene(ctx context.Context, userID string) {
	m.metrics.IncHygieneRuns()
	removed, err := m.longTerm.DeduplicateByHash(ctx, userID)
	if err != nil {
		m.logf("hygiene dedup failed for user %s: %v", userID, err)
	} else if removed > 0 {
		m.logf("hygiene removed %d duplicates for user %s", removed, userID)
	}
	evicted, err := m.longTerm.CleanupOldConversations(ctx, userID, 0)
	if err != nil {
		m.logf("hygiene cleanup failed for user %s: %v", userID, err)
	} else if evicted > 0 {
		m.logf("hygiene evicted %d old conversations for user %s", evicted, userID)
	}
}

// AssembleContext builds the prompt context string: profile, then the recent
// conversation window, then semantically similar past context. Sections that
// are empty or unavailable are omitted, headers included.
func (m *Manager) AssembleContext(ctx context.Context, userID, currentQuery string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	var parts []string

	profile, err := m.structured.FormattedProfile(ctx, userID)
	if err != nil {
		m.metrics.IncDegradedReads()
		m.logf("profile read degraded for user %s: %v", userID, err)
	} else if profile != "" {
		parts = append(parts, "=== USER PROFILE ===", profile)
	}

	recent, err := m.shortTerm.FormattedContext(ctx, userID, shortTermExchanges)
	if err != nil {
		m.metrics.IncDegradedReads()
		m.logf("short-term read degraded for user %s: %v", userID, err)
	} else if recent != "" {
		parts = append(parts, "\n=== RECENT CONVERSATION ===", recent)
	}

	similar, err := m.longTerm.FormattedContext(ctx, currentQuery, userID, contextTopK)
	if err != nil {
		m.metrics.IncDegradedReads()
		m.logf("long-term read degraded for user %s: %v", userID, err)
	} else if similar != "" {
		parts = append(parts, "\n=== RELEVANT PAST CONTEXT ===", similar)
	}

	return strings.Join(parts, "\n"), nil
}

// RecallInformation routes a recall query to the right memory layer. The
// branches are evaluated in precedence order; the first match wins.
func (m *Manager) RecallInformation(ctx context.Context, userID, query string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	lowered := strings.ToLower(query)

	switch {
	case containsAny(lowered, m.vocab.RecallTriggers):
		return m.recallFromLongTerm(ctx, userID, query), nil
	case containsAny(lowered, m.vocab.MedicationTriggers):
		return m.structured.MedicationSchedule(ctx, userID)
	case containsAny(lowered, m.vocab.MealWords):
		return m.recallMeal(ctx, userID, query, lowered)
	case containsAny(lowered, m.vocab.SummaryTriggers):
		date := m.clock.Now()
		if strings.Contains(lowered, "yesterday") {
			date = m.clock.DaysAgo(1)
		}
		return m.episodic.FormattedSummary(ctx, userID, date)
	default:
		result, err := m.structured.RecallSpecific(ctx, userID, query, m.clock.Now())
		if err != nil {
			m.metrics.IncDegradedReads()
			m.logf("structured recall degraded for user %s: %v", userID, err)
			result = ""
		}
		if result != "" {
			return result, nil
		}
		return "I'm here to help. Could you tell me more about what you're looking for?", nil
	}
}

func (m *Manager) recallFromLongTerm(ctx context.Context, userID, query string) string {
	candidates, err := m.longTerm.RetrieveSimilar(ctx, query, userID, contextTopK, query)
	if err != nil {
		m.metrics.IncDegradedReads()
		m.logf("long-term recall degraded for user %s: %v", userID, err)
		candidates = nil
	}
	if len(candidates) == 0 {
		return "I'm not finding a specific memory of that. Could you give me more details?"
	}
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	var b strings.Builder
	b.WriteString("Yes, I remember we talked about:\n")
	for _, cand := range candidates {
		dateStr := cand.Item.CreatedAt.In(m.clock.Location()).Format("January 02")
		fmt.Fprintf(&b, "\n[%s] You: %s...\n", dateStr, cand.Item.UserMessage)
	}
	return b.String()
}

func (m *Manager) recallMeal(ctx context.Context, userID, query, lowered string) (string, error) {
	// A statement about having eaten is left to the generative response.
	if containsAny(lowered, m.vocab.MealStatements) {
		return "", nil
	}

	meal := ""
	for _, name := range []string{"breakfast", "lunch", "dinner"} {
		if strings.Contains(lowered, name) {
			meal = name
			break
		}
	}

	if containsAny(lowered, m.vocab.MealTimeQueries) && meal != "" {
		mealTime, err := m.structured.MealTime(ctx, userID, meal)
		if err != nil {
			return "", err
		}
		if mealTime != "" {
			return fmt.Sprintf("Your %s is usually at %s.", meal, mealTime), nil
		}
		return fmt.Sprintf("I don't have a time set for %s. What time do you usually have it?", meal), nil
	}

	// Asking what was eaten: scan today's conversations, newest first, for a
	// message that mentions the meal with an eating-statement phrase.
	dayStart, dayEnd := m.clock.DayBounds(m.clock.Now())
	convs, err := m.conversations.ConversationsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		m.metrics.IncDegradedReads()
		m.logf("meal recall degraded for user %s: %v", userID, err)
		convs = nil
	}
	queryNorm := strings.TrimSpace(lowered)
	for i := len(convs) - 1; i >= 0; i-- {
		msg := convs[i].Message
		msgLower := strings.ToLower(msg)
		if strings.TrimSpace(msgLower) == queryNorm {
			continue
		}
		if meal != "" && strings.Contains(msgLower, meal) {
			if containsAny(msgLower, []string{"i had", "i ate", "for my", "my " + meal}) {
				return fmt.Sprintf("You mentioned: %q", msg), nil
			}
		} else if meal == "" && strings.Contains(lowered, "today") && containsAny(msgLower, []string{"breakfast", "lunch", "dinner"}) {
			if containsAny(msgLower, []string{"i had", "i ate", "for my"}) {
				return fmt.Sprintf("You mentioned: %q", msg), nil
			}
		}
	}
	return "I don't have a record of that specific meal. What did you have?", nil
}

// GenerateDailySummary builds (or rebuilds) the episodic summary for a day
// and mirrors it into the long-term store. A day with no conversations is not
// an error; it simply produces nothing.
func (m *Manager) GenerateDailySummary(ctx context.Context, userID string, date time.Time) (storage.DailySummary, error) {
	if userID == "" {
		return storage.DailySummary{}, ErrMissingUserID
	}
	if date.IsZero() {
		date = m.clock.Now()
	}
	summary, err := m.episodic.Generate(ctx, userID, date)
	if err != nil {
		return storage.DailySummary{}, err
	}
	m.AddDailySummary(ctx, userID, summary.SummaryText, summary.Date, summary.KeyTopics)
	return summary, nil
}

// AddDailySummary writes a summary document into the long-term store.
// Failures degrade to a log line.
func (m *Manager) AddDailySummary(ctx context.Context, userID, summaryText string, date time.Time, topics []string) {
	if err := m.longTerm.UpsertSummary(ctx, userID, summaryText, date, topics); err != nil {
		m.metrics.IncDegradedWrites()
		m.logf("summary write skipped for user %s: %v", userID, err)
	}
}

// AddProfileFact appends a one-liner fact about the user to the long-term
// store. Failures degrade to a log line and an empty id.
func (m *Manager) AddProfileFact(ctx context.Context, userID, fact, factType string) string {
	id, err := m.longTerm.UpsertProfileFact(ctx, userID, fact, factType)
	if err != nil {
		m.metrics.IncDegradedWrites()
		m.logf("profile fact write skipped for user %s: %v", userID, err)
		return ""
	}
	return id
}

// FormattedSummary renders the stored summary for one local day.
func (m *Manager) FormattedSummary(ctx context.Context, userID string, date time.Time) (string, error) {
	if date.IsZero() {
		date = m.clock.Now()
	}
	return m.episodic.FormattedSummary(ctx, userID, date)
}

// FetchSummaryForRelativeDay fetches the summary offsetDays before today.
// Day arithmetic runs in the deployment timezone so "yesterday" stays correct
// across DST boundaries.
func (m *Manager) FetchSummaryForRelativeDay(ctx context.Context, userID string, offsetDays int) (storage.DailySummary, error) {
	if userID == "" {
		return storage.DailySummary{}, ErrMissingUserID
	}
	return m.episodic.Summary(ctx, userID, m.clock.DaysAgo(offsetDays))
}

// Stats summarizes the state of the memory layers for one user.
type Stats struct {
	ShortTermSize   int                      `json:"short_term_size"`
	RecentSummaries int                      `json:"recent_summaries"`
	LongTermItems   int                      `json:"long_term_items"`
	LongTerm        longterm.MetricsSnapshot `json:"long_term_metrics"`
}

// MemoryStats gathers per-user memory statistics. Unavailable layers report
// zero rather than failing the call.
func (m *Manager) MemoryStats(ctx context.Context, userID string) (Stats, error) {
	if userID == "" {
		return Stats{}, ErrMissingUserID
	}
	var stats Stats
	if recent, err := m.shortTerm.RecentContext(ctx, userID, shortTermExchanges); err == nil {
		stats.ShortTermSize = len(recent)
	} else {
		m.metrics.IncDegradedReads()
		m.logf("stats short-term read degraded for user %s: %v", userID, err)
	}
	if summaries, err := m.episodic.RecentSummaries(ctx, userID, 7); err == nil {
		stats.RecentSummaries = len(summaries)
	} else {
		m.metrics.IncDegradedReads()
		m.logf("stats summary read degraded for user %s: %v", userID, err)
	}
	if count, err := m.longTerm.Count(ctx, userID); err == nil {
		stats.LongTermItems = count
	} else {
		m.metrics.IncDegradedReads()
		m.logf("stats long-term count degraded for user %s: %v", userID, err)
	}
	stats.LongTerm = m.longTerm.MetricsSnapshot()
	return stats, nil
}
