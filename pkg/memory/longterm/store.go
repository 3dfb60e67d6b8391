// Package longterm implements the vector-indexed semantic memory: similarity
// search with recency re-ranking, content-hash deduplication and a per-user
// cap on raw conversation entries.
package longterm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge-ai/carebridge/pkg/memory/embed"
	"github.com/carebridge-ai/carebridge/pkg/memory/model"
	"github.com/carebridge-ai/carebridge/pkg/memory/store"
)

// ErrMissingUserID reports a caller bug, not a degraded backend.
var ErrMissingUserID = errors.New("longterm: userID is required")

const snippetBytes = 200

// Store coordinates embedding, scoring and hygiene over a VectorIndex.
type Store struct {
	index    store.VectorIndex
	embedder embed.Embedder
	opts     Options
	metrics  *Metrics
	logger   *log.Logger
	clock    func() time.Time
}

// NewStore constructs a long-term memory store on top of a VectorIndex.
func NewStore(index store.VectorIndex, opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		index:    index,
		opts:     opts,
		embedder: embed.AutoEmbedder(),
		metrics:  &Metrics{},
		logger:   log.New(os.Stderr, "longterm: ", log.LstdFlags),
		clock:    opts.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// WithEmbedder overrides the default embedder.
func (s *Store) WithEmbedder(e embed.Embedder) *Store {
	if e != nil {
		s.embedder = e
	}
	return s
}

// WithLogger overrides the default logger.
func (s *Store) WithLogger(logger *log.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// MetricsSnapshot returns a copy of the runtime counters.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// UpsertConversation indexes one exchange under the deterministic id derived
// from (userID, sourceID). Re-submitting the same exchange replaces the entry.
func (s *Store) UpsertConversation(ctx context.Context, userID, sourceID, userMessage, assistantResponse string, timestamp time.Time) error {
	if userID == "" {
		return ErrMissingUserID
	}
	combined := userMessage + " " + assistantResponse
	item := model.MemoryItem{
		ID:                   model.ConversationID(userID, sourceID),
		UserID:               userID,
		Kind:                 model.KindConversation,
		Text:                 combined,
		CreatedAt:            timestamp.UTC(),
		Title:                "Conversation " + sourceID,
		ContentHash:          model.ContentHash(combined),
		SourceConversationID: sourceID,
		UserMessage:          model.Snippet(userMessage, snippetBytes),
		AssistantResponse:    model.Snippet(assistantResponse, snippetBytes),
	}
	return s.upsert(ctx, item)
}

// UpsertSummary indexes a daily summary, truncated to two sentences so the
// retrieval snippets stay short. Keyed by (userID, local day).
func (s *Store) UpsertSummary(ctx context.Context, userID, summaryText string, date time.Time, topics []string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	concise := model.ConciseText(summaryText, 2)
	item := model.MemoryItem{
		ID:          model.SummaryID(userID, date),
		UserID:      userID,
		Kind:        model.KindSummary,
		Text:        concise,
		CreatedAt:   date.UTC(),
		Title:       "Daily Summary " + date.Format("2006-01-02"),
		Tags:        topics,
		ContentHash: model.ContentHash(concise),
		DateKey:     date.Format("2006-01-02"),
	}
	return s.upsert(ctx, item)
}

// UpsertProfileFact appends a profile fact under a freshly generated id and
// returns that id.
func (s *Store) UpsertProfileFact(ctx context.Context, userID, fact, factType string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	if factType == "" {
		factType = "general"
	}
	id := model.FactID(userID, factType, uuid.NewString()[:8])
	item := model.MemoryItem{
		ID:          id,
		UserID:      userID,
		Kind:        model.KindProfileFact,
		Text:        fact,
		CreatedAt:   s.clock().UTC(),
		Title:       "Profile: " + factType,
		ContentHash: model.ContentHash(fact),
		FactType:    factType,
	}
	if err := s.upsert(ctx, item); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) upsert(ctx context.Context, item model.MemoryItem) error {
	embedding := embed.SafeEmbed(ctx, s.embedder, item.Text)
	if err := s.index.Upsert(ctx, store.Document{Item: item, Embedding: embedding}); err != nil {
		return fmt.Errorf("index upsert %s: %w", item.ID, err)
	}
	s.metrics.IncStored()
	return nil
}

// RetrieveSimilar returns up to topK candidates for the query, ranked by the
// combined semantic+recency score and capped at MaxSummaries summary items
// plus MaxSnippets non-summary items. excludeQuery suppresses entries whose
// stored user message echoes the current query.
func (s *Store) RetrieveSimilar(ctx context.Context, query, userID string, topK int, excludeQuery string) ([]model.RetrievalCandidate, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if topK <= 0 {
		return nil, nil
	}
	queryVec := embed.SafeEmbed(ctx, s.embedder, query)
	fetch := topK * s.opts.OverfetchFactor
	if fetch > s.opts.OverfetchCap {
		fetch = s.opts.OverfetchCap
	}
	if fetch < topK {
		fetch = topK
	}
	hits, err := s.index.Search(ctx, userID, queryVec, fetch)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	exclude := strings.ToLower(strings.TrimSpace(excludeQuery))
	candidates := make([]model.RetrievalCandidate, 0, len(hits))
	for _, hit := range hits {
		if exclude != "" && strings.ToLower(strings.TrimSpace(hit.Item.UserMessage)) == exclude {
			continue
		}
		if hit.Distance < s.opts.DuplicateDistance {
			continue
		}
		semantic := 1 - hit.Distance
		if semantic < 0 {
			semantic = 0
		}
		recency := s.recencyScore(hit.Item.CreatedAt)
		candidates = append(candidates, model.RetrievalCandidate{
			Item:     hit.Item,
			Semantic: semantic,
			Recency:  recency,
			Combined: s.opts.SemanticWeight*semantic + s.opts.RecencyWeight*recency,
			Snippet:  model.ConciseText(hit.Item.Text, 2),
		})
	}
	sortByCombined(candidates)

	// Mix cap: summaries should never crowd out raw snippets or vice versa.
	var summaries, others []model.RetrievalCandidate
	for _, cand := range candidates {
		if cand.Item.Kind == model.KindSummary {
			if len(summaries) < s.opts.MaxSummaries {
				summaries = append(summaries, cand)
			}
		} else if len(others) < s.opts.MaxSnippets {
			others = append(others, cand)
		}
	}
	final := append(summaries, others...)
	sortByCombined(final)
	if len(final) > topK {
		final = final[:topK]
	}
	s.metrics.IncRetrieved(len(final))
	return final, nil
}

// FormattedContext renders retrieval results as the bracketed context block
// handed to the conversation layer. Empty when nothing relevant is stored.
func (s *Store) FormattedContext(ctx context.Context, query, userID string, topK int) (string, error) {
	items, err := s.RetrieveSimilar(ctx, query, userID, topK, "")
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(items))
	for _, cand := range items {
		switch cand.Item.Kind {
		case model.KindConversation:
			parts = append(parts, fmt.Sprintf("[%s] %s", cand.Item.CreatedAt.Format("January 02"), cand.Snippet))
		case model.KindSummary:
			date := cand.Item.DateKey
			if date == "" {
				date = "Recent"
			}
			parts = append(parts, fmt.Sprintf("[Summary %s] %s", date, cand.Snippet))
		case model.KindProfileFact:
			parts = append(parts, "[Profile] "+cand.Snippet)
		default:
			parts = append(parts, cand.Snippet)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// DeduplicateByHash removes entries sharing a content hash, keeping the
// first-stored one, and returns the number removed.
func (s *Store) DeduplicateByHash(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUserID
	}
	docs, err := s.index.All(ctx, userID, "")
	if err != nil {
		return 0, fmt.Errorf("index list: %w", err)
	}
	seen := make(map[string]string, len(docs))
	var duplicates []string
	for _, doc := range docs {
		hash := doc.Item.ContentHash
		if hash == "" {
			continue
		}
		if _, ok := seen[hash]; ok {
			duplicates = append(duplicates, doc.Item.ID)
			continue
		}
		seen[hash] = doc.Item.ID
	}
	if len(duplicates) == 0 {
		return 0, nil
	}
	if err := s.index.Delete(ctx, duplicates); err != nil {
		return 0, fmt.Errorf("index delete: %w", err)
	}
	s.metrics.IncDeduplicated(len(duplicates))
	s.logf("removed %d duplicate entries for user %s", len(duplicates), userID)
	return len(duplicates), nil
}

// CleanupOldConversations keeps the most recent maxConversations
// conversation-kind entries for the user and deletes the rest. Summaries and
// profile facts are exempt. maxConversations <= 0 uses the configured cap.
func (s *Store) CleanupOldConversations(ctx context.Context, userID string, maxConversations int) (int, error) {
	if userID == "" {
		return 0, ErrMissingUserID
	}
	if maxConversations <= 0 {
		maxConversations = s.opts.MaxConversations
	}
	docs, err := s.index.All(ctx, userID, model.KindConversation)
	if err != nil {
		return 0, fmt.Errorf("index list: %w", err)
	}
	if len(docs) <= maxConversations {
		return 0, nil
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Item.CreatedAt.After(docs[j].Item.CreatedAt)
	})
	old := docs[maxConversations:]
	ids := make([]string, len(old))
	for i, doc := range old {
		ids[i] = doc.Item.ID
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("index delete: %w", err)
	}
	s.metrics.IncEvicted(len(ids))
	s.logf("removed %d old conversations for user %s", len(ids), userID)
	return len(ids), nil
}

// ListItems returns up to limit items for management surfaces, newest first.
// kind "" lists all kinds.
func (s *Store) ListItems(ctx context.Context, userID string, kind model.Kind, limit int) ([]model.MemoryItem, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	docs, err := s.index.All(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("index list: %w", err)
	}
	items := make([]model.MemoryItem, len(docs))
	for i, doc := range docs {
		items[i] = doc.Item
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DeleteItem removes one entry by document id.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("longterm: id is required")
	}
	return s.index.Delete(ctx, []string{id})
}

// ClearUser removes every entry for the user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	docs, err := s.index.All(ctx, userID, "")
	if err != nil {
		return fmt.Errorf("index list: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.Item.ID
	}
	return s.index.Delete(ctx, ids)
}

// Count reports how many entries the user has.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUserID
	}
	return s.index.Count(ctx, userID)
}

// recencyScore applies exponential decay by age; an item HalfLifeDays old
// scores 0.5. Zero timestamps score the neutral 0.5 default.
func (s *Store) recencyScore(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0.5
	}
	ageDays := s.clock().UTC().Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-math.Ln2 / s.opts.HalfLifeDays * ageDays)
}

func sortByCombined(cands []model.RetrievalCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Combined > cands[j].Combined
	})
}
