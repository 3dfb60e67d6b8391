package longterm

import "time"

// Options configures scoring and hygiene for the long-term store.
type Options struct {
	// HalfLifeDays is the recency decay half-life. An item this many days
	// old scores 0.5 on recency.
	HalfLifeDays float64
	// SemanticWeight and RecencyWeight combine the two scores; they should
	// sum to 1.
	SemanticWeight float64
	RecencyWeight  float64
	// DuplicateDistance drops candidates whose cosine distance to the query
	// is below this threshold (near-echoes of the query itself).
	DuplicateDistance float64
	// MaxSummaries and MaxSnippets cap the retrieval mix per call.
	MaxSummaries int
	MaxSnippets  int
	// OverfetchFactor and OverfetchCap size the candidate pool relative to
	// topK before filtering and re-ranking.
	OverfetchFactor int
	OverfetchCap    int
	// MaxConversations is the per-user cap enforced by
	// CleanupOldConversations when the caller passes 0.
	MaxConversations int
	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

// DefaultOptions returns the recommended defaults.
func DefaultOptions() Options {
	return Options{
		HalfLifeDays:      30,
		SemanticWeight:    0.7,
		RecencyWeight:     0.3,
		DuplicateDistance: 0.05,
		MaxSummaries:      2,
		MaxSnippets:       5,
		OverfetchFactor:   3,
		OverfetchCap:      30,
		MaxConversations:  200,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.HalfLifeDays <= 0 {
		o.HalfLifeDays = defaults.HalfLifeDays
	}
	if o.SemanticWeight == 0 && o.RecencyWeight == 0 {
		o.SemanticWeight = defaults.SemanticWeight
		o.RecencyWeight = defaults.RecencyWeight
	}
	if o.DuplicateDistance <= 0 {
		o.DuplicateDistance = defaults.DuplicateDistance
	}
	if o.MaxSummaries <= 0 {
		o.MaxSummaries = defaults.MaxSummaries
	}
	if o.MaxSnippets <= 0 {
		o.MaxSnippets = defaults.MaxSnippets
	}
	if o.OverfetchFactor <= 0 {
		o.OverfetchFactor = defaults.OverfetchFactor
	}
	if o.OverfetchCap <= 0 {
		o.OverfetchCap = defaults.OverfetchCap
	}
	if o.MaxConversations <= 0 {
		o.MaxConversations = defaults.MaxConversations
	}
	return o
}
