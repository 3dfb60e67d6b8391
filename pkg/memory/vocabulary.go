package memory

import "strings"

// Vocabulary holds the keyword lists the manager matches against. Matching is
// plain lowercase substring search over the combined text; the lists are data,
// not control flow, so deployments can tune them.
type Vocabulary struct {
	// SmallTalk rejects very short exchanges (greetings, acknowledgments).
	SmallTalk []string
	// Worthy is the allow-list for long-term persistence: health terms,
	// planning language, family terms, confirmations, meals, summaries.
	Worthy []string
	// RecallTriggers route a query to long-term similarity search.
	RecallTriggers []string
	// MedicationTriggers route a query to the medication schedule.
	MedicationTriggers []string
	// MealWords route a query into the meal branch.
	MealWords []string
	// MealStatements mark a message as a statement about having eaten.
	MealStatements []string
	// MealTimeQueries mark a question about a configured meal time.
	MealTimeQueries []string
	// SummaryTriggers route a query to the episodic day summary.
	SummaryTriggers []string
}

// DefaultVocabulary returns the stock keyword lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		SmallTalk: []string{
			"hi", "hello", "bye", "goodbye", "thank", "thanks", "okay", "ok",
			"yes", "no", "sure", "alright",
		},
		Worthy: []string{
			"medication", "appointment", "doctor", "symptom", "pain",
			"will", "plan", "scheduled", "tomorrow", "next week",
			"family", "daughter", "son", "grandchild",
			"remember", "important", "don't forget",
			"meal", "breakfast", "lunch", "dinner",
			"summary", "key topics",
		},
		RecallTriggers:     []string{"remember", "talked about", "discussed", "said"},
		MedicationTriggers: []string{"medication", "medicine", "pill", "schedule"},
		MealWords:          []string{"breakfast", "lunch", "dinner", "meal", "eat"},
		MealStatements: []string{
			"i ate", "i had", "just ate", "just had", "i finished", "i consumed",
		},
		MealTimeQueries: []string{"what time", "when is", "time for"},
		SummaryTriggers: []string{"today", "yesterday", "summary"},
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
