package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind classifies a long-term memory item.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindSummary      Kind = "summary"
	KindProfileFact  Kind = "profile_fact"
)

// MemoryItem is one entry in the long-term semantic store.
type MemoryItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        Kind      `json:"kind"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ContentHash string    `json:"content_hash"`

	// Conversation-kind fields.
	SourceConversationID string `json:"source_conversation_id,omitempty"`
	UserMessage          string `json:"user_message,omitempty"`
	AssistantResponse    string `json:"assistant_response,omitempty"`

	// Summary-kind field: the local calendar day, "2006-01-02".
	DateKey string `json:"date_key,omitempty"`

	// Profile-fact-kind field, e.g. "family", "hobby".
	FactType string `json:"fact_type,omitempty"`
}

// RetrievalCandidate pairs an item with its retrieval scores.
type RetrievalCandidate struct {
	Item     MemoryItem
	Semantic float64
	Recency  float64
	Combined float64
	Snippet  string
}

// ContentHash returns the hex digest identifying a memory text for
// deduplication. Equal text always hashes equal; the digest is stable
// across restarts.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ConversationID builds the deterministic document id for a conversation
// memory.
func ConversationID(userID, conversationID string) string {
	return fmt.Sprintf("user_%s_conv_%s", userID, conversationID)
}

// SummaryID builds the deterministic document id for a daily summary memory.
// Regenerating the same local day yields the same id.
func SummaryID(userID string, day time.Time) string {
	return fmt.Sprintf("user_%s_summary_%s", userID, day.Format("20060102"))
}

// FactID builds the document id for a profile fact. suffix must be unique per
// fact; callers usually pass the first hex characters of a fresh UUID.
func FactID(userID, factType, suffix string) string {
	return fmt.Sprintf("user_%s_fact_%s_%s", userID, factType, suffix)
}
