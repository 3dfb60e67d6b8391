// Package storage defines the relational records the memory layers read and
// write, plus the store contracts they consume. Implementations live in
// subpackages (sqlite) and in the in-process Memstore used by tests and
// lightweight deployments.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups for missing records.
var ErrNotFound = errors.New("storage: not found")

// Conversation is one user/assistant exchange. Timestamp is UTC.
type Conversation struct {
	ID             string
	UserID         string
	Message        string
	Response       string
	Timestamp      time.Time
	SentimentScore *float64
}

// Medication is a scheduled medication for a user.
type Medication struct {
	ID            string
	UserID        string
	Name          string
	Dosage        string
	Frequency     string
	ScheduleTimes []string
	Instructions  string
	Active        bool
}

// MedicationLog records a medication event. Status is "taken", "skipped" or
// "missed". TakenAt is UTC.
type MedicationLog struct {
	ID           string
	UserID       string
	MedicationID string
	TakenAt      time.Time
	Status       string
}

// Profile holds a user's identity and free-form preferences. MealTimes maps
// meal name ("breakfast", "lunch", "dinner") to a display time like "8:00 AM".
type Profile struct {
	UserID           string
	Name             string
	EmergencyContact string
	Preferences      map[string]string
	MealTimes        map[string]string
}

// PersonalEvent is an upcoming appointment or personal date.
type PersonalEvent struct {
	ID     string
	UserID string
	Title  string
	Date   time.Time
}

// DailySummary is the episodic record for one (user, local calendar day).
// Regeneration for the same day replaces the row.
type DailySummary struct {
	UserID               string
	Date                 time.Time // local midnight of the summarized day
	SummaryText          string
	KeyTopics            []string
	MoodAverage          *float64
	TotalConversations   int
	MedicationsMentioned int
	CreatedAt            time.Time
}

// ConversationStore provides read access to conversation history and the
// insert used when the hosting application persists an exchange.
type ConversationStore interface {
	AddConversation(ctx context.Context, conv Conversation) error
	// RecentConversations returns up to limit conversations, newest first.
	RecentConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)
	// ConversationsBetween returns conversations with start <= Timestamp < end,
	// oldest first.
	ConversationsBetween(ctx context.Context, userID string, start, end time.Time) ([]Conversation, error)
}

// MedicationStore provides read access to medications and their logs.
type MedicationStore interface {
	UserMedications(ctx context.Context, userID string, activeOnly bool) ([]Medication, error)
	MedicationLogsBetween(ctx context.Context, userID string, start, end time.Time) ([]MedicationLog, error)
}

// ProfileStore provides read access to user profiles.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// EventStore provides read access to upcoming personal events.
type EventStore interface {
	UpcomingEvents(ctx context.Context, userID string, from time.Time, within time.Duration) ([]PersonalEvent, error)
}

// SummaryStore persists daily summaries. UpsertDailySummary replaces any
// existing row for the same (user, day).
type SummaryStore interface {
	UpsertDailySummary(ctx context.Context, summary DailySummary) error
	DailySummaryOn(ctx context.Context, userID string, dayStart, dayEnd time.Time) (DailySummary, error)
	// RecentDailySummaries returns summaries newer than the cutoff, newest first.
	RecentDailySummaries(ctx context.Context, userID string, cutoff time.Time) ([]DailySummary, error)
}

// Store aggregates every contract the memory layers need.
type Store interface {
	ConversationStore
	MedicationStore
	ProfileStore
	EventStore
	SummaryStore
}
