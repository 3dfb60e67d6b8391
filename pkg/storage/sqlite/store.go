package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge-ai/carebridge/pkg/storage"
)

// timeLayout zero-pads nanoseconds so the lexical order of stored strings
// matches chronological order in SQL comparisons. RFC3339Nano trims trailing
// zeros, which breaks range queries against whole-second boundaries.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *Store) AddConversation(ctx context.Context, conv storage.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	var sentiment any
	if conv.SentimentScore != nil {
		sentiment = *conv.SentimentScore
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations (id, user_id, message, response, timestamp, sentiment_score)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Message, conv.Response,
		formatTime(conv.Timestamp), sentiment,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add conversation: %w", err)
	}
	return nil
}

func (s *Store) RecentConversations(ctx context.Context, userID string, limit int) ([]storage.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, response, timestamp, sentiment_score
		FROM conversations
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanConversations(rows)
}

func (s *Store) ConversationsBetween(ctx context.Context, userID string, start, end time.Time) ([]storage.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, response, timestamp, sentiment_score
		FROM conversations
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`,
		userID, formatTime(start), formatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: conversations between: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]storage.Conversation, error) {
	var out []storage.Conversation
	for rows.Next() {
		var (
			conv      storage.Conversation
			ts        string
			sentiment sql.NullFloat64
		)
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Message, &conv.Response, &ts, &sentiment); err != nil {
			return nil, fmt.Errorf("sqlite: scan conversation: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse timestamp %q: %w", ts, err)
		}
		conv.Timestamp = parsed
		if sentiment.Valid {
			v := sentiment.Float64
			conv.SentimentScore = &v
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// AddMedication stores or replaces a medication row.
func (s *Store) AddMedication(ctx context.Context, med storage.Medication) error {
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	timesJSON, err := json.Marshal(med.ScheduleTimes)
	if err != nil {
		return fmt.Errorf("sqlite: marshal schedule times: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO medications (id, user_id, name, dosage, frequency, schedule_times, instructions, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		med.ID, med.UserID, med.Name, med.Dosage, med.Frequency,
		string(timesJSON), med.Instructions, boolToInt(med.Active),
	)
	if err != nil {
		return fmt.Errorf("sqlite: add medication: %w", err)
	}
	return nil
}

func (s *Store) UserMedications(ctx context.Context, userID string, activeOnly bool) ([]storage.Medication, error) {
	query := `
		SELECT id, user_id, name, dosage, frequency, schedule_times, instructions, active
		FROM medications WHERE user_id = ?`
	if activeOnly {
		query += " AND active = 1"
	}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: user medications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.Medication
	for rows.Next() {
		var (
			med       storage.Medication
			timesJSON string
			active    int
		)
		if err := rows.Scan(&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Frequency, &timesJSON, &med.Instructions, &active); err != nil {
			return nil, fmt.Errorf("sqlite: scan medication: %w", err)
		}
		if err := json.Unmarshal([]byte(timesJSON), &med.ScheduleTimes); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal schedule times: %w", err)
		}
		med.Active = active != 0
		out = append(out, med)
	}
	return out, rows.Err()
}

// AddMedicationLog records a medication event.
func (s *Store) AddMedicationLog(ctx context.Context, log storage.MedicationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO medication_logs (id, user_id, medication_id, taken_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		log.ID, log.UserID, log.MedicationID, formatTime(log.TakenAt), log.Status,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add medication log: %w", err)
	}
	return nil
}

func (s *Store) MedicationLogsBetween(ctx context.Context, userID string, start, end time.Time) ([]storage.MedicationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, medication_id, taken_at, status
		FROM medication_logs
		WHERE user_id = ? AND taken_at >= ? AND taken_at < ?
		ORDER BY taken_at ASC`,
		userID, formatTime(start), formatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: medication logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.MedicationLog
	for rows.Next() {
		var (
			log storage.MedicationLog
			ts  string
		)
		if err := rows.Scan(&log.ID, &log.UserID, &log.MedicationID, &ts, &log.Status); err != nil {
			return nil, fmt.Errorf("sqlite: scan medication log: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse taken_at %q: %w", ts, err)
		}
		log.TakenAt = parsed
		out = append(out, log)
	}
	return out, rows.Err()
}

// SetProfile stores or replaces a user profile.
func (s *Store) SetProfile(ctx context.Context, profile storage.Profile) error {
	prefsJSON, err := json.Marshal(profile.Preferences)
	if err != nil {
		return fmt.Errorf("sqlite: marshal preferences: %w", err)
	}
	mealsJSON, err := json.Marshal(profile.MealTimes)
	if err != nil {
		return fmt.Errorf("sqlite: marshal meal times: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (user_id, name, emergency_contact, preferences, meal_times)
		VALUES (?, ?, ?, ?, ?)`,
		profile.UserID, profile.Name, profile.EmergencyContact, string(prefsJSON), string(mealsJSON),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set profile: %w", err)
	}
	return nil
}

func (s *Store) Profile(ctx context.Context, userID string) (storage.Profile, error) {
	var (
		profile   storage.Profile
		prefsJSON string
		mealsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, emergency_contact, preferences, meal_times
		FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&profile.UserID, &profile.Name, &profile.EmergencyContact, &prefsJSON, &mealsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Profile{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Profile{}, fmt.Errorf("sqlite: profile: %w", err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &profile.Preferences); err != nil {
		return storage.Profile{}, fmt.Errorf("sqlite: unmarshal preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(mealsJSON), &profile.MealTimes); err != nil {
		return storage.Profile{}, fmt.Errorf("sqlite: unmarshal meal times: %w", err)
	}
	return profile, nil
}

// AddEvent stores an upcoming personal event.
func (s *Store) AddEvent(ctx context.Context, event storage.PersonalEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO personal_events (id, user_id, title, event_date)
		VALUES (?, ?, ?, ?)`,
		event.ID, event.UserID, event.Title, formatTime(event.Date),
	)
	if err != nil {
		return fmt.Errorf("sqlite: add event: %w", err)
	}
	return nil
}

func (s *Store) UpcomingEvents(ctx context.Context, userID string, from time.Time, within time.Duration) ([]storage.PersonalEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, event_date
		FROM personal_events
		WHERE user_id = ? AND event_date >= ? AND event_date < ?
		ORDER BY event_date ASC`,
		userID, formatTime(from), formatTime(from.Add(within)),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upcoming events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.PersonalEvent
	for rows.Next() {
		var (
			event storage.PersonalEvent
			ts    string
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.Title, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse event_date %q: %w", ts, err)
		}
		event.Date = parsed
		out = append(out, event)
	}
	return out, rows.Err()
}

func (s *Store) UpsertDailySummary(ctx context.Context, summary storage.DailySummary) error {
	topicsJSON, err := json.Marshal(summary.KeyTopics)
	if err != nil {
		return fmt.Errorf("sqlite: marshal key topics: %w", err)
	}
	var mood any
	if summary.MoodAverage != nil {
		mood = *summary.MoodAverage
	}
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_summaries
			(user_id, date, summary_text, key_topics, mood_average, total_conversations, medications_mentioned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.UserID, formatTime(summary.Date), summary.SummaryText,
		string(topicsJSON), mood, summary.TotalConversations, summary.MedicationsMentioned,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert daily summary: %w", err)
	}
	return nil
}

func (s *Store) DailySummaryOn(ctx context.Context, userID string, dayStart, dayEnd time.Time) (storage.DailySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, summary_text, key_topics, mood_average, total_conversations, medications_mentioned, created_at
		FROM daily_summaries
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, formatTime(dayStart), formatTime(dayEnd),
	)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DailySummary{}, storage.ErrNotFound
	}
	return summary, err
}

func (s *Store) RecentDailySummaries(ctx context.Context, userID string, cutoff time.Time) ([]storage.DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, summary_text, key_topics, mood_average, total_conversations, medications_mentioned, created_at
		FROM daily_summaries
		WHERE user_id = ? AND date >= ?
		ORDER BY date DESC`,
		userID, formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.DailySummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// UserIDs lists users with at least one conversation, sorted.
func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM conversations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: user ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (storage.DailySummary, error) {
	var (
		summary    storage.DailySummary
		date       string
		topicsJSON string
		mood       sql.NullFloat64
		createdAt  string
	)
	err := row.Scan(&summary.UserID, &date, &summary.SummaryText, &topicsJSON, &mood,
		&summary.TotalConversations, &summary.MedicationsMentioned, &createdAt)
	if err != nil {
		return storage.DailySummary{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return storage.DailySummary{}, fmt.Errorf("sqlite: parse summary date %q: %w", date, err)
	}
	summary.Date = parsed
	if summary.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return storage.DailySummary{}, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &summary.KeyTopics); err != nil {
		return storage.DailySummary{}, fmt.Errorf("sqlite: unmarshal key topics: %w", err)
	}
	if mood.Valid {
		v := mood.Float64
		summary.MoodAverage = &v
	}
	return summary, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
