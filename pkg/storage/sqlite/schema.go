package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		message         TEXT NOT NULL,
		response        TEXT NOT NULL DEFAULT '',
		timestamp       TEXT NOT NULL,
		sentiment_score REAL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_user_ts ON conversations(user_id, timestamp)`,

	`CREATE TABLE IF NOT EXISTS medications (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		name           TEXT NOT NULL,
		dosage         TEXT NOT NULL DEFAULT '',
		frequency      TEXT NOT NULL DEFAULT '',
		schedule_times TEXT NOT NULL DEFAULT '[]',
		instructions   TEXT NOT NULL DEFAULT '',
		active         INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE INDEX IF NOT EXISTS idx_medications_user ON medications(user_id)`,

	`CREATE TABLE IF NOT EXISTS medication_logs (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		medication_id TEXT NOT NULL,
		taken_at      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'taken'
	)`,

	`CREATE INDEX IF NOT EXISTS idx_medication_logs_user_ts ON medication_logs(user_id, taken_at)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		user_id           TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		emergency_contact TEXT NOT NULL DEFAULT '',
		preferences       TEXT NOT NULL DEFAULT '{}',
		meal_times        TEXT NOT NULL DEFAULT '{}'
	)`,

	`CREATE TABLE IF NOT EXISTS personal_events (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		event_date TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_personal_events_user_date ON personal_events(user_id, event_date)`,

	`CREATE TABLE IF NOT EXISTS daily_summaries (
		user_id              TEXT NOT NULL,
		date                 TEXT NOT NULL,
		summary_text         TEXT NOT NULL,
		key_topics           TEXT NOT NULL DEFAULT '[]',
		mood_average         REAL,
		total_conversations  INTEGER NOT NULL DEFAULT 0,
		medications_mentioned INTEGER NOT NULL DEFAULT 0,
		created_at           TEXT NOT NULL,
		PRIMARY KEY (user_id, date)
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: apply schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
