package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

// PostgresIndex implements VectorIndex using Postgres + pgvector.
type PostgresIndex struct {
	DB *pgxpool.Pool
}

// NewPostgresIndex connects to Postgres and returns a pgvector-backed index.
func NewPostgresIndex(ctx context.Context, connStr string) (*PostgresIndex, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresIndex{DB: db}, nil
}

// CreateSchema ensures the pgvector extension and the memory table exist.
// dim is the embedding dimensionality (768 for the default embedders).
func (pi *PostgresIndex) CreateSchema(ctx context.Context, dim int) error {
	if pi == nil || pi.DB == nil {
		return nil
	}
	if dim <= 0 {
		dim = 768
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS care_memories (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			content    TEXT NOT NULL,
			item       JSONB NOT NULL,
			embedding  VECTOR(%d)
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_care_memories_user ON care_memories (user_id, kind)`,
	}
	for _, stmt := range stmts {
		if _, err := pi.DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

func (pi *PostgresIndex) Upsert(ctx context.Context, doc Document) error {
	if pi == nil || pi.DB == nil {
		return nil
	}
	itemJSON, err := json.Marshal(doc.Item)
	if err != nil {
		return err
	}
	jsonEmbed, _ := json.Marshal(doc.Embedding)
	_, err = pi.DB.Exec(ctx, `
		INSERT INTO care_memories (id, user_id, kind, content, item, embedding)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::vector)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, item = EXCLUDED.item, embedding = EXCLUDED.embedding
	`, doc.Item.ID, doc.Item.UserID, string(doc.Item.Kind), doc.Item.Text, string(itemJSON), vectorFromJSON(jsonEmbed))
	return err
}

func (pi *PostgresIndex) Search(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]SearchHit, error) {
	if pi == nil || pi.DB == nil || limit <= 0 {
		return nil, nil
	}
	jsonEmbed, _ := json.Marshal(queryEmbedding)
	rows, err := pi.DB.Query(ctx, `
		SELECT item::text, embedding::text, (embedding <=> $1::vector) AS distance
		FROM care_memories
		WHERE user_id = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, vectorFromJSON(jsonEmbed), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			itemJSON      string
			embeddingText string
			hit           SearchHit
		)
		if err := rows.Scan(&itemJSON, &embeddingText, &hit.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(itemJSON), &hit.Item); err != nil {
			return nil, err
		}
		hit.Embedding = parseVector(embeddingText)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (pi *PostgresIndex) All(ctx context.Context, userID string, kind model.Kind) ([]Document, error) {
	if pi == nil || pi.DB == nil {
		return nil, nil
	}
	query := `
		SELECT item::text, embedding::text
		FROM care_memories
		WHERE user_id = $1`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}
	query += ` ORDER BY (item->>'created_at') ASC`
	rows, err := pi.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			itemJSON      string
			embeddingText string
			doc           Document
		)
		if err := rows.Scan(&itemJSON, &embeddingText); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(itemJSON), &doc.Item); err != nil {
			return nil, err
		}
		doc.Embedding = parseVector(embeddingText)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (pi *PostgresIndex) Delete(ctx context.Context, ids []string) error {
	if pi == nil || pi.DB == nil || len(ids) == 0 {
		return nil
	}
	_, err := pi.DB.Exec(ctx, `DELETE FROM care_memories WHERE id = ANY($1)`, ids)
	return err
}

func (pi *PostgresIndex) Count(ctx context.Context, userID string) (int, error) {
	if pi == nil || pi.DB == nil {
		return 0, nil
	}
	var count int
	err := pi.DB.QueryRow(ctx, `SELECT COUNT(*) FROM care_memories WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// Close releases the underlying Postgres connection pool.
func (pi *PostgresIndex) Close() error {
	if pi == nil || pi.DB == nil {
		return nil
	}
	pi.DB.Close()
	return nil
}

func vectorFromJSON(jsonEmbed []byte) string {
	return fmt.Sprintf("[%s]", strings.Trim(string(jsonEmbed), "[]"))
}

func parseVector(text string) []float32 {
	text = strings.Trim(text, "[]")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}
