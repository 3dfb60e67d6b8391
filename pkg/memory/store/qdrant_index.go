package store

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceDot    Distance = "Dot"
	DistanceEuclid Distance = "Euclid"
)

// qdrantStatus supports both `status: "ok"` and `status: {"error":"..."}`.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Time   float64      `json:"time"`
	Result T            `json:"result"`
}

// QdrantIndex implements VectorIndex against Qdrant's HTTP API.
type QdrantIndex struct {
	BaseURL    string
	APIKey     string
	Collection string
	Client     *http.Client
}

// NewQdrantIndex builds an index over an existing or to-be-created Qdrant
// collection. baseURL defaults to http://localhost:6333, the API key falls
// back to env QDRANT_API_KEY.
func NewQdrantIndex(baseURL, collection string) (*QdrantIndex, error) {
	if collection == "" {
		return nil, errors.New("qdrant collection name is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantIndex{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		Collection: collection,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// CreateSchema creates the collection if it does not already exist.
func (qi *QdrantIndex) CreateSchema(ctx context.Context, dim int, distance Distance) error {
	if dim <= 0 {
		dim = 768
	}
	if distance == "" {
		distance = DistanceCosine
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": string(distance)},
	}
	err := qi.doJSON(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", url.PathEscape(qi.Collection)), body, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}
	return err
}

// pointID derives the deterministic UUID Qdrant requires from a document id.
func pointID(docID string) string {
	sum := md5.Sum([]byte(docID))
	return fmt.Sprintf("%x-%x-%x-%x-%x", sum[0:4], sum[4:6], sum[6:8], sum[8:10], sum[10:16])
}

func (qi *QdrantIndex) Upsert(ctx context.Context, doc Document) error {
	itemJSON, err := json.Marshal(doc.Item)
	if err != nil {
		return err
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":     pointID(doc.Item.ID),
			"vector": doc.Embedding,
			"payload": map[string]any{
				"doc_id":  doc.Item.ID,
				"user_id": doc.Item.UserID,
				"kind":    string(doc.Item.Kind),
				"item":    string(itemJSON),
			},
		}},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(qi.Collection))
	return qi.doJSON(ctx, http.MethodPut, path, body, nil)
}

type qdrantPoint struct {
	Payload map[string]any `json:"payload"`
	Vector  []float32      `json:"vector"`
	Score   float64        `json:"score"`
}

func (qi *QdrantIndex) Search(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       queryEmbedding,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "user_id", "match": map[string]any{"value": userID}},
			},
		},
	}
	var points []qdrantPoint
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(qi.Collection))
	if err := qi.doJSON(ctx, http.MethodPost, path, body, &points); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(points))
	for _, pt := range points {
		item, err := itemFromPayload(pt.Payload)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{
			Item:      item,
			Embedding: pt.Vector,
			// Cosine collections score by similarity.
			Distance: 1 - pt.Score,
		})
	}
	return hits, nil
}

func (qi *QdrantIndex) All(ctx context.Context, userID string, kind model.Kind) ([]Document, error) {
	must := []map[string]any{
		{"key": "user_id", "match": map[string]any{"value": userID}},
	}
	if kind != "" {
		must = append(must, map[string]any{"key": "kind", "match": map[string]any{"value": string(kind)}})
	}
	var (
		docs   []Document
		offset any
	)
	path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(qi.Collection))
	for {
		body := map[string]any{
			"filter":       map[string]any{"must": must},
			"limit":        256,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var page struct {
			Points         []qdrantPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		}
		if err := qi.doJSON(ctx, http.MethodPost, path, body, &page); err != nil {
			return nil, err
		}
		for _, pt := range page.Points {
			item, err := itemFromPayload(pt.Payload)
			if err != nil {
				continue
			}
			docs = append(docs, Document{Item: item, Embedding: pt.Vector})
		}
		if page.NextPageOffset == nil || len(page.Points) == 0 {
			return docs, nil
		}
		offset = page.NextPageOffset
	}
}

func (qi *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(qi.Collection))
	return qi.doJSON(ctx, http.MethodPost, path, body, nil)
}

func (qi *QdrantIndex) Count(ctx context.Context, userID string) (int, error) {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "user_id", "match": map[string]any{"value": userID}},
			},
		},
		"exact": true,
	}
	var result struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(qi.Collection))
	if err := qi.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func itemFromPayload(payload map[string]any) (model.MemoryItem, error) {
	raw, ok := payload["item"].(string)
	if !ok || raw == "" {
		return model.MemoryItem{}, errors.New("point payload missing item")
	}
	var item model.MemoryItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return model.MemoryItem{}, err
	}
	return item, nil
}

func (qi *QdrantIndex) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, qi.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "carebridge-qdrant/1.0")
	if qi.APIKey != "" {
		// Either header works; sending both covers deployments with either check.
		httpReq.Header.Set("api-key", qi.APIKey)
		httpReq.Header.Set("Authorization", "Bearer "+qi.APIKey)
	}

	client := qi.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var env qdrantEnvelope[json.RawMessage]
	_ = json.Unmarshal(respBody, &env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}
		return nil
	}
	if env.Status.Error != "" {
		return errors.New(env.Status.Error)
	}
	return fmt.Errorf("qdrant error: http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}
