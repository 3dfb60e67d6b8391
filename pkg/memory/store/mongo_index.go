package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carebridge-ai/carebridge/pkg/memory/model"
)

// MongoIndex implements VectorIndex using MongoDB Atlas $vectorSearch.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const mongoCloseTimeout = 5 * time.Second

func NewMongoIndex(ctx context.Context, uri, database, collection string) (*MongoIndex, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoIndex{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

type mongoMemoryDocument struct {
	ID        string           `bson:"_id"`
	UserID    string           `bson:"user_id"`
	Kind      string           `bson:"kind"`
	Item      model.MemoryItem `bson:"item"`
	Embedding []float64        `bson:"embedding"`
	CreatedAt time.Time        `bson:"created_at"`
}

func (mi *MongoIndex) Upsert(ctx context.Context, doc Document) error {
	if mi == nil || mi.collection == nil {
		return nil
	}
	record := mongoMemoryDocument{
		ID:        doc.Item.ID,
		UserID:    doc.Item.UserID,
		Kind:      string(doc.Item.Kind),
		Item:      doc.Item,
		Embedding: float64Embedding(doc.Embedding),
		CreatedAt: doc.Item.CreatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := mi.collection.ReplaceOne(ctx, bson.M{"_id": doc.Item.ID}, record, opts)
	return err
}

func (mi *MongoIndex) Search(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]SearchHit, error) {
	if mi == nil || mi.collection == nil || limit <= 0 {
		return nil, nil
	}
	pipeline := mongo.Pipeline{
		{
			{Key: "$vectorSearch", Value: bson.D{
				{Key: "index", Value: "vector_index"},
				{Key: "path", Value: "embedding"},
				{Key: "queryVector", Value: float64Embedding(queryEmbedding)},
				{Key: "numCandidates", Value: int64(limit * 10)}, // oversample for accuracy
				{Key: "limit", Value: int64(limit)},
				{Key: "filter", Value: bson.D{{Key: "user_id", Value: userID}}},
			}},
		},
		{
			{Key: "$addFields", Value: bson.D{
				{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
			}},
		},
	}
	cursor, err := mi.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hits []SearchHit
	for cursor.Next(ctx) {
		var doc struct {
			mongoMemoryDocument `bson:",inline"`
			Score               float64 `bson:"score"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		hits = append(hits, SearchHit{
			Item:      doc.Item,
			Embedding: float32Embedding(doc.Embedding),
			// Atlas reports similarity in [0,1] for cosine indexes.
			Distance: 1 - doc.Score,
		})
	}
	return hits, cursor.Err()
}

func (mi *MongoIndex) All(ctx context.Context, userID string, kind model.Kind) ([]Document, error) {
	if mi == nil || mi.collection == nil {
		return nil, nil
	}
	filter := bson.M{"user_id": userID}
	if kind != "" {
		filter["kind"] = string(kind)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := mi.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var doc mongoMemoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, Document{Item: doc.Item, Embedding: float32Embedding(doc.Embedding)})
	}
	return docs, cursor.Err()
}

func (mi *MongoIndex) Delete(ctx context.Context, ids []string) error {
	if mi == nil || mi.collection == nil || len(ids) == 0 {
		return nil
	}
	_, err := mi.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (mi *MongoIndex) Count(ctx context.Context, userID string) (int, error) {
	if mi == nil || mi.collection == nil {
		return 0, nil
	}
	count, err := mi.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	return int(count), err
}

// CreateSchema ensures the supporting indexes exist. The Atlas vector search
// index itself must be created through the Atlas API or UI.
func (mi *MongoIndex) CreateSchema(ctx context.Context) error {
	if mi == nil || mi.collection == nil {
		return nil
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created_at"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().SetName("user_kind"),
		},
	}
	_, err := mi.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Close releases the underlying MongoDB client.
func (mi *MongoIndex) Close() error {
	if mi == nil || mi.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return mi.client.Disconnect(ctx)
}

func float64Embedding(vec []float32) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Embedding(vec []float64) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
