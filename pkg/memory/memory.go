package memory

import (
	embedpkg "github.com/carebridge-ai/carebridge/pkg/memory/embed"
	episodicpkg "github.com/carebridge-ai/carebridge/pkg/memory/episodic"
	longtermpkg "github.com/carebridge-ai/carebridge/pkg/memory/longterm"
	"github.com/carebridge-ai/carebridge/pkg/memory/model"
	shorttermpkg "github.com/carebridge-ai/carebridge/pkg/memory/shortterm"
	storepkg "github.com/carebridge-ai/carebridge/pkg/memory/store"
	structuredpkg "github.com/carebridge-ai/carebridge/pkg/memory/structured"
)

// Type aliases so callers can build a full memory stack from this package
// alone.
type (
	MemoryItem         = model.MemoryItem
	Kind               = model.Kind
	RetrievalCandidate = model.RetrievalCandidate

	LongTermStore      = longtermpkg.Store
	LongTermOptions    = longtermpkg.Options
	LongTermMetrics    = longtermpkg.MetricsSnapshot
	ShortTermProvider  = shorttermpkg.Provider
	Exchange           = shorttermpkg.Exchange
	EpisodicGenerator  = episodicpkg.Generator
	Summarizer         = episodicpkg.Summarizer
	StructuredProvider = structuredpkg.Provider
	DayLogs            = structuredpkg.DayLogs

	VectorIndex   = storepkg.VectorIndex
	Document      = storepkg.Document
	SearchHit     = storepkg.SearchHit
	InMemoryIndex = storepkg.InMemoryIndex
	PostgresIndex = storepkg.PostgresIndex
	QdrantIndex   = storepkg.QdrantIndex
	MongoIndex    = storepkg.MongoIndex

	Embedder      = embedpkg.Embedder
	DummyEmbedder = embedpkg.DummyEmbedder
)

const (
	KindConversation = model.KindConversation
	KindSummary      = model.KindSummary
	KindProfileFact  = model.KindProfileFact
)

var (
	ErrNotSupported = embedpkg.ErrNotSupported

	NewLongTermStore      = longtermpkg.NewStore
	DefaultOptions        = longtermpkg.DefaultOptions
	NewShortTermProvider  = shorttermpkg.NewProvider
	NewEpisodicGenerator  = episodicpkg.NewGenerator
	NewStructuredProvider = structuredpkg.NewProvider

	AutoEmbedder      = embedpkg.AutoEmbedder
	DummyEmbedding    = embedpkg.DummyEmbedding
	NewOpenAIEmbedder = embedpkg.NewOpenAIEmbedder
	NewGeminiEmbedder = embedpkg.NewGeminiEmbedder
	NewOllamaEmbedder = embedpkg.NewOllamaEmbedder
	NewClaudeEmbedder = embedpkg.NewClaudeEmbedder

	NewInMemoryIndex = storepkg.NewInMemoryIndex
	NewPostgresIndex = storepkg.NewPostgresIndex
	NewQdrantIndex   = storepkg.NewQdrantIndex
	NewMongoIndex    = storepkg.NewMongoIndex
)
