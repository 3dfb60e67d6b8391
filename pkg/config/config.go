// Package config loads CareBridge settings from a JSON file overlaid with
// CAREBRIDGE_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Vector    VectorConfig    `json:"vector"`
	Embedding EmbeddingConfig `json:"embedding"`
	Memory    MemoryConfig    `json:"memory"`
	Emergency EmergencyConfig `json:"emergency"`
	Telegram  TelegramConfig  `json:"telegram"`
	Summary   SummaryConfig   `json:"summary"`
	Timezone  string          `json:"timezone" env:"CAREBRIDGE_TIMEZONE"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `json:"driver" env:"CAREBRIDGE_STORAGE_DRIVER"`
	Path   string `json:"path" env:"CAREBRIDGE_STORAGE_PATH"`
}

type VectorConfig struct {
	// Backend is "memory", "postgres", "qdrant" or "mongo".
	Backend     string `json:"backend" env:"CAREBRIDGE_VECTOR_BACKEND"`
	PostgresDSN string `json:"postgres_dsn" env:"CAREBRIDGE_VECTOR_POSTGRES_DSN"`
	QdrantURL   string `json:"qdrant_url" env:"CAREBRIDGE_VECTOR_QDRANT_URL"`
	Collection  string `json:"collection" env:"CAREBRIDGE_VECTOR_COLLECTION"`
	MongoURI    string `json:"mongo_uri" env:"CAREBRIDGE_VECTOR_MONGO_URI"`
	MongoDB     string `json:"mongo_db" env:"CAREBRIDGE_VECTOR_MONGO_DB"`
	Dim         int    `json:"dim" env:"CAREBRIDGE_VECTOR_DIM"`
}

type EmbeddingConfig struct {
	Provider string `json:"provider" env:"CAREBRIDGE_EMBED_PROVIDER"`
	Model    string `json:"model" env:"CAREBRIDGE_EMBED_MODEL"`
}

type MemoryConfig struct {
	HalfLifeDays     float64 `json:"half_life_days" env:"CAREBRIDGE_MEMORY_HALF_LIFE_DAYS"`
	MaxConversations int     `json:"max_conversations" env:"CAREBRIDGE_MEMORY_MAX_CONVERSATIONS"`
	ShortTermWindow  int     `json:"short_term_window" env:"CAREBRIDGE_MEMORY_SHORT_TERM_WINDOW"`
}

type EmergencyConfig struct {
	Keywords         []string `json:"keywords" env:"CAREBRIDGE_EMERGENCY_KEYWORDS" envSeparator:","`
	WorseningPhrases []string `json:"worsening_phrases" env:"CAREBRIDGE_EMERGENCY_WORSENING" envSeparator:","`
	DebounceMinutes  int      `json:"debounce_minutes" env:"CAREBRIDGE_EMERGENCY_DEBOUNCE_MINUTES"`
}

type TelegramConfig struct {
	Token  string `json:"token" env:"CAREBRIDGE_TELEGRAM_TOKEN"`
	ChatID int64  `json:"chat_id" env:"CAREBRIDGE_TELEGRAM_CHAT_ID"`
}

type SummaryConfig struct {
	// Model is the Anthropic model used for LLM daily summaries; empty
	// keeps the extractive summarizer only.
	Model        string `json:"model" env:"CAREBRIDGE_SUMMARY_MODEL"`
	UseLLM       bool   `json:"use_llm" env:"CAREBRIDGE_SUMMARY_USE_LLM"`
	ScheduleExpr string `json:"schedule" env:"CAREBRIDGE_SUMMARY_SCHEDULE"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "~/.carebridge/carebridge.db",
		},
		Vector: VectorConfig{
			Backend:    "memory",
			Collection: "care_memories",
			Dim:        768,
		},
		Memory: MemoryConfig{
			HalfLifeDays:     30,
			MaxConversations: 200,
			ShortTermWindow:  10,
		},
		Emergency: EmergencyConfig{
			DebounceMinutes: 5,
		},
		Summary: SummaryConfig{
			ScheduleExpr: "10 0 * * *",
		},
		Timezone: "America/Chicago",
	}
}

// LoadConfig reads the JSON file (missing file is fine, defaults apply) and
// then overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config back out, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// StoragePath expands a leading ~ in the configured database path.
func (c *Config) StoragePath() string {
	return expandHome(c.Storage.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
