package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Vector.Backend != "memory" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Memory.HalfLifeDays != 30 || cfg.Memory.ShortTermWindow != 10 {
		t.Fatalf("unexpected memory defaults %+v", cfg.Memory)
	}
	if cfg.Timezone != "America/Chicago" {
		t.Fatalf("unexpected timezone %q", cfg.Timezone)
	}
}

func TestLoadConfigFileAndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"storage":{"driver":"memory"},"vector":{"backend":"qdrant","qdrant_url":"http://localhost:6333"}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CAREBRIDGE_VECTOR_BACKEND", "postgres")
	t.Setenv("CAREBRIDGE_EMERGENCY_KEYWORDS", "chest pain,stroke")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("file override lost: %+v", cfg.Storage)
	}
	// Env wins over file.
	if cfg.Vector.Backend != "postgres" {
		t.Fatalf("env override lost: %+v", cfg.Vector)
	}
	if len(cfg.Emergency.Keywords) != 2 || cfg.Emergency.Keywords[1] != "stroke" {
		t.Fatalf("keyword list not parsed: %v", cfg.Emergency.Keywords)
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStoragePathExpandsHome(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.StoragePath()
	if got == cfg.Storage.Path {
		t.Fatalf("~ not expanded: %q", got)
	}
}
