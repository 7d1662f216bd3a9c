package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasEmbeddingDim(t *testing.T) {
	cfg := Default()
	if cfg.Embedding.Dim != DefaultEmbeddingDim {
		t.Errorf("dim = %d, want %d", cfg.Embedding.Dim, DefaultEmbeddingDim)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Semantic.PrefilterK != 100 {
		t.Errorf("expected default prefilter_k, got %d", cfg.Semantic.PrefilterK)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	mkbDir := filepath.Join(dir, ".mkb")
	if err := os.MkdirAll(mkbDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[embedding]\nprovider = \"ollama\"\nmodel = \"nomic-embed-text\"\ndim = 768\n"
	if err := os.WriteFile(filepath.Join(mkbDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Dim != 768 {
		t.Errorf("config not loaded from file: %+v", cfg.Embedding)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("MKB_EMBEDDING_PROVIDER", "openai")
	defer os.Unsetenv("MKB_EMBEDDING_PROVIDER")
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("env override not applied: %+v", cfg.Embedding)
	}
}
