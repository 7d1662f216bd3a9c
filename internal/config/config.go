// Package config loads MKB's configuration from <vault>/.mkb/config.toml,
// with CLI flag > environment variable > file > built-in default precedence,
// following the struct-with-toml-tags convention used throughout this
// codebase's ambient configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultEmbeddingDim is the system-wide fixed embedding dimension (I8).
const DefaultEmbeddingDim = 1536

// EmbeddingConfig describes how to reach the external embedding provider.
// MKB only consumes the text -> fixed-dim unit vector contract; it does not
// implement any provider itself.
type EmbeddingConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	Dim      int    `toml:"dim"`
}

// DecayProfileConfig is one named decay profile read from config.toml.
// temporal.Lookup reads only the built-in table in package temporal; these
// entries are not merged into it.
type DecayProfileConfig struct {
	Name         string `toml:"name"`
	HalfLifeDays int    `toml:"half_life_days"`
}

// SemanticConfig tunes the executor's semantic prefilter.
type SemanticConfig struct {
	PrefilterK int `toml:"prefilter_k"`
}

// WatcherConfig holds the watcher debounce setting read from config.toml.
// vault.NewWatcher uses the fixed vault.DebounceDelay and does not read it.
type WatcherConfig struct {
	DebounceMillis int `toml:"debounce_millis"`
}

// Config is the full MKB configuration.
type Config struct {
	VaultRoot string               `toml:"vault_root"`
	Embedding EmbeddingConfig      `toml:"embedding"`
	Decay     []DecayProfileConfig `toml:"decay_profile"`
	Semantic  SemanticConfig       `toml:"semantic"`
	Watcher   WatcherConfig        `toml:"watcher"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		VaultRoot: ".",
		Embedding: EmbeddingConfig{
			Provider: "none",
			Dim:      DefaultEmbeddingDim,
		},
		Semantic: SemanticConfig{PrefilterK: 100},
		Watcher:  WatcherConfig{DebounceMillis: 2000},
	}
}

// Load reads config.toml from <vaultRoot>/.mkb/config.toml if present,
// overlays it onto the default, then applies MKB_* environment variable
// overrides. A missing file is not an error.
func Load(vaultRoot string) (Config, error) {
	cfg := Default()
	cfg.VaultRoot = vaultRoot

	path := filepath.Join(vaultRoot, ".mkb", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MKB_VAULT_ROOT"); v != "" {
		cfg.VaultRoot = v
	}
	if v := os.Getenv("MKB_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("MKB_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("MKB_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dim = n
		}
	}
}
