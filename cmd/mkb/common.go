package main

import (
	"github.com/mkb-project/mkb/internal/config"
	"github.com/mkb-project/mkb/internal/embedding"
	"github.com/mkb-project/mkb/internal/index"
	"github.com/mkb-project/mkb/internal/vault"
)

// openVault attaches to an existing vault at vaultRoot and loads its config.
func openVault() (*vault.Vault, config.Config, error) {
	v, err := vault.Open(vaultRoot)
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := config.Load(vaultRoot)
	if err != nil {
		return nil, config.Config{}, err
	}
	return v, cfg, nil
}

// openIndex attaches to v's derived index database.
func openIndex(v *vault.Vault) (*index.DB, error) {
	return index.Open(v.IndexPath())
}

// newProvider builds the embedding provider for cfg. MKB ships no concrete
// provider implementation (spec scope: only the text -> fixed-dim unit
// vector contract is consumed), so every cfg.Embedding.Provider value,
// including "none" and unset, resolves to a provider that fails any
// embedding call, so NEAR() queries
// surface a clear "no embedding provider configured" error instead of a
// nil-pointer panic deep in the executor.
func newProvider(cfg config.Config) embedding.Provider {
	dim := cfg.Embedding.Dim
	if dim <= 0 {
		dim = index.EmbeddingDim
	}
	return embedding.NoneProvider{Dim: dim}
}
