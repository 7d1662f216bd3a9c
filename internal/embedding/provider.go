// Package embedding defines the narrow contract the query executor
// consumes to turn NEAR() query text into a vector: text in, fixed-dimension
// unit vector out. Concrete providers (an HTTP call to Ollama/OpenAI/etc.)
// are deliberately not implemented here; callers inject whichever Provider
// they like at the point NEAR() resolution needs one.
package embedding

import "fmt"

// Provider generates a fixed-dimension embedding vector from text. Every
// vector it returns for a given Dimensions() value must have that exact
// length, or the index's ANN virtual table rejects the write/query.
type Provider interface {
	// Embed returns an embedding vector for text, purposed for either
	// "document" (indexing) or "query" (NEAR() search) use. Most providers
	// treat the two identically; some (e.g. asymmetric retrieval models)
	// prepend a different instruction prefix per purpose.
	Embed(text string, purpose Purpose) ([]float32, error)

	// Name identifies the provider, stored alongside each embedding row so
	// a later model swap can be detected and trigger a reindex.
	Name() string

	// Dimensions is the fixed vector length this provider produces.
	Dimensions() int
}

// Purpose distinguishes indexing-time from query-time embedding calls.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeQuery    Purpose = "query"
)

// ErrNoProvider is returned by callers that need a Provider but were not
// configured with one (the "none" / keyword-only mode from config).
var ErrNoProvider = fmt.Errorf("no embedding provider configured")

// NoneProvider is a Provider that always fails, used as the default when
// config.EmbeddingConfig.Provider is "none" or empty. It lets every other
// component (executor, store_embedding callers) depend on a non-nil
// Provider rather than special-casing a missing one.
type NoneProvider struct{ Dim int }

func (n NoneProvider) Embed(string, Purpose) ([]float32, error) { return nil, ErrNoProvider }
func (n NoneProvider) Name() string                             { return "none" }
func (n NoneProvider) Dimensions() int                          { return n.Dim }
