// Package rag implements the retrieval core: the fragment store contract,
// pluggable indexing strategies, similarity ranking, and the Engine that owns
// the store/index pair. Storage backends live in the store package and dense
// embedders in the embedder package; both satisfy the interfaces defined here
// so the Engine never depends on a specific backend.
package rag

import (
	"context"
)

// FragmentID is the position of a fragment in its store (0-based).
type FragmentID int

// Fragment is a unit of retrievable text together with its provenance.
// Fragments are immutable once appended.
type Fragment struct {
	// Text is the trimmed, non-empty fragment content.
	Text string

	// Source is the human-readable provenance label, e.g. "report.pdf: page 3"
	// or the URL of an ingested web page.
	Source string
}

// Scored pairs a fragment with the similarity score it received for a query.
type Scored struct {
	// ID is the fragment's position in the store.
	ID FragmentID

	// Fragment is the retrieved fragment.
	Fragment Fragment

	// Score is the similarity score. Higher means more relevant.
	Score float64
}

// FragmentStore is the authoritative, append-only collection of fragments.
// Implementations must be safe to call from multiple goroutines.
type FragmentStore interface {
	// Append validates and stores a fragment, returning its position.
	// Returns an error wrapping ErrValidation if text is blank.
	Append(ctx context.Context, text, source string) (FragmentID, error)

	// Get returns the fragment at id, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id FragmentID) (Fragment, error)

	// All returns every fragment in insertion order.
	All(ctx context.Context) ([]Fragment, error)

	// Len returns the number of stored fragments.
	Len(ctx context.Context) (int, error)

	// HasSource reports whether any fragment carries the given source label.
	HasSource(ctx context.Context, source string) (bool, error)
}

// Index is a similarity-queryable representation derived from the full
// fragment collection. An Index is immutable once built.
type Index interface {
	// Len returns the number of fragments the index was built over.
	Len() int

	// Scores returns one score per fragment, parallel to the fragment slice
	// the index was built from.
	Scores(ctx context.Context, query string) ([]float64, error)
}

// Indexer builds an Index from the complete fragment collection.
// Rebuild must be deterministic for a given input and must return an empty
// Index (Len() == 0) rather than an error when fragments is empty.
type Indexer interface {
	// Name identifies the strategy in logs and metrics (e.g. "tfidf").
	Name() string

	// Rebuild constructs a fresh Index over fragments.
	Rebuild(ctx context.Context, fragments []Fragment) (Index, error)
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// emptyIndex is the explicit "nothing indexed yet" state.
type emptyIndex struct{}

func (emptyIndex) Len() int { return 0 }

func (emptyIndex) Scores(context.Context, string) ([]float64, error) { return nil, nil }

// EmptyIndex returns the Index used when there are no fragments.
func EmptyIndex() Index { return emptyIndex{} }
