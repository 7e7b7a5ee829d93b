package rag

import (
	"context"
	"fmt"
	"math"
)

// defaultEmbedBatch is the number of fragment texts sent per Embed call
// during a rebuild.
const defaultEmbedBatch = 64

// DenseIndexer builds indexes from one dense embedding per fragment and
// scores queries by cosine similarity, using the same Embedder for both so
// queries and fragments share a vector space.
type DenseIndexer struct {
	// embedder converts fragment and query text to vectors.
	embedder Embedder

	// batchSize caps the number of texts per Embed call.
	batchSize int
}

// NewDenseIndexer constructs a DenseIndexer. batchSize <= 0 selects the default.
func NewDenseIndexer(embedder Embedder, batchSize int) (*DenseIndexer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if batchSize <= 0 {
		batchSize = defaultEmbedBatch
	}
	return &DenseIndexer{embedder: embedder, batchSize: batchSize}, nil
}

// Name implements Indexer.
func (*DenseIndexer) Name() string { return "dense" }

// Rebuild embeds every fragment and returns an in-memory cosine index.
func (d *DenseIndexer) Rebuild(ctx context.Context, fragments []Fragment) (Index, error) {
	if len(fragments) == 0 {
		return EmptyIndex(), nil
	}
	vectors, err := embedAll(ctx, d.embedder, fragments, d.batchSize)
	if err != nil {
		return nil, err
	}
	for i := range vectors {
		normalize(vectors[i])
	}
	return &denseIndex{embedder: d.embedder, vectors: vectors}, nil
}

// denseIndex holds L2-normalised fragment vectors.
type denseIndex struct {
	embedder Embedder
	vectors  [][]float32
}

func (x *denseIndex) Len() int { return len(x.vectors) }

// Scores embeds query and returns its cosine similarity with every fragment.
func (x *denseIndex) Scores(ctx context.Context, query string) ([]float64, error) {
	q, err := embedQuery(ctx, x.embedder, query)
	if err != nil {
		return nil, err
	}
	normalize(q)

	scores := make([]float64, len(x.vectors))
	for i, v := range x.vectors {
		if len(v) != len(q) {
			return nil, fmt.Errorf("rag: query dimension %d does not match index dimension %d", len(q), len(v))
		}
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(q[j])
		}
		scores[i] = dot
	}
	return scores, nil
}

// embedAll embeds fragment texts in batches, preserving order.
func embedAll(ctx context.Context, e Embedder, fragments []Fragment, batchSize int) ([][]float32, error) {
	out := make([][]float32, 0, len(fragments))
	for start := 0; start < len(fragments); start += batchSize {
		end := min(start+batchSize, len(fragments))
		texts := make([]string, 0, end-start)
		for _, f := range fragments[start:end] {
			texts = append(texts, f.Text)
		}
		vecs, err := e.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("rag: embedding fragments %d-%d failed: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("rag: embedder returned %d vectors for %d fragments", len(vecs), len(texts))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// embedQuery embeds a single query string.
func embedQuery(ctx context.Context, e Embedder, query string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	return vecs[0], nil
}

// normalize scales v to unit length in place. Zero vectors are left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
