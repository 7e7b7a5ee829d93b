package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultTopK is the number of fragments retrieved per question when the
// caller does not configure one.
const DefaultTopK = 3

// Retrieve ranks every fragment against query and returns at most topK of
// them, most relevant first. Ties are broken by ascending insertion order.
// Fragments scoring zero or less are never returned, so a query with no
// relation to the corpus yields an empty slice rather than an error.
// Returns ErrEmptyIndex when nothing has been ingested.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]Scored, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("rag: query is required: %w", ErrValidation)
	}
	if topK < 1 {
		return nil, fmt.Errorf("rag: topK must be at least 1, got %d: %w", topK, ErrValidation)
	}
	if err := e.refreshIfStale(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.stale {
		return nil, fmt.Errorf("rag: rebuild pending after a failure: %w", ErrIndexUnavailable)
	}
	if e.index == nil || e.index.Len() == 0 {
		return nil, ErrEmptyIndex
	}

	scores, err := e.index.Scores(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: scoring failed: %w", err)
	}
	if len(scores) != e.index.Len() {
		return nil, fmt.Errorf("rag: index returned %d scores for %d fragments", len(scores), e.index.Len())
	}

	ranked := rank(scores, topK)
	results := make([]Scored, 0, len(ranked))
	for _, i := range ranked {
		f, err := e.store.Get(ctx, FragmentID(i))
		if err != nil {
			return nil, fmt.Errorf("rag: load ranked fragment %d: %w", i, err)
		}
		results = append(results, Scored{ID: FragmentID(i), Fragment: f, Score: scores[i]})
	}
	return results, nil
}

// rank returns the positions of the topK highest positive scores, ordered by
// descending score and then ascending position.
func rank(scores []float64, topK int) []int {
	idxs := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})
	if topK < len(idxs) {
		idxs = idxs[:topK]
	}
	return idxs
}
