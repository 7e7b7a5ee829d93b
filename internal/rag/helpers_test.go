package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// sliceStore is a minimal in-package FragmentStore for engine tests.
type sliceStore struct {
	mu        sync.Mutex
	fragments []Fragment
	failAfter int // Append fails once len(fragments) reaches failAfter; 0 disables
}

func (s *sliceStore) Append(_ context.Context, text, source string) (FragmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("blank: %w", ErrValidation)
	}
	if s.failAfter > 0 && len(s.fragments) >= s.failAfter {
		return 0, fmt.Errorf("disk full")
	}
	s.fragments = append(s.fragments, Fragment{Text: text, Source: source})
	return FragmentID(len(s.fragments) - 1), nil
}

func (s *sliceStore) Get(_ context.Context, id FragmentID) (Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || int(id) >= len(s.fragments) {
		return Fragment{}, ErrNotFound
	}
	return s.fragments[id], nil
}

func (s *sliceStore) All(_ context.Context) ([]Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fragment(nil), s.fragments...), nil
}

func (s *sliceStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fragments), nil
}

func (s *sliceStore) HasSource(_ context.Context, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fragments {
		if f.Source == source {
			return true, nil
		}
	}
	return false, nil
}

// countingIndexer wraps an Indexer and counts Rebuild calls. When failing is
// set, Rebuild returns an error instead.
type countingIndexer struct {
	inner    Indexer
	mu       sync.Mutex
	rebuilds int
	failing  bool
}

func (c *countingIndexer) Name() string { return "counting" }

func (c *countingIndexer) Rebuild(ctx context.Context, fragments []Fragment) (Index, error) {
	c.mu.Lock()
	c.rebuilds++
	failing := c.failing
	c.mu.Unlock()
	if failing {
		return nil, fmt.Errorf("indexer unavailable")
	}
	return c.inner.Rebuild(ctx, fragments)
}

func (c *countingIndexer) setFailing(v bool) {
	c.mu.Lock()
	c.failing = v
	c.mu.Unlock()
}

func (c *countingIndexer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuilds
}

// newTestEngine returns an Engine over an empty sliceStore using idx.
func newTestEngine(t *testing.T, store FragmentStore, idx Indexer) *Engine {
	t.Helper()
	e, err := NewEngine(&EngineConfig{
		Store:   store,
		Indexer: idx,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// fakeEmbedder maps text to a bag-of-letters vector so related strings share
// direction without a real model.
type fakeEmbedder struct {
	dim   int
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dim)
		for _, w := range tokenize(text) {
			h := 0
			for _, r := range w {
				h = (h*31 + int(r)) % f.dim
			}
			v[h]++
		}
		out[i] = v
	}
	return out, nil
}
