// Package store provides rag.FragmentStore implementations: an in-memory
// store for single-process use and a SQLite-backed store that keeps ingested
// fragments across restarts. Either can back a rag.Engine without changes to
// the indexing or retrieval code.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/54b3r/ragqa/internal/rag"
)

// MemoryStore is a rag.FragmentStore held entirely in process memory.
// Restarting the process loses its contents.
type MemoryStore struct {
	// mu guards fragments.
	mu sync.RWMutex
	// fragments is the ordered collection; the slice index is the FragmentID.
	fragments []rag.Fragment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append trims text and stores it with source, returning its position.
func (s *MemoryStore) Append(_ context.Context, text, source string) (rag.FragmentID, error) {
	f, err := newFragment(text, source)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, f)
	return rag.FragmentID(len(s.fragments) - 1), nil
}

// Get returns the fragment at id.
func (s *MemoryStore) Get(_ context.Context, id rag.FragmentID) (rag.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || int(id) >= len(s.fragments) {
		return rag.Fragment{}, fmt.Errorf("store: get %d of %d: %w", id, len(s.fragments), rag.ErrNotFound)
	}
	return s.fragments[id], nil
}

// All returns a copy of every fragment in insertion order.
func (s *MemoryStore) All(_ context.Context) ([]rag.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rag.Fragment, len(s.fragments))
	copy(out, s.fragments)
	return out, nil
}

// Len returns the number of stored fragments.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fragments), nil
}

// HasSource reports whether a fragment with the given source label exists.
func (s *MemoryStore) HasSource(_ context.Context, source string) (bool, error) {
	source = strings.TrimSpace(source)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.fragments {
		if f.Source == source {
			return true, nil
		}
	}
	return false, nil
}

// newFragment validates and normalises a fragment before it is stored.
func newFragment(text, source string) (rag.Fragment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rag.Fragment{}, fmt.Errorf("store: fragment text is empty: %w", rag.ErrValidation)
	}
	return rag.Fragment{Text: text, Source: strings.TrimSpace(source)}, nil
}
