package rag

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func Test_NewEngine_RequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewEngine(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewEngine(&EngineConfig{Indexer: NewTFIDFIndexer()}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewEngine(&EngineConfig{Store: &sliceStore{}}); err == nil {
		t.Error("expected error for nil indexer")
	}
}

func Test_IngestDocument_SkipsBlankPagesAndLabelsSources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &sliceStore{}
	e := newTestEngine(t, store, NewTFIDFIndexer())

	added, err := e.IngestDocument(ctx, []string{"The sky is blue.", "   ", "Grass is green."}, "doc1")
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	want := []Fragment{
		{Text: "The sky is blue.", Source: "doc1: page 1"},
		{Text: "Grass is green.", Source: "doc1: page 2"},
	}
	got, _ := store.All(ctx)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("store = %+v, want %+v", got, want)
	}
}

func Test_IngestDocument_RebuildsOncePerCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := &countingIndexer{inner: NewTFIDFIndexer()}
	e := newTestEngine(t, &sliceStore{}, idx)

	if _, err := e.IngestDocument(ctx, []string{"one", "two", "three", "four"}, "a.pdf"); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if idx.count() != 1 {
		t.Errorf("rebuilds = %d, want 1", idx.count())
	}
}

func Test_IngestDocument_NoTextIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := &countingIndexer{inner: NewTFIDFIndexer()}
	e := newTestEngine(t, &sliceStore{}, idx)

	added, err := e.IngestDocument(ctx, []string{"", " \n "}, "scan.pdf")
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if added != 0 || idx.count() != 0 {
		t.Errorf("added = %d rebuilds = %d, want 0 and 0", added, idx.count())
	}
}

func Test_IngestDocument_BlankLabel(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, &sliceStore{}, NewTFIDFIndexer())
	if _, err := e.IngestDocument(context.Background(), []string{"text"}, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func Test_IngestDocument_PartialFailureStillRebuilds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &sliceStore{failAfter: 1}
	e := newTestEngine(t, store, NewTFIDFIndexer())

	added, err := e.IngestDocument(ctx, []string{"first page", "second page"}, "big.pdf")
	if err == nil {
		t.Fatal("expected append error")
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	res, err := e.Retrieve(ctx, "first", 3)
	if err != nil {
		t.Fatalf("Retrieve after partial ingest: %v", err)
	}
	if len(res) != 1 || res[0].Fragment.Text != "first page" {
		t.Errorf("results = %+v", res)
	}
}

func Test_IngestWebPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &sliceStore{}
	idx := &countingIndexer{inner: NewTFIDFIndexer()}
	e := newTestEngine(t, store, idx)

	added, err := e.IngestWebPage(ctx, "   ", "https://example.com/empty")
	if err != nil || added != 0 || idx.count() != 0 {
		t.Fatalf("blank page: added=%d err=%v rebuilds=%d", added, err, idx.count())
	}

	added, err = e.IngestWebPage(ctx, "Go has goroutines.", "https://go.dev")
	if err != nil {
		t.Fatalf("IngestWebPage: %v", err)
	}
	if added != 1 || idx.count() != 1 {
		t.Errorf("added=%d rebuilds=%d, want 1 and 1", added, idx.count())
	}
	f, _ := store.Get(ctx, 0)
	if f.Source != "https://go.dev" {
		t.Errorf("source = %q, want url", f.Source)
	}

	if _, err := e.IngestWebPage(ctx, "text", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank url err = %v, want ErrValidation", err)
	}
}

func Test_IngestDocument_SameLabelTwiceIsSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := &countingIndexer{inner: NewTFIDFIndexer()}
	e := newTestEngine(t, &sliceStore{}, idx)

	pages := []string{"The sky is blue.", "Grass is green."}
	if _, err := e.IngestDocument(ctx, pages, "doc1.pdf"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	added, err := e.IngestDocument(ctx, pages, " doc1.pdf ")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
	if n, _ := e.Len(ctx); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
	if idx.count() != 1 {
		t.Errorf("rebuilds = %d, want 1", idx.count())
	}

	res, err := e.Retrieve(ctx, "sky", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res) != 1 || res[0].Fragment.Source != "doc1.pdf: page 1" {
		t.Errorf("results = %+v, want one doc1.pdf: page 1", res)
	}
}

func Test_IngestWebPage_SameURLTwiceIsSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, &sliceStore{}, NewTFIDFIndexer())

	for i, want := range []int{1, 0} {
		added, err := e.IngestWebPage(ctx, "Go has goroutines.", "https://go.dev")
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if added != want {
			t.Errorf("ingest %d: added = %d, want %d", i, added, want)
		}
	}
	if n, _ := e.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func Test_Engine_LoadIndexesExistingFragments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &sliceStore{fragments: []Fragment{{Text: "persisted fact about otters", Source: "old.pdf: page 1"}}}
	e := newTestEngine(t, store, NewTFIDFIndexer())

	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := e.Retrieve(ctx, "otters", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res) != 1 || res[0].Fragment.Source != "old.pdf: page 1" {
		t.Errorf("results = %+v", res)
	}
}

func Test_Engine_FailedRebuildIsRetriedOnRetrieve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := &countingIndexer{inner: NewTFIDFIndexer()}
	e := newTestEngine(t, &sliceStore{}, idx)

	idx.setFailing(true)
	if _, err := e.IngestDocument(ctx, []string{"volcanoes erupt lava"}, "geo.pdf"); err == nil {
		t.Fatal("expected rebuild error")
	}
	if _, err := e.Retrieve(ctx, "lava", 1); !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable while indexer is failing", err)
	}

	idx.setFailing(false)
	res, err := e.Retrieve(ctx, "lava", 1)
	if err != nil {
		t.Fatalf("Retrieve after recovery: %v", err)
	}
	if len(res) != 1 {
		t.Errorf("results = %+v, want one", res)
	}
}

func Test_Engine_ConcurrentIngestAndRetrieve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, &sliceStore{}, NewTFIDFIndexer())
	if _, err := e.IngestDocument(ctx, []string{"seed fragment about rivers"}, "seed.pdf"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.IngestDocument(ctx, []string{"rivers flow to the sea", "lakes are still"}, fmt.Sprintf("water-%d.pdf", i))
		}()
		go func() {
			defer wg.Done()
			if _, err := e.Retrieve(ctx, "rivers", 3); err != nil {
				t.Errorf("Retrieve: %v", err)
			}
		}()
	}
	wg.Wait()

	n, _ := e.Len(ctx)
	if n != 17 {
		t.Errorf("Len = %d, want 17", n)
	}
}
