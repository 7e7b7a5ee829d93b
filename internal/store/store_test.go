package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/54b3r/ragqa/internal/rag"
)

// openTestStore opens a SQLiteStore in a temp directory and registers cleanup.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fragments.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// stores returns one of each implementation under a stable name.
func stores(t *testing.T) map[string]rag.FragmentStore {
	t.Helper()
	return map[string]rag.FragmentStore{
		"memory": NewMemoryStore(),
		"sqlite": openTestStore(t),
	}
}

func Test_Append_AssignsSequentialPositions(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for want := 0; want < 3; want++ {
				id, err := s.Append(ctx, "  text  ", "doc.pdf: page 1")
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
				if int(id) != want {
					t.Errorf("id = %d, want %d", id, want)
				}
			}
			n, err := s.Len(ctx)
			if err != nil {
				t.Fatalf("Len: %v", err)
			}
			if n != 3 {
				t.Errorf("Len = %d, want 3", n)
			}
		})
	}
}

func Test_Append_TrimsText(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.Append(ctx, "\n  Photosynthesis converts light.\t", "bio.pdf: page 1")
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
			f, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if f.Text != "Photosynthesis converts light." {
				t.Errorf("Text = %q", f.Text)
			}
			if f.Source != "bio.pdf: page 1" {
				t.Errorf("Source = %q", f.Source)
			}
		})
	}
}

func Test_Append_RejectsBlankText(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Append(ctx, " \n\t ", "x")
			if !errors.Is(err, rag.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			n, _ := s.Len(ctx)
			if n != 0 {
				t.Errorf("Len = %d after rejected append, want 0", n)
			}
		})
	}
}

func Test_Get_OutOfRange(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Append(ctx, "only", "a"); err != nil {
				t.Fatalf("Append: %v", err)
			}
			for _, id := range []rag.FragmentID{-1, 1, 99} {
				if _, err := s.Get(ctx, id); !errors.Is(err, rag.ErrNotFound) {
					t.Errorf("Get(%d) err = %v, want ErrNotFound", id, err)
				}
			}
		})
	}
}

func Test_All_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			texts := []string{"first", "second", "third"}
			for _, text := range texts {
				if _, err := s.Append(ctx, text, "src"); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			all, err := s.All(ctx)
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != len(texts) {
				t.Fatalf("len(All) = %d, want %d", len(all), len(texts))
			}
			for i, f := range all {
				if f.Text != texts[i] {
					t.Errorf("All[%d] = %q, want %q", i, f.Text, texts[i])
				}
			}
		})
	}
}

func Test_SQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fragments.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Append(ctx, "kept", "notes.pdf: page 1"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	f, err := s2.Get(ctx, 0)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if f.Text != "kept" || f.Source != "notes.pdf: page 1" {
		t.Errorf("fragment = %+v", f)
	}
	id, err := s2.Append(ctx, "next", "notes.pdf: page 2")
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if id != 1 {
		t.Errorf("id after reopen = %d, want 1", id)
	}
}

func Test_SQLiteStore_Ping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if s.Name() != "sqlite" {
		t.Errorf("Name = %q", s.Name())
	}
}

func Test_MemoryStore_AllReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Append(ctx, "original", "a"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	all, _ := s.All(ctx)
	all[0].Text = "mutated"
	f, _ := s.Get(ctx, 0)
	if f.Text != "original" {
		t.Errorf("store mutated through All(): %q", f.Text)
	}
}

func Test_HasSource(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Append(ctx, "text", "doc.pdf: page 1"); err != nil {
				t.Fatalf("Append: %v", err)
			}
			for source, want := range map[string]bool{
				"doc.pdf: page 1":   true,
				" doc.pdf: page 1 ": true,
				"doc.pdf: page 2":   false,
				"other.pdf: page 1": false,
			} {
				got, err := s.HasSource(ctx, source)
				if err != nil {
					t.Fatalf("HasSource(%q): %v", source, err)
				}
				if got != want {
					t.Errorf("HasSource(%q) = %v, want %v", source, got, want)
				}
			}
		})
	}
}

func Test_SQLiteStore_AppliesPragmas(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func Test_SQLiteStore_ReingestAcrossReopenIsSkipped(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fragments.db")
	ctx := context.Background()

	for run := range 3 {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("run %d: Open: %v", run, err)
		}
		e, err := rag.NewEngine(&rag.EngineConfig{Store: s, Indexer: rag.NewTFIDFIndexer()})
		if err != nil {
			t.Fatalf("run %d: NewEngine: %v", run, err)
		}
		if err := e.Load(ctx); err != nil {
			t.Fatalf("run %d: Load: %v", run, err)
		}
		if _, err := e.IngestDocument(ctx, []string{"The sky is blue."}, "doc1.pdf"); err != nil {
			t.Fatalf("run %d: IngestDocument: %v", run, err)
		}

		if n, _ := e.Len(ctx); n != 1 {
			t.Errorf("run %d: Len = %d, want 1", run, n)
		}
		res, err := e.Retrieve(ctx, "sky", 5)
		if err != nil {
			t.Fatalf("run %d: Retrieve: %v", run, err)
		}
		if len(res) != 1 || res[0].Fragment.Source != "doc1.pdf: page 1" {
			t.Errorf("run %d: results = %+v, want one doc1.pdf: page 1", run, res)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("run %d: Close: %v", run, err)
		}
	}
}
