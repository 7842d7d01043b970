package vector

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/gymunity/feed/config"
)

func cfgWithProvider(p string) config.VectorConfig {
	return config.VectorConfig{Provider: p, Dimensions: 2, TopK: 10}
}

var testLogger = log.New(io.Discard, "", 0)

func TestMemoryIndexUpsertSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	err := idx.Upsert(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		[]map[string]interface{}{{"topics": "strength"}, nil, nil},
	)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := idx.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "a" {
		t.Errorf("closest = %s, want a", hits[0].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not descending: %v", hits)
	}
	if hits[0].Metadata["topics"] != "strength" {
		t.Errorf("metadata lost: %v", hits[0].Metadata)
	}
}

func TestMemoryIndexDeterministicTieBreak(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	_ = idx.Upsert(ctx, []string{"z", "a", "m"}, [][]float32{{1, 0}, {1, 0}, {1, 0}}, nil)

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"a", "m", "z"}
	for i := range want {
		if hits[i].ID != want[i] {
			t.Fatalf("tie order = %v, want %v", hits, want)
		}
	}
}

func TestMemoryIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	_ = idx.Upsert(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}, nil)

	if err := idx.Delete(ctx, []string{"a"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, _ := idx.Count(ctx)
	if n != 1 {
		t.Fatalf("Count after delete = %d", n)
	}
	hits, _ := idx.Search(ctx, []float32{1, 0}, 10)
	for _, h := range hits {
		if h.ID == "a" {
			t.Fatal("deleted id still searchable")
		}
	}
}

func TestMemoryIndexUpsertLengthMismatch(t *testing.T) {
	idx := NewMemoryIndex()
	if err := idx.Upsert(context.Background(), []string{"a"}, nil, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors similarity = %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths similarity = %v", got)
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	if _, ok := New(cfgWithProvider("memory"), nil, testLogger).(*MemoryIndex); !ok {
		t.Error("memory provider should yield MemoryIndex")
	}
	if _, ok := New(cfgWithProvider("disabled"), nil, testLogger).(Disabled); !ok {
		t.Error("disabled provider should yield Disabled")
	}
	// pgvector without a store cannot work and degrades to Disabled.
	if _, ok := New(cfgWithProvider("pgvector"), nil, testLogger).(Disabled); !ok {
		t.Error("pgvector without store should degrade to Disabled")
	}
	if _, ok := New(cfgWithProvider("bogus"), nil, testLogger).(Disabled); !ok {
		t.Error("unknown provider should degrade to Disabled")
	}
}
