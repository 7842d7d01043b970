// Package vector abstracts the article vector index behind a capability
// interface so the recommendation engine never depends on a concrete backend.
package vector

import (
	"context"
	"fmt"
	"log"

	"github.com/gymunity/feed/config"
	"github.com/gymunity/feed/internal/store"
)

// Hit is a nearest-neighbour match. Score is a similarity in [0,1]
// (1 - cosine distance), higher is closer.
type Hit struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// Index is the vector search capability. The engine only calls Search and
// Count; Upsert and Delete belong to the embedding job.
type Index interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]interface{}) error
	Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}

// New selects the index backend once from configuration. An init failure
// degrades to the disabled index rather than refusing to start: the feed
// must survive without vector search.
func New(cfg config.VectorConfig, st *store.Store, logger *log.Logger) Index {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTOR] ", log.LstdFlags)
	}
	switch cfg.Provider {
	case "pgvector":
		if st == nil {
			logger.Printf("pgvector index requested without a store, vector search disabled")
			return Disabled{}
		}
		return &PGVectorIndex{Store: st}
	case "memory":
		return NewMemoryIndex()
	case "", "disabled":
		logger.Printf("vector search disabled (vector.provider=%s)", cfg.Provider)
		return Disabled{}
	default:
		logger.Printf("unknown vector provider %q, vector search disabled", cfg.Provider)
		return Disabled{}
	}
}

// Disabled is the no-op index used when vector search is turned off or its
// backend failed to initialise.
type Disabled struct{}

func (Disabled) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]interface{}) error {
	return nil
}

func (Disabled) Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error) {
	return nil, nil
}

func (Disabled) Delete(ctx context.Context, ids []string) error { return nil }

func (Disabled) Count(ctx context.Context) (int, error) { return 0, nil }

func validateBatch(ids []string, vectors [][]float32, metadata []map[string]interface{}) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if metadata != nil && len(metadata) != len(ids) {
		return fmt.Errorf("ids/metadata length mismatch: %d vs %d", len(ids), len(metadata))
	}
	return nil
}
