package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process index for development and tests. It holds
// every vector in memory and brute-forces cosine similarity on search.
type MemoryIndex struct {
	mu       sync.RWMutex
	vectors  map[string][]float32
	metadata map[string]map[string]interface{}
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		vectors:  make(map[string][]float32),
		metadata: make(map[string]map[string]interface{}),
	}
}

func (m *MemoryIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]interface{}) error {
	if err := validateBatch(ids, vectors, metadata); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		m.vectors[id] = vec
		if metadata != nil {
			m.metadata[id] = metadata[i]
		}
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error) {
	if topK <= 0 || len(queryVector) == 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.vectors))
	for id, vec := range m.vectors {
		hits = append(hits, Hit{ID: id, Score: cosineSimilarity(queryVector, vec), Metadata: m.metadata[id]})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.vectors, id)
		delete(m.metadata, id)
	}
	return nil
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Index = (*MemoryIndex)(nil)
