package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docranker/internal/core/domain"
)

// Index is an exact brute-force cosine-similarity scanner. Contract: results
// are exact nearest neighbours (recall 1.0); swapping in an approximate
// backend behind the same interface changes that contract and must be held
// constant for a deployment, since downstream normalization assumes
// consistent recall.
//
// Vectors are stored L2-normalized so a search is a dot-product scan.
type Index struct {
	dim int

	mu      sync.RWMutex
	vectors map[string][]float32
}

func New(embeddingDim int) *Index {
	return &Index{
		dim:     embeddingDim,
		vectors: make(map[string][]float32),
	}
}

func (idx *Index) Insert(chunkID string, embedding []float32) error {
	if len(embedding) != idx.dim {
		return domain.WrapError(domain.ErrDimensionMismatch, "vector insert",
			fmt.Errorf("chunk %s: embedding length %d, index dimension %d", chunkID, len(embedding), idx.dim))
	}
	normalized := normalize(embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[chunkID] = normalized
	return nil
}

func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, chunkID)
}

// Search returns up to limit chunk ids by descending cosine similarity, ties
// by chunk id ascending.
func (idx *Index) Search(embedding []float32, limit int) ([]domain.IndexHit, error) {
	if len(embedding) != idx.dim {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "vector search",
			fmt.Errorf("query embedding length %d, index dimension %d", len(embedding), idx.dim))
	}
	if limit <= 0 {
		return nil, nil
	}
	query := normalize(embedding)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]domain.IndexHit, 0, len(idx.vectors))
	for chunkID, vec := range idx.vectors {
		hits = append(hits, domain.IndexHit{ChunkID: chunkID, Score: dot(query, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
