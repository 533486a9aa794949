package exact

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
)

// Index is an in-memory exact-search vector index. Vectors are stored
// L2-normalized, so cosine similarity is a plain dot product. The first
// inserted vector fixes the dimension for the index lifetime.
type Index struct {
	mu      sync.RWMutex
	entries map[string][]float32
	dim     int
	path    string
}

// New creates an empty index with no backing file.
func New() *Index {
	return &Index{entries: make(map[string][]float32)}
}

// Insert adds or replaces the vector for chunkID. Vectors whose length
// disagrees with the established dimension are rejected.
func (ix *Index) Insert(chunkID string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for %q", domain.ErrDimensionMismatch, chunkID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(vector)
	} else if len(vector) != ix.dim {
		return fmt.Errorf("%w: got %d, index holds %d-dimensional vectors", domain.ErrDimensionMismatch, len(vector), ix.dim)
	}

	ix.entries[chunkID] = normalize(vector)
	return nil
}

// Remove deletes the vector for chunkID. Removing an absent ID is a no-op.
func (ix *Index) Remove(chunkID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, chunkID)
	return nil
}

// Search returns the k best matches by cosine similarity, score descending
// with ties broken by chunk ID. k <= 0 or an empty index yields no matches.
func (ix *Index) Search(query []float32, k int) ([]vectorindex.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d", domain.ErrDimensionMismatch, len(query), ix.dim)
	}

	q := normalize(query)
	matches := make([]vectorindex.Match, 0, len(ix.entries))
	for id, vec := range ix.entries {
		matches = append(matches, vectorindex.Match{ChunkID: id, Score: dot(q, vec)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Size returns the number of stored vectors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the established vector dimension, 0 when empty and
// never inserted into.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
