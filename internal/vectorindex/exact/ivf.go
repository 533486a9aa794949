package exact

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
)

// IVF layers inverted-file partitioning on top of an exact index. Vectors
// are clustered into partitions by k-means; a search scans only the
// probes partitions whose centroids are nearest the query. Any mutation
// invalidates the partitioning, and searches fall back to an exact scan
// until Rebuild is called again. Results may differ from exact search,
// which is the accepted trade-off of the approximate mode.
type IVF struct {
	base       *Index
	partitions int
	probes     int

	centroids [][]float32
	members   [][]string
	stale     bool
}

// NewIVF wraps base with an approximate search layer. partitions and
// probes must be positive, with probes not exceeding partitions.
func NewIVF(base *Index, partitions, probes int) (*IVF, error) {
	if partitions <= 0 {
		return nil, fmt.Errorf("%w: partitions must be positive, got %d", domain.ErrInvalidConfiguration, partitions)
	}
	if probes <= 0 || probes > partitions {
		return nil, fmt.Errorf("%w: probes must be in [1, %d], got %d", domain.ErrInvalidConfiguration, partitions, probes)
	}
	return &IVF{base: base, partitions: partitions, probes: probes, stale: true}, nil
}

func (ix *IVF) Insert(chunkID string, vector []float32) error {
	if err := ix.base.Insert(chunkID, vector); err != nil {
		return err
	}
	ix.invalidate()
	return nil
}

func (ix *IVF) Remove(chunkID string) error {
	if err := ix.base.Remove(chunkID); err != nil {
		return err
	}
	ix.invalidate()
	return nil
}

func (ix *IVF) Size() int { return ix.base.Size() }

func (ix *IVF) Dimension() int { return ix.base.Dimension() }

func (ix *IVF) Save() error { return ix.base.Save() }

func (ix *IVF) invalidate() {
	ix.base.mu.Lock()
	ix.stale = true
	ix.base.mu.Unlock()
}

// Search probes the nearest partitions, falling back to an exact scan
// while the partitioning is stale.
func (ix *IVF) Search(query []float32, k int) ([]vectorindex.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	ix.base.mu.RLock()
	stale := ix.stale || len(ix.centroids) == 0
	ix.base.mu.RUnlock()
	if stale {
		return ix.base.Search(query, k)
	}

	ix.base.mu.RLock()
	defer ix.base.mu.RUnlock()

	if len(ix.base.entries) == 0 {
		return nil, nil
	}
	if len(query) != ix.base.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d", domain.ErrDimensionMismatch, len(query), ix.base.dim)
	}

	q := normalize(query)

	type scored struct {
		part  int
		score float32
	}
	parts := make([]scored, len(ix.centroids))
	for i, c := range ix.centroids {
		parts[i] = scored{part: i, score: dot(q, c)}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].score > parts[j].score })

	var matches []vectorindex.Match
	for _, p := range parts[:ix.probes] {
		for _, id := range ix.members[p.part] {
			vec, ok := ix.base.entries[id]
			if !ok {
				continue
			}
			matches = append(matches, vectorindex.Match{ChunkID: id, Score: dot(q, vec)})
		}
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

// Rebuild reclusters all stored vectors. Seeding and iteration order are
// deterministic, so the same vector set always yields the same partitions.
func (ix *IVF) Rebuild() error {
	ix.base.mu.Lock()
	defer ix.base.mu.Unlock()

	ids := make([]string, 0, len(ix.base.entries))
	for id := range ix.base.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	kParts := ix.partitions
	if kParts > len(ids) {
		kParts = len(ids)
	}
	if kParts == 0 {
		ix.centroids = nil
		ix.members = nil
		ix.stale = true
		return nil
	}

	dim := ix.base.dim
	rng := rand.New(rand.NewSource(int64(len(ids))))

	centroids := make([][]float32, kParts)
	for i, pick := range rng.Perm(len(ids))[:kParts] {
		centroids[i] = append([]float32(nil), ix.base.entries[ids[pick]]...)
	}

	assign := make([]int, len(ids))
	const maxIterations = 25
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, id := range ids {
			vec := ix.base.entries[id]
			best, bestScore := 0, float32(-2)
			for p, c := range centroids {
				if s := dot(vec, c); s > bestScore {
					best, bestScore = p, s
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, kParts)
		counts := make([]int, kParts)
		for p := range sums {
			sums[p] = make([]float64, dim)
		}
		for i, id := range ids {
			vec := ix.base.entries[id]
			p := assign[i]
			counts[p]++
			for d, x := range vec {
				sums[p][d] += float64(x)
			}
		}
		for p := range centroids {
			if counts[p] == 0 {
				continue
			}
			mean := make([]float32, dim)
			for d := range mean {
				mean[d] = float32(sums[p][d] / float64(counts[p]))
			}
			centroids[p] = normalize(mean)
		}
	}

	members := make([][]string, kParts)
	for i, id := range ids {
		members[assign[i]] = append(members[assign[i]], id)
	}

	ix.centroids = centroids
	ix.members = members
	ix.stale = false
	return nil
}
