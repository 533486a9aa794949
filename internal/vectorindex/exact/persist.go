package exact

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// metricCosine is the only similarity metric this index computes. The
// snapshot records it so a future format change is detectable on load.
const metricCosine = "cosine"

// snapshot is the on-disk shape of the index. Entries are flattened into
// parallel slices sorted by ID so that saving the same state twice
// produces identical bytes.
type snapshot struct {
	Metric    string
	Dimension int
	IDs       []string
	Vectors   [][]float32
}

// Open loads an index from path, or returns an empty index bound to path
// when the file does not exist yet. A corrupt or partially written file
// fails the load outright rather than surfacing partial state.
func Open(path string) (*Index, error) {
	ix := New()
	ix.path = path

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ix, nil
		}
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	if snap.Metric != metricCosine {
		return nil, fmt.Errorf("decode index %s: unsupported metric %q", path, snap.Metric)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return nil, fmt.Errorf("decode index %s: %d ids but %d vectors", path, len(snap.IDs), len(snap.Vectors))
	}
	for i, id := range snap.IDs {
		if len(snap.Vectors[i]) != snap.Dimension {
			return nil, fmt.Errorf("decode index %s: vector %q has %d dimensions, header says %d", path, id, len(snap.Vectors[i]), snap.Dimension)
		}
		ix.entries[id] = snap.Vectors[i]
	}
	ix.dim = snap.Dimension
	return ix, nil
}

// Save writes the full index state to the bound path. The write goes
// through a temp file in the same directory followed by a rename, so a
// crash mid-write leaves the previous snapshot intact.
func (ix *Index) Save() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.path == "" {
		return fmt.Errorf("index has no backing file")
	}

	snap := snapshot{Metric: metricCosine, Dimension: ix.dim}
	snap.IDs = make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		snap.IDs = append(snap.IDs, id)
	}
	sort.Strings(snap.IDs)
	snap.Vectors = make([][]float32, len(snap.IDs))
	for i, id := range snap.IDs {
		snap.Vectors[i] = ix.entries[id]
	}

	dir := filepath.Dir(ix.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(ix.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), ix.path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}
