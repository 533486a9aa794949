package exact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

func TestInsertEstablishesDimension(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("a", []float32{1, 0, 0}))
	assert.Equal(t, 3, ix.Dimension())

	err := ix.Insert("b", []float32{1, 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Size())
}

func TestInsertReplacesExisting(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("a", []float32{1, 0}))
	require.NoError(t, ix.Insert("a", []float32{0, 1}))
	assert.Equal(t, 1, ix.Size())

	matches, err := ix.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestSearchRanksByCosine(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("close", []float32{1, 0.1}))
	require.NoError(t, ix.Insert("far", []float32{0, 1}))
	require.NoError(t, ix.Insert("exact", []float32{2, 0}))

	matches, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "exact", matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "close", matches[1].ChunkID)
	assert.Equal(t, "far", matches[2].ChunkID)
}

func TestSearchTiesBreakOnChunkID(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("doc:000002", []float32{1, 0}))
	require.NoError(t, ix.Insert("doc:000000", []float32{1, 0}))
	require.NoError(t, ix.Insert("doc:000001", []float32{1, 0}))

	matches, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "doc:000000", matches[0].ChunkID)
	assert.Equal(t, "doc:000001", matches[1].ChunkID)
	assert.Equal(t, "doc:000002", matches[2].ChunkID)
}

func TestSearchBounds(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("a", []float32{1, 0}))
	require.NoError(t, ix.Insert("b", []float32{0, 1}))

	matches, err := ix.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = ix.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := New()
	matches, err := ix.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("a", []float32{1, 0, 0}))

	_, err := ix.Search([]float32{1, 0}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("a", []float32{1, 0}))
	require.NoError(t, ix.Remove("missing"))
	require.NoError(t, ix.Remove("a"))
	require.NoError(t, ix.Remove("a"))
	assert.Equal(t, 0, ix.Size())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")

	ix, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ix.Insert("doc:000000", []float32{1, 2, 3}))
	require.NoError(t, ix.Insert("doc:000001", []float32{-1, 0, 4}))
	require.NoError(t, ix.Save())

	loaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())
	assert.Equal(t, 3, loaded.Dimension())

	want, err := ix.Search([]float32{1, 1, 1}, 2)
	require.NoError(t, err)
	got, err := loaded.Search([]float32{1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")

	ix, err := Open(path)
	require.NoError(t, err)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, ix.Insert(id, []float32{1, float32(len(id))}))
	}
	require.NoError(t, ix.Save())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Save())
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob snapshot"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	ix, err := Open(filepath.Join(t.TempDir(), "absent.gob"))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Size())
}
