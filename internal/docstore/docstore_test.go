package docstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

func sampleDoc(id string, chunkCount int) domain.Document {
	doc := domain.Document{
		ID:          id,
		ContentHash: "hash-" + id,
		IngestedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < chunkCount; i++ {
		doc.Chunks = append(doc.Chunks, domain.Chunk{
			ID:         id + ":" + string(rune('0'+i)),
			DocumentID: id,
			Ordinal:    i,
			Text:       "chunk text",
		})
	}
	return doc
}

func TestPutAndGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "docs.gob"), nil)
	require.NoError(t, err)

	doc := sampleDoc("a", 2)
	s.Put(doc)

	ch, err := s.Get("a:0")
	require.NoError(t, err)
	assert.Equal(t, "a", ch.DocumentID)

	_, err = s.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutReplacesChunks(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "docs.gob"), nil)
	require.NoError(t, err)

	s.Put(sampleDoc("a", 3))
	s.Put(sampleDoc("a", 1))

	_, err = s.Get("a:0")
	require.NoError(t, err)
	_, err = s.Get("a:2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestExists(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "docs.gob"), nil)
	require.NoError(t, err)

	s.Put(sampleDoc("a", 1))
	assert.True(t, s.Exists("a", "hash-a"))
	assert.False(t, s.Exists("a", "other"))
	assert.False(t, s.Exists("b", "hash-a"))
}

func TestDeleteReturnsChunkIDs(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "docs.gob"), nil)
	require.NoError(t, err)

	s.Put(sampleDoc("a", 2))
	ids := s.Delete("a")
	assert.ElementsMatch(t, []string{"a:0", "a:1"}, ids)
	assert.Equal(t, 0, s.Len())

	_, err = s.Get("a:0")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Nil(t, s.Delete("a"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.gob")

	s, err := Open(path, nil)
	require.NoError(t, err)
	s.Put(sampleDoc("a", 2))
	s.Put(sampleDoc("b", 1))
	require.NoError(t, s.Save())

	loaded, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, []string{"a", "b"}, loaded.DocumentIDs())

	doc, ok := loaded.Document("a")
	require.True(t, ok)
	assert.Equal(t, "hash-a", doc.ContentHash)
	assert.Len(t, doc.Chunks, 2)

	ch, err := loaded.Get("b:0")
	require.NoError(t, err)
	assert.Equal(t, "b", ch.DocumentID)
}
