package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

func TestNewWindowChunkerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"overlap equals chunk size", 100, 100},
		{"overlap exceeds chunk size", 100, 150},
		{"zero chunk size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWindowChunker(tc.chunkSize, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := NewWindowChunker(300, 50)
	require.NoError(t, err)

	chunks, err := c.Split("doc", "")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitOffsets(t *testing.T) {
	c, err := NewWindowChunker(300, 50)
	require.NoError(t, err)

	text := strings.Repeat("a", 1000)
	chunks, err := c.Split("notes", text)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	wantOffsets := [][2]int{{0, 300}, {250, 550}, {500, 800}, {750, 1000}}
	for i, want := range wantOffsets {
		assert.Equal(t, want[0], chunks[i].Start, "chunk %d start", i)
		assert.Equal(t, want[1], chunks[i].End, "chunk %d end", i)
		assert.Equal(t, i, chunks[i].Ordinal)
		assert.Equal(t, "notes", chunks[i].DocumentID)
	}
	assert.Equal(t, 0, chunks[0].Overlap)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, 50, chunks[i].Overlap, "chunk %d overlap", i)
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	c, err := NewWindowChunker(300, 50)
	require.NoError(t, err)

	chunks, err := c.Split("doc", "short text")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len([]rune("short text")), chunks[0].End)
}

func TestSplitExactWindowNoTrailingChunk(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	chunks, err := c.Split("doc", strings.Repeat("x", 10))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestSplitDeterministic(t *testing.T) {
	c, err := NewWindowChunker(40, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the dog. ", 20)
	first, err := c.Split("doc", text)
	require.NoError(t, err)
	second, err := c.Split("doc", text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitUnicodeOffsetsAreRuneBased(t *testing.T) {
	c, err := NewWindowChunker(4, 1)
	require.NoError(t, err)

	chunks, err := c.Split("doc", "héllo wörld")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	runes := []rune("héllo wörld")
	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.Start:ch.End]), ch.Text)
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestChunkIDOrderMatchesOrdinalOrder(t *testing.T) {
	prev := ChunkID("doc", 0)
	for i := 1; i < 20; i++ {
		id := ChunkID("doc", i)
		assert.True(t, prev < id, "%s should sort before %s", prev, id)
		prev = id
	}
}
