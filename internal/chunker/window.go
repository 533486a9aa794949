package chunker

import (
	"fmt"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// WindowChunker splits text into fixed-size overlapping rune windows.
// Each window starts chunkSize-overlap runes after the previous one, so
// identical input and configuration always produce identical boundaries
// and identifiers.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the window parameters before any splitting
// happens. overlap must be smaller than chunkSize.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", domain.ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfiguration, overlap, chunkSize)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split produces the ordered chunk sequence for one document. Empty input
// yields an empty sequence, not an error. The final chunk may be shorter
// than the configured window.
func (c *WindowChunker) Split(documentID, text string) ([]domain.Chunk, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	prevEnd := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		overlap := 0
		if len(chunks) > 0 {
			overlap = prevEnd - start
		}
		ordinal := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(documentID, ordinal),
			DocumentID: documentID,
			Ordinal:    ordinal,
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
			Overlap:    overlap,
		})
		if end == len(runes) {
			break
		}
		prevEnd = end
	}
	return chunks, nil
}

// ChunkSize returns the configured window size in runes.
func (c *WindowChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in runes.
func (c *WindowChunker) Overlap() int { return c.overlap }

// ChunkID builds the stable identifier for a chunk. The zero-padded
// ordinal keeps lexicographic order aligned with document order, which
// the index relies on for deterministic tie-breaking.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%06d", documentID, ordinal)
}
