package domain

import (
	"context"
	"io"
	"time"
)

// Chunk is a bounded span of a document's text, the unit of retrieval.
// Offsets are rune positions in the extracted source text.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Start      int // inclusive
	End        int // exclusive
	Overlap    int // runes shared with the previous chunk
}

// Document groups the chunks produced by one ingestion of a source.
type Document struct {
	ID          string
	ContentHash string
	IngestedAt  time.Time
	Chunks      []Chunk
}

// Page is one page of extracted text, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// QueryResult is one ranked row of a retrieval query.
type QueryResult struct {
	ChunkID    string
	DocumentID string
	Score      float32
	Text       string
}

// Extractor turns a raw document (PDF, plain text) into page-tagged text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) ([]Page, error)
}

// Embedder converts free text into a fixed-length vector representation.
// Implementations must be deterministic for identical input under a fixed
// model version. Dimension may return 0 until the first successful Embed
// when the provider does not announce it up front.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Completer synthesizes an answer from a prompt. The engine treats the
// call as opaque and never inspects its internals.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chunker splits extracted text into overlapping spans suitable for
// retrieval indexing.
type Chunker interface {
	Split(documentID, text string) ([]Chunk, error)
}
