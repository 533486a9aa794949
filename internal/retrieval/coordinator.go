package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airaojagruti611/HTS-AI-agent/internal/docstore"
	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
)

// Config tunes the coordinator.
type Config struct {
	TopK                int
	MinScore            float32
	EmbedParallelism    int
	CollaboratorTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.EmbedParallelism <= 0 {
		c.EmbedParallelism = 4
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = 60 * time.Second
	}
}

// Coordinator drives the ingestion and query pipelines. Ingestion runs
// chunking, embedding and indexing as an all-or-nothing unit per
// document: a failure at any stage leaves no trace of the attempt in the
// index or the store. Concurrent operations on different documents
// proceed independently; operations on the same document serialize.
type Coordinator struct {
	cfg       Config
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     vectorindex.Index
	store     *docstore.Store
	completer domain.Completer
	log       *zap.Logger

	mu      sync.Mutex
	docLock map[string]*sync.Mutex
}

// New wires the coordinator. completer may be nil, in which case Answer
// degrades to an extractive summary of the top passages.
func New(cfg Config, chunker domain.Chunker, embedder domain.Embedder, index vectorindex.Index, store *docstore.Store, completer domain.Completer, log *zap.Logger) (*Coordinator, error) {
	if chunker == nil || embedder == nil || index == nil || store == nil {
		return nil, fmt.Errorf("%w: coordinator requires chunker, embedder, index and store", domain.ErrInvalidConfiguration)
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.applyDefaults()
	return &Coordinator{
		cfg:       cfg,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		store:     store,
		completer: completer,
		log:       log,
		docLock:   make(map[string]*sync.Mutex),
	}, nil
}

func (c *Coordinator) lockDocument(docID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.docLock[docID]
	if !ok {
		l = &sync.Mutex{}
		c.docLock[docID] = l
	}
	return l
}

// ContentHash returns the hex sha256 of the extracted text, the identity
// used to detect unchanged re-ingestion.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Ingest chunks, embeds and indexes one document's text. Re-ingesting
// unchanged content is a no-op; changed content atomically replaces the
// previous version. Empty text removes the document, matching what a
// reindex of an emptied source should produce.
func (c *Coordinator) Ingest(ctx context.Context, docID, text string) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document ID", domain.ErrInvalidConfiguration)
	}

	lock := c.lockDocument(docID)
	lock.Lock()
	defer lock.Unlock()

	hash := ContentHash(text)
	if c.store.Exists(docID, hash) {
		c.log.Info("document unchanged, skipping ingestion", zap.String("doc", docID))
		return nil
	}

	log := c.log.With(zap.String("doc", docID))
	log.Info("ingestion started", zap.Int("text_runes", len([]rune(text))))

	chunks, err := c.chunker.Split(docID, text)
	if err != nil {
		return fmt.Errorf("chunk document %q: %w", docID, err)
	}
	log.Debug("document chunked", zap.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		c.removeDocument(docID, log)
		return c.persist()
	}

	vectors, err := c.embedChunks(ctx, chunks)
	if err != nil {
		log.Warn("ingestion failed during embedding", zap.Error(err))
		return err
	}
	log.Debug("chunks embedded", zap.Int("vectors", len(vectors)))

	// Point of no return: retire the previous version, then commit the
	// new one. Any failure past here purges the new chunks so the
	// document ends up absent rather than half-indexed.
	c.removeDocument(docID, log)

	doc := domain.Document{
		ID:          docID,
		ContentHash: hash,
		IngestedAt:  time.Now().UTC(),
		Chunks:      chunks,
	}
	c.store.Put(doc)

	for i, ch := range chunks {
		if err := c.index.Insert(ch.ID, vectors[i]); err != nil {
			log.Warn("ingestion failed during indexing, rolling back",
				zap.String("chunk", ch.ID), zap.Error(err))
			c.rollback(docID, chunks[:i+1], log)
			return fmt.Errorf("index chunk %q: %w", ch.ID, err)
		}
	}

	if err := c.persist(); err != nil {
		log.Warn("ingestion failed during persistence, rolling back", zap.Error(err))
		c.rollback(docID, chunks, log)
		return err
	}

	log.Info("ingestion committed", zap.Int("chunks", len(chunks)))
	return nil
}

// IngestFrom extracts text from r with the given extractor and ingests
// the result. Pages are joined with newlines in page order.
func (c *Coordinator) IngestFrom(ctx context.Context, docID string, r io.Reader, ex domain.Extractor) error {
	if ex == nil {
		return fmt.Errorf("%w: nil extractor", domain.ErrInvalidConfiguration)
	}
	pages, err := ex.Extract(ctx, r)
	if err != nil {
		return fmt.Errorf("extract document %q: %w", docID, err)
	}
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return c.Ingest(ctx, docID, strings.Join(parts, "\n"))
}

func (c *Coordinator) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CollaboratorTimeout)
	defer cancel()

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EmbedParallelism)

	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			vec, err := c.embedder.Embed(gctx, ch.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %q: %w", ch.ID, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, err
	}
	return vectors, nil
}

// removeDocument purges a document's chunks from both the store and the
// index. Index removal of an absent ID is a no-op, so this is safe for
// documents that were never indexed.
func (c *Coordinator) removeDocument(docID string, log *zap.Logger) {
	for _, chunkID := range c.store.Delete(docID) {
		if err := c.index.Remove(chunkID); err != nil {
			log.Warn("failed to remove chunk from index", zap.String("chunk", chunkID), zap.Error(err))
		}
	}
}

func (c *Coordinator) rollback(docID string, inserted []domain.Chunk, log *zap.Logger) {
	c.store.Delete(docID)
	for _, ch := range inserted {
		if err := c.index.Remove(ch.ID); err != nil {
			log.Warn("rollback failed to remove chunk", zap.String("chunk", ch.ID), zap.Error(err))
		}
	}
	if err := c.persist(); err != nil {
		log.Warn("rollback failed to persist", zap.Error(err))
	}
	log.Warn("ingestion rolled back, document is absent", zap.String("doc", docID))
}

func (c *Coordinator) persist() error {
	if err := c.store.Save(); err != nil {
		return fmt.Errorf("save document store: %w", err)
	}
	if p, ok := c.index.(vectorindex.Persistent); ok {
		if err := p.Save(); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
	}
	return nil
}

// Query embeds the question and returns up to k ranked results with
// their text resolved from the store. Rows whose chunk is missing from
// the store are logged and dropped rather than failing the query. k <= 0
// falls back to the configured TopK.
func (c *Coordinator) Query(ctx context.Context, question string, k int) ([]domain.QueryResult, error) {
	if k <= 0 {
		k = c.cfg.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CollaboratorTimeout)
	defer cancel()

	qvec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := c.index.Search(qvec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domain.QueryResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < c.cfg.MinScore {
			continue
		}
		ch, err := c.store.Get(m.ChunkID)
		if err != nil {
			c.log.Warn("indexed chunk missing from document store, dropping result",
				zap.String("chunk", m.ChunkID), zap.Float32("score", m.Score))
			continue
		}
		results = append(results, domain.QueryResult{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			Score:      m.Score,
			Text:       ch.Text,
		})
	}
	return results, nil
}

// Answer retrieves the top passages for the question and synthesizes an
// answer through the completer. Without a completer the top passages are
// returned directly, labeled by source.
func (c *Coordinator) Answer(ctx context.Context, question string) (string, error) {
	results, err := c.Query(ctx, question, c.cfg.TopK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant passages found.", nil
	}

	if c.completer == nil {
		return renderExtractive(results), nil
	}

	out, err := c.completer.Complete(ctx, BuildPrompt(question, results))
	if err != nil {
		return "", fmt.Errorf("complete answer: %w", err)
	}
	return out, nil
}

// DeleteDocument removes a document and its vectors. Deleting an absent
// document returns ErrNotFound.
func (c *Coordinator) DeleteDocument(docID string) error {
	lock := c.lockDocument(docID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := c.store.Document(docID); !ok {
		return fmt.Errorf("%w: document %q", domain.ErrNotFound, docID)
	}
	c.removeDocument(docID, c.log.With(zap.String("doc", docID)))
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Info("document deleted", zap.String("doc", docID))
	return nil
}

// Documents lists the stored document IDs.
func (c *Coordinator) Documents() []string { return c.store.DocumentIDs() }
