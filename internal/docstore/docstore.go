package docstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// Store keeps documents and their chunks in memory, indexed both by
// document ID and by chunk ID, with a gob snapshot on disk. All methods
// are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]domain.Document
	byChunk map[string]domain.Chunk
	path    string
	log     *zap.Logger
}

// Open loads the store from path, starting empty when the file does not
// exist. A corrupt snapshot fails the load entirely.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		docs:    make(map[string]domain.Document),
		byChunk: make(map[string]domain.Chunk),
		path:    path,
		log:     log,
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open document store %s: %w", path, err)
	}
	defer f.Close()

	var docs []domain.Document
	if err := gob.NewDecoder(f).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode document store %s: %w", path, err)
	}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
		for _, ch := range doc.Chunks {
			s.byChunk[ch.ID] = ch
		}
	}
	log.Info("document store loaded",
		zap.String("path", path),
		zap.Int("documents", len(s.docs)),
		zap.Int("chunks", len(s.byChunk)))
	return s, nil
}

// Put inserts or replaces a document and reindexes its chunks.
func (s *Store) Put(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.docs[doc.ID]; ok {
		for _, ch := range old.Chunks {
			delete(s.byChunk, ch.ID)
		}
	}
	s.docs[doc.ID] = doc
	for _, ch := range doc.Chunks {
		s.byChunk[ch.ID] = ch
	}
}

// Get resolves a chunk by its ID.
func (s *Store) Get(chunkID string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.byChunk[chunkID]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("%w: chunk %q", domain.ErrNotFound, chunkID)
	}
	return ch, nil
}

// Document returns the stored document for docID, if any.
func (s *Store) Document(docID string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	return doc, ok
}

// Exists reports whether docID is stored with exactly the given content
// hash.
func (s *Store) Exists(docID, contentHash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	return ok && doc.ContentHash == contentHash
}

// Delete removes a document and returns the IDs of its chunks so the
// caller can purge them from the vector index. Deleting an absent
// document returns nil.
func (s *Store) Delete(docID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(doc.Chunks))
	for _, ch := range doc.Chunks {
		delete(s.byChunk, ch.ID)
		ids = append(ids, ch.ID)
	}
	delete(s.docs, docID)
	return ids
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// DocumentIDs lists the stored document IDs in sorted order.
func (s *Store) DocumentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save writes the full store to disk via a temp file and rename.
// Documents are sorted by ID so identical state yields identical bytes.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(docs); err != nil {
		tmp.Close()
		return fmt.Errorf("encode document store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync document store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
