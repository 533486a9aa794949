package qdrant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
)

// Index is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection if missing. Chunk IDs are carried in the
// point payload; point IDs are derived from them.
type Index struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// New builds the client and ensures the collection exists. The dimension
// must be known up front because Qdrant fixes it in the collection
// schema.
func New(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: qdrant index requires a positive dimension", domain.ErrInvalidConfiguration)
	}
	if cfg.Collection == "" {
		cfg.Collection = "chunks"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ix := &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     cfg.Dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection already exists with the
	// same schema.
	if err := ix.putJSON(fmt.Sprintf("%s/collections/%s", ix.url, ix.collection), body); err != nil {
		return nil, err
	}
	return ix, nil
}

// Insert upserts the vector for chunkID.
func (ix *Index) Insert(chunkID string, vector []float32) error {
	if len(vector) != ix.dimension {
		return fmt.Errorf("%w: got %d, collection holds %d-dimensional vectors", domain.ErrDimensionMismatch, len(vector), ix.dimension)
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      pointID(chunkID),
			"vector":  vector,
			"payload": map[string]any{"chunk_id": chunkID},
		}},
	}
	return ix.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", ix.url, ix.collection), body)
}

// Remove deletes the vector for chunkID. Absent IDs are a no-op on the
// Qdrant side.
func (ix *Index) Remove(chunkID string) error {
	body := map[string]any{"points": []any{pointID(chunkID)}}
	return ix.postJSON(fmt.Sprintf("%s/collections/%s/points/delete?wait=true", ix.url, ix.collection), body, nil)
}

// Search returns the k best matches by cosine similarity.
func (ix *Index) Search(query []float32, k int) ([]vectorindex.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection holds %d", domain.ErrDimensionMismatch, len(query), ix.dimension)
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := ix.postJSON(fmt.Sprintf("%s/collections/%s/points/search", ix.url, ix.collection), req, &resp); err != nil {
		return nil, err
	}
	matches := make([]vectorindex.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, ok := r.Payload["chunk_id"].(string)
		if !ok {
			continue
		}
		matches = append(matches, vectorindex.Match{ChunkID: id, Score: r.Score})
	}
	return matches, nil
}

// Size counts the stored vectors.
func (ix *Index) Size() int {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := ix.postJSON(fmt.Sprintf("%s/collections/%s/points/count", ix.url, ix.collection), body, &resp); err != nil {
		return 0
	}
	return resp.Result.Count
}

// Dimension returns the collection's vector dimension.
func (ix *Index) Dimension() int { return ix.dimension }

// pointID maps a chunk ID to a Qdrant-acceptable UUID-shaped identifier
// derived from its FNV-1a hash.
func pointID(chunkID string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(chunkID); i++ {
		h ^= uint64(chunkID[i])
		h *= 1099511628211
	}
	var h2 uint64 = 5381
	for i := 0; i < len(chunkID); i++ {
		h2 = h2*33 + uint64(chunkID[i])
	}
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uint32(h>>32), uint16(h>>16), uint16(h), uint16(h2>>48), h2&0xffffffffffff)
}

func (ix *Index) putJSON(url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (ix *Index) postJSON(url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
