package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
)

// Config holds the connection settings for a pgvector-backed index.
type Config struct {
	ConnString string
	TableName  string
	Dimension  int
	Lists      int // ivfflat partition count
}

// Index keeps chunk vectors in a Postgres table with the pgvector
// extension. Cosine distance is computed server-side; scores returned to
// callers are converted back to similarity (1 - distance) so both index
// backends rank identically.
type Index struct {
	cfg  Config
	pool *pgxpool.Pool
}

// New connects to Postgres and prepares the extension, table and ivfflat
// index. The vector dimension must be known up front because pgvector
// fixes it in the column type.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: pgvector index requires a positive dimension", domain.ErrInvalidConfiguration)
	}
	if cfg.TableName == "" {
		cfg.TableName = "chunks"
	}
	if cfg.Lists <= 0 {
		cfg.Lists = 100
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	ix := &Index{cfg: cfg, pool: pool}
	if err := ix.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) initialize(ctx context.Context) error {
	if _, err := ix.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL
		)`, ix.cfg.TableName, ix.cfg.Dimension)
	if _, err := ix.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table %s: %w", ix.cfg.TableName, err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`,
		ix.cfg.TableName, ix.cfg.TableName, ix.cfg.Lists)
	if _, err := ix.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("create ivfflat index: %w", err)
	}
	return nil
}

// Insert upserts the vector for chunkID.
func (ix *Index) Insert(chunkID string, vector []float32) error {
	if len(vector) != ix.cfg.Dimension {
		return fmt.Errorf("%w: got %d, index holds %d-dimensional vectors", domain.ErrDimensionMismatch, len(vector), ix.cfg.Dimension)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		ix.cfg.TableName)

	_, err := ix.pool.Exec(context.Background(), stmt, chunkID, pgv.NewVector(vector))
	if err != nil {
		return fmt.Errorf("upsert vector for %q: %w", chunkID, err)
	}
	return nil
}

// Remove deletes the vector for chunkID. Absent IDs are a no-op.
func (ix *Index) Remove(chunkID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE chunk_id = $1", ix.cfg.TableName)
	if _, err := ix.pool.Exec(context.Background(), stmt, chunkID); err != nil {
		return fmt.Errorf("delete vector for %q: %w", chunkID, err)
	}
	return nil
}

// Search returns the k best matches by cosine similarity. Ties break on
// chunk_id in the ORDER BY, matching the in-memory backend.
func (ix *Index) Search(query []float32, k int) ([]vectorindex.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != ix.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d", domain.ErrDimensionMismatch, len(query), ix.cfg.Dimension)
	}

	stmt := fmt.Sprintf(`
		SELECT chunk_id, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, chunk_id
		LIMIT $2`, ix.cfg.TableName)

	rows, err := ix.pool.Query(context.Background(), stmt, pgv.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	defer rows.Close()

	var matches []vectorindex.Match
	for rows.Next() {
		var m vectorindex.Match
		var score float64
		if err := rows.Scan(&m.ChunkID, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read search rows: %w", err)
	}
	return matches, nil
}

// Size counts the stored vectors.
func (ix *Index) Size() int {
	var n int
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", ix.cfg.TableName)
	if err := ix.pool.QueryRow(context.Background(), stmt).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Dimension returns the configured vector dimension.
func (ix *Index) Dimension() int { return ix.cfg.Dimension }

// Close releases the connection pool.
func (ix *Index) Close() {
	if ix.pool != nil {
		ix.pool.Close()
	}
}
