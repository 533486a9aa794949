package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunker.ChunkSize)
	assert.Equal(t, 150, cfg.Chunker.Overlap)
	assert.Equal(t, "local", cfg.Embedder.Type)
	assert.Equal(t, "file", cfg.Index.Backend)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
chunker:
  chunk_size: 300
  overlap: 50
embedder:
  type: openai
retrieval:
  top_k: 10
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 4, cfg.Retrieval.EmbedParallelism)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Chunker.ChunkSize = 512
	cfg.Index.Backend = "pgvector"
	cfg.Index.PGVector = &PGVectorConfig{ConnString: "postgres://localhost/rag", Table: "chunks"}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, loaded.Chunker.ChunkSize)
	assert.Equal(t, "pgvector", loaded.Index.Backend)
	require.NotNil(t, loaded.Index.PGVector)
	assert.Equal(t, "postgres://localhost/rag", loaded.Index.PGVector.ConnString)
}

func TestApproximateDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
index:
  approximate:
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Index.Approximate.Enabled)
	assert.Equal(t, 16, cfg.Index.Approximate.Partitions)
	assert.Equal(t, 4, cfg.Index.Approximate.Probes)
}
