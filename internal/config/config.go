package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// CacheConfig configures the in-memory embedding cache.
type CacheConfig struct {
	Size    int `yaml:"size"`
	TTLSecs int `yaml:"ttl_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Cache     CacheConfig           `yaml:"cache"`
}

// PGVectorConfig contains connection details for a pgvector-backed index.
type PGVectorConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
	Lists      int    `yaml:"lists"`
}

// QdrantConfig contains connection details for a Qdrant-backed index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ApproximateConfig enables the optional partitioned search layer on the
// file-backed index.
type ApproximateConfig struct {
	Enabled    bool `yaml:"enabled"`
	Partitions int  `yaml:"partitions"`
	Probes     int  `yaml:"probes"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Backend     string            `yaml:"backend"`
	Path        string            `yaml:"path"`
	PGVector    *PGVectorConfig   `yaml:"pgvector,omitempty"`
	Qdrant      *QdrantConfig     `yaml:"qdrant,omitempty"`
	Approximate ApproximateConfig `yaml:"approximate"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RetrievalConfig tunes the query and ingestion pipelines.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`
	MinScore         float32 `yaml:"min_score"`
	EmbedParallelism int     `yaml:"embed_parallelism"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
}

// AnswerConfig configures answer synthesis through a chat model.
type AnswerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Index     IndexConfig     `yaml:"index"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/hts-agent/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hts-agent", "config.yaml"), nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "hts-agent")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker:  ChunkerConfig{ChunkSize: 800, Overlap: 150},
		Embedder: EmbedderConfig{Type: "local", Dimension: 256},
		Index:    IndexConfig{Backend: "file"},
		Store:    StoreConfig{},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 800
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 150
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 256
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.RequestsPerSecond == 0 {
			cfg.Embedder.OpenAI.RequestsPerSecond = 5
		}
	}
	if cfg.Embedder.Cache.Size == 0 {
		cfg.Embedder.Cache.Size = 2048
	}
	if cfg.Embedder.Cache.TTLSecs == 0 {
		cfg.Embedder.Cache.TTLSecs = 3600
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "file"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(defaultDataDir(), "index.gob")
	}
	if cfg.Index.Backend == "pgvector" && cfg.Index.PGVector == nil {
		cfg.Index.PGVector = &PGVectorConfig{}
	}
	if cfg.Index.Backend == "qdrant" {
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{}
		}
		if cfg.Index.Qdrant.URL == "" {
			cfg.Index.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "chunks"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Index.Approximate.Enabled {
		if cfg.Index.Approximate.Partitions == 0 {
			cfg.Index.Approximate.Partitions = 16
		}
		if cfg.Index.Approximate.Probes == 0 {
			cfg.Index.Approximate.Probes = 4
		}
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(defaultDataDir(), "documents.gob")
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.EmbedParallelism == 0 {
		cfg.Retrieval.EmbedParallelism = 4
	}
	if cfg.Retrieval.TimeoutSecs == 0 {
		cfg.Retrieval.TimeoutSecs = 60
	}
	if cfg.Answer.Enabled {
		if cfg.Answer.APIKeyEnv == "" {
			cfg.Answer.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Answer.Model == "" {
			cfg.Answer.Model = "gpt-4o-mini"
		}
		if cfg.Answer.MaxTokens == 0 {
			cfg.Answer.MaxTokens = 1024
		}
		if cfg.Answer.TimeoutSecs == 0 {
			cfg.Answer.TimeoutSecs = 60
		}
	}
}
