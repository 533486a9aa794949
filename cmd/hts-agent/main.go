package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airaojagruti611/HTS-AI-agent/internal/answer"
	"github.com/airaojagruti611/HTS-AI-agent/internal/chunker"
	"github.com/airaojagruti611/HTS-AI-agent/internal/config"
	"github.com/airaojagruti611/HTS-AI-agent/internal/docstore"
	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
	"github.com/airaojagruti611/HTS-AI-agent/internal/embedding"
	"github.com/airaojagruti611/HTS-AI-agent/internal/extract"
	"github.com/airaojagruti611/HTS-AI-agent/internal/retrieval"
	"github.com/airaojagruti611/HTS-AI-agent/internal/tui"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex/exact"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex/pgvector"
	"github.com/airaojagruti611/HTS-AI-agent/internal/vectorindex/qdrant"
)

type app struct {
	cfg   *config.AppConfig
	coord *retrieval.Coordinator
	ivf   *exact.IVF
	log   *zap.Logger
}

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "hts-agent",
		Short:        "Document retrieval and question answering over your own files",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default: ./config.yaml, then ~/.config/hts-agent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	newApp := func() (*app, error) {
		return buildApp(cfgPath, verbose)
	}

	rootCmd.AddCommand(
		newIngestCmd(newApp),
		newSearchCmd(newApp),
		newAskCmd(newApp),
		newDeleteCmd(newApp),
		newListCmd(newApp),
		newChatCmd(newApp),
	)

	if err := rootCmd.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func buildApp(cfgPath string, verbose bool) (*app, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}

	ck, err := chunker.NewWindowChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	emb, err := buildEmbedder(cfg, log)
	if err != nil {
		return nil, err
	}

	ix, ivf, err := buildIndex(cfg, emb)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := docstore.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, err
	}

	var comp domain.Completer
	if cfg.Answer.Enabled {
		comp, err = answer.New(answer.Config{
			APIKey:      os.Getenv(cfg.Answer.APIKeyEnv),
			BaseURL:     cfg.Answer.BaseURL,
			Model:       cfg.Answer.Model,
			MaxTokens:   cfg.Answer.MaxTokens,
			Temperature: cfg.Answer.Temperature,
			Timeout:     time.Duration(cfg.Answer.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}

	coord, err := retrieval.New(retrieval.Config{
		TopK:                cfg.Retrieval.TopK,
		MinScore:            cfg.Retrieval.MinScore,
		EmbedParallelism:    cfg.Retrieval.EmbedParallelism,
		CollaboratorTimeout: time.Duration(cfg.Retrieval.TimeoutSecs) * time.Second,
	}, ck, emb, ix, store, comp, log)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, coord: coord, ivf: ivf, log: log}, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	return cfg.Build()
}

func buildEmbedder(cfg *config.AppConfig, log *zap.Logger) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "local", "":
		emb = embedding.NewHashingEmbedder(cfg.Embedder.Dimension)
	case "openai":
		oc := cfg.Embedder.OpenAI
		client, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:            os.Getenv(oc.APIKeyEnv),
			BaseURL:           oc.BaseURL,
			Model:             oc.Model,
			Timeout:           time.Duration(oc.TimeoutSecs) * time.Second,
			RequestsPerSecond: oc.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", cfg.Embedder.Type)
	}
	ttl := time.Duration(cfg.Embedder.Cache.TTLSecs) * time.Second
	return embedding.WrapLRU(emb, cfg.Embedder.Cache.Size, ttl, log), nil
}

func buildIndex(cfg *config.AppConfig, emb domain.Embedder) (vectorindex.Index, *exact.IVF, error) {
	switch cfg.Index.Backend {
	case "file", "":
		if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
		base, err := exact.Open(cfg.Index.Path)
		if err != nil {
			return nil, nil, err
		}
		if !cfg.Index.Approximate.Enabled {
			return base, nil, nil
		}
		ivf, err := exact.NewIVF(base, cfg.Index.Approximate.Partitions, cfg.Index.Approximate.Probes)
		if err != nil {
			return nil, nil, err
		}
		if err := ivf.Rebuild(); err != nil {
			return nil, nil, err
		}
		return ivf, ivf, nil
	case "pgvector":
		pc := cfg.Index.PGVector
		if pc == nil {
			return nil, nil, fmt.Errorf("pgvector backend selected but not configured")
		}
		ix, err := pgvector.New(context.Background(), pgvector.Config{
			ConnString: pc.ConnString,
			TableName:  pc.Table,
			Dimension:  emb.Dimension(),
			Lists:      pc.Lists,
		})
		if err != nil {
			return nil, nil, err
		}
		return ix, nil, nil
	case "qdrant":
		qc := cfg.Index.Qdrant
		if qc == nil {
			return nil, nil, fmt.Errorf("qdrant backend selected but not configured")
		}
		ix, err := qdrant.New(qdrant.Config{
			URL:        qc.URL,
			APIKey:     os.Getenv(qc.APIKeyEnv),
			Collection: qc.Collection,
			Dimension:  emb.Dimension(),
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return ix, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend: %s", cfg.Index.Backend)
	}
}

func newIngestCmd(newApp func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest file [file...]",
		Short: "Ingest documents into the retrieval index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			bar := progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("ingesting"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var failed int
			for _, path := range args {
				if err := ingestFile(cmd.Context(), a, path); err != nil {
					color.Red("  %s: %v", path, err)
					failed++
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if a.ivf != nil {
				if err := a.ivf.Rebuild(); err != nil {
					return fmt.Errorf("rebuild partitions: %w", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			color.Green("ingested %d documents", len(args))
			return nil
		},
	}
	return cmd
}

func ingestFile(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	docID := filepath.Base(path)
	return a.coord.IngestFrom(ctx, docID, f, extract.ForFile(path))
}

func newSearchCmd(newApp func() (*app, error)) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search \"question\"",
		Short: "List the most relevant passages for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			results, err := a.coord.Query(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, r := range results {
				color.Cyan("[%d] %s (chunk %s, score %.3f)", i+1, r.DocumentID, r.ChunkID, r.Score)
				fmt.Println(strings.TrimSpace(r.Text))
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "number of results (default from config)")
	return cmd
}

func newAskCmd(newApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "ask \"question\"",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			out, err := a.coord.Answer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newDeleteCmd(newApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete doc-id",
		Short: "Remove a document and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			if err := a.coord.DeleteDocument(args[0]); err != nil {
				return err
			}
			color.Green("deleted %s", args[0])
			return nil
		},
	}
}

func newListCmd(newApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ids := a.coord.Documents()
			if len(ids) == 0 {
				fmt.Println("no documents ingested")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newChatCmd(newApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive search and answer session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			m := tui.New(a.coord, len(a.coord.Documents()))
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
}
