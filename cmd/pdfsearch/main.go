package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"pdfsearch/internal/chat"
	"pdfsearch/internal/config"
	"pdfsearch/internal/domain"
	"pdfsearch/internal/embedding/local"
	"pdfsearch/internal/embedding/openai"
	"pdfsearch/internal/segment"
	"pdfsearch/internal/service"
	"pdfsearch/internal/tui"
	"pdfsearch/internal/vectorstore/memory"
	"pdfsearch/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var remove bool
	var list bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pdfsearch/config.yaml if not provided)")
	flag.BoolVar(&remove, "remove", false, "Remove the document's index and chat history instead of opening it")
	flag.BoolVar(&list, "list", false, "List ingested documents and exit")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	// Assemble components
	var provider domain.EmbeddingProvider
	switch cfg.Embedder.Type {
	case "local", "":
		dim := 0
		if cfg.Embedder.Local != nil {
			dim = cfg.Embedder.Local.Dimension
		}
		provider = local.NewEmbedder(dim)
	case "openai":
		ocfg := cfg.Embedder.OpenAI
		if ocfg == nil {
			logger.Fatal("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   ocfg.BaseURL,
			APIKeyEnv: ocfg.APIKeyEnv,
			Model:     ocfg.Model,
			Timeout:   time.Duration(ocfg.TimeoutSecs) * time.Second,
			BatchSize: ocfg.BatchSize,
			Dimension: ocfg.Dimension,
		})
		if err != nil {
			logger.Fatal("openai embedder init failed", "err", err)
		}
		provider = client
	default:
		logger.Fatal("unknown embedder", "type", cfg.Embedder.Type)
	}

	var index domain.VectorIndex
	switch cfg.VectorIndex.Type {
	case "memory", "":
		index = memory.NewIndex()
	case "qdrant":
		qcfg := cfg.VectorIndex.Qdrant
		if qcfg == nil {
			logger.Fatal("qdrant config missing")
		}
		index = qdrant.NewIndex(qdrant.Config{
			URL:     qcfg.URL,
			APIKey:  qcfg.APIKey,
			Timeout: time.Duration(qcfg.TimeoutSecs) * time.Second,
		})
	default:
		logger.Fatal("unknown vector index", "type", cfg.VectorIndex.Type)
	}

	history, err := chat.NewStore(cfg.Chat.Path)
	if err != nil {
		logger.Fatal("chat store init failed", "err", err)
	}
	defer history.Close()

	segmenter := segment.New(cfg.Segmenter.MinWords, cfg.Segmenter.MaxWords, cfg.Segmenter.ShortUnitWords)
	pipeline := service.NewPipeline(segmenter, provider, index, history, logger, cfg.Search.TopK)

	ctx := context.Background()

	if list {
		docs, err := history.ListDocuments(ctx)
		if err != nil {
			logger.Fatal("listing documents failed", "err", err)
		}
		for _, d := range docs {
			fmt.Printf("%s  %s  (%d pages, %s)\n", d.ContentHash, d.DisplayName, d.Pages, d.Provider)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Println("Usage: pdfsearch [--config=config.yaml] [--remove] file.pdf")
		os.Exit(1)
	}
	path := flag.Arg(0)
	displayName := filepath.Base(path)

	file, err := os.Open(path)
	if err != nil {
		logger.Fatal("cannot open document", "path", path, "err", err)
	}
	defer file.Close()

	if remove {
		if err := removeDocument(ctx, pipeline, file); err != nil {
			logger.Fatal("remove failed", "path", path, "err", err)
		}
		fmt.Printf("Removed %s\n", displayName)
		return
	}

	result, err := pipeline.Ingest(ctx, file, displayName)
	switch {
	case errors.Is(err, domain.ErrDuplicateDocument):
		// Fall through to chat with the existing collection.
	case errors.Is(err, domain.ErrUnreadableDocument):
		logger.Fatal("document could not be read as a PDF", "path", path)
	case errors.Is(err, domain.ErrNoSearchableContent):
		logger.Fatal("document has no searchable text", "path", path)
	case err != nil:
		logger.Fatal("ingest failed", "err", err)
	}

	turns, err := pipeline.History(ctx, result.ContentHash)
	if err != nil {
		logger.Warn("could not load chat history", "err", err)
	}

	m := tui.New(pipeline, result.ContentHash, displayName, turns)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("tui failed", "err", err)
	}
}

func removeDocument(ctx context.Context, pipeline *service.Pipeline, file *os.File) error {
	digest, err := service.HashDocument(file)
	if err != nil {
		return err
	}
	return pipeline.Remove(ctx, digest)
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
}
