package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/answer"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/remote"
	"docqa/internal/index"
	"docqa/internal/llm/ollama"
	"docqa/internal/pages"
	"docqa/internal/retrieval"
	"docqa/internal/service"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/bleve"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

// app holds the assembled components for one command run.
type app struct {
	cfg     *config.AppConfig
	log     *slog.Logger
	store   vectorstore.Store
	index   *index.Manager
	llm     *ollama.Client
	service *service.Service
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg.VectorStore, emb)
	if err != nil {
		return nil, err
	}

	idx := index.NewManager(store, index.Options{
		Name:       cfg.Index.Collection,
		AtomicSwap: cfg.Index.AtomicSwap,
		Logger:     log,
	})
	llm := ollama.NewClient(cfg.LLM.BaseURL)
	composer := answer.NewComposer(retrieval.New(idx), llm, cfg.Retrieval.Top)

	src := cfg.Source
	svc := service.New(idx, composer, service.Options{
		Sources: func(filename string) (pages.Source, error) {
			return pages.ForFile(filename, pages.Options{
				Mode:      src.PDFMode,
				DPI:       src.DPI,
				Language:  src.Language,
				Tesseract: src.Tesseract,
				Pdftoppm:  src.Pdftoppm,
				Logger:    log,
			})
		},
		DefaultModel:     cfg.LLM.Model,
		SummarySentences: cfg.Summary.MaxSentences,
		Logger:           log,
	})

	log.Debug("components ready",
		"embedder", emb.Name(),
		"store", cfg.VectorStore.Type,
		"collection", idx.Name(),
	)
	return &app{cfg: cfg, log: log, store: store, index: idx, llm: llm, service: svc}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "ollama":
		o := cfg.Ollama
		if o == nil {
			o = &config.RemoteEmbedderConfig{}
		}
		return remote.NewClient(remote.Config{
			Flavor:     remote.FlavorOllama,
			BaseURL:    o.BaseURL,
			APIKey:     config.APIKey(o.APIKeyEnv),
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.MaxRetries,
		})
	case "openai":
		o := cfg.OpenAI
		if o == nil {
			return nil, errors.New("openai embedder config missing")
		}
		return remote.NewClient(remote.Config{
			Flavor:     remote.FlavorOpenAI,
			BaseURL:    o.BaseURL,
			APIKey:     config.APIKey(o.APIKeyEnv),
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newStore(cfg config.VectorStoreConfig, emb embedding.Embedder) (vectorstore.Store, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(emb, cfg.DataDir)
	case "bleve":
		return bleve.NewStorage(cfg.DataDir)
	case "qdrant":
		q := cfg.Qdrant
		if q == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:      q.URL,
			APIKey:   config.APIKey(q.APIKeyEnv),
			Distance: q.Distance,
			Timeout:  time.Duration(q.TimeoutSecs) * time.Second,
		}, emb), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
