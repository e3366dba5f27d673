package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig configures page extraction for uploaded documents.
type SourceConfig struct {
	PDFMode   string `yaml:"pdf_mode"`
	DPI       int    `yaml:"dpi"`
	Language  string `yaml:"language"`
	Tesseract string `yaml:"tesseract"`
	Pdftoppm  string `yaml:"pdftoppm"`
}

// RemoteEmbedderConfig holds configuration for the Ollama and OpenAI-compatible embedders.
type RemoteEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the embedding function.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension,omitempty"`
	Ollama    *RemoteEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI    *RemoteEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type    string        `yaml:"type"`
	DataDir string        `yaml:"data_dir,omitempty"`
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig names the live collection and how it is replaced.
type IndexConfig struct {
	Collection string `yaml:"collection"`
	AtomicSwap bool   `yaml:"atomic_swap"`
}

// RetrievalConfig controls how much context is handed to the model.
type RetrievalConfig struct {
	Top int `yaml:"top"`
}

// LLMConfig points at the chat backend.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// SummaryConfig sets the length of the post-ingest preview.
type SummaryConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Source      SourceConfig      `yaml:"source"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Index       IndexConfig       `yaml:"index"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	LLM         LLMConfig         `yaml:"llm"`
	Server      ServerConfig      `yaml:"server"`
	Summary     SummaryConfig     `yaml:"summary"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
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
	cfg := Default()
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
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the built-in configuration: local hashing embeddings, an
// in-memory store and a local Ollama for answers.
func Default() *AppConfig {
	return &AppConfig{
		Source:      SourceConfig{PDFMode: "auto", DPI: 200, Language: "eng"},
		Embedder:    EmbedderConfig{Type: "hashing", Dimension: 512},
		VectorStore: VectorStoreConfig{Type: "memory", DataDir: "data/collections"},
		Index:       IndexConfig{Collection: "vector_db", AtomicSwap: true},
		Retrieval:   RetrievalConfig{Top: 10},
		LLM:         LLMConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
		Server:      ServerConfig{Addr: ":8080", MaxUploadBytes: 64 << 20},
		Summary:     SummaryConfig{MaxSentences: 3},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Retrieval.Top == 0 {
		cfg.Retrieval.Top = 10
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "vector_db"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 512
	}
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Ollama == nil {
		cfg.Embedder.Ollama = &RemoteEmbedderConfig{}
	}
	if o := cfg.Embedder.Ollama; o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
		if o.Model == "" {
			o.Model = "nomic-embed-text"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	if o := cfg.Embedder.OpenAI; o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Distance == "" {
			q.Distance = "Cosine"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "bleve" && cfg.VectorStore.DataDir == "" {
		cfg.VectorStore.DataDir = "data/bleve"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
}

// Validate reports settings the application cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Source.PDFMode {
	case "", "text", "ocr", "auto":
	default:
		errs = append(errs, fmt.Errorf("source.pdf_mode: unknown mode %q", c.Source.PDFMode))
	}
	switch c.Embedder.Type {
	case "hashing":
		if c.Embedder.Dimension < 0 {
			errs = append(errs, errors.New("embedder.dimension must be positive"))
		}
	case "ollama":
	case "openai":
		if c.Embedder.OpenAI == nil {
			errs = append(errs, errors.New("embedder.openai section is required for type openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedder.type: unknown type %q", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case "memory", "bleve":
	case "qdrant":
		if c.VectorStore.Qdrant == nil {
			errs = append(errs, errors.New("vector_store.qdrant section is required for type qdrant"))
		}
	default:
		errs = append(errs, fmt.Errorf("vector_store.type: unknown type %q", c.VectorStore.Type))
	}
	if c.Retrieval.Top < 0 {
		errs = append(errs, errors.New("retrieval.top must not be negative"))
	}
	return errors.Join(errs...)
}

// APIKey reads the key named by env, or "" when env is empty.
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}
