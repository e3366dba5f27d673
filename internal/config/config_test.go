package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Collection != "vector_db" || cfg.LLM.Model != "llama3" || cfg.Retrieval.Top != 10 {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_AppliesSectionDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
embedder:
  type: openai
  openai:
    model: custom-embed
vector_store:
  type: qdrant
  qdrant: {}
index:
  collection: manuals
retrieval:
  top: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o := cfg.Embedder.OpenAI; o.Model != "custom-embed" || o.BaseURL != "https://api.openai.com/v1" || o.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("openai = %+v", o)
	}
	if q := cfg.VectorStore.Qdrant; q.URL != "http://localhost:6333" || q.Distance != "Cosine" {
		t.Errorf("qdrant = %+v", q)
	}
	if cfg.Index.Collection != "manuals" || cfg.Retrieval.Top != 10 {
		t.Errorf("index=%+v retrieval=%+v", cfg.Index, cfg.Retrieval)
	}
	if !cfg.Index.AtomicSwap {
		t.Error("atomic_swap default lost when index section is present")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "magic" }, "embedder.type"},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "redis" }, "vector_store.type"},
		{"qdrant without section", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }, "vector_store.qdrant"},
		{"openai without section", func(c *AppConfig) { c.Embedder.Type = "openai" }, "embedder.openai"},
		{"bad pdf mode", func(c *AppConfig) { c.Source.PDFMode = "vision" }, "source.pdf_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Index.AtomicSwap = false
	cfg.VectorStore = VectorStoreConfig{Type: "bleve", DataDir: "/var/lib/docqa"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Index.AtomicSwap || got.VectorStore.DataDir != "/var/lib/docqa" {
		t.Errorf("round trip lost settings: %+v", got)
	}
}
