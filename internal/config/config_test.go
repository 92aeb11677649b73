package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobrec.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JOBREC_STORAGE_BACKEND", "memory")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("unexpected backend %q", cfg.Storage.Backend)
	}
	if cfg.Embedding.Provider != ProviderGemini || cfg.Embedding.Dimension != 768 {
		t.Fatalf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Recommend.WindowDays != 60 || cfg.Recommend.MaxCandidates != 500 || cfg.Recommend.DefaultLimit != 10 {
		t.Fatalf("unexpected recommend defaults: %+v", cfg.Recommend)
	}
	if cfg.Recommend.DefaultMinScore != 0.5 {
		t.Fatalf("unexpected min score default %v", cfg.Recommend.DefaultMinScore)
	}
	if cfg.Recommend.Dimension != cfg.Embedding.Dimension {
		t.Fatalf("recommend dimension must follow the embedding dimension")
	}
	if cfg.Worker.BackfillSpec != "@every 1h" || cfg.Worker.Concurrency != 4 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Worker)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: Postgres
vector:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    collection: postings
embedding:
  provider: openai
  model: text-embedding-3-small
  dimension: 1536
recommend:
  window-days: 30
  default-min-score: 0.7
exclude-companies:
  - Acme
`)
	t.Setenv("DATABASE_URL", "postgres://jobrec@db/jobrec")
	t.Setenv("OPENAI_API_KEY_FILE", "/run/secrets/openai")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.DatabaseURL != "postgres://jobrec@db/jobrec" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Vector.Backend != BackendQdrant || cfg.Vector.Qdrant.Host != "qdrant.internal" || cfg.Vector.Qdrant.Port != 6334 {
		t.Fatalf("unexpected vector config: %+v", cfg.Vector)
	}
	if cfg.Embedding.OpenAI.APIKeyFile != "/run/secrets/openai" {
		t.Fatalf("unexpected openai key file %q", cfg.Embedding.OpenAI.APIKeyFile)
	}
	if cfg.Recommend.WindowDays != 30 || cfg.Recommend.DefaultMinScore != 0.7 || cfg.Recommend.Dimension != 1536 {
		t.Fatalf("unexpected recommend config: %+v", cfg.Recommend)
	}
	if len(cfg.ExcludeCompanies) != 1 || cfg.ExcludeCompanies[0] != "Acme" {
		t.Fatalf("unexpected excluded companies: %v", cfg.ExcludeCompanies)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "postgres without url", body: "storage:\n  backend: postgres\n", want: "database-url"},
		{name: "unknown storage", body: "storage:\n  backend: mongo\n", want: "unsupported storage backend"},
		{name: "postgres vectors on memory", body: "storage:\n  backend: memory\nvector:\n  backend: postgres\n", want: "requires the postgres storage backend"},
		{name: "unknown vector", body: "storage:\n  backend: memory\nvector:\n  backend: faiss\n", want: "unsupported vector backend"},
		{name: "unknown provider", body: "storage:\n  backend: memory\nembedding:\n  provider: cohere\n", want: "unsupported embedding provider"},
		{name: "bad dimension", body: "storage:\n  backend: memory\nembedding:\n  dimension: 0\n", want: "dimension must be positive"},
		{name: "bad min score", body: "storage:\n  backend: memory\nrecommend:\n  default-min-score: 2\n", want: "default-min-score"},
		{name: "limit too high", body: "storage:\n  backend: memory\nrecommend:\n  default-limit: 500\n", want: "default-limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")

			_, err := Load(viper.New(), writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
