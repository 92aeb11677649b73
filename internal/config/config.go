// Package config loads jobrec settings from a YAML file, the environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/recommend"
)

const (
	EnvPrefix = "JOBREC"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config aggregates application settings.
type Config struct {
	Storage   StorageConfig    `mapstructure:"storage"`
	Vector    VectorConfig     `mapstructure:"vector"`
	Embedding EmbeddingConfig  `mapstructure:"embedding"`
	Recommend recommend.Config `mapstructure:"recommend"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Worker    WorkerConfig     `mapstructure:"worker"`
	// ExcludeCompanies are never recommended.
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
}

// StorageConfig selects where postings and profiles live.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	DatabaseURL string `mapstructure:"database-url"`
	// JobsFile and UsersFile seed the memory backend.
	JobsFile  string `mapstructure:"jobs-file"`
	UsersFile string `mapstructure:"users-file"`
}

// VectorConfig selects the similarity search backend. An empty backend
// searches the primary store.
type VectorConfig struct {
	Backend string       `mapstructure:"backend"`
	Qdrant  QdrantConfig `mapstructure:"qdrant"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	UseTLS     bool   `mapstructure:"use-tls"`
	Collection string `mapstructure:"collection"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string         `mapstructure:"provider"`
	Model      string         `mapstructure:"model"`
	Dimension  int            `mapstructure:"dimension"`
	MaxRetries int            `mapstructure:"max-retries"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	BackfillSpec   string `mapstructure:"backfill-spec"`
	BackfillBatch  int    `mapstructure:"backfill-batch"`
	MetricsAddress string `mapstructure:"metrics-address"`
}

// Load reads the configuration into v and returns it validated. file may be
// empty, in which case jobrec.yaml is looked up in the working directory and
// its absence is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("jobrec")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	normalize(&cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	cfg.Recommend.Dimension = cfg.Embedding.Dimension
	return &cfg, nil
}

// loadDotEnv loads .env from the working directory when present. Variables
// already set win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendPostgres)
	v.SetDefault("vector.qdrant.host", "localhost")
	v.SetDefault("vector.qdrant.port", 6334)
	v.SetDefault("vector.qdrant.collection", "job_postings")
	v.SetDefault("embedding.provider", ProviderGemini)
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.max-retries", 3)
	v.SetDefault("recommend.window-days", recommend.DefaultWindowDays)
	v.SetDefault("recommend.max-candidates", recommend.DefaultMaxCandidates)
	v.SetDefault("recommend.default-limit", recommend.DefaultLimit)
	v.SetDefault("recommend.default-min-score", recommend.DefaultMinScore)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.backfill-spec", "@every 1h")
	v.SetDefault("worker.backfill-batch", 200)
	v.SetDefault("worker.metrics-address", ":9090")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"storage.database-url":          "DATABASE_URL",
		"redis.url":                     "REDIS_URL",
		"embedding.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"embedding.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"vector.qdrant.api-key-file":    "QDRANT_API_KEY_FILE",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, EnvPrefix+"_"+envKey(key), env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func normalize(cfg *Config) {
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Vector.Backend = strings.ToLower(strings.TrimSpace(cfg.Vector.Backend))
	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))
	cfg.Storage.DatabaseURL = strings.TrimSpace(cfg.Storage.DatabaseURL)
	cfg.Redis.URL = strings.TrimSpace(cfg.Redis.URL)
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case BackendPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return errors.New("storage.database-url is required for the postgres backend (or set DATABASE_URL)")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Vector.Backend {
	case "":
	case BackendPostgres:
		if cfg.Storage.Backend != BackendPostgres {
			return errors.New("vector backend postgres requires the postgres storage backend")
		}
	case BackendQdrant:
		if cfg.Vector.Qdrant.Host == "" {
			return errors.New("vector.qdrant.host is required")
		}
		if cfg.Vector.Qdrant.Port <= 0 {
			return errors.New("vector.qdrant.port must be positive")
		}
	default:
		return fmt.Errorf("unsupported vector backend %q", cfg.Vector.Backend)
	}

	switch cfg.Embedding.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be positive")
	}
	if cfg.Embedding.MaxRetries < 0 {
		return errors.New("embedding.max-retries must not be negative")
	}

	if score := cfg.Recommend.DefaultMinScore; score < 0 || score > 1 {
		return fmt.Errorf("recommend.default-min-score must be within [0,1], got %v", score)
	}
	if cfg.Recommend.DefaultLimit > recommend.MaxLimit {
		return fmt.Errorf("recommend.default-limit must not exceed %d", recommend.MaxLimit)
	}

	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be positive")
	}
	return nil
}
