package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/config"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding/gemini"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding/openai"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/logger"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/matching"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/recommend"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/secrets"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage/memory"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage/postgres"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage/qdrant"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage/rediskv"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/tasks"
)

// env holds everything a command needs. Components that need credentials
// or network access are built on first use.
type env struct {
	cfg    *config.Config
	logger *zap.Logger

	store     storage.Store
	dismissed storage.DismissedStore
	redis     *redis.Client

	embedder embedding.Embedder
	syncer   *embedsync.Syncer
	queue    *tasks.Queue

	closers []func()
}

// setup loads the configuration and opens the stores.
func setup(ctx context.Context) (*env, error) {
	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	e := &env{cfg: cfg, logger: zl}
	e.closers = append(e.closers, func() { _ = logger.Sync(zl) })

	zl.Debug("starting", zap.String("version", version),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("vector", cfg.Vector.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	if err := e.openStore(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases every opened resource in reverse order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func (e *env) openStore(ctx context.Context) error {
	switch e.cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, e.cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		store := postgres.New(pool, e.logger, nil)
		e.store = store
		e.closers = append(e.closers, store.Close)

		client, err := rediskv.NewClient(ctx, e.cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		e.redis = client
		e.dismissed = rediskv.NewDismissed(client)
		e.closers = append(e.closers, func() { _ = client.Close() })
	default:
		store := memory.New(nil)
		if err := e.seedMemory(ctx, store); err != nil {
			return err
		}
		e.store = store
		e.dismissed = store
	}

	if e.cfg.Vector.Backend == config.BackendQdrant {
		apiKey := e.cfg.Vector.Qdrant.APIKey
		if e.cfg.Vector.Qdrant.APIKeyFile != "" {
			key, err := secrets.Load(secrets.Source{Name: "qdrant api key", File: e.cfg.Vector.Qdrant.APIKeyFile})
			if err != nil {
				return err
			}
			apiKey = key
		}

		index, err := qdrant.New(qdrant.Config{
			Host:       e.cfg.Vector.Qdrant.Host,
			Port:       e.cfg.Vector.Qdrant.Port,
			APIKey:     apiKey,
			UseTLS:     e.cfg.Vector.Qdrant.UseTLS,
			Collection: e.cfg.Vector.Qdrant.Collection,
			Dimension:  e.cfg.Embedding.Dimension,
		}, e.store, e.logger.Named("qdrant"))
		if err != nil {
			return err
		}
		e.closers = append(e.closers, func() { _ = index.Close() })

		if err := index.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("prepare qdrant collection: %w", err)
		}
		e.store = storage.WithIndex(e.store, index)
	}

	return nil
}

// seedMemory loads the configured import files into store.
func (e *env) seedMemory(ctx context.Context, store *memory.Store) error {
	decoder := jobs.NewDecoder()

	if path := e.cfg.Storage.JobsFile; path != "" {
		records, err := jobs.ReadRecords(path, "jobs")
		if err != nil {
			return err
		}
		postings, err := decoder.Postings(records)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		for _, posting := range postings.Items {
			if err := store.SaveJob(ctx, posting); err != nil {
				return err
			}
		}
		e.logger.Info("postings loaded", zap.String("file", path), zap.Int("count", postings.Len()))
	}

	if path := e.cfg.Storage.UsersFile; path != "" {
		records, err := jobs.ReadRecords(path, "users")
		if err != nil {
			return err
		}
		for idx, record := range records {
			user, err := decoder.User(record)
			if err != nil {
				return fmt.Errorf("decode %s record %d: %w", path, idx, err)
			}
			if err := store.SaveUser(ctx, user); err != nil {
				return err
			}
		}
		e.logger.Info("users loaded", zap.String("file", path), zap.Int("count", len(records)))
	}

	return nil
}

// Embedder builds the configured embedding provider.
func (e *env) Embedder(ctx context.Context) (embedding.Embedder, error) {
	if e.embedder != nil {
		return e.embedder, nil
	}

	cfg := e.cfg.Embedding

	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			Env:   "OPENAI_API_KEY",
			File:  cfg.OpenAI.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}
		embedder, err := openai.New(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.Model,
			Dimension:  cfg.Dimension,
			MaxRetries: cfg.MaxRetries,
		}, e.logger)
		if err != nil {
			return nil, err
		}
		e.embedder = embedder
	default:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}
		embedder, err := gemini.New(ctx, gemini.Config{
			APIKey:     apiKey,
			Model:      cfg.Model,
			Dimension:  cfg.Dimension,
			MaxRetries: cfg.MaxRetries,
		}, e.logger)
		if err != nil {
			return nil, err
		}
		e.embedder = embedder
	}

	return e.embedder, nil
}

// Syncer returns the in-process embedding writer.
func (e *env) Syncer(ctx context.Context) (*embedsync.Syncer, error) {
	if e.syncer != nil {
		return e.syncer, nil
	}

	embedder, err := e.Embedder(ctx)
	if err != nil {
		return nil, err
	}

	deps := embedsync.Deps{
		Embedder: embedder,
		Jobs:     e.store,
		Users:    e.store,
		Logger:   e.logger,
	}
	if e.redis != nil {
		deps.Notifier = rediskv.NewNotifier(e.redis)
	}

	e.syncer = embedsync.New(deps, e.cfg.Embedding.Dimension)
	return e.syncer, nil
}

// Scheduler returns where new embedding work goes: the task queue when a
// worker can pick it up, the in-process syncer otherwise.
func (e *env) Scheduler(ctx context.Context) (embedsync.Scheduler, error) {
	if viper.GetBool("inline-embeddings") || e.cfg.Storage.Backend == config.BackendMemory {
		return e.Syncer(ctx)
	}
	return e.Queue()
}

// Queue returns the asynq producer for embedding tasks.
func (e *env) Queue() (*tasks.Queue, error) {
	if e.queue != nil {
		return e.queue, nil
	}

	opt, err := asynq.ParseRedisURI(e.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := asynq.NewClient(opt)
	e.closers = append(e.closers, func() { _ = client.Close() })

	e.queue = tasks.NewQueue(client, e.logger)
	return e.queue, nil
}

// Recommender builds the recommendation service. The embedder is only
// required by the similarity strategy, so a missing API key does not stop
// rule-based requests.
func (e *env) Recommender(ctx context.Context, needsEmbedder bool) (*recommend.Service, error) {
	deps := recommend.Deps{
		Jobs:      e.store,
		Users:     e.store,
		Searcher:  e.store,
		Dismissed: e.dismissed,
		Ranker:    matching.NewRanker(e.cfg.Recommend.Workers, nil),
		Logger:    e.logger,
	}

	if needsEmbedder {
		if e.cfg.Storage.Backend == config.BackendMemory {
			if err := e.embedMissing(ctx); err != nil {
				return nil, err
			}
		}
		embedder, err := e.Embedder(ctx)
		if err != nil {
			return nil, err
		}
		deps.Embedder = embedder
	}

	return recommend.New(deps, e.cfg.Recommend), nil
}

// embedMissing embeds, in-process, every record still lacking a vector.
// The memory backend has no worker, so it is brought up to date before
// similarity search.
func (e *env) embedMissing(ctx context.Context) error {
	syncer, err := e.Syncer(ctx)
	if err != nil {
		return err
	}
	report, err := syncer.Backfill(ctx, syncer, 0)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return errors.New("some records could not be embedded, see the log for details")
	}
	return nil
}
