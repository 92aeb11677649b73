// Package embedsync keeps posting and profile embeddings in step with the
// text they are derived from.
package embedsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedtext"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage/rediskv"
)

const (
	KindJob  = "job"
	KindUser = "user"

	// DefaultBatch bounds how many records one backfill pass schedules per kind.
	DefaultBatch = 200
)

// JobStore reads and writes postings.
type JobStore interface {
	storage.JobReader
	storage.JobWriter
}

// UserStore reads and writes profiles.
type UserStore interface {
	storage.UserReader
	storage.UserWriter
}

// Notifier is told about every stored vector.
type Notifier interface {
	EmbeddingUpdated(ctx context.Context, ev rediskv.EmbeddingEvent) error
}

// Scheduler accepts embedding work. Both *Syncer and *tasks.Queue
// implement it.
type Scheduler interface {
	EmbedJob(ctx context.Context, id string) error
	EmbedUser(ctx context.Context, id string) error
}

// Deps are the collaborators of a Syncer.
type Deps struct {
	Embedder embedding.Embedder
	Jobs     JobStore
	Users    UserStore
	// Notifier is optional.
	Notifier Notifier
	Logger   *zap.Logger
}

// Syncer generates, validates and stores embeddings.
type Syncer struct {
	deps      Deps
	dimension int
	logger    *zap.Logger
}

// New returns a syncer writing vectors of the given dimension.
func New(deps Deps, dimension int) *Syncer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{deps: deps, dimension: dimension, logger: logger.Named("embedsync")}
}

// EmbedJob regenerates the embedding of posting id.
func (s *Syncer) EmbedJob(ctx context.Context, id string) error {
	posting, err := s.deps.Jobs.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get posting %s: %w", id, err)
	}

	text, err := embedtext.ForJob(posting)
	if err != nil {
		return fmt.Errorf("posting %s: %w", id, err)
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed posting %s: %w", id, err)
	}

	if err := s.deps.Jobs.SetJobEmbedding(ctx, id, vector); err != nil {
		return fmt.Errorf("store posting %s embedding: %w", id, err)
	}

	s.notify(ctx, KindJob, id, len(vector))
	return nil
}

// EmbedUser regenerates the embedding of profile id.
func (s *Syncer) EmbedUser(ctx context.Context, id string) error {
	user, err := s.deps.Users.FetchUserByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user %s: %w", id, err)
	}

	text, err := embedtext.ForUser(user)
	if err != nil {
		return fmt.Errorf("user %s: %w", id, err)
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed user %s: %w", id, err)
	}

	if err := s.deps.Users.SetUserEmbedding(ctx, id, vector); err != nil {
		return fmt.Errorf("store user %s embedding: %w", id, err)
	}

	s.notify(ctx, KindUser, id, len(vector))
	return nil
}

// Report counts the records a backfill pass handed to the scheduler.
type Report struct {
	Jobs   int
	Users  int
	Failed int
}

// Backfill hands every posting and profile without an embedding to sched,
// up to batch of each. Failures for single records are logged and counted;
// only listing errors abort the pass.
func (s *Syncer) Backfill(ctx context.Context, sched Scheduler, batch int) (Report, error) {
	if batch <= 0 {
		batch = DefaultBatch
	}

	var report Report

	postings, err := s.deps.Jobs.JobsMissingEmbeddings(ctx, batch)
	if err != nil {
		return report, fmt.Errorf("list postings without embeddings: %w", err)
	}
	for _, posting := range postings {
		if err := sched.EmbedJob(ctx, posting.ID); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			s.logger.Warn("scheduling posting embedding failed", zap.String("job_id", posting.ID), zap.Error(err))
			continue
		}
		report.Jobs++
	}

	users, err := s.deps.Users.UsersMissingEmbeddings(ctx, batch)
	if err != nil {
		return report, fmt.Errorf("list users without embeddings: %w", err)
	}
	for _, user := range users {
		if !user.NeedsInitialEmbedding() {
			continue
		}
		if err := sched.EmbedUser(ctx, user.ID); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			s.logger.Warn("scheduling user embedding failed", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		report.Users++
	}

	s.logger.Info("backfill pass finished",
		zap.Int("jobs", report.Jobs),
		zap.Int("users", report.Users),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Syncer) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.deps.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	check, err := embedding.Validate(vector, s.dimension)
	if err != nil {
		return nil, err
	}
	if check.Drift {
		s.logger.Warn("embedding norm drifts from 1", zap.Float64("norm", check.Norm))
	}
	return vector, nil
}

func (s *Syncer) notify(ctx context.Context, kind, id string, dimension int) {
	log := s.logger.With(zap.String("kind", kind), zap.String("id", id))
	log.Debug("embedding stored", zap.Int("dimension", dimension))

	if s.deps.Notifier == nil {
		return
	}
	err := s.deps.Notifier.EmbeddingUpdated(ctx, rediskv.EmbeddingEvent{Kind: kind, ID: id, Dimension: dimension})
	if err != nil {
		log.Warn("publishing embedding event failed", zap.Error(err))
	}
}

// Permanent reports whether retrying err cannot succeed.
func Permanent(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, embedtext.ErrEmptyText) ||
		errors.Is(err, embedding.ErrDimensionMismatch)
}
