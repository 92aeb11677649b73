package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/logger"
)

// DefaultBackfillSpec is the cron spec used when none is configured.
const DefaultBackfillSpec = "@every 1h"

// Backfiller lists records without embeddings and hands them to a
// scheduler.
type Backfiller interface {
	Backfill(ctx context.Context, sched embedsync.Scheduler, batch int) (embedsync.Report, error)
}

// Scheduler runs the embedding backfill on a cron spec.
type Scheduler struct {
	cron       *cron.Cron
	backfiller Backfiller
	target     embedsync.Scheduler
	spec       string
	batch      int
	logger     *zap.Logger
}

// NewScheduler creates a scheduler firing on spec. Overlapping runs are
// skipped.
func NewScheduler(backfiller Backfiller, target embedsync.Scheduler, spec string, batch int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultBackfillSpec
	}
	cronLogger := logger.NewCronLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		backfiller: backfiller,
		target:     target,
		spec:       spec,
		batch:      batch,
		logger:     log.Named("backfill"),
	}
}

// Start registers the job and starts the scheduler. One pass also runs
// immediately so a fresh deployment does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("add backfill job %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("backfill scheduler started", zap.String("spec", s.spec))

	go s.RunOnce(ctx)

	return nil
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("backfill scheduler stopped")
}

// RunOnce performs a single backfill pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.backfiller.Backfill(ctx, s.target, s.batch)
	if err != nil {
		s.logger.Error("backfill pass failed", zap.Error(err))
		return
	}
	s.logger.Debug("backfill pass complete",
		zap.Int("jobs", report.Jobs),
		zap.Int("users", report.Users),
		zap.Int("failed", report.Failed),
	)
}
