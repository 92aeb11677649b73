// Package worker consumes embedding tasks and periodically schedules the
// records still missing a vector.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/tasks"
)

// Syncer embeds single records.
type Syncer interface {
	EmbedJob(ctx context.Context, id string) error
	EmbedUser(ctx context.Context, id string) error
}

// EmbedHandler processes embed:job and embed:user tasks.
type EmbedHandler struct {
	syncer Syncer
	logger *zap.Logger
}

// NewEmbedHandler creates the task handler.
func NewEmbedHandler(syncer Syncer, logger *zap.Logger) *EmbedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedHandler{syncer: syncer, logger: logger.Named("worker")}
}

// Register routes the embedding task types to h.
func (h *EmbedHandler) Register(mux *asynq.ServeMux) {
	mux.Handle(tasks.TypeEmbedJob, h)
	mux.Handle(tasks.TypeEmbedUser, h)
}

// ProcessTask implements asynq.Handler. Records that vanished or have no
// text are skipped without retry.
func (h *EmbedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseEmbedPayload(t)
	if err != nil {
		h.logger.Error("invalid task payload", zap.String("type", t.Type()), zap.Error(err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		zap.String("type", t.Type()),
		zap.String("id", payload.ID),
		zap.String("correlation_id", payload.CorrelationID),
	)
	log.Debug("processing task")

	switch t.Type() {
	case tasks.TypeEmbedJob:
		err = h.syncer.EmbedJob(ctx, payload.ID)
	case tasks.TypeEmbedUser:
		err = h.syncer.EmbedUser(ctx, payload.ID)
	default:
		return fmt.Errorf("unexpected task type %q: %w", t.Type(), asynq.SkipRetry)
	}

	if err == nil {
		log.Info("embedding updated")
		return nil
	}
	if embedsync.Permanent(err) {
		log.Warn("skipping task", zap.Error(err))
		return nil
	}

	log.Error("task failed", zap.Error(err))
	return err
}
