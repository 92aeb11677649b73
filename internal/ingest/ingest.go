// Package ingest normalizes raw postings, stores them and schedules their
// embeddings.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

// Importer stores postings read from external sources.
type Importer struct {
	jobs    storage.JobWriter
	sched   embedsync.Scheduler
	decoder *jobs.Decoder
	logger  *zap.Logger
}

// New returns an importer.
func New(jobStore storage.JobWriter, sched embedsync.Scheduler, decoder *jobs.Decoder, logger *zap.Logger) *Importer {
	if decoder == nil {
		decoder = jobs.NewDecoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{jobs: jobStore, sched: sched, decoder: decoder, logger: logger.Named("ingest")}
}

// Summary reports the outcome of an import.
type Summary struct {
	Stored    int
	Scheduled int
	// Failed lists posting ids whose embedding could not be scheduled.
	Failed []string
}

// Import decodes every record before storing anything, so a malformed
// record leaves the store untouched. Postings arriving with a vector of the
// wrong size are stored without it and re-embedded.
func (i *Importer) Import(ctx context.Context, records []map[string]any, dimension int) (*Summary, error) {
	postings, err := i.decoder.Postings(records)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, posting := range postings.Items {
		if posting.HasEmbedding() && dimension > 0 && len(posting.Embedding) != dimension {
			i.logger.Warn("dropping posting embedding with unexpected dimension",
				zap.String("job_id", posting.ID),
				zap.Int("dimension", len(posting.Embedding)),
				zap.Int("expected_dimension", dimension),
			)
			posting.Embedding = nil
		}

		if err := i.jobs.SaveJob(ctx, posting); err != nil {
			return summary, fmt.Errorf("save posting %s: %w", posting.ID, err)
		}
		summary.Stored++
	}

	for _, posting := range postings.MissingEmbeddings() {
		if err := i.sched.EmbedJob(ctx, posting.ID); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			i.logger.Warn("scheduling posting embedding failed", zap.String("job_id", posting.ID), zap.Error(err))
			summary.Failed = append(summary.Failed, posting.ID)
			continue
		}
		summary.Scheduled++
	}

	i.logger.Info("postings imported",
		zap.Int("stored", summary.Stored),
		zap.Int("scheduled", summary.Scheduled),
		zap.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}
