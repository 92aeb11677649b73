// Package profiles registers and updates user profiles, scheduling their
// embeddings when the text behind them changes.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

// Store persists profiles.
type Store interface {
	storage.UserReader
	storage.UserWriter
}

// Service manages profiles.
type Service struct {
	store   Store
	sched   embedsync.Scheduler
	decoder *jobs.Decoder
	logger  *zap.Logger
}

// New returns a service. sched receives profiles whose embedding must be
// (re)generated.
func New(store Store, sched embedsync.Scheduler, decoder *jobs.Decoder, logger *zap.Logger) *Service {
	if decoder == nil {
		decoder = jobs.NewDecoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sched: sched, decoder: decoder, logger: logger.Named("profiles")}
}

// Outcome describes what a register or update call did.
type Outcome struct {
	User *jobs.UserProfile
	// EmbeddingScheduled is set when the profile was handed to the
	// embedding scheduler.
	EmbeddingScheduled bool
}

// Register stores a new profile. The profile is scheduled for embedding
// when it has skills, resume text or a preferred job type.
func (s *Service) Register(ctx context.Context, record map[string]any) (*Outcome, error) {
	user, err := s.decoder.User(record)
	if err != nil {
		return nil, err
	}

	_, err = s.store.FetchUserByID(ctx, user.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("user %s already exists", user.ID)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("fetch user %s: %w", user.ID, err)
	}

	// Vectors are always generated here, never accepted from input.
	user.Embedding = nil
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	outcome := &Outcome{User: user}
	if user.NeedsInitialEmbedding() {
		if err := s.sched.EmbedUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("schedule embedding for user %s: %w", user.ID, err)
		}
		outcome.EmbeddingScheduled = true
	}

	if !user.HasRuleSignal() {
		s.logger.Warn("profile has no skills, preferred titles or locations, rule-based matching will find nothing",
			zap.String("user_id", user.ID),
		)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.Bool("embedding_scheduled", outcome.EmbeddingScheduled),
	)
	return outcome, nil
}

// Update applies the fields present in record to profile id. The embedding
// is regenerated only when skills, resume text, preferred job type or
// preferred locations changed.
func (s *Service) Update(ctx context.Context, id string, record map[string]any) (*Outcome, error) {
	current, err := s.store.FetchUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}

	next, err := s.decoder.MergeUser(current, record)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveUser(ctx, next); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	outcome := &Outcome{User: next}
	if current.EmbeddingInputsChanged(next) && next.NeedsInitialEmbedding() {
		if err := s.sched.EmbedUser(ctx, id); err != nil {
			return nil, fmt.Errorf("schedule embedding for user %s: %w", id, err)
		}
		outcome.EmbeddingScheduled = true
	}

	s.logger.Info("user updated",
		zap.String("user_id", id),
		zap.Bool("embedding_scheduled", outcome.EmbeddingScheduled),
	)
	return outcome, nil
}
