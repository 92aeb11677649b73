package storage

import (
	"context"
	"fmt"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

// VectorIndex is an external similarity index kept in sync with the store.
type VectorIndex interface {
	VectorSearcher
	IndexJob(ctx context.Context, p *jobs.Posting) error
}

type indexedStore struct {
	Store
	index VectorIndex
}

// WithIndex returns a Store that serves similarity search from index and
// pushes every new posting vector into it.
func WithIndex(store Store, index VectorIndex) Store {
	return &indexedStore{Store: store, index: index}
}

func (s *indexedStore) FindSimilar(ctx context.Context, q SimilarQuery) ([]ScoredJob, error) {
	return s.index.FindSimilar(ctx, q)
}

func (s *indexedStore) SetJobEmbedding(ctx context.Context, id string, vec []float32) error {
	if err := s.Store.SetJobEmbedding(ctx, id, vec); err != nil {
		return err
	}
	p, err := s.Store.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("reload posting %s: %w", id, err)
	}
	return s.index.IndexJob(ctx, p)
}

func (s *indexedStore) SaveJob(ctx context.Context, p *jobs.Posting) error {
	if err := s.Store.SaveJob(ctx, p); err != nil {
		return err
	}
	if !p.HasEmbedding() {
		return nil
	}
	return s.index.IndexJob(ctx, p)
}
