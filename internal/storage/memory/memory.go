// Package memory is an in-process implementation of the storage contracts,
// used for local runs from import files and in tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

// Store keeps postings and profiles in maps guarded by a RWMutex. Values
// are copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.Posting
	order     []string
	users     map[string]*jobs.UserProfile
	dismissed map[string]map[string]struct{}
	now       func() time.Time
}

// New returns an empty store. A nil clock uses the wall clock.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		jobs:      make(map[string]*jobs.Posting),
		users:     make(map[string]*jobs.UserProfile),
		dismissed: make(map[string]map[string]struct{}),
		now:       now,
	}
}

func (s *Store) Close() {}

func (s *Store) SaveJob(_ context.Context, p *jobs.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.jobs[p.ID] = copyPosting(p)
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*jobs.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPosting(p), nil
}

func (s *Store) SetJobEmbedding(_ context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Embedding = slices.Clone(vec)
	return nil
}

func (s *Store) JobsMissingEmbeddings(_ context.Context, limit int) ([]*jobs.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []*jobs.Posting
	for _, id := range s.order {
		if limit > 0 && len(missing) >= limit {
			break
		}
		if p := s.jobs[id]; !p.HasEmbedding() {
			missing = append(missing, copyPosting(p))
		}
	}
	return missing, nil
}

func (s *Store) FetchRecentJobs(_ context.Context, windowDays, maxCount int) ([]*jobs.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	recent := make([]*jobs.Posting, 0, len(s.jobs))
	for _, id := range s.order {
		p := s.jobs[id]
		if windowDays > 0 && p.PostedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, copyPosting(p))
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PostedAt.After(recent[j].PostedAt)
	})
	if maxCount > 0 && len(recent) > maxCount {
		recent = recent[:maxCount]
	}
	return recent, nil
}

// FindSimilar scans every embedded posting. Results are filtered,
// thresholded, sorted by similarity and truncated to the limit.
func (s *Store) FindSimilar(ctx context.Context, q storage.SimilarQuery) ([]storage.ScoredJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []storage.ScoredJob
	for _, id := range s.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := s.jobs[id]
		if !p.HasEmbedding() || !q.Filter.Match(p) {
			continue
		}
		similarity := embedding.Cosine(q.Vector, p.Embedding)
		if similarity < q.MinScore {
			continue
		}
		hits = append(hits, storage.ScoredJob{Job: copyPosting(p), Similarity: similarity})
	}

	storage.SortScored(hits)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (s *Store) SaveUser(_ context.Context, u *jobs.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *Store) FetchUserByID(_ context.Context, id string) (*jobs.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) SetUserEmbedding(_ context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Embedding = slices.Clone(vec)
	return nil
}

func (s *Store) UsersMissingEmbeddings(_ context.Context, limit int) ([]*jobs.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var missing []*jobs.UserProfile
	for _, id := range ids {
		if limit > 0 && len(missing) >= limit {
			break
		}
		if u := s.users[id]; !u.HasEmbedding() && u.NeedsInitialEmbedding() {
			missing = append(missing, copyUser(u))
		}
	}
	return missing, nil
}

func (s *Store) Dismissed(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.dismissed[userID]))
	for id := range s.dismissed[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Dismiss(_ context.Context, userID string, jobIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.dismissed[userID]
	if !ok {
		set = make(map[string]struct{})
		s.dismissed[userID] = set
	}
	for _, id := range jobIDs {
		set[id] = struct{}{}
	}
	return nil
}

func copyPosting(p *jobs.Posting) *jobs.Posting {
	c := *p
	c.Skills = slices.Clone(p.Skills)
	c.Embedding = slices.Clone(p.Embedding)
	return &c
}

func copyUser(u *jobs.UserProfile) *jobs.UserProfile {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	c.PreferredTitles = slices.Clone(u.PreferredTitles)
	c.PreferredLocations = slices.Clone(u.PreferredLocations)
	c.Embedding = slices.Clone(u.Embedding)
	return &c
}
