// Package storage defines the persistence contracts used by the
// recommendation engine and the helpers shared by their implementations.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

// ErrNotFound is returned when a user or posting does not exist.
var ErrNotFound = errors.New("not found")

// Filter holds the categorical constraints shared by both ranking paths.
type Filter struct {
	// JobType must match exactly when set.
	JobType string
	// Location is a case-insensitive substring of the posting location.
	Location   string
	RemoteOnly bool
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.JobType) == "" && strings.TrimSpace(f.Location) == "" && !f.RemoteOnly
}

// Match reports whether the posting satisfies the filter.
func (f Filter) Match(p *jobs.Posting) bool {
	if p == nil {
		return false
	}
	if jobType := strings.TrimSpace(f.JobType); jobType != "" && p.JobType != jobType {
		return false
	}
	if location := strings.ToLower(strings.TrimSpace(f.Location)); location != "" &&
		!strings.Contains(strings.ToLower(p.Location), location) {
		return false
	}
	if f.RemoteOnly && !p.Remote {
		return false
	}
	return true
}

// SimilarQuery asks for postings close to Vector.
type SimilarQuery struct {
	Vector   []float32
	Filter   Filter
	MinScore float64
	Limit    int
}

// ScoredJob is a posting with its cosine similarity to the query vector.
type ScoredJob struct {
	Job        *jobs.Posting
	Similarity float64
}

// JobReader reads postings.
type JobReader interface {
	// FetchRecentJobs returns postings published within windowDays, newest
	// first, at most maxCount of them.
	FetchRecentJobs(ctx context.Context, windowDays, maxCount int) ([]*jobs.Posting, error)
	GetJob(ctx context.Context, id string) (*jobs.Posting, error)
}

// JobWriter persists postings and their vectors.
type JobWriter interface {
	SaveJob(ctx context.Context, p *jobs.Posting) error
	SetJobEmbedding(ctx context.Context, id string, vec []float32) error
	JobsMissingEmbeddings(ctx context.Context, limit int) ([]*jobs.Posting, error)
}

// UserReader reads profiles.
type UserReader interface {
	FetchUserByID(ctx context.Context, id string) (*jobs.UserProfile, error)
}

// UserWriter persists profiles and their vectors.
type UserWriter interface {
	SaveUser(ctx context.Context, u *jobs.UserProfile) error
	SetUserEmbedding(ctx context.Context, id string, vec []float32) error
	UsersMissingEmbeddings(ctx context.Context, limit int) ([]*jobs.UserProfile, error)
}

// VectorSearcher performs similarity search over posting embeddings.
type VectorSearcher interface {
	FindSimilar(ctx context.Context, q SimilarQuery) ([]ScoredJob, error)
}

// Store is the full persistence surface.
type Store interface {
	JobReader
	JobWriter
	UserReader
	UserWriter
	VectorSearcher
	Close()
}

// DismissedStore tracks postings a user asked not to see again.
type DismissedStore interface {
	Dismissed(ctx context.Context, userID string) ([]string, error)
	Dismiss(ctx context.Context, userID string, jobIDs ...string) error
}

// SortScored orders hits by descending similarity, keeping encounter order
// for ties.
func SortScored(hits []ScoredJob) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
}
