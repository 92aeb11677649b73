package matching

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

// chunkSize is the number of postings scored between cancellation checks.
const chunkSize = 64

// Ranker scores candidate pools concurrently.
type Ranker struct {
	workers int
	now     func() time.Time
}

// NewRanker returns a ranker using up to workers goroutines. A non-positive
// count uses GOMAXPROCS. A nil clock uses the wall clock.
func NewRanker(workers int, now func() time.Time) *Ranker {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if now == nil {
		now = time.Now
	}
	return &Ranker{workers: workers, now: now}
}

// Rank scores every posting, drops those under MinScore and orders the rest
// by score, newest posting and id. The outcome does not depend on the
// number of workers. A cancelled ctx abandons the remaining work.
func (r *Ranker) Rank(ctx context.Context, profile Profile, pool []*jobs.Posting) ([]Result, error) {
	now := r.now()
	scored := make([]Result, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for start := 0; start < len(pool); start += chunkSize {
		end := min(start+chunkSize, len(pool))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				scored[i] = Score(profile, pool[i], now)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scored))
	for _, result := range scored {
		if result.Job != nil && result.Included() {
			results = append(results, result)
		}
	}

	SortResults(results)
	return results, nil
}

// SortResults orders results by descending score. Ties go to the newer
// posting, then to the lexically smaller id.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Job.PostedAt.Equal(b.Job.PostedAt) {
			return a.Job.PostedAt.After(b.Job.PostedAt)
		}
		return a.Job.ID < b.Job.ID
	})
}
