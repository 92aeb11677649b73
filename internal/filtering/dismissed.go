package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

type dismissedFilter struct {
	disabled bool
	reason   string
	dropped  int
}

// NewDismissed creates a filter that removes postings the user dismissed earlier.
func NewDismissed() Filter {
	return &dismissedFilter{}
}

func (f *dismissedFilter) Name() string { return "dismissed" }

func (f *dismissedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *dismissedFilter) IsEnabled() bool { return !f.disabled }

func (f *dismissedFilter) Validate(*Config) error { return nil }

func (f *dismissedFilter) Apply(ctx context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if deps.UserID == "" || deps.Dismissed == nil {
		return p, Step{Initial: initial, Left: initial}, nil
	}

	ids, err := deps.Dismissed.Dismissed(ctx, deps.UserID)
	if err != nil {
		return p, Step{}, fmt.Errorf("get dismissed postings: %w", err)
	}

	removed := p.Exclude(ids)
	f.dropped = len(removed)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding dismissed postings",
			zap.String("user_id", deps.UserID),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *dismissedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"dropped": strconv.Itoa(f.dropped)},
	}
}
