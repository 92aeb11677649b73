package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

// criteriaFilter applies one categorical constraint from the request.
type criteriaFilter struct {
	name     string
	disabled bool
	reason   string
	// pick extracts the part of the request criteria this step enforces.
	pick     func(storage.Filter) storage.Filter
	criteria storage.Filter
	detail   func(storage.Filter) (string, string)
}

// NewJobType keeps postings whose job type equals the requested one.
func NewJobType() Filter {
	return &criteriaFilter{
		name: "job_type",
		pick: func(f storage.Filter) storage.Filter { return storage.Filter{JobType: strings.TrimSpace(f.JobType)} },
		detail: func(f storage.Filter) (string, string) {
			return "job_type", f.JobType
		},
	}
}

// NewLocation keeps postings whose location contains the requested text.
func NewLocation() Filter {
	return &criteriaFilter{
		name: "location",
		pick: func(f storage.Filter) storage.Filter { return storage.Filter{Location: strings.TrimSpace(f.Location)} },
		detail: func(f storage.Filter) (string, string) {
			return "location", f.Location
		},
	}
}

// NewRemoteOnly keeps remote postings when requested.
func NewRemoteOnly() Filter {
	return &criteriaFilter{
		name: "remote_only",
		pick: func(f storage.Filter) storage.Filter { return storage.Filter{RemoteOnly: f.RemoteOnly} },
		detail: func(f storage.Filter) (string, string) {
			if !f.RemoteOnly {
				return "", ""
			}
			return "remote_only", strconv.FormatBool(f.RemoteOnly)
		},
	}
}

func (f *criteriaFilter) Name() string { return f.name }

func (f *criteriaFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *criteriaFilter) IsEnabled() bool { return !f.disabled }

func (f *criteriaFilter) Validate(cfg *Config) error {
	f.criteria = storage.Filter{}
	if cfg != nil {
		f.criteria = f.pick(cfg.Criteria)
	}
	return nil
}

func (f *criteriaFilter) Apply(_ context.Context, _ Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	if f.criteria.IsZero() {
		return p, Step{Initial: p.Len(), Left: p.Len()}, nil
	}
	next, step, _ := keep(p, f.criteria.Match)
	return next, step, nil
}

func (f *criteriaFilter) Status() Status {
	details := map[string]string{}
	if key, value := f.detail(f.criteria); key != "" && value != "" {
		details[key] = value
	}
	return Status{Name: f.name, Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
