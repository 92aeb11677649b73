package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

type companiesFilter struct {
	companies map[string]struct{}
	names     []string
}

// NewCompanies creates a filter that removes postings from companies listed in the config.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}
	for _, company := range jobs.CleanList(cfg.ExcludeCompanies) {
		f.companies[strings.ToLower(company)] = struct{}{}
		f.names = append(f.names, company)
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	if len(f.companies) == 0 {
		return p, Step{Initial: p.Len(), Left: p.Len()}, nil
	}

	next, step, removed := keep(p, func(posting *jobs.Posting) bool {
		_, excluded := f.companies[strings.ToLower(strings.TrimSpace(posting.Company))]
		return !excluded
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding postings by company",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", next.Len()),
		)
	}

	return next, step, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
