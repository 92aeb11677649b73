package recommend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrInvalidSelector     = errors.New("invalid selector")
	ErrInvalidOptions      = errors.New("invalid options")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Strategy names the ranking path that produced a result.
type Strategy string

const (
	StrategySimilarity Strategy = "similarity"
	StrategyRules      Strategy = "rules"
)

// Mode lets the caller force a strategy.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeSimilarity Mode = "similarity"
	ModeRules      Mode = "rules"
)

// ParseMode accepts the mode names case-insensitively. An empty string is
// ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeSimilarity, ModeRules:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, s)
	}
}

// Selector identifies what to recommend for. Exactly one field must be set.
type Selector struct {
	Query  string
	UserID string
}

func (s Selector) validate() (Selector, error) {
	s.Query = strings.TrimSpace(s.Query)
	s.UserID = strings.TrimSpace(s.UserID)

	switch {
	case s.Query == "" && s.UserID == "":
		return s, fmt.Errorf("%w: either query or user id must be provided", ErrInvalidSelector)
	case s.Query != "" && s.UserID != "":
		return s, fmt.Errorf("%w: query and user id are mutually exclusive", ErrInvalidSelector)
	}
	return s, nil
}

// Options tune a single request.
type Options struct {
	// Limit caps the returned items. Zero uses the configured default.
	Limit int
	// MinScore is the similarity threshold in [0,1]. Nil uses the
	// configured default. Ignored by the rules strategy.
	MinScore   *float64
	JobType    string
	Location   string
	RemoteOnly bool
	Mode       Mode

	ExcludeCompanies []string
	// ShowDismissed keeps postings the user dismissed earlier.
	ShowDismissed bool
}

func (o Options) criteria() storage.Filter {
	return storage.Filter{
		JobType:    strings.TrimSpace(o.JobType),
		Location:   strings.TrimSpace(o.Location),
		RemoteOnly: o.RemoteOnly,
	}
}

// Item is one ranked posting. Similarity is set by the similarity strategy,
// Score, Percentage and Reasons by the rules strategy.
type Item struct {
	Job        *jobs.Posting `json:"job"`
	Similarity float64       `json:"similarity_score,omitempty"`
	Score      int           `json:"score,omitempty"`
	Percentage int           `json:"match_percentage,omitempty"`
	Reasons    []string      `json:"reasons,omitempty"`
}

// RankedResult is the answer to a recommendation request.
type RankedResult struct {
	Strategy Strategy `json:"strategy"`
	Items    []Item   `json:"jobs"`
	// Total counts matches before truncation to the limit.
	Total     int    `json:"total"`
	QueryUsed string `json:"query_used,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Postings returns the ranked postings in order.
func (r *RankedResult) Postings() *jobs.Postings {
	items := make([]*jobs.Posting, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, item.Job)
	}
	return jobs.NewPostings(items...)
}
