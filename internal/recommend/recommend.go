// Package recommend picks a ranking strategy for a request and shapes the
// ranked postings returned to the caller.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedtext"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/filtering"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/logger"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/matching"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/metrics"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/utils"
)

const (
	DefaultWindowDays    = 60
	DefaultMaxCandidates = 500
	DefaultLimit         = 10
	MaxLimit             = 100
	DefaultMinScore      = 0.5

	queryDisplayLimit = 100
)

const (
	MessageEmptyProfile = "Add skills, preferred job titles or preferred locations to your profile to get rule-based recommendations."
	MessageNoRuleMatch  = "No recent postings matched your profile."
	MessageNoSimilar    = "No postings reached the minimum similarity score."
)

// Config bounds the work done per request.
type Config struct {
	WindowDays      int     `mapstructure:"window-days"`
	MaxCandidates   int     `mapstructure:"max-candidates"`
	DefaultLimit    int     `mapstructure:"default-limit"`
	DefaultMinScore float64 `mapstructure:"default-min-score"`
	Workers         int     `mapstructure:"workers"`
	// Dimension is the expected embedding size. Zero skips the check.
	Dimension int `mapstructure:"-"`
}

func (c Config) withDefaults() Config {
	if c.WindowDays <= 0 {
		c.WindowDays = DefaultWindowDays
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.DefaultLimit > MaxLimit {
		c.DefaultLimit = MaxLimit
	}
	if c.DefaultMinScore <= 0 || c.DefaultMinScore > 1 {
		c.DefaultMinScore = DefaultMinScore
	}
	return c
}

// Deps are the collaborators of the service.
type Deps struct {
	Embedder  embedding.Embedder
	Jobs      storage.JobReader
	Users     storage.UserReader
	Searcher  storage.VectorSearcher
	Dismissed storage.DismissedStore
	Ranker    *matching.Ranker
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// Filters builds the pipeline applied to candidates. Nil uses
	// filtering.Default.
	Filters func() []filtering.Filter
}

// Service answers recommendation requests.
type Service struct {
	deps Deps
	cfg  Config
	log  *zap.Logger
}

// New returns a service. Zero config values fall back to defaults.
func New(deps Deps, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Ranker == nil {
		deps.Ranker = matching.NewRanker(cfg.Workers, nil)
	}
	if deps.Filters == nil {
		deps.Filters = filtering.Default
	}
	return &Service{
		deps: deps,
		cfg:  cfg.withDefaults(),
		log:  deps.Logger.Named("recommend"),
	}
}

// Recommend ranks postings for the selector.
func (s *Service) Recommend(ctx context.Context, sel Selector, opts Options) (*RankedResult, error) {
	started := time.Now()

	result, strategy, err := s.recommend(ctx, sel, opts)

	outcome := metrics.OutcomeOK
	returned := 0
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(result.Items) == 0:
		outcome = metrics.OutcomeEmpty
	default:
		returned = len(result.Items)
	}
	s.deps.Metrics.ObserveRecommendation(string(strategy), outcome, time.Since(started), returned)

	log := s.log.With(
		zap.String(logger.FieldStrategy, string(strategy)),
		zap.String("user_id", sel.UserID),
		zap.String("query", utils.TruncateForLog(sel.Query, 80)),
		zap.Duration("took", time.Since(started)),
	)
	if err != nil {
		log.Warn("recommendation failed", zap.Error(err))
		return nil, err
	}

	log.Info("recommendation finished",
		zap.Int("total", result.Total),
		zap.Int("returned", len(result.Items)),
	)
	return result, nil
}

func (s *Service) recommend(ctx context.Context, sel Selector, opts Options) (*RankedResult, Strategy, error) {
	sel, err := sel.validate()
	if err != nil {
		return nil, "", err
	}

	strategy, err := chooseStrategy(sel, opts.Mode)
	if err != nil {
		return nil, "", err
	}

	limit, err := s.limit(opts.Limit)
	if err != nil {
		return nil, strategy, err
	}

	if strategy == StrategyRules {
		result, err := s.byRules(ctx, sel.UserID, opts, limit)
		return result, strategy, err
	}

	minScore, err := s.minScore(opts.MinScore)
	if err != nil {
		return nil, strategy, err
	}

	result, err := s.bySimilarity(ctx, sel, opts, limit, minScore)
	return result, strategy, err
}

func chooseStrategy(sel Selector, mode Mode) (Strategy, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return "", err
	}

	switch mode {
	case ModeRules:
		if sel.UserID == "" {
			return "", fmt.Errorf("%w: rule-based ranking needs a user id", ErrInvalidSelector)
		}
		return StrategyRules, nil
	default:
		return StrategySimilarity, nil
	}
}

func (s *Service) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidOptions, requested)
	case requested == 0:
		return s.cfg.DefaultLimit, nil
	case requested > MaxLimit:
		return MaxLimit, nil
	default:
		return requested, nil
	}
}

func (s *Service) minScore(requested *float64) (float64, error) {
	if requested == nil {
		return s.cfg.DefaultMinScore, nil
	}
	if *requested < 0 || *requested > 1 {
		return 0, fmt.Errorf("%w: min score must be within [0,1], got %v", ErrInvalidOptions, *requested)
	}
	return *requested, nil
}

func (s *Service) bySimilarity(ctx context.Context, sel Selector, opts Options, limit int, minScore float64) (*RankedResult, error) {
	var (
		vector    []float32
		queryText string
	)

	if sel.Query != "" {
		var err error
		vector, err = s.embedQuery(ctx, sel.Query)
		if err != nil {
			return nil, err
		}
		queryText = sel.Query
	} else {
		user, err := s.fetchUser(ctx, sel.UserID)
		if err != nil {
			return nil, err
		}
		if !user.HasEmbedding() {
			return nil, fmt.Errorf("%w: user %s has no profile embedding, update the profile first", ErrPreconditionFailed, user.ID)
		}
		if s.cfg.Dimension > 0 && len(user.Embedding) != s.cfg.Dimension {
			return nil, fmt.Errorf("%w: user %s profile embedding has dimension %d, expected %d",
				ErrPreconditionFailed, user.ID, len(user.Embedding), s.cfg.Dimension)
		}
		vector = user.Embedding
		queryText = embedtext.User(user)
	}

	hits, err := s.deps.Searcher.FindSimilar(ctx, storage.SimilarQuery{
		Vector:   vector,
		Filter:   opts.criteria(),
		MinScore: minScore,
		Limit:    s.cfg.MaxCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("find similar postings: %w: %w", ErrUpstreamUnavailable, err)
	}

	// The backend is trusted for neither ordering nor threshold.
	kept := hits[:0]
	similarity := make(map[string]float64, len(hits))
	for _, hit := range hits {
		if hit.Job == nil || hit.Similarity < minScore {
			continue
		}
		kept = append(kept, hit)
	}
	storage.SortScored(kept)

	candidates := make([]*jobs.Posting, 0, len(kept))
	for _, hit := range kept {
		if _, seen := similarity[hit.Job.ID]; seen {
			continue
		}
		similarity[hit.Job.ID] = hit.Similarity
		candidates = append(candidates, hit.Job)
	}

	filtered, err := s.filter(ctx, sel.UserID, opts, jobs.NewPostings(candidates...))
	if err != nil {
		return nil, err
	}

	result := &RankedResult{
		Strategy:  StrategySimilarity,
		Total:     filtered.Len(),
		QueryUsed: utils.TruncateRunes(queryText, queryDisplayLimit),
		Items:     make([]Item, 0, min(limit, filtered.Len())),
	}
	for _, posting := range filtered.Items {
		if len(result.Items) == limit {
			break
		}
		result.Items = append(result.Items, Item{Job: posting, Similarity: similarity[posting.ID]})
	}
	if result.Total == 0 {
		result.Message = MessageNoSimilar
	}
	return result, nil
}

func (s *Service) byRules(ctx context.Context, userID string, opts Options, limit int) (*RankedResult, error) {
	user, err := s.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &RankedResult{Strategy: StrategyRules, Items: []Item{}}

	profile := matching.NewProfile(user)
	if profile.Empty() {
		result.Message = MessageEmptyProfile
		return result, nil
	}

	pool, err := s.deps.Jobs.FetchRecentJobs(ctx, s.cfg.WindowDays, s.cfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("fetch recent postings: %w: %w", ErrUpstreamUnavailable, err)
	}

	filtered, err := s.filter(ctx, userID, opts, jobs.NewPostings(pool...))
	if err != nil {
		return nil, err
	}

	ranked, err := s.deps.Ranker.Rank(ctx, profile, filtered.Items)
	if err != nil {
		return nil, fmt.Errorf("rank postings: %w", err)
	}

	s.log.Debug("rule-based ranking finished",
		zap.Int("pool", len(pool)),
		zap.Int("candidates", filtered.Len()),
		zap.Int("matched", len(ranked)),
	)

	result.Total = len(ranked)
	for _, r := range ranked {
		if len(result.Items) == limit {
			break
		}
		result.Items = append(result.Items, Item{
			Job:        r.Job,
			Score:      r.Score,
			Percentage: r.Percentage,
			Reasons:    r.Reasons,
		})
	}
	if result.Total == 0 {
		result.Message = MessageNoRuleMatch
	}
	return result, nil
}

func (s *Service) filter(ctx context.Context, userID string, opts Options, candidates *jobs.Postings) (*jobs.Postings, error) {
	steps := s.deps.Filters()
	if opts.ShowDismissed {
		filtering.DisableByName(steps, "dismissed", "dismissed postings requested")
	}

	cfg := &filtering.Config{
		Criteria:         opts.criteria(),
		ExcludeCompanies: opts.ExcludeCompanies,
	}
	deps := filtering.Deps{
		Logger:    s.log,
		Dismissed: s.deps.Dismissed,
		UserID:    userID,
	}

	filtered, err := filtering.Run(ctx, cfg, deps, steps, candidates)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("filter candidates: %w: %w", ErrUpstreamUnavailable, err)
	}

	if ce := s.log.Check(zap.DebugLevel, "filters applied"); ce != nil {
		ce.Write(zap.Any("filters", filtering.Describe(steps)))
	}
	return filtered, nil
}

func (s *Service) fetchUser(ctx context.Context, id string) (*jobs.UserProfile, error) {
	user, err := s.deps.Users.FetchUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w: %w", ErrUpstreamUnavailable, err)
	}
	return user, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.deps.Embedder == nil {
		return nil, fmt.Errorf("embed query: %w: no embedding provider configured", ErrUpstreamUnavailable)
	}

	vector, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("embed query: %w: %w", ErrUpstreamUnavailable, err)
	}

	check, err := embedding.Validate(vector, s.cfg.Dimension)
	if err != nil {
		s.log.Error("embedding provider returned an unusable vector",
			zap.Error(err),
			zap.Int("dimension", len(vector)),
			zap.Int("expected_dimension", s.cfg.Dimension),
		)
		return nil, fmt.Errorf("validate query embedding: %w: %w", ErrUpstreamUnavailable, err)
	}
	if check.Drift {
		s.log.Warn("query embedding norm drifts from 1", zap.Float64("norm", check.Norm))
	}
	return vector, nil
}
