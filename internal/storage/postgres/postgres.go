// Package postgres stores postings and profiles in PostgreSQL with the
// pgvector extension and answers similarity queries with the cosine
// distance operator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

const jobColumns = `id, title, COALESCE(company, ''), COALESCE(location, ''), description,
	COALESCE(skills, '{}'), salary_min, salary_max, COALESCE(job_type, ''),
	COALESCE(experience_level, ''), remote, COALESCE(url, ''), COALESCE(source, ''),
	created_at, embedding`

const userColumns = `id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(skills, '{}'),
	COALESCE(preferred_job_titles, '{}'), COALESCE(preferred_locations, '{}'),
	COALESCE(preferred_job_type, ''), COALESCE(experience_level, ''), experience_years,
	COALESCE(resume_text, ''), resume_embedding`

// Store implements storage.Store on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// NewPool creates and verifies a pgx pool with pgvector types registered
// on every connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// New wraps an existing pool. A nil clock uses the wall clock.
func New(pool *pgxpool.Pool, logger *zap.Logger, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger, now: now}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) SaveJob(ctx context.Context, p *jobs.Posting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, title, company, location, description, skills, salary_min, salary_max,
			job_type, experience_level, remote, url, source, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			skills = EXCLUDED.skills,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			job_type = EXCLUDED.job_type,
			experience_level = EXCLUDED.experience_level,
			remote = EXCLUDED.remote,
			url = EXCLUDED.url,
			source = EXCLUDED.source,
			embedding = COALESCE(EXCLUDED.embedding, jobs.embedding)`,
		p.ID, p.Title, nullable(p.Company), nullable(p.Location), p.Description, p.Skills,
		p.SalaryMin, p.SalaryMax, nullable(p.JobType), nullable(p.ExperienceLevel), p.Remote,
		nullable(p.URL), nullable(p.Source), p.PostedAt, vector(p.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*jobs.Posting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	p, err := scanPosting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) SetJobEmbedding(ctx context.Context, id string, vec []float32) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET embedding = $2 WHERE id = $1`, id, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("update job embedding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) JobsMissingEmbeddings(ctx context.Context, limit int) ([]*jobs.Posting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE embedding IS NULL ORDER BY created_at DESC LIMIT $1`,
		limitOrAll(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs missing embeddings: %w", err)
	}
	return collectPostings(rows)
}

func (s *Store) FetchRecentJobs(ctx context.Context, windowDays, maxCount int) ([]*jobs.Posting, error) {
	cutoff := s.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`,
		cutoff, limitOrAll(maxCount),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	return collectPostings(rows)
}

// FindSimilar ranks postings by cosine similarity (1 - cosine distance).
func (s *Store) FindSimilar(ctx context.Context, q storage.SimilarQuery) ([]storage.ScoredJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`, 1 - (embedding <=> $1) AS similarity
		FROM jobs
		WHERE embedding IS NOT NULL
			AND 1 - (embedding <=> $1) >= $2
			AND ($3::text = '' OR job_type = $3)
			AND ($4::text = '' OR location ILIKE $4 ESCAPE '\')
			AND (NOT $5::boolean OR remote)
		ORDER BY embedding <=> $1
		LIMIT $6`,
		pgvector.NewVector(q.Vector), q.MinScore, strings.TrimSpace(q.Filter.JobType), containsPattern(q.Filter.Location),
		q.Filter.RemoteOnly, limitOrAll(q.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var hits []storage.ScoredJob
	for rows.Next() {
		var similarity float64
		p, err := scanPosting(rows, &similarity)
		if err != nil {
			return nil, fmt.Errorf("scan similar job: %w", err)
		}
		hits = append(hits, storage.ScoredJob{Job: p, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar jobs: %w", err)
	}

	s.logger.Debug("similarity search finished", zap.Int("hits", len(hits)), zap.Float64("min_score", q.MinScore))
	return hits, nil
}

func (s *Store) SaveUser(ctx context.Context, u *jobs.UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, skills, preferred_job_titles, preferred_locations,
			preferred_job_type, experience_level, experience_years, resume_text, resume_embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			skills = EXCLUDED.skills,
			preferred_job_titles = EXCLUDED.preferred_job_titles,
			preferred_locations = EXCLUDED.preferred_locations,
			preferred_job_type = EXCLUDED.preferred_job_type,
			experience_level = EXCLUDED.experience_level,
			experience_years = EXCLUDED.experience_years,
			resume_text = EXCLUDED.resume_text,
			resume_embedding = COALESCE(EXCLUDED.resume_embedding, users.resume_embedding)`,
		u.ID, nullable(u.Name), nullable(u.Email), u.Skills, u.PreferredTitles, u.PreferredLocations,
		nullable(u.PreferredJobType), nullable(u.ExperienceLevel), u.ExperienceYears,
		nullable(u.ResumeText), vector(u.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) FetchUserByID(ctx context.Context, id string) (*jobs.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *Store) SetUserEmbedding(ctx context.Context, id string, vec []float32) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET resume_embedding = $2 WHERE id = $1`, id, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("update user embedding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UsersMissingEmbeddings(ctx context.Context, limit int) ([]*jobs.UserProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE resume_embedding IS NULL
			AND (cardinality(skills) > 0 OR COALESCE(resume_text, '') <> '' OR COALESCE(preferred_job_type, '') <> '')
		ORDER BY id
		LIMIT $1`,
		limitOrAll(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query users missing embeddings: %w", err)
	}
	defer rows.Close()

	var users []*jobs.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func collectPostings(rows pgx.Rows) ([]*jobs.Posting, error) {
	defer rows.Close()

	var postings []*jobs.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func scanPosting(row pgx.Row, extra ...any) (*jobs.Posting, error) {
	var (
		p   jobs.Posting
		vec *pgvector.Vector
	)
	dest := []any{
		&p.ID, &p.Title, &p.Company, &p.Location, &p.Description,
		&p.Skills, &p.SalaryMin, &p.SalaryMax, &p.JobType,
		&p.ExperienceLevel, &p.Remote, &p.URL, &p.Source,
		&p.PostedAt, &vec,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if vec != nil {
		p.Embedding = vec.Slice()
	}
	p.PostedAt = p.PostedAt.UTC()
	return &p, nil
}

func scanUser(row pgx.Row) (*jobs.UserProfile, error) {
	var (
		u   jobs.UserProfile
		vec *pgvector.Vector
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Skills,
		&u.PreferredTitles, &u.PreferredLocations,
		&u.PreferredJobType, &u.ExperienceLevel, &u.ExperienceYears,
		&u.ResumeText, &vec,
	)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		u.Embedding = vec.Slice()
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func vector(vec []float32) *pgvector.Vector {
	if len(vec) == 0 {
		return nil
	}
	v := pgvector.NewVector(vec)
	return &v
}

// limitOrAll maps non-positive limits to NULL, which LIMIT treats as
// unbounded.
// containsPattern turns s into an ILIKE pattern matching it as a literal
// substring. Empty input stays empty.
func containsPattern(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
