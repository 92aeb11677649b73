package jobs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrEmptyDescription is returned for postings without a description.
	ErrEmptyDescription = errors.New("posting description is empty")
	// ErrEmptyTitle is returned for postings without a title.
	ErrEmptyTitle = errors.New("posting title is empty")
	// ErrNegativeExperience is returned when experience years is below zero.
	ErrNegativeExperience = errors.New("experience years must not be negative")
)

type rawPosting struct {
	ID              string    `mapstructure:"id"`
	Title           string    `mapstructure:"title"`
	Company         string    `mapstructure:"company"`
	Location        string    `mapstructure:"location"`
	Description     string    `mapstructure:"description"`
	Skills          []string  `mapstructure:"skills"`
	SalaryMin       *int      `mapstructure:"salary_min"`
	SalaryMax       *int      `mapstructure:"salary_max"`
	JobType         string    `mapstructure:"job_type"`
	ExperienceLevel string    `mapstructure:"experience_level"`
	Remote          bool      `mapstructure:"remote"`
	URL             string    `mapstructure:"url"`
	Source          string    `mapstructure:"source"`
	PostedAt        time.Time `mapstructure:"posted_at"`
	CreatedAt       time.Time `mapstructure:"created_at"`
	Embedding       []float32 `mapstructure:"embedding"`
}

type rawUser struct {
	ID                 string    `mapstructure:"id"`
	Name               string    `mapstructure:"name"`
	Email              string    `mapstructure:"email"`
	Skills             []string  `mapstructure:"skills"`
	PreferredTitles    []string  `mapstructure:"preferred_job_titles"`
	PreferredLocations []string  `mapstructure:"preferred_locations"`
	PreferredJobType   string    `mapstructure:"preferred_job_type"`
	ExperienceLevel    string    `mapstructure:"experience_level"`
	ExperienceYears    *int      `mapstructure:"experience_years"`
	ResumeText         string    `mapstructure:"resume_text"`
	Embedding          []float32 `mapstructure:"resume_embedding"`
}

// Decoder turns loosely typed external records into postings and profiles.
// Absent collections become empty and scalar types are coerced where it is
// unambiguous.
type Decoder struct {
	Now   func() time.Time
	NewID func() string
}

// NewDecoder returns a decoder using the wall clock and random UUIDs.
func NewDecoder() *Decoder {
	return &Decoder{Now: time.Now, NewID: uuid.NewString}
}

// Posting normalizes a single raw posting.
func (d *Decoder) Posting(record map[string]any) (*Posting, error) {
	var raw rawPosting
	if err := decode(record, &raw); err != nil {
		return nil, fmt.Errorf("decode posting: %w", err)
	}

	posting := &Posting{
		ID:              strings.TrimSpace(raw.ID),
		Title:           strings.TrimSpace(raw.Title),
		Company:         strings.TrimSpace(raw.Company),
		Location:        strings.TrimSpace(raw.Location),
		Description:     strings.TrimSpace(raw.Description),
		Skills:          CleanList(raw.Skills),
		SalaryMin:       raw.SalaryMin,
		SalaryMax:       raw.SalaryMax,
		JobType:         strings.TrimSpace(raw.JobType),
		ExperienceLevel: strings.TrimSpace(raw.ExperienceLevel),
		Remote:          raw.Remote,
		URL:             strings.TrimSpace(raw.URL),
		Source:          strings.TrimSpace(raw.Source),
		PostedAt:        raw.PostedAt,
		Embedding:       raw.Embedding,
	}

	if posting.Title == "" {
		return nil, ErrEmptyTitle
	}
	if posting.Description == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyDescription, posting.Title)
	}
	if posting.ID == "" {
		posting.ID = d.newID()
	}
	if posting.PostedAt.IsZero() {
		posting.PostedAt = raw.CreatedAt
	}
	if posting.PostedAt.IsZero() {
		posting.PostedAt = d.now()
	}
	posting.PostedAt = posting.PostedAt.UTC()

	return posting, nil
}

// Postings normalizes a batch; the first invalid record aborts the batch.
func (d *Decoder) Postings(records []map[string]any) (*Postings, error) {
	result := &Postings{Items: make([]*Posting, 0, len(records))}
	for idx, record := range records {
		posting, err := d.Posting(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		result.Items = append(result.Items, posting)
	}
	return result, nil
}

// User normalizes a raw user profile.
func (d *Decoder) User(record map[string]any) (*UserProfile, error) {
	var raw rawUser
	if err := decode(record, &raw); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}

	if raw.ExperienceYears != nil && *raw.ExperienceYears < 0 {
		return nil, ErrNegativeExperience
	}

	user := &UserProfile{
		ID:                 strings.TrimSpace(raw.ID),
		Name:               strings.TrimSpace(raw.Name),
		Email:              strings.TrimSpace(raw.Email),
		Skills:             CleanList(raw.Skills),
		PreferredTitles:    CleanList(raw.PreferredTitles),
		PreferredLocations: CleanList(raw.PreferredLocations),
		PreferredJobType:   strings.TrimSpace(raw.PreferredJobType),
		ExperienceLevel:    strings.TrimSpace(raw.ExperienceLevel),
		ExperienceYears:    raw.ExperienceYears,
		ResumeText:         strings.TrimSpace(raw.ResumeText),
		Embedding:          raw.Embedding,
	}
	if user.ID == "" {
		user.ID = d.newID()
	}
	return user, nil
}

// MergeUser returns a copy of current with the fields present in record
// replaced. Keys missing from record keep their current value. The id and
// the embedding are never taken from record.
func (d *Decoder) MergeUser(current *UserProfile, record map[string]any) (*UserProfile, error) {
	var raw rawUser
	if err := decode(record, &raw); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}

	merged := *current
	merged.Skills = slices.Clone(current.Skills)
	merged.PreferredTitles = slices.Clone(current.PreferredTitles)
	merged.PreferredLocations = slices.Clone(current.PreferredLocations)
	merged.Embedding = slices.Clone(current.Embedding)

	for key := range record {
		switch key {
		case "name":
			merged.Name = strings.TrimSpace(raw.Name)
		case "email":
			merged.Email = strings.TrimSpace(raw.Email)
		case "skills":
			merged.Skills = CleanList(raw.Skills)
		case "preferred_job_titles":
			merged.PreferredTitles = CleanList(raw.PreferredTitles)
		case "preferred_locations":
			merged.PreferredLocations = CleanList(raw.PreferredLocations)
		case "preferred_job_type":
			merged.PreferredJobType = strings.TrimSpace(raw.PreferredJobType)
		case "experience_level":
			merged.ExperienceLevel = strings.TrimSpace(raw.ExperienceLevel)
		case "experience_years":
			if raw.ExperienceYears != nil && *raw.ExperienceYears < 0 {
				return nil, ErrNegativeExperience
			}
			merged.ExperienceYears = raw.ExperienceYears
		case "resume_text":
			merged.ResumeText = strings.TrimSpace(raw.ResumeText)
		}
	}

	return &merged, nil
}

// CleanList trims entries and drops empty ones, keeping order and case.
func CleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}

func (d *Decoder) now() time.Time {
	if d == nil || d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Decoder) newID() string {
	if d == nil || d.NewID == nil {
		return uuid.NewString()
	}
	return d.NewID()
}

func decode(record map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(record)
}
