package embedtext

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

func TestJobText(t *testing.T) {
	tests := []struct {
		name    string
		posting *jobs.Posting
		expect  string
	}{
		{
			name: "all fields",
			posting: &jobs.Posting{
				Title:           "Go Developer",
				Company:         "Acme",
				Location:        "Berlin",
				Description:     "Build services",
				Skills:          []string{"go", "sql"},
				JobType:         "full-time",
				ExperienceLevel: "senior",
				Remote:          true,
			},
			expect: "Go Developer Go Developer Company: Acme Location: Berlin Build services " +
				"Required skills: go, sql Job type: full-time Experience: senior Remote work available",
		},
		{
			name:    "absent fields are skipped",
			posting: &jobs.Posting{Title: "Analyst", Description: "Numbers"},
			expect:  "Analyst Analyst Numbers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Job(tt.posting); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestJobTextTruncatesDescriptionByCharacter(t *testing.T) {
	description := strings.Repeat("é", DescriptionLimit+50)
	got := Job(&jobs.Posting{Description: description})

	if utf8.RuneCountInString(got) != DescriptionLimit {
		t.Fatalf("expected %d characters, got %d", DescriptionLimit, utf8.RuneCountInString(got))
	}
}

func TestUserText(t *testing.T) {
	years := 3
	zero := 0

	tests := []struct {
		name   string
		user   *jobs.UserProfile
		expect string
	}{
		{
			name: "all fields",
			user: &jobs.UserProfile{
				Skills:             []string{"Python", "SQL"},
				ExperienceYears:    &years,
				PreferredJobType:   "remote",
				PreferredLocations: []string{"Berlin", "Remote"},
				ResumeText:         "Data engineer",
			},
			expect: "Skills: Python, SQL Experience: 3 years Looking for: remote Preferred locations: Berlin, Remote Data engineer",
		},
		{
			name:   "zero experience is omitted",
			user:   &jobs.UserProfile{Skills: []string{"go"}, ExperienceYears: &zero},
			expect: "Skills: go",
		},
		{
			name:   "empty profile",
			user:   &jobs.UserProfile{Skills: []string{" "}},
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := User(tt.user); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestUserTextTruncatesResume(t *testing.T) {
	got := User(&jobs.UserProfile{ResumeText: strings.Repeat("a", ResumeLimit*2)})
	if len(got) != ResumeLimit {
		t.Fatalf("expected %d characters, got %d", ResumeLimit, len(got))
	}
}

func TestEmptyTextIsRejected(t *testing.T) {
	if _, err := ForUser(&jobs.UserProfile{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := ForJob(nil); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText for nil posting, got %v", err)
	}
	if text, err := ForJob(&jobs.Posting{Title: "Go"}); err != nil || text != "Go Go" {
		t.Fatalf("unexpected result %q (%v)", text, err)
	}
}
