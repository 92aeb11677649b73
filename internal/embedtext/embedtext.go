// Package embedtext builds the canonical text representations of postings
// and user profiles that are fed to the embedding provider. The same builder
// must be used for every vector in a corpus so that similarities stay
// comparable.
package embedtext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/utils"
)

const (
	// DescriptionLimit is the number of description characters kept for a posting.
	DescriptionLimit = 500
	// ResumeLimit is the number of resume characters kept for a profile.
	ResumeLimit = 1000
)

// ErrEmptyText is returned when an entity has no content to embed.
var ErrEmptyText = errors.New("nothing to embed")

// Job returns the embedding text for a posting. The title is repeated to
// weight it above the other fields.
func Job(p *jobs.Posting) string {
	if p == nil {
		return ""
	}

	var parts []string
	parts = appendNonEmpty(parts, p.Title, p.Title)
	parts = appendLabeled(parts, "Company", p.Company)
	parts = appendLabeled(parts, "Location", p.Location)
	parts = appendNonEmpty(parts, utils.TruncateRunes(strings.TrimSpace(p.Description), DescriptionLimit))
	parts = appendLabeled(parts, "Required skills", joinList(p.Skills))
	parts = appendLabeled(parts, "Job type", p.JobType)
	parts = appendLabeled(parts, "Experience", p.ExperienceLevel)
	if p.Remote {
		parts = append(parts, "Remote work available")
	}

	return strings.Join(parts, " ")
}

// User returns the embedding text for a profile.
func User(u *jobs.UserProfile) string {
	if u == nil {
		return ""
	}

	var parts []string
	parts = appendLabeled(parts, "Skills", joinList(u.Skills))
	if u.ExperienceYears != nil && *u.ExperienceYears > 0 {
		parts = append(parts, fmt.Sprintf("Experience: %d years", *u.ExperienceYears))
	}
	parts = appendLabeled(parts, "Looking for", u.PreferredJobType)
	parts = appendLabeled(parts, "Preferred locations", joinList(u.PreferredLocations))
	parts = appendNonEmpty(parts, utils.TruncateRunes(strings.TrimSpace(u.ResumeText), ResumeLimit))

	return strings.Join(parts, " ")
}

// ForJob is Job with ErrEmptyText for postings that produce no text.
func ForJob(p *jobs.Posting) (string, error) {
	return nonEmpty(Job(p))
}

// ForUser is User with ErrEmptyText for profiles that produce no text.
func ForUser(u *jobs.UserProfile) (string, error) {
	return nonEmpty(User(u))
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func appendLabeled(parts []string, label, value string) []string {
	if value = strings.TrimSpace(value); value == "" {
		return parts
	}
	return append(parts, label+": "+value)
}

func appendNonEmpty(parts []string, values ...string) []string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, value)
		}
	}
	return parts
}

func joinList(values []string) string {
	return strings.Join(jobs.CleanList(values), ", ")
}
