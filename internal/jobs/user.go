package jobs

import (
	"slices"
	"strings"
)

// UserProfile holds the matching-relevant view of a registered user.
type UserProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name,omitempty"`
	Email              string    `json:"email,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
	PreferredTitles    []string  `json:"preferred_job_titles,omitempty"`
	PreferredLocations []string  `json:"preferred_locations,omitempty"`
	PreferredJobType   string    `json:"preferred_job_type,omitempty"`
	ExperienceLevel    string    `json:"experience_level,omitempty"`
	ExperienceYears    *int      `json:"experience_years,omitempty"`
	ResumeText         string    `json:"resume_text,omitempty"`
	Embedding          []float32 `json:"-"`
}

// HasEmbedding reports whether the profile carries a vector.
func (u *UserProfile) HasEmbedding() bool {
	return u != nil && len(u.Embedding) > 0
}

// HasRuleSignal reports whether the profile has anything the rule scorer can
// match on.
func (u *UserProfile) HasRuleSignal() bool {
	return hasValue(u.Skills) || hasValue(u.PreferredTitles) || hasValue(u.PreferredLocations)
}

// NeedsInitialEmbedding reports whether a freshly registered profile has
// enough content to be embedded.
func (u *UserProfile) NeedsInitialEmbedding() bool {
	return hasValue(u.Skills) || strings.TrimSpace(u.ResumeText) != "" || strings.TrimSpace(u.PreferredJobType) != ""
}

// EmbeddingInputsChanged reports whether any field feeding the profile
// embedding differs between u and next.
func (u *UserProfile) EmbeddingInputsChanged(next *UserProfile) bool {
	if u == nil || next == nil {
		return u != next
	}
	return !slices.Equal(u.Skills, next.Skills) ||
		!slices.Equal(u.PreferredLocations, next.PreferredLocations) ||
		u.ResumeText != next.ResumeText ||
		u.PreferredJobType != next.PreferredJobType
}

func hasValue(values []string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
