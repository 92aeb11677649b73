// Package matching implements the rule-based scorer that ranks postings
// against a user profile and explains each match.
//
// Point values are part of the observable behaviour: changing any of them
// changes rankings that callers may have persisted or displayed.
package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

const (
	SkillMatchPoints        = 25
	TitleSkillPoints        = 15
	DescriptionSkillPoints  = 5
	PreferredTitlePoints    = 30
	PreferredLocationPoints = 20
	ExperiencePoints        = 15
	FreshPostingPoints      = 10
	RecentPostingPoints     = 5
	RemotePoints            = 8

	// MinScore is the lowest score a posting needs to be returned at all.
	MinScore = 10
	// ScoreCeiling is the fixed denominator of the match percentage.
	ScoreCeiling = 150
	// MaxReasons caps the explanation list.
	MaxReasons = 4

	freshDays  = 7
	recentDays = 14

	skillReasonLimit       = 3
	titleReasonLimit       = 2
	descriptionReasonLimit = 2
	// descriptionReasonGate is the reason count at which description
	// mentions stop being considered.
	descriptionReasonGate = 2
)

// Profile is the normalized view of a user the scorer works on.
type Profile struct {
	Skills          []string
	Titles          []string
	Locations       []string
	ExperienceLevel string
}

// NewProfile lower-cases, trims and de-duplicates the user's preferences.
func NewProfile(u *jobs.UserProfile) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		Skills:          normalizeSet(u.Skills),
		Titles:          normalizeSet(u.PreferredTitles),
		Locations:       normalizeSet(u.PreferredLocations),
		ExperienceLevel: normalize(u.ExperienceLevel),
	}
}

// Empty reports whether the profile has nothing to match on.
func (p Profile) Empty() bool {
	return len(p.Skills) == 0 && len(p.Titles) == 0 && len(p.Locations) == 0
}

// Result is a scored posting.
type Result struct {
	Job        *jobs.Posting
	Score      int
	Percentage int
	Reasons    []string
}

// Included reports whether the result clears the inclusion threshold.
func (r Result) Included() bool {
	return r.Score >= MinScore
}

// Percentage converts a raw score into a 0-100 match percentage.
func Percentage(score int) int {
	if score <= 0 {
		return 0
	}
	pct := score * 100 / ScoreCeiling
	if pct > 100 {
		return 100
	}
	return pct
}

// Score evaluates one posting for the profile at the given instant.
func Score(p Profile, job *jobs.Posting, now time.Time) Result {
	result := Result{Job: job}
	if job == nil {
		return result
	}

	var reasons []string
	score := 0

	title := normalize(job.Title)
	description := normalize(job.Description)

	credited := make(map[string]struct{}, len(p.Skills))
	userSkills := make(map[string]struct{}, len(p.Skills))
	for _, skill := range p.Skills {
		userSkills[skill] = struct{}{}
	}

	// Declared skills, in the posting's order.
	var matched []string
	seen := make(map[string]struct{}, len(job.Skills))
	for _, skill := range job.Skills {
		skill = normalize(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		if _, ok := userSkills[skill]; ok {
			matched = append(matched, skill)
			credited[skill] = struct{}{}
		}
	}
	if len(matched) > 0 {
		score += SkillMatchPoints * len(matched)
		reasons = append(reasons, "Skills match: "+joinFirst(matched, skillReasonLimit))
	}

	// Skills named in the title earn their own bonus even when they were
	// already declared.
	var inTitle []string
	for _, skill := range p.Skills {
		if title != "" && strings.Contains(title, skill) {
			inTitle = append(inTitle, skill)
		}
	}
	if len(inTitle) > 0 {
		score += TitleSkillPoints * len(inTitle)
		reasons = append(reasons, "Title mentions: "+joinFirst(inTitle, titleReasonLimit))
		for _, skill := range inTitle {
			credited[skill] = struct{}{}
		}
	}

	if len(reasons) < descriptionReasonGate && description != "" {
		var inDescription []string
		for _, skill := range p.Skills {
			if _, done := credited[skill]; done {
				continue
			}
			if strings.Contains(description, skill) {
				inDescription = append(inDescription, skill)
			}
		}
		if len(inDescription) > 0 {
			score += DescriptionSkillPoints * len(inDescription)
			reasons = append(reasons, "Description mentions: "+joinFirst(inDescription, descriptionReasonLimit))
		}
	}

	if title != "" {
		for _, preferred := range p.Titles {
			if strings.Contains(title, preferred) {
				score += PreferredTitlePoints
				reasons = append(reasons, "Matches preferred title: "+preferred)
				break
			}
		}
	}

	if location := normalize(job.Location); location != "" {
		for _, preferred := range p.Locations {
			if strings.Contains(location, preferred) {
				score += PreferredLocationPoints
				reasons = append(reasons, "Preferred location: "+job.Location)
				break
			}
		}
	}

	if level := normalize(job.ExperienceLevel); level != "" && p.ExperienceLevel != "" {
		if strings.Contains(level, p.ExperienceLevel) || strings.Contains(p.ExperienceLevel, level) {
			score += ExperiencePoints
			reasons = append(reasons, "Experience level: "+job.ExperienceLevel)
		}
	}

	switch age := job.AgeDays(now); {
	case age <= freshDays:
		score += FreshPostingPoints
		reasons = append(reasons, fmt.Sprintf("Posted %s", ageLabel(age)))
	case age <= recentDays:
		score += RecentPostingPoints
	}

	if job.Remote {
		score += RemotePoints
		reasons = append(reasons, "Remote position")
	}

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}

	result.Score = score
	result.Percentage = Percentage(score)
	result.Reasons = reasons
	return result
}

func ageLabel(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func joinFirst(values []string, limit int) string {
	if len(values) > limit {
		values = values[:limit]
	}
	return strings.Join(values, ", ")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeSet(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = normalize(value)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
