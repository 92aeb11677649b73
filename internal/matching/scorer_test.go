package matching

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// staleJob returns a posting old enough to earn no recency points.
func staleJob(id string) *jobs.Posting {
	return &jobs.Posting{ID: id, Title: "Role", Description: "Work", PostedAt: daysAgo(30)}
}

func TestScoreNoSignal(t *testing.T) {
	result := Score(Profile{}, staleJob("1"), now)
	if result.Score != 0 {
		t.Fatalf("expected zero score, got %d", result.Score)
	}
	if result.Included() {
		t.Fatalf("zero score must not be included")
	}
	if len(result.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", result.Reasons)
	}
}

func TestScoreSkillIntersection(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"Go", "SQL", "Docker", "Kafka"}})

	for k := 0; k <= 4; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			job := staleJob("1")
			job.Skills = append([]string{"Rust"}, []string{"go", "sql", "DOCKER", "kafka"}[:k]...)

			result := Score(user, job, now)
			if result.Score != SkillMatchPoints*k {
				t.Fatalf("expected %d, got %d", SkillMatchPoints*k, result.Score)
			}
		})
	}
}

func TestScoreSkillReasonListsThree(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"a1", "b2", "c3", "d4"}})
	job := staleJob("1")
	job.Skills = []string{"d4", "c3", "b2", "a1", "d4"}

	result := Score(user, job, now)
	if result.Score != 4*SkillMatchPoints {
		t.Fatalf("duplicate declared skills must count once, got %d", result.Score)
	}
	if want := []string{"Skills match: d4, c3, b2"}; !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("expected %v, got %v", want, result.Reasons)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score  int
		expect int
	}{
		{score: 150, expect: 100},
		{score: 75, expect: 50},
		{score: 10, expect: 6},
		{score: 58, expect: 38},
		{score: 300, expect: 100},
		{score: 0, expect: 0},
	}

	for _, tt := range tests {
		if got := Percentage(tt.score); got != tt.expect {
			t.Fatalf("score %d: expected %d, got %d", tt.score, tt.expect, got)
		}
	}
}

func TestScoreRecency(t *testing.T) {
	tests := []struct {
		days       int
		points     int
		withReason bool
	}{
		{days: 0, points: FreshPostingPoints, withReason: true},
		{days: 7, points: FreshPostingPoints, withReason: true},
		{days: 8, points: RecentPostingPoints, withReason: false},
		{days: 14, points: RecentPostingPoints, withReason: false},
		{days: 15, points: 0, withReason: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			job := staleJob("1")
			job.PostedAt = daysAgo(tt.days)

			result := Score(Profile{}, job, now)
			if result.Score != tt.points {
				t.Fatalf("expected %d points, got %d", tt.points, result.Score)
			}
			if got := len(result.Reasons) == 1; got != tt.withReason {
				t.Fatalf("expected reason=%v, got %v", tt.withReason, result.Reasons)
			}
		})
	}
}

func TestScoreWorkedScenario(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"python", "sql"}})
	job := &jobs.Posting{
		ID:          "job",
		Title:       "Python Engineer",
		Description: "Build backend services",
		Skills:      []string{"python", "django"},
		Remote:      true,
		PostedAt:    daysAgo(2),
	}

	result := Score(user, job, now)
	if result.Score != 58 {
		t.Fatalf("expected 58, got %d (%v)", result.Score, result.Reasons)
	}
	if result.Percentage != 38 {
		t.Fatalf("expected 38%%, got %d", result.Percentage)
	}

	want := []string{
		"Skills match: python",
		"Title mentions: python",
		"Posted 2 days ago",
		"Remote position",
	}
	if !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("expected reasons %v, got %v", want, result.Reasons)
	}
}

func TestScoreDescriptionMentions(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"go", "redis", "kafka", "grpc"}})
	job := staleJob("1")
	job.Title = "Backend Developer"
	job.Description = "We use Redis, Kafka and gRPC heavily"
	job.Skills = []string{"go"}

	result := Score(user, job, now)
	if want := SkillMatchPoints + 3*DescriptionSkillPoints; result.Score != want {
		t.Fatalf("expected %d, got %d", want, result.Score)
	}
	if want := "Description mentions: redis, kafka"; result.Reasons[1] != want {
		t.Fatalf("expected %q, got %q", want, result.Reasons[1])
	}
}

func TestScoreDescriptionSkippedAfterTwoReasons(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"go", "sql"}})
	job := staleJob("1")
	job.Title = "Go Engineer"
	job.Skills = []string{"go"}
	job.Description = "Plenty of SQL"

	result := Score(user, job, now)
	if want := SkillMatchPoints + TitleSkillPoints; result.Score != want {
		t.Fatalf("expected %d, got %d (%v)", want, result.Score, result.Reasons)
	}
}

func TestScorePreferences(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{
		PreferredTitles:    []string{"data engineer", "Engineer"},
		PreferredLocations: []string{"berlin", "munich"},
		ExperienceLevel:    "Senior",
	})
	job := staleJob("1")
	job.Title = "Senior Data Engineer"
	job.Location = "Berlin, Germany"
	job.ExperienceLevel = "senior level"

	result := Score(user, job, now)
	if want := PreferredTitlePoints + PreferredLocationPoints + ExperiencePoints; result.Score != want {
		t.Fatalf("expected %d, got %d", want, result.Score)
	}

	want := []string{
		"Matches preferred title: data engineer",
		"Preferred location: Berlin, Germany",
		"Experience level: senior level",
	}
	if !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("expected %v, got %v", want, result.Reasons)
	}
}

func TestScoreExperienceRequiresBothLevels(t *testing.T) {
	job := staleJob("1")
	job.ExperienceLevel = "mid"

	if got := Score(Profile{}, job, now).Score; got != 0 {
		t.Fatalf("empty user level must not match, got %d", got)
	}

	user := NewProfile(&jobs.UserProfile{ExperienceLevel: "mid-senior"})
	if got := Score(user, job, now).Score; got != ExperiencePoints {
		t.Fatalf("expected reverse substring match, got %d", got)
	}
}

func TestScoreReasonsCappedInRuleOrder(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{
		Skills:             []string{"go"},
		PreferredTitles:    []string{"go developer"},
		PreferredLocations: []string{"remote"},
		ExperienceLevel:    "senior",
	})
	job := &jobs.Posting{
		ID:              "1",
		Title:           "Senior Go Developer",
		Description:     "Go",
		Location:        "Remote",
		Skills:          []string{"Go"},
		ExperienceLevel: "Senior",
		Remote:          true,
		PostedAt:        daysAgo(1),
	}

	result := Score(user, job, now)
	if want := 25 + 15 + 30 + 20 + 15 + 10 + 8; result.Score != want {
		t.Fatalf("expected %d, got %d", want, result.Score)
	}
	if result.Percentage != 82 {
		t.Fatalf("expected 82%%, got %d", result.Percentage)
	}

	want := []string{
		"Skills match: go",
		"Title mentions: go",
		"Matches preferred title: go developer",
		"Preferred location: Remote",
	}
	if !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("expected %v, got %v", want, result.Reasons)
	}
}

func TestNewProfileNormalizes(t *testing.T) {
	profile := NewProfile(&jobs.UserProfile{Skills: []string{" Go ", "go", "", "SQL"}})
	if want := []string{"go", "sql"}; !reflect.DeepEqual(profile.Skills, want) {
		t.Fatalf("expected %v, got %v", want, profile.Skills)
	}
	if !NewProfile(&jobs.UserProfile{Skills: []string{"  "}}).Empty() {
		t.Fatalf("blank profile must be empty")
	}
}

func TestRankFiltersAndOrders(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"go"}})

	older := &jobs.Posting{ID: "b", Title: "Go Dev", Skills: []string{"go"}, PostedAt: daysAgo(20)}
	newer := &jobs.Posting{ID: "c", Title: "Go Dev", Skills: []string{"go"}, PostedAt: daysAgo(16)}
	sameAge := &jobs.Posting{ID: "a", Title: "Go Dev", Skills: []string{"go"}, PostedAt: daysAgo(16)}
	best := &jobs.Posting{ID: "z", Title: "Go Dev", Skills: []string{"go"}, Remote: true, PostedAt: daysAgo(30)}
	weak := &jobs.Posting{ID: "w", Title: "Accountant", PostedAt: daysAgo(9)}

	pool := []*jobs.Posting{older, weak, newer, best, sameAge}

	for _, workers := range []int{1, 3} {
		ranker := NewRanker(workers, func() time.Time { return now })
		results, err := ranker.Rank(context.Background(), user, pool)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ids := make([]string, 0, len(results))
		for _, result := range results {
			ids = append(ids, result.Job.ID)
		}
		if want := []string{"z", "a", "c", "b"}; !reflect.DeepEqual(ids, want) {
			t.Fatalf("workers=%d: expected %v, got %v", workers, want, ids)
		}
	}
}

func TestRankLargePoolMatchesSequential(t *testing.T) {
	user := NewProfile(&jobs.UserProfile{Skills: []string{"go", "sql"}, PreferredLocations: []string{"berlin"}})

	pool := make([]*jobs.Posting, 0, 300)
	for i := 0; i < 300; i++ {
		job := &jobs.Posting{
			ID:       fmt.Sprintf("job-%03d", i),
			Title:    "Engineer",
			PostedAt: daysAgo(i % 20),
		}
		if i%2 == 0 {
			job.Skills = []string{"go"}
		}
		if i%3 == 0 {
			job.Location = "Berlin"
		}
		pool = append(pool, job)
	}

	parallel, err := NewRanker(8, func() time.Time { return now }).Rank(context.Background(), user, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sequential, err := NewRanker(1, func() time.Time { return now }).Rank(context.Background(), user, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(parallel, sequential) {
		t.Fatalf("parallel and sequential rankings differ")
	}
	for _, result := range parallel {
		if result.Score < MinScore {
			t.Fatalf("result below threshold: %+v", result)
		}
	}
}

func TestRankCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRanker(2, nil).Rank(ctx, Profile{}, []*jobs.Posting{staleJob("1")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
