package storage

import (
	"testing"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
)

func TestFilterMatch(t *testing.T) {
	posting := &jobs.Posting{JobType: "full-time", Location: "Berlin, Germany", Remote: false}

	tests := []struct {
		name   string
		filter Filter
		expect bool
	}{
		{name: "empty filter", filter: Filter{}, expect: true},
		{name: "job type exact", filter: Filter{JobType: "full-time"}, expect: true},
		{name: "job type is case sensitive", filter: Filter{JobType: "Full-Time"}, expect: false},
		{name: "location substring", filter: Filter{Location: "berlin"}, expect: true},
		{name: "location miss", filter: Filter{Location: "paris"}, expect: false},
		{name: "remote only", filter: Filter{RemoteOnly: true}, expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(posting); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}

	if (Filter{}).Match(nil) {
		t.Fatalf("nil posting must never match")
	}
	if !(Filter{Location: "  "}).IsZero() {
		t.Fatalf("blank location should be a zero filter")
	}
}

func TestSortScoredIsStable(t *testing.T) {
	hits := []ScoredJob{
		{Job: &jobs.Posting{ID: "a"}, Similarity: 0.6},
		{Job: &jobs.Posting{ID: "b"}, Similarity: 0.9},
		{Job: &jobs.Posting{ID: "c"}, Similarity: 0.6},
	}
	SortScored(hits)

	got := []string{hits[0].Job.ID, hits[1].Job.ID, hits[2].Job.ID}
	if got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
}
