package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Posting is a normalized job listing.
type Posting struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Company         string    `json:"company,omitempty"`
	Location        string    `json:"location,omitempty"`
	Description     string    `json:"description"`
	Skills          []string  `json:"skills,omitempty"`
	SalaryMin       *int      `json:"salary_min,omitempty"`
	SalaryMax       *int      `json:"salary_max,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	ExperienceLevel string    `json:"experience_level,omitempty"`
	Remote          bool      `json:"remote"`
	URL             string    `json:"url,omitempty"`
	Source          string    `json:"source,omitempty"`
	PostedAt        time.Time `json:"posted_at"`
	Embedding       []float32 `json:"-"`
}

// HasEmbedding reports whether the posting carries a vector.
func (p *Posting) HasEmbedding() bool {
	return p != nil && len(p.Embedding) > 0
}

// AgeDays returns whole days elapsed since the posting was published.
// Postings from the future are zero days old.
func (p *Posting) AgeDays(now time.Time) int {
	if p.PostedAt.IsZero() || !now.After(p.PostedAt) {
		return 0
	}
	return int(now.Sub(p.PostedAt) / (24 * time.Hour))
}

// Postings is an ordered collection of postings.
type Postings struct {
	Items []*Posting
}

// NewPostings wraps the provided items.
func NewPostings(items ...*Posting) *Postings {
	return &Postings{Items: items}
}

func (p *Postings) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Postings) FindByID(id string) *Posting {
	for _, posting := range p.Items {
		if posting.ID == id {
			return posting
		}
	}
	return nil
}

// IDs returns posting ids in collection order.
func (p *Postings) IDs() []string {
	ids := make([]string, 0, p.Len())
	for _, posting := range p.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

// Keep retains the postings for which keep returns true and returns the ids
// of the removed ones. Order of the remaining postings is preserved.
func (p *Postings) Keep(keep func(*Posting) bool) []string {
	var removed []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if keep(posting) {
			kept = append(kept, posting)
			continue
		}
		removed = append(removed, posting.ID)
	}
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return removed
}

// Exclude removes postings whose id is in ids.
func (p *Postings) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return p.Keep(func(posting *Posting) bool {
		_, found := set[posting.ID]
		return !found
	})
}

// MissingEmbeddings returns the postings without a vector.
func (p *Postings) MissingEmbeddings() []*Posting {
	var missing []*Posting
	for _, posting := range p.Items {
		if !posting.HasEmbedding() {
			missing = append(missing, posting)
		}
	}
	return missing
}

// ReportByCompany groups postings by company for display.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Company
		if key == "" {
			key = "unknown company"
		}
		report[key] = append(report[key], map[string]string{
			"id":       posting.ID,
			"title":    posting.Title,
			"location": posting.Location,
			"job_type": posting.JobType,
			"salary":   formatSalary(posting.SalaryMin, posting.SalaryMax),
			"url":      posting.URL,
		})
	}
	return report
}

// DumpToTmpFile writes the collection as indented JSON to a temp file.
func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func formatSalary(lower, upper *int) string {
	switch {
	case lower != nil && upper != nil:
		return fmt.Sprintf("%d-%d", *lower, *upper)
	case lower != nil:
		return fmt.Sprintf("from %d", *lower)
	case upper != nil:
		return fmt.Sprintf("up to %d", *upper)
	default:
		return ""
	}
}
