// Package posting defines the normalized job-posting record produced by the
// extraction pipeline.
package posting

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tags record which strategy produced a JobPosting.
const (
	SourceStructural = "direct-structural-extraction"
	SourcePrompt     = "prompt-based-extraction"
)

// JobPosting is the canonical output record. Every field is optional; empty
// strings and empty slices mean "not found".
type JobPosting struct {
	ID               string    `json:"id,omitempty"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	Location         string    `json:"location"`
	ContractType     string    `json:"contractType"`
	Skills           []string  `json:"skills"`
	Salary           string    `json:"salary"`
	Experience       string    `json:"experience"`
	Education        string    `json:"education"`
	Summary          string    `json:"summary"`
	Responsibilities []string  `json:"responsibilities"`
	Benefits         []string  `json:"benefits"`
	URL              string    `json:"url"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
	Source           string    `json:"source"`
	Model            string    `json:"model,omitempty"`
	Confidence       float64   `json:"confidence"`
}

// Normalize collapses whitespace in every scalar field and trims, drops empty
// entries from, and deduplicates every sequence field. Sequences are never nil
// after normalization so that they serialize as [] rather than null.
func (p *JobPosting) Normalize() {
	p.Title = CollapseSpaces(p.Title)
	p.Company = CollapseSpaces(p.Company)
	p.Location = CollapseSpaces(p.Location)
	p.ContractType = CollapseSpaces(p.ContractType)
	p.Salary = CollapseSpaces(p.Salary)
	p.Experience = CollapseSpaces(p.Experience)
	p.Education = CollapseSpaces(p.Education)
	p.Summary = CollapseSpaces(p.Summary)
	p.URL = strings.TrimSpace(p.URL)
	p.Skills = CleanList(p.Skills)
	p.Responsibilities = CleanList(p.Responsibilities)
	p.Benefits = CleanList(p.Benefits)
}

// IsTrivial reports whether nothing beyond the url was extracted.
func (p JobPosting) IsTrivial() bool {
	for _, s := range p.scalars() {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return len(p.Skills) == 0 && len(p.Responsibilities) == 0 && len(p.Benefits) == 0
}

// GoodEnough is the structural quality gate: both core list fields carry
// some evidence.
func (p JobPosting) GoodEnough() bool {
	return len(p.Skills) > 0 && len(p.Responsibilities) > 0
}

// Score returns the share of the eleven content fields that are filled. It is
// a diagnostic indicator only and never gates anything.
func (p JobPosting) Score() float64 {
	filled := 0
	for _, s := range p.scalars() {
		if strings.TrimSpace(s) != "" {
			filled++
		}
	}
	for _, l := range [][]string{p.Skills, p.Responsibilities, p.Benefits} {
		if len(l) > 0 {
			filled++
		}
	}
	return float64(filled) / 11.0
}

func (p JobPosting) scalars() []string {
	return []string{p.Title, p.Company, p.Location, p.ContractType, p.Salary, p.Experience, p.Education, p.Summary}
}

// CleanList trims and whitespace-normalizes entries, drops empty ones and
// removes exact duplicates while keeping first-seen order.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = CollapseSpaces(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// AppendUnique appends s to list unless it is already present.
func AppendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

// CollapseSpaces trims s and folds every whitespace run into a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var urlNamespace = uuid.NameSpaceURL

// Key returns a stable identifier for a posting URL, used by sinks that keep
// only the latest record per URL.
func Key(rawURL string) string {
	return uuid.NewSHA1(urlNamespace, []byte(strings.TrimSpace(rawURL))).String()
}
