// Package vocab provides the versioned lookup tables (skills, benefit
// keywords, city gazetteer, section titles, action verbs, contract types and
// label synonyms) used by the extractors. A default set is embedded; an
// external YAML file can extend or replace individual lists without a rebuild.
package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Sections maps each section kind to lowercase heading substrings.
type Sections struct {
	Responsibilities []string `yaml:"responsibilities"`
	Profile          []string `yaml:"profile"`
	Benefits         []string `yaml:"benefits"`
}

// Labels holds the ordered label synonyms tried per field.
type Labels struct {
	Title            []string `yaml:"title"`
	Company          []string `yaml:"company"`
	Location         []string `yaml:"location"`
	ContractType     []string `yaml:"contract_type"`
	Salary           []string `yaml:"salary"`
	Experience       []string `yaml:"experience"`
	Education        []string `yaml:"education"`
	Summary          []string `yaml:"summary"`
	Responsibilities []string `yaml:"responsibilities"`
	Benefits         []string `yaml:"benefits"`
}

// Vocabulary is read-only after construction and safe for concurrent use.
type Vocabulary struct {
	Version         string   `yaml:"version"`
	Skills          []string `yaml:"skills"`
	BenefitKeywords []string `yaml:"benefit_keywords"`
	BenefitTerms    []string `yaml:"benefit_terms"`
	ContractTypes   []string `yaml:"contract_types"`
	ActionVerbs     []string `yaml:"action_verbs"`
	Cities          []string `yaml:"cities"`
	Sections        Sections `yaml:"sections"`
	Labels          Labels   `yaml:"labels"`

	cityOnce sync.Once
	cityRe   *regexp.Regexp
	verbOnce sync.Once
	verbRe   *regexp.Regexp
}

var (
	defaultOnce sync.Once
	defaultVoc  *Vocabulary
)

// Default returns the embedded vocabulary. The returned value is shared.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		v, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("vocab: embedded default.yaml: %v", err))
		}
		defaultVoc = v
	})
	return defaultVoc
}

// Parse decodes a vocabulary document without applying defaults.
func Parse(b []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Load reads a vocabulary file. Lists absent from the file keep their
// default values. An empty path returns Default().
func Load(path string) (*Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	v, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}
	v.fillFrom(Default())
	return v, nil
}

func (v *Vocabulary) fillFrom(d *Vocabulary) {
	if v.Version == "" {
		v.Version = d.Version
	}
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = append([]string(nil), src...)
		}
	}
	fill(&v.Skills, d.Skills)
	fill(&v.BenefitKeywords, d.BenefitKeywords)
	fill(&v.BenefitTerms, d.BenefitTerms)
	fill(&v.ContractTypes, d.ContractTypes)
	fill(&v.ActionVerbs, d.ActionVerbs)
	fill(&v.Cities, d.Cities)
	fill(&v.Sections.Responsibilities, d.Sections.Responsibilities)
	fill(&v.Sections.Profile, d.Sections.Profile)
	fill(&v.Sections.Benefits, d.Sections.Benefits)
	fill(&v.Labels.Title, d.Labels.Title)
	fill(&v.Labels.Company, d.Labels.Company)
	fill(&v.Labels.Location, d.Labels.Location)
	fill(&v.Labels.ContractType, d.Labels.ContractType)
	fill(&v.Labels.Salary, d.Labels.Salary)
	fill(&v.Labels.Experience, d.Labels.Experience)
	fill(&v.Labels.Education, d.Labels.Education)
	fill(&v.Labels.Summary, d.Labels.Summary)
	fill(&v.Labels.Responsibilities, d.Labels.Responsibilities)
	fill(&v.Labels.Benefits, d.Labels.Benefits)
}

// CityPattern matches any gazetteer entry, case-insensitively, optionally
// followed by a two digit department code. The first submatch is the city
// with its code.
func (v *Vocabulary) CityPattern() *regexp.Regexp {
	v.cityOnce.Do(func() {
		v.cityRe = regexp.MustCompile(`(?i)\b(` + Alternation(v.Cities) + `\b(?:\s+\d{2}\b)?)`)
	})
	return v.cityRe
}

// ActionVerbPattern matches a clause led by one of the action verbs, up to
// the next period, semicolon or newline. The first submatch is the clause.
func (v *Vocabulary) ActionVerbPattern() *regexp.Regexp {
	v.verbOnce.Do(func() {
		v.verbRe = regexp.MustCompile(`(?i)\b(` + Alternation(v.ActionVerbs) + `[^.\n;]*)`)
	})
	return v.verbRe
}

// Alternation quotes every term and joins them into a non-capturing group.
// Longer terms come first so that "API Platform" wins over "API". An empty
// list yields a group that never matches.
func Alternation(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return `(?:[^\s\S])`
	}
	sortByLenDesc(quoted)
	return "(?:" + strings.Join(quoted, "|") + ")"
}

func sortByLenDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len(s[j]) > len(s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// SectionKind classifies a heading. A heading can belong to several kinds.
func (v *Vocabulary) SectionKind(heading string) (responsibilities, profile, benefits bool) {
	h := strings.ToLower(heading)
	return containsAny(h, v.Sections.Responsibilities),
		containsAny(h, v.Sections.Profile),
		containsAny(h, v.Sections.Benefits)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
