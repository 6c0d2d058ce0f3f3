// Package textpattern recovers job-posting fields from free text using
// label, section and keyword rules. It is used on model output that is not
// valid JSON and shares its responsibility splitters with the structural
// extractor.
package textpattern

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

var listSplit = regexp.MustCompile(`\n\s*[-•*]\s*|,|\s+(?:and|et)\s+`)

// Extract fills a JobPosting from text. Fields not found stay empty. The
// result is normalized; url, source and timestamps are left to the caller.
func Extract(text string, v *vocab.Vocabulary) posting.JobPosting {
	if v == nil {
		v = vocab.Default()
	}
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	var p posting.JobPosting

	if looksLikeJSON(text) {
		p.Title = quotedField(text, "title")
		p.Company = quotedField(text, "company")
		p.Location = quotedField(text, "location")
		p.ContractType = quotedField(text, "contractType")
		p.Salary = quotedField(text, "salary")
		p.Experience = quotedField(text, "experience")
		p.Education = quotedField(text, "education")
		p.Summary = quotedField(text, "summary")
		p.Skills = quotedArray(text, "skills")
		p.Responsibilities = quotedArray(text, "responsibilities")
		p.Benefits = quotedArray(text, "benefits")
	}

	fill := func(dst *string, labels []string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = labelValue(text, labels)
		}
	}
	fill(&p.Title, v.Labels.Title)
	fill(&p.Company, v.Labels.Company)
	fill(&p.Location, v.Labels.Location)
	fill(&p.ContractType, v.Labels.ContractType)
	fill(&p.Salary, v.Labels.Salary)
	fill(&p.Experience, v.Labels.Experience)
	fill(&p.Education, v.Labels.Education)
	fill(&p.Summary, v.Labels.Summary)
	p.Title = CleanTitle(p.Title)
	p.ContractType = canonicalContract(p.ContractType, v.ContractTypes)

	if len(p.Responsibilities) == 0 {
		p.Responsibilities = responsibilities(text, v)
	}
	if len(p.Skills) == 0 {
		p.Skills = ScanSkills(text, v)
	}
	if len(p.Benefits) == 0 {
		p.Benefits = benefits(text, v)
	}
	p.Normalize()
	return p
}

// labelValue tries each label synonym in order and returns the first value.
func labelValue(text string, labels []string) string {
	for _, l := range labels {
		for _, re := range labelPatterns(l) {
			if m := re.FindStringSubmatch(text); m != nil {
				if v := cleanValue(m[1]); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

var (
	labelMu    sync.Mutex
	labelCache = map[string][]*regexp.Regexp{}
)

// labelPatterns returns two forms for a label: at line start the colon is
// optional, mid-line it is required.
func labelPatterns(label string) []*regexp.Regexp {
	labelMu.Lock()
	defer labelMu.Unlock()
	if res, ok := labelCache[label]; ok {
		return res
	}
	q := regexp.QuoteMeta(label)
	res := []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t>*_#-]*` + q + `[*_]*(?:[ \t]*:|[ \t]+)[*_]*[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + q + `[*_]*[ \t]*:[*_]*[ \t]*([^\n]+)`),
	}
	labelCache[label] = res
	return res
}

func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ",")
	s = strings.Trim(s, "*_\"'` ")
	return strings.TrimSpace(s)
}

// canonicalContract maps a free-text contract value to the first vocabulary
// type it mentions, or keeps it as-is.
func canonicalContract(s string, types []string) string {
	for _, t := range types {
		if t != "" && indexToken(s, t) >= 0 {
			return t
		}
	}
	return s
}

// responsibilities reads a labeled section first. Without one, clauses led by
// action verbs anywhere in the text are used when there are at least two.
func responsibilities(text string, v *vocab.Vocabulary) []string {
	for _, l := range v.Labels.Responsibilities {
		if block, ok := section(text, l); ok {
			return SplitResponsibilities(block, v)
		}
	}
	if items := ActionVerbs(v)(text); len(items) >= minItems {
		return items
	}
	return nil
}

func benefits(text string, v *vocab.Vocabulary) []string {
	if hits := BenefitWindows(text, v.BenefitTerms); len(hits) > 0 {
		return hits
	}
	for _, l := range v.Labels.Benefits {
		if block, ok := section(text, l); ok {
			return listSplit.Split(block, -1)
		}
	}
	return nil
}

var (
	sectionMu    sync.Mutex
	sectionCache = map[string]*regexp2.Regexp{}
)

// section captures the text after a label up to the next line that starts
// with a capital letter, or the end of the text.
func section(text, label string) (string, bool) {
	re := sectionPattern(label)
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	block := strings.TrimSpace(m.GroupByNumber(1).String())
	return block, block != ""
}

func sectionPattern(label string) *regexp2.Regexp {
	sectionMu.Lock()
	defer sectionMu.Unlock()
	if re, ok := sectionCache[label]; ok {
		return re
	}
	q := regexp2.Escape(label)
	re := regexp2.MustCompile(
		`(?:^[ \t>*_#-]*(?i:`+q+`)[*_]*[ \t]*:?|(?i:`+q+`)[*_]*[ \t]*:)[*_]*[ \t]*([\s\S]*?)(?=\n\s*[A-ZÀ-ÖØ-Þ]|\z)`,
		regexp2.Multiline)
	re.MatchTimeout = time.Second
	sectionCache[label] = re
	return re
}
