package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/textpattern"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

var (
	experienceRe = regexp.MustCompile(`(?i)exp[ée]rience.{1,20}?(?:\d+\s*(?:années|ans|an|mois)|senior|confirmé)`)
	educationRe  = regexp.MustCompile(`(?i)\b(?:bac\s*\+\s*\d|master|licence|diplôm[ée])`)
	// salaryRe needs a currency marker and keeps both ends of a range.
	salaryRe = regexp.MustCompile(`(?i)` + amount + `(?:\s*(?:k?€|euros?|eur)?\s*(?:-|–|à|a|to)\s*` + amount + `)?\s*(?:k?€|euros?\b|eur\b)`)

	titleSeparator  = regexp.MustCompile(`\s[-–—|]\s`)
	recruiterPrefix = regexp.MustCompile(`(?i)recrutement(?:\s+par)?`)
	firstSentence   = regexp.MustCompile(`\.\s+`)
	benefitLines    = regexp.MustCompile(`\n|\.`)
	listBullet      = regexp.MustCompile(`\n\s*[-•*]\s*`)
)

const amount = `\d{1,3}(?:[ .,\x{a0}\x{202f}]?\d{3})*(?:\s*k)?`

// Structural derives a JobPosting from page structure alone: headings,
// sibling content, the page title and keyword tables. It never calls a model.
// The result is normalized; url, source and timestamps are left to the caller.
func Structural(input []byte, v *vocab.Vocabulary) posting.JobPosting {
	if v == nil {
		v = vocab.Default()
	}
	var p posting.JobPosting
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		p.Normalize()
		return p
	}
	pageTitle := collapseSpaces(doc.Find("head title").First().Text())
	bodyText := selectionText(doc.Find("body"))

	structuralTitle(&p, doc, pageTitle)
	if p.Company == "" {
		doc.Find("h1 ~ div, .company, .recruiter").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := collapseSpaces(selectionText(s))
			if t != "" && utf8.RuneCountInString(t) < 50 {
				p.Company = t
				return false
			}
			return true
		})
	}

	re := v.CityPattern()
	if m := re.FindStringSubmatch(pageTitle); m != nil {
		p.Location = m[1]
	} else if m := re.FindStringSubmatch(bodyText); m != nil {
		p.Location = m[1]
	}

	for _, c := range v.ContractTypes {
		if c != "" && strings.Contains(pageTitle, c) {
			p.ContractType = c
			break
		}
	}

	p.Experience = experienceRe.FindString(bodyText)
	p.Education = educationRe.FindString(bodyText)
	p.Salary = salaryRe.FindString(bodyText)

	for _, s := range Sections(doc, v) {
		applySection(&p, s, v)
	}

	if len(p.Skills) == 0 {
		p.Skills = textpattern.ScanSkills(bodyText, v)
	}
	if p.Summary == "" {
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := collapseSpaces(selectionText(s))
			if n := utf8.RuneCountInString(t); n > 50 && n < 300 {
				p.Summary = t
				return false
			}
			return true
		})
	}
	if p.Summary == "" && len(p.Responsibilities) > 0 {
		p.Summary = p.Responsibilities[0]
	}
	if len(p.Benefits) == 0 {
		p.Benefits = textpattern.ScanKeywords(bodyText, v.BenefitKeywords)
	}
	p.Normalize()
	return p
}

// structuralTitle prefers the first h1, stripping the gender marker and
// reading a company that follows it. Without an h1 the page title is split
// on its first " - " separator into title and company.
func structuralTitle(p *posting.JobPosting, doc *goquery.Document, pageTitle string) {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if full := collapseSpaces(selectionText(h1)); full != "" {
			p.Title = textpattern.CleanTitle(full)
			p.Company = textpattern.CompanyAfterGender(full)
			return
		}
	}
	parts := titleSeparator.Split(pageTitle, 3)
	p.Title = textpattern.CleanTitle(parts[0])
	if len(parts) > 1 {
		p.Company = strings.TrimSpace(recruiterPrefix.ReplaceAllString(parts[1], ""))
	}
}

// SectionKind flags which fields a heading feeds.
type SectionKind struct {
	Responsibilities bool
	Profile          bool
	Benefits         bool
}

// Section is a classified h2/h3 heading with the text that follows it.
type Section struct {
	Heading string
	Kind    SectionKind
	Content string
}

// Sections returns every h2/h3 whose heading matches a known section title,
// in document order. Content runs until the next heading of the same or a
// higher level.
func Sections(doc *goquery.Document, v *vocab.Vocabulary) []Section {
	var out []Section
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		heading := collapseSpaces(selectionText(h))
		r, pr, b := v.SectionKind(heading)
		if !r && !pr && !b {
			return
		}
		out = append(out, Section{
			Heading: heading,
			Kind:    SectionKind{Responsibilities: r, Profile: pr, Benefits: b},
			Content: siblingContent(h),
		})
	})
	return out
}

func applySection(p *posting.JobPosting, s Section, v *vocab.Vocabulary) {
	content := s.Content
	if content == "" {
		return
	}
	// Each missions section replaces the previous one; the last wins.
	if s.Kind.Responsibilities {
		p.Responsibilities = textpattern.SplitResponsibilities(content, v)
	}
	if s.Kind.Profile {
		if p.Summary == "" && utf8.RuneCountInString(content) > 10 {
			first := strings.TrimSpace(firstSentence.Split(content, 2)[0])
			first = strings.TrimPrefix(first, "- ")
			if utf8.RuneCountInString(first) > 10 {
				if !strings.HasSuffix(first, ".") {
					first += "."
				}
				p.Summary = first
			}
		}
		for _, sk := range textpattern.ScanSkills(content, v) {
			p.Skills = posting.AppendUnique(p.Skills, sk)
		}
	}
	if s.Kind.Benefits {
		items := listItems(content)
		if len(items) == 0 && utf8.RuneCountInString(content) > 5 {
			for _, l := range benefitLines.Split(content, -1) {
				if l = strings.TrimSpace(l); utf8.RuneCountInString(l) > 5 {
					items = append(items, l)
				}
			}
		}
		for _, it := range items {
			p.Benefits = posting.AppendUnique(p.Benefits, it)
		}
	}
}

// listItems splits bullet or line separated content; a single block yields nil.
func listItems(text string) []string {
	keep := func(parts []string) []string {
		var out []string
		for _, s := range parts {
			if s = strings.TrimSpace(s); utf8.RuneCountInString(s) > 3 {
				out = append(out, s)
			}
		}
		return out
	}
	if parts := listBullet.Split("\n"+text, -1); len(keep(parts)) > 1 {
		return keep(parts)
	}
	if lines := strings.Split(text, "\n"); len(keep(lines)) > 1 {
		return keep(lines)
	}
	return nil
}

// siblingContent collects the text of the siblings following heading h until
// a heading of the same or a higher level. Headings wrapped in their own
// container (common in page builders) are resolved by climbing up to two
// ancestors when the heading has no following siblings.
func siblingContent(h *goquery.Selection) string {
	level := headingLevel(h.Nodes[0])
	anchor := h.Nodes[0]
	for i := 0; i < 2 && nextElement(anchor) == nil && anchor.Parent != nil && anchor.Parent.Type == html.ElementNode; i++ {
		anchor = anchor.Parent
	}
	var parts []string
	for n := nextElement(anchor); n != nil; n = nextElement(n) {
		if stopsSection(n, level) {
			break
		}
		if t := NodeText(n); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// stopsSection reports whether n is, or directly wraps, a heading at or
// above level.
func stopsSection(n *html.Node, level int) bool {
	if l := headingLevel(n); l > 0 && l <= level {
		return true
	}
	if c := firstElementChild(n); c != nil && nextElement(c) == nil {
		if l := headingLevel(c); l > 0 && l <= level {
			return true
		}
	}
	return false
}

func headingLevel(n *html.Node) int {
	if n == nil || n.Type != html.ElementNode || len(n.Data) != 2 || (n.Data[0] != 'h' && n.Data[0] != 'H') {
		return 0
	}
	if d := n.Data[1]; d >= '1' && d <= '6' {
		return int(d - '0')
	}
	return 0
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func selectionText(s *goquery.Selection) string {
	parts := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if t := NodeText(n); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
