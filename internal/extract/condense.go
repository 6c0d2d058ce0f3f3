package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/jobextract/internal/vocab"
)

const (
	// DefaultBodySample caps the body excerpt forwarded to the model.
	DefaultBodySample = 5000
	// SectionSample caps each named section excerpt.
	SectionSample = 1500
)

// Section keys used in Condensed.Sections.
const (
	SectionMissions = "missions"
	SectionProfile  = "profile"
	SectionBenefits = "benefits"
)

// Condensed is the size-bounded page summary used to build prompts.
type Condensed struct {
	Title      string
	Meta       map[string]string
	JSONLD     []map[string]any
	Sections   map[string]string
	BodySample string
}

// Condense builds the prompt-facing summary of a page: title, meta tags,
// JSON-LD objects, the first missions/profile/benefits section excerpts and
// a whitespace-collapsed body sample of at most maxBody runes.
func Condense(input []byte, maxBody int, v *vocab.Vocabulary) Condensed {
	if maxBody <= 0 {
		maxBody = DefaultBodySample
	}
	if v == nil {
		v = vocab.Default()
	}
	c := Condensed{Meta: map[string]string{}, Sections: map[string]string{}}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return c
	}
	c.Title = collapseSpaces(norm.NFC.String(doc.Find("head title").First().Text()))

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok || key == "" {
			key, _ = s.Attr("name")
		}
		content, _ := s.Attr("content")
		if key = strings.TrimSpace(key); key != "" && strings.TrimSpace(content) != "" {
			c.Meta[key] = collapseSpaces(norm.NFC.String(content))
		}
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		c.JSONLD = append(c.JSONLD, parseJSONLD(s.Text())...)
	})

	for _, sec := range Sections(doc, v) {
		text := Truncate(sec.Content, SectionSample)
		if sec.Kind.Responsibilities {
			setOnce(c.Sections, SectionMissions, text)
		}
		if sec.Kind.Profile {
			setOnce(c.Sections, SectionProfile, text)
		}
		if sec.Kind.Benefits {
			setOnce(c.Sections, SectionBenefits, text)
		}
	}

	c.BodySample = Truncate(collapseSpaces(selectionText(doc.Find("body"))), maxBody)
	return c
}

func setOnce(m map[string]string, k, v string) {
	if _, ok := m[k]; !ok && v != "" {
		m[k] = v
	}
}

// parseJSONLD returns the objects in a JSON-LD script: a single object, each
// object of a top-level array, and each object of an "@graph" array.
func parseJSONLD(raw string) []map[string]any {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil
	}
	var out []map[string]any
	var add func(any)
	add = func(x any) {
		switch t := x.(type) {
		case map[string]any:
			if g, ok := t["@graph"].([]any); ok {
				for _, e := range g {
					add(e)
				}
				return
			}
			out = append(out, t)
		case []any:
			for _, e := range t {
				add(e)
			}
		}
	}
	add(v)
	return out
}

// Truncate cuts s to at most max runes, preferring the last space before the
// limit.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
