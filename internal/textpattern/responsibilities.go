package textpattern

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/jobextract/internal/vocab"
)

// Strategy splits a block of text into candidate items. An empty or single
// item result means the strategy did not recognize any structure.
type Strategy func(text string) []string

// minItems is the number of items a strategy must yield to be accepted.
const minItems = 2

var (
	bulletSplit  = regexp.MustCompile(`\n\s*[-•*–]\s*`)
	numberedItem = regexp.MustCompile(`\b(\d+\s*[.)-]\s*[^0-9\s][^\n]*)`)
	sentenceEnd  = regexp.MustCompile(`[.;]`)
)

// Strategies returns the responsibility splitters from most to least
// structured: dash bullets, numbered items, action-verb sentences, sentence
// punctuation, then plain lines.
func Strategies(v *vocab.Vocabulary) []Strategy {
	return []Strategy{DashBullets, Numbered, ActionVerbs(v), Sentences, Lines}
}

// SplitResponsibilities runs the strategies in order and returns the first
// result with at least two items. When none applies the whole trimmed block
// is returned as a single item.
func SplitResponsibilities(text string, v *vocab.Vocabulary) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, s := range Strategies(v) {
		if items := s(text); len(items) >= minItems {
			return items
		}
	}
	return []string{text}
}

// DashBullets splits on line-leading "-", "•", "*" or "–" markers.
func DashBullets(text string) []string {
	parts := bulletSplit.Split("\n"+text, -1)
	return keepLonger(parts, 5, false)
}

// Numbered collects "1. ...", "2) ..." style items.
func Numbered(text string) []string {
	var out []string
	for _, m := range numberedItem.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return keepLonger(out, 5, false)
}

// ActionVerbs collects clauses led by one of the vocabulary's infinitive
// verbs, each terminated with a period.
func ActionVerbs(v *vocab.Vocabulary) Strategy {
	if v == nil || len(v.ActionVerbs) == 0 {
		return func(string) []string { return nil }
	}
	re := v.ActionVerbPattern()
	return func(text string) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, m[1])
		}
		return keepLonger(out, 10, true)
	}
}

// Sentences splits on periods and semicolons.
func Sentences(text string) []string {
	return keepLonger(sentenceEnd.Split(text, -1), 10, true)
}

// Lines splits on newlines.
func Lines(text string) []string {
	return keepLonger(strings.Split(text, "\n"), 10, false)
}

func keepLonger(parts []string, minRunes int, period bool) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= minRunes {
			continue
		}
		if period && !strings.HasSuffix(p, ".") {
			p += "."
		}
		out = append(out, p)
	}
	return out
}
