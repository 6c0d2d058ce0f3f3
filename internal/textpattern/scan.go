package textpattern

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/jobextract/internal/vocab"
)

// ScanSkills returns the vocabulary skills contained in text, matched as
// case-sensitive substrings. Skills are discovered by walking the
// vocabulary, so "PostgreSQL" yields both "SQL" and "PostgreSQL" in
// vocabulary order.
func ScanSkills(text string, v *vocab.Vocabulary) []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, s := range v.Skills {
		if s != "" && strings.Contains(text, s) {
			out = appendUnique(out, s)
		}
	}
	return out
}

// ScanKeywords returns the keywords that occur in text as case-insensitive
// substrings, in vocabulary order. Keywords are returned as listed.
func ScanKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if indexKeyword(text, lower, k) >= 0 {
			out = append(out, k)
		}
	}
	return out
}

// indexKeyword finds a benefit keyword in text. lower must be
// strings.ToLower(text). Acronyms need the exact token, everything else is a
// case-insensitive substring so "prime" hits "Primes annuelles".
func indexKeyword(text, lower, k string) int {
	if !matchFold(k) {
		return indexToken(text, k)
	}
	return strings.Index(lower, strings.ToLower(k))
}

// BenefitWindows captures the words surrounding each benefit term hit, within
// the same line and up to the nearest punctuation, so that "Mutuelle prise en
// charge à 100%" is kept rather than just "mutuelle".
func BenefitWindows(text string, terms []string) []string {
	const maxSide = 40
	var out []string
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term == "" {
			continue
		}
		fold := matchFold(term)
		hay, needle := text, term
		if fold && len(lower) == len(text) {
			hay, needle = lower, strings.ToLower(term)
		}
		for from := 0; from < len(hay); {
			var i int
			if fold {
				i = strings.Index(hay[from:], needle)
			} else {
				i = indexToken(hay[from:], needle)
			}
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(needle)
			w := strings.TrimSpace(text[expandLeft(text, start, maxSide):expandRight(text, end, maxSide)])
			w = strings.Trim(w, "-–•* ")
			if w != "" {
				out = appendUnique(out, w)
			}
			from = end
		}
	}
	return out
}

// matchFold reports whether a term is matched case-insensitively. Short
// all-caps acronyms such as "CE" or "RTT" must match exactly, otherwise "ce"
// would hit in nearly every French sentence.
func matchFold(term string) bool {
	return strings.ToUpper(term) != term
}

// indexToken finds needle in s where it is not glued to surrounding letters
// or digits.
func indexToken(s, needle string) int {
	for from := 0; from <= len(s)-len(needle); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return -1
		}
		at := from + i
		if boundaryBefore(s, at, needle) && boundaryAfter(s, at+len(needle), needle) {
			return at
		}
		_, size := utf8.DecodeRuneInString(s[at:])
		from = at + size
	}
	return -1
}

func boundaryBefore(s string, at int, needle string) bool {
	first, _ := utf8.DecodeRuneInString(needle)
	if !isWordRune(first) || at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return !isWordRune(r)
}

func boundaryAfter(s string, end int, needle string) bool {
	last, _ := utf8.DecodeLastRuneInString(needle)
	if !isWordRune(last) || end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWindowRune(r rune) bool {
	return isWordRune(r) || r == ' ' || r == '\t' || r == '-' || r == '\'' || r == '’' || r == '%' || r == '€' || r == '/'
}

// expandLeft walks back from start over window runes, at most max of them.
// A cut that lands inside a word is moved forward past that word.
func expandLeft(s string, start, max int) int {
	orig := start
	for n := 0; start > 0; n++ {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !isWindowRune(r) {
			return start
		}
		if n == max {
			if i := strings.IndexAny(s[start:orig], " \t"); i >= 0 {
				return start + i + 1
			}
			return orig
		}
		start -= size
	}
	return start
}

// expandRight is the mirror of expandLeft.
func expandRight(s string, end, max int) int {
	orig := end
	for n := 0; end < len(s); n++ {
		r, size := utf8.DecodeRuneInString(s[end:])
		if !isWindowRune(r) {
			return end
		}
		if n == max {
			if i := strings.LastIndexAny(s[orig:end], " \t"); i >= 0 {
				return orig + i
			}
			return orig
		}
		end += size
	}
	return end
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
