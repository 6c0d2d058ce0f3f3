package textpattern

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	jsonishKey  = regexp.MustCompile(`"(?:title|company|skills|responsibilities)"\s*:`)
	quotedValue = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// looksLikeJSON reports whether text resembles a (possibly broken) JSON
// object produced by a model.
func looksLikeJSON(text string) bool {
	return jsonishKey.MatchString(text)
}

// quotedField reads `"name": "value"` from broken JSON.
func quotedField(text, name string) string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return unquote(m[1])
}

// quotedArray reads `"name": ["a", "b"]` from broken JSON. An unterminated
// array is read to the end of the text.
func quotedArray(text, name string) []string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*\[([^\]]*)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var out []string
	for _, v := range quotedValue.FindAllStringSubmatch(m[1], -1) {
		if s := strings.TrimSpace(unquote(v[1])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unquote(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}
