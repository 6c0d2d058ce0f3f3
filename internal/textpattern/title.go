package textpattern

import (
	"regexp"
	"strings"
)

// genderMarker matches "H/F", "F/H", "(H/F)", "H/F/X" and the like.
var (
	genderTail    = regexp.MustCompile(`(?i)[\s(\[]*\b(?:H\s*/\s*F|F\s*/\s*H)(?:\s*/\s*[XN])?\b.*$`)
	genderCompany = regexp.MustCompile(`(?i)\b(?:H\s*/\s*F|F\s*/\s*H)(?:\s*/\s*[XN])?\b\s*[)\]]?\s*[-–—|:]?\s*([^-–—|\n]+)`)
)

// CleanTitle strips a gender marker and anything following it.
func CleanTitle(s string) string {
	s = genderTail.ReplaceAllString(s, "")
	return strings.Trim(strings.TrimSpace(s), "-–—|: ")
}

// CompanyAfterGender returns the text that follows a gender marker in a
// heading such as "Développeur Backend H/F - Acme Corp", or "".
func CompanyAfterGender(s string) string {
	m := genderCompany.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
