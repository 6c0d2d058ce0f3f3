package extract

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// JobPostingFromJSONLD reads the first schema.org JobPosting object. Only
// scalar fields are filled; ok is false when no JobPosting object exists.
func JobPostingFromJSONLD(objs []map[string]any) (p posting.JobPosting, ok bool) {
	for _, o := range objs {
		if !hasType(o, "JobPosting") {
			continue
		}
		p.Title = str(o["title"])
		p.Company = orgName(o["hiringOrganization"])
		p.Location = locality(o["jobLocation"])
		p.ContractType = strings.Join(strs(o["employmentType"]), ", ")
		p.Salary = salary(o["baseSalary"])
		p.Experience = requirement(o["experienceRequirements"])
		p.Education = requirement(o["educationRequirements"])
		p.Normalize()
		return p, true
	}
	return p, false
}

// FillEmpty copies every non-empty scalar of src into the empty scalars of dst.
func FillEmpty(dst *posting.JobPosting, src posting.JobPosting) {
	fill := func(d *string, s string) {
		if strings.TrimSpace(*d) == "" {
			*d = s
		}
	}
	fill(&dst.Title, src.Title)
	fill(&dst.Company, src.Company)
	fill(&dst.Location, src.Location)
	fill(&dst.ContractType, src.ContractType)
	fill(&dst.Salary, src.Salary)
	fill(&dst.Experience, src.Experience)
	fill(&dst.Education, src.Education)
	fill(&dst.Summary, src.Summary)
}

func hasType(o map[string]any, want string) bool {
	for _, t := range strs(o["@type"]) {
		if t == want {
			return true
		}
	}
	return false
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func strs(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s := str(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func orgName(v any) string {
	if m, ok := v.(map[string]any); ok {
		return str(m["name"])
	}
	return str(v)
}

func locality(v any) string {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := locality(e); s != "" {
				return s
			}
		}
	case map[string]any:
		if addr, ok := t["address"].(map[string]any); ok {
			if s := str(addr["addressLocality"]); s != "" {
				return s
			}
			return str(addr["addressRegion"])
		}
		return str(t["name"])
	}
	return ""
}

func salary(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return str(v)
	}
	cur := str(m["currency"])
	val, ok := m["value"].(map[string]any)
	if !ok {
		return strings.TrimSpace(str(m["value"]) + " " + cur)
	}
	unit := strings.ToLower(str(val["unitText"]))
	amount := str(val["value"])
	if lo, hi := str(val["minValue"]), str(val["maxValue"]); lo != "" && hi != "" {
		amount = lo + " - " + hi
	} else if lo != "" {
		amount = lo
	}
	if amount == "" {
		return ""
	}
	out := strings.TrimSpace(amount + " " + cur)
	if unit != "" {
		out += " / " + unit
	}
	return out
}

func requirement(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if s := str(t["credentialCategory"]); s != "" {
			return s
		}
		if months := str(t["monthsOfExperience"]); months != "" {
			return months + " mois"
		}
		return str(t["description"])
	}
	return str(v)
}
