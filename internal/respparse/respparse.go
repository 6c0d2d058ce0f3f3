// Package respparse turns raw model output into a JobPosting. It degrades
// from strict JSON to a repaired JSON object and finally to text-pattern
// recovery, and archives the raw answer whenever strict parsing fails.
package respparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/textpattern"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

// Archiver keeps raw model answers that did not parse as JSON.
type Archiver interface {
	SaveRaw(ctx context.Context, url, model, text string) error
}

// Parser is the resilient response parser. Raw may be nil.
type Parser struct {
	Vocab *vocab.Vocabulary
	Raw   Archiver
}

// Method names the path that produced a record, for logging.
type Method string

const (
	MethodJSON     Method = "json"
	MethodRepaired Method = "repaired-json"
	MethodPattern  Method = "text-pattern"
)

var (
	thinkBlock    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	fenceMarker   = regexp.MustCompile("```[A-Za-z0-9_-]*")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// Parse converts raw into a normalized record stamped with the prompt source,
// url and model. The result depends only on raw and the vocabulary. When no
// path yields a non-trivial record the error is PARSE_FAILED.
func (p *Parser) Parse(ctx context.Context, url, model, raw string) (posting.JobPosting, error) {
	rec, method, err := p.parse(raw)
	if method != MethodJSON && p.Raw != nil {
		if aerr := p.Raw.SaveRaw(ctx, url, model, raw); aerr != nil {
			log.Warn().Str("stage", "parse").Str("url", url).Err(aerr).Msg("archive raw response")
		}
	}
	if err != nil {
		log.Warn().Str("stage", "parse").Str("url", url).Str("model", model).Int("bytes", len(raw)).Msg("no usable record in model response")
		log.Debug().Str("stage", "parse").Str("url", url).Str("preview", preview(raw)).Msg("unparsed model response")
		return posting.JobPosting{}, err
	}
	rec.Source = posting.SourcePrompt
	rec.URL = url
	rec.Model = model
	log.Debug().Str("stage", "parse").Str("url", url).Str("method", string(method)).Msg("model response parsed")
	return rec, nil
}

// Clean trims raw, removes reasoning blocks and strips every code-fence
// marker.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = thinkBlock.ReplaceAllString(s, "")
	if strings.Contains(s, "```") {
		s = fenceMarker.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

func (p *Parser) parse(raw string) (posting.JobPosting, Method, error) {
	text := Clean(raw)
	if rec, err := decodeStrict(text); err == nil && !rec.IsTrivial() {
		return rec, MethodJSON, nil
	}
	if repaired, ok := Repair(text); ok {
		if rec, err := decodeStrict(repaired); err == nil && !rec.IsTrivial() {
			return rec, MethodRepaired, nil
		}
	}
	rec := textpattern.Extract(text, p.Vocab)
	if rec.IsTrivial() {
		return posting.JobPosting{}, MethodPattern, failure.Parse("neither JSON nor text patterns produced a record", nil)
	}
	return rec, MethodPattern, nil
}

// Repair extracts the outermost object from text, drops trailing commas and
// quotes bare keys. ok is false when text holds no object.
func Repair(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	s := text[start : end+1]
	s = trailingComma.ReplaceAllString(s, "$1")
	if !json.Valid([]byte(s)) {
		s = bareKey.ReplaceAllString(s, `$1"$2":`)
	}
	return s, true
}

// wire is the JSON shape a model is asked to return. Fields are lenient about
// scalar versus list so that `"skills": "Go, SQL"` still decodes.
type wire struct {
	Title            flexString `json:"title"`
	Company          flexString `json:"company"`
	Location         flexString `json:"location"`
	ContractType     flexString `json:"contractType"`
	Skills           flexList   `json:"skills"`
	Salary           flexString `json:"salary"`
	Experience       flexString `json:"experience"`
	Education        flexString `json:"education"`
	Summary          flexString `json:"summary"`
	Responsibilities flexList   `json:"responsibilities"`
	Benefits         flexList   `json:"benefits"`
}

func decodeStrict(text string) (posting.JobPosting, error) {
	b := []byte(text)
	if len(b) == 0 || b[0] != '{' {
		return posting.JobPosting{}, fmt.Errorf("not a JSON object")
	}
	var w wire
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&w); err != nil {
		return posting.JobPosting{}, err
	}
	if dec.More() {
		return posting.JobPosting{}, fmt.Errorf("trailing data after JSON object")
	}
	rec := posting.JobPosting{
		Title:            textpattern.CleanTitle(string(w.Title)),
		Company:          string(w.Company),
		Location:         string(w.Location),
		ContractType:     string(w.ContractType),
		Skills:           w.Skills,
		Salary:           string(w.Salary),
		Experience:       string(w.Experience),
		Education:        string(w.Education),
		Summary:          string(w.Summary),
		Responsibilities: w.Responsibilities,
		Benefits:         w.Benefits,
	}
	rec.Normalize()
	return rec, nil
}

// flexString accepts a string, number, bool, null or a list of those.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexString(strings.Join(scalars(v), ", "))
	return nil
}

// flexList accepts a list, a comma separated string or null.
type flexList []string

func (f *flexList) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			out = append(out, strings.TrimSpace(part))
		}
		*f = out
		return nil
	}
	*f = scalars(v)
	return nil
}

func scalars(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, scalars(e)...)
		}
		return out
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return []string{name}
		}
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 300 {
		return string(r[:300])
	}
	return s
}
