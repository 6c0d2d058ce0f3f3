package posting

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNormalize_DedupesAndDropsEmpty(t *testing.T) {
	p := JobPosting{
		Title:            "  Développeur \n Backend ",
		Skills:           []string{"Go", " Go", "", "  ", "Docker", "Go "},
		Responsibilities: []string{"Concevoir  des APIs.", "Concevoir des APIs."},
		Benefits:         nil,
	}
	p.Normalize()
	if p.Title != "Développeur Backend" {
		t.Fatalf("title = %q", p.Title)
	}
	if !reflect.DeepEqual(p.Skills, []string{"Go", "Docker"}) {
		t.Fatalf("skills = %#v", p.Skills)
	}
	if len(p.Responsibilities) != 1 {
		t.Fatalf("responsibilities = %#v", p.Responsibilities)
	}
	if p.Benefits == nil {
		t.Fatalf("benefits should be non-nil after Normalize")
	}
	for _, l := range [][]string{p.Skills, p.Responsibilities, p.Benefits} {
		seen := map[string]bool{}
		for _, s := range l {
			if s == "" || seen[s] {
				t.Fatalf("empty or duplicate entry %q in %v", s, l)
			}
			seen[s] = true
		}
	}
}

func TestRoundTrip_JSON(t *testing.T) {
	in := JobPosting{
		ID:               "01J0000000000000000000000",
		Title:            "Data Engineer",
		Company:          "Acme",
		Location:         "Lyon 69",
		ContractType:     "CDI",
		Skills:           []string{"Python", "Kafka"},
		Salary:           "45000€ - 60000€",
		Experience:       "3 ans",
		Education:        "Bac+5",
		Summary:          "Rejoignez une équipe data.",
		Responsibilities: []string{"Concevoir des pipelines."},
		Benefits:         []string{"RTT"},
		URL:              "https://jobs.example/1",
		AnalyzedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Source:           SourceStructural,
		Confidence:       0.5,
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out JobPosting
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	for _, k := range []string{"contractType", "analyzedAt", "responsibilities"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("missing json key %q in %s", k, b)
		}
	}
}

func TestIsTrivialAndGate(t *testing.T) {
	p := JobPosting{URL: "https://x"}
	if !p.IsTrivial() {
		t.Fatalf("url-only record should be trivial")
	}
	p.Skills = []string{"Go"}
	if p.IsTrivial() || p.GoodEnough() {
		t.Fatalf("skills only: trivial=%v good=%v", p.IsTrivial(), p.GoodEnough())
	}
	p.Responsibilities = []string{"Coder"}
	if !p.GoodEnough() {
		t.Fatalf("skills + responsibilities should pass the gate")
	}
	if s := p.Score(); s <= 0 || s > 1 {
		t.Fatalf("score out of range: %v", s)
	}
}

func TestKey_Stable(t *testing.T) {
	a := Key("https://jobs.example/1")
	if a != Key(" https://jobs.example/1 ") {
		t.Fatalf("key should ignore surrounding space")
	}
	if a == Key("https://jobs.example/2") {
		t.Fatalf("distinct urls should have distinct keys")
	}
}
