package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_HasAllLists(t *testing.T) {
	v := Default()
	if v.Version == "" {
		t.Fatalf("default vocabulary should carry a version")
	}
	checks := map[string][]string{
		"skills":          v.Skills,
		"benefitKeywords": v.BenefitKeywords,
		"benefitTerms":    v.BenefitTerms,
		"contractTypes":   v.ContractTypes,
		"actionVerbs":     v.ActionVerbs,
		"cities":          v.Cities,
		"labels.salary":   v.Labels.Salary,
	}
	for name, l := range checks {
		if len(l) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
	want := []string{"CDI", "CDD", "Stage", "Alternance", "Freelance"}
	for i, c := range want {
		if v.ContractTypes[i] != c {
			t.Fatalf("contract precedence[%d] = %q, want %q", i, v.ContractTypes[i], c)
		}
	}
}

func TestLoad_FallsBackPerList(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "v.yaml")
	if err := os.WriteFile(p, []byte("version: custom\nskills: [Rust, Zig]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Version != "custom" || len(v.Skills) != 2 || v.Skills[0] != "Rust" {
		t.Fatalf("override not applied: %+v", v.Skills)
	}
	if len(v.Cities) != len(Default().Cities) {
		t.Fatalf("cities should fall back to defaults")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	v, err := Load("")
	if err != nil || v != Default() {
		t.Fatalf("empty path should return defaults")
	}
}

func TestCityPattern(t *testing.T) {
	re := Default().CityPattern()
	cases := map[string]string{
		"Développeur Go - Lyon 69 - CDI": "Lyon 69",
		"Poste basé à saint-étienne":    "saint-étienne",
		"Paul works remotely":           "",
		"Bureaux à Paris":               "Paris",
	}
	for in, want := range cases {
		got := ""
		if m := re.FindStringSubmatch(in); m != nil {
			got = m[1]
		}
		if got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
	}
}

func TestSectionKind(t *testing.T) {
	r, p, b := Default().SectionKind("Les missions du poste")
	if !r || p || b {
		t.Fatalf("missions heading misclassified: %v %v %v", r, p, b)
	}
	_, p, _ = Default().SectionKind("Le profil recherché")
	if !p {
		t.Fatalf("profile heading not detected")
	}
	_, _, b = Default().SectionKind("Infos complémentaires")
	if !b {
		t.Fatalf("benefits heading not detected")
	}
}
