package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperifyio/jobextract/internal/vocab"
)

const ldPage = `<html><head>
<title>Data Engineer - Globex</title>
<meta property="og:title" content="Data Engineer chez Globex">
<meta name="description" content="CDI à Bordeaux">
<meta charset="utf-8">
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"Organization","name":"Globex"},
  {"@type":"JobPosting","title":"Data Engineer","hiringOrganization":{"@type":"Organization","name":"Globex"},
   "jobLocation":[{"@type":"Place","address":{"@type":"PostalAddress","addressLocality":"Bordeaux"}}],
   "employmentType":["FULL_TIME"],
   "baseSalary":{"@type":"MonetaryAmount","currency":"EUR","value":{"@type":"QuantitativeValue","minValue":50000,"maxValue":65000,"unitText":"YEAR"}},
   "experienceRequirements":{"@type":"OccupationalExperienceRequirements","monthsOfExperience":36}}
]}
</script>
<script type="application/ld+json">{ not json </script>
</head><body>
<h2>Vos missions</h2><p>` + "Construire les pipelines de données. " + `</p>
<h2>Profil</h2><p>Python, Airflow.</p>
</body></html>`

func TestCondense_CollectsMetaJSONLDAndSections(t *testing.T) {
	c := Condense([]byte(ldPage), 0, vocab.Default())
	if c.Title != "Data Engineer - Globex" {
		t.Fatalf("title = %q", c.Title)
	}
	if c.Meta["og:title"] != "Data Engineer chez Globex" || c.Meta["description"] != "CDI à Bordeaux" {
		t.Fatalf("meta = %#v", c.Meta)
	}
	if len(c.JSONLD) != 2 {
		t.Fatalf("expected 2 JSON-LD objects from @graph, got %d", len(c.JSONLD))
	}
	if !strings.Contains(c.Sections[SectionMissions], "Construire les pipelines") {
		t.Fatalf("missions section = %q", c.Sections[SectionMissions])
	}
	if c.Sections[SectionProfile] != "Python, Airflow." {
		t.Fatalf("profile section = %q", c.Sections[SectionProfile])
	}
	if _, ok := c.Sections[SectionBenefits]; ok {
		t.Fatalf("no benefits section expected")
	}

	p, ok := JobPostingFromJSONLD(c.JSONLD)
	if !ok {
		t.Fatalf("JobPosting object not found")
	}
	if p.Title != "Data Engineer" || p.Company != "Globex" || p.Location != "Bordeaux" {
		t.Fatalf("jsonld scalars = %q %q %q", p.Title, p.Company, p.Location)
	}
	if p.Salary != "50000 - 65000 EUR / year" || p.Experience != "36 mois" || p.ContractType != "FULL_TIME" {
		t.Fatalf("jsonld salary/experience/contract = %q %q %q", p.Salary, p.Experience, p.ContractType)
	}
}

func TestCondense_BodySampleCapped(t *testing.T) {
	body := strings.Repeat("mot ", 3000)
	c := Condense([]byte("<html><body><p>"+body+"</p></body></html>"), 3000, nil)
	if n := utf8.RuneCountInString(c.BodySample); n == 0 || n > 3000 {
		t.Fatalf("body sample length %d", n)
	}
	if strings.Contains(c.BodySample, "  ") {
		t.Fatalf("body sample should have collapsed whitespace")
	}
}

func TestFillEmpty(t *testing.T) {
	p, _ := JobPostingFromJSONLD([]map[string]any{{"@type": "JobPosting", "title": "A", "hiringOrganization": "Org"}})
	dst := p
	dst.Title = "Kept"
	dst.Company = ""
	FillEmpty(&dst, p)
	if dst.Title != "Kept" || dst.Company != "Org" {
		t.Fatalf("FillEmpty = %+v", dst)
	}
}
