package extract

import (
	"reflect"
	"testing"

	"github.com/hyperifyio/jobextract/internal/vocab"
)

const jobPage = `<!doctype html>
<html lang="fr">
<head><title>Développeur Backend H/F - Acme Corp - CDI - Lyon 69</title></head>
<body>
  <nav>Paris | Marseille</nav>
  <h1>Développeur Backend H/F - Acme Corp</h1>
  <div class="salary">Salaire: 45000€ - 60000€ selon expérience</div>
  <h2>Les missions du poste</h2>
  <ul>
    <li>Concevoir des APIs REST</li>
    <li>Maintenir la plateforme Kafka</li>
    <li>Participer aux revues de code</li>
  </ul>
  <h2>Le profil recherché</h2>
  <p>Vous maîtrisez Java et PostgreSQL. Expérience de 3 ans minimum en développement.</p>
  <p>Bac+5 en informatique.</p>
  <h2>Infos complémentaires</h2>
  <ul>
    <li>Télétravail 2 jours par semaine</li>
    <li>Tickets restaurant</li>
  </ul>
</body>
</html>`

func TestStructural_FullPage(t *testing.T) {
	p := Structural([]byte(jobPage), vocab.Default())
	scalars := map[string][2]string{
		"title":      {p.Title, "Développeur Backend"},
		"company":    {p.Company, "Acme Corp"},
		"location":   {p.Location, "Lyon 69"},
		"contract":   {p.ContractType, "CDI"},
		"salary":     {p.Salary, "45000€ - 60000€"},
		"experience": {p.Experience, "Expérience de 3 ans"},
		"education":  {p.Education, "Bac+5"},
		"summary":    {p.Summary, "Vous maîtrisez Java et PostgreSQL."},
	}
	for name, c := range scalars {
		if c[0] != c[1] {
			t.Fatalf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	wantResp := []string{"Concevoir des APIs REST", "Maintenir la plateforme Kafka", "Participer aux revues de code"}
	if !reflect.DeepEqual(p.Responsibilities, wantResp) {
		t.Fatalf("responsibilities = %#v", p.Responsibilities)
	}
	if !reflect.DeepEqual(p.Skills, []string{"Java", "SQL", "PostgreSQL"}) {
		t.Fatalf("skills = %#v", p.Skills)
	}
	if !reflect.DeepEqual(p.Benefits, []string{"Télétravail 2 jours par semaine", "Tickets restaurant"}) {
		t.Fatalf("benefits = %#v", p.Benefits)
	}
	if !p.GoodEnough() {
		t.Fatalf("full page should pass the quality gate")
	}
}

func TestStructural_PageTitleFallback(t *testing.T) {
	html := `<html><head><title>Chef de projet H/F - Recrutement par Globex</title></head>
<body><p>Rejoignez une équipe produit à Nantes pour piloter nos projets de transformation numérique.</p></body></html>`
	p := Structural([]byte(html), vocab.Default())
	if p.Title != "Chef de projet" || p.Company != "Globex" {
		t.Fatalf("title/company = %q / %q", p.Title, p.Company)
	}
	if p.Location != "Nantes" {
		t.Fatalf("location from body = %q", p.Location)
	}
	if p.Summary == "" {
		t.Fatalf("summary should fall back to the first medium paragraph")
	}
	if p.GoodEnough() {
		t.Fatalf("no skills or responsibilities: gate must fail")
	}
}

func TestStructural_ContractPrecedence(t *testing.T) {
	cases := map[string]string{
		"Stage ou CDD ou CDI - Data": "CDI",
		"Alternance puis CDD":        "CDD",
		"Freelance ou Stage":         "Stage",
		"Mission Freelance Go":       "Freelance",
		"Poste sans contrat indiqué": "",
	}
	for title, want := range cases {
		html := "<html><head><title>" + title + "</title></head><body><h1>X</h1></body></html>"
		if got := Structural([]byte(html), vocab.Default()).ContractType; got != want {
			t.Fatalf("%q: contract = %q, want %q", title, got, want)
		}
	}
}

func TestStructural_WrappedHeadingsAndNestedLevels(t *testing.T) {
	html := `<html><head><title>Dev</title></head><body>
<h1>Ingénieur logiciel</h1>
<div class="block"><h2>Vos missions</h2></div>
<p>Développer les nouvelles fonctionnalités. Optimiser les performances. Rédiger la documentation technique.</p>
<h3>Environnement</h3>
<p>Stack Go et Docker.</p>
<h2>Avantages</h2>
<p>Mutuelle. Prime annuelle sur objectifs.</p>
</body></html>`
	p := Structural([]byte(html), vocab.Default())
	want := []string{
		"Développer les nouvelles fonctionnalités.",
		"Optimiser les performances.",
		"Rédiger la documentation technique.",
	}
	if len(p.Responsibilities) < 3 || !reflect.DeepEqual(p.Responsibilities[:3], want) {
		t.Fatalf("responsibilities = %#v", p.Responsibilities)
	}
	if !reflect.DeepEqual(p.Benefits, []string{"Mutuelle", "Prime annuelle sur objectifs"}) {
		t.Fatalf("benefits = %#v", p.Benefits)
	}
	if !reflect.DeepEqual(p.Skills, []string{"Docker", "Go"}) {
		t.Fatalf("skills from body fallback = %#v", p.Skills)
	}
}

func TestStructural_SequencesClean(t *testing.T) {
	html := `<html><head><title>X</title></head><body>
<h2>Missions</h2><ul><li>Coder proprement en Go</li><li>Coder proprement en Go</li><li> </li></ul>
<h2>Missions du poste</h2><ul><li>Coder proprement en Go</li><li>Tester le code produit</li></ul>
</body></html>`
	p := Structural([]byte(html), vocab.Default())
	seen := map[string]bool{}
	for _, r := range p.Responsibilities {
		if r == "" || seen[r] {
			t.Fatalf("duplicate or empty responsibility in %#v", p.Responsibilities)
		}
		seen[r] = true
	}
}

func TestStructural_BenefitKeywordsMatchInsideWords(t *testing.T) {
	html := `<html><head><title>Comptable</title></head><body>
<p>Primes annuelles et formations certifiantes. Un CEO accessible et des RTT.</p>
</body></html>`
	p := Structural([]byte(html), vocab.Default())
	if !reflect.DeepEqual(p.Benefits, []string{"RTT", "formation", "prime"}) {
		t.Fatalf("benefits = %#v", p.Benefits)
	}
}

func TestStructural_LaterMissionsSectionReplacesEarlier(t *testing.T) {
	html := `<html><head><title>X</title></head><body>
<h2>Missions</h2><ul><li>Ancienne mission obsolète</li><li>Autre mission obsolète</li></ul>
<h2>Missions du poste</h2><ul><li>Coder proprement en Go</li><li>Tester le code produit</li></ul>
</body></html>`
	p := Structural([]byte(html), vocab.Default())
	want := []string{"Coder proprement en Go", "Tester le code produit"}
	if !reflect.DeepEqual(p.Responsibilities, want) {
		t.Fatalf("responsibilities = %#v", p.Responsibilities)
	}
}
