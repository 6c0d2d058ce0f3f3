package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/jobextract/internal/posting"
)

func sample() posting.JobPosting {
	return posting.JobPosting{
		Title:            "Développeur Backend",
		Company:          "Acme Corp",
		ContractType:     "CDI",
		Salary:           "45000€ - 60000€",
		Skills:           []string{"Java", "PostgreSQL"},
		Responsibilities: []string{"Concevoir des APIs REST"},
		URL:              "https://jobs.example/1",
		Source:           posting.SourcePrompt,
		Model:            "mistral",
		AnalyzedAt:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())
	for _, want := range []string{
		"# Développeur Backend\n",
		"- **Contrat** : CDI\n",
		"## Missions\n\n- Concevoir des APIs REST\n",
		"## Compétences\n\n- Java\n- PostgreSQL\n",
		"Source : [https://jobs.example/1](https://jobs.example/1)",
		"Extraction : prompt-based-extraction (mistral), 2024-06-01 12:00 UTC",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Lieu") || strings.Contains(md, "## Avantages") {
		t.Fatalf("empty fields must be omitted:\n%s", md)
	}
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.pdf")
	if err := WritePDF(path, sample()); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a PDF")
	}
	var buf bytes.Buffer
	if err := EncodePDF(&buf, posting.JobPosting{}); err != nil || buf.Len() == 0 {
		t.Fatalf("encode empty record: %v", err)
	}
}
