// Package report renders an extracted job posting as Markdown or PDF for
// human review.
package report

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// Markdown renders p as a short document. Empty fields are omitted.
func Markdown(p posting.JobPosting) string {
	var b strings.Builder
	title := p.Title
	if title == "" {
		title = "Offre sans titre"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	for _, f := range []struct{ label, value string }{
		{"Entreprise", p.Company},
		{"Lieu", p.Location},
		{"Contrat", p.ContractType},
		{"Salaire", p.Salary},
		{"Expérience", p.Experience},
		{"Formation", p.Education},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "- **%s** : %s\n", f.label, f.value)
		}
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Summary)
	}
	list := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n", heading)
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	list("Missions", p.Responsibilities)
	list("Compétences", p.Skills)
	list("Avantages", p.Benefits)

	b.WriteString("\n---\n\n")
	if p.URL != "" {
		fmt.Fprintf(&b, "Source : [%s](%s)\n", p.URL, p.URL)
	}
	meta := p.Source
	if p.Model != "" {
		meta += " (" + p.Model + ")"
	}
	if !p.AnalyzedAt.IsZero() {
		meta += ", " + p.AnalyzedAt.UTC().Format("2006-01-02 15:04 MST")
	}
	if meta != "" {
		fmt.Fprintf(&b, "Extraction : %s\n", strings.TrimPrefix(meta, ", "))
	}
	return b.String()
}

// WriteMarkdown writes Markdown(p) to w.
func WriteMarkdown(w io.Writer, p posting.JobPosting) error {
	_, err := io.WriteString(w, Markdown(p))
	return err
}

// WritePDF renders p into a PDF file at path.
func WritePDF(path string, p posting.JobPosting) error {
	pdf := render(Markdown(p))
	return pdf.OutputFileAndClose(path)
}

// EncodePDF renders p as PDF into w.
func EncodePDF(w io.Writer, p posting.JobPosting) error {
	return render(Markdown(p)).Output(w)
}

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
var boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// render lays out the small Markdown subset produced by Markdown: headings,
// bullets, a rule and links. Core fonts are cp1252 so text is translated.
func render(markdown string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case s == "---":
			y := pdf.GetY()
			pdf.Line(10, y, 200, y)
			pdf.Ln(2)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			size := 16.0
			if i >= 2 {
				size = 13.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 8, tr(strings.TrimSpace(s[i:])), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		default:
			if strings.HasPrefix(s, "- ") {
				s = "\u2022 " + s[2:]
			}
			s = boldRe.ReplaceAllString(s, "$1")
			writeLinks(pdf, tr, s)
		}
	}
	return pdf
}

func writeLinks(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	parts := linkRe.FindAllStringSubmatchIndex(s, -1)
	if len(parts) == 0 {
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
		return
	}
	pos := 0
	for _, m := range parts {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
	pdf.Ln(6)
}
