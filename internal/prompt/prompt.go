// Package prompt is the prompt-based extractor: it renders a condensed page
// into a fixed-schema instruction prompt and asks a prioritized list of
// models for a JSON answer.
package prompt

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/hyperifyio/jobextract/internal/extract"
)

// schema is the JobPosting shape with empty placeholders, embedded verbatim.
const schema = `{
  "title": "",
  "company": "",
  "location": "",
  "contractType": "",
  "skills": [],
  "salary": "",
  "experience": "",
  "education": "",
  "summary": "",
  "responsibilities": [],
  "benefits": []
}`

const instructions = `Tu es un système d'extraction d'information spécialisé dans les offres d'emploi.

Analyse cette offre d'emploi et retourne UNIQUEMENT un objet JSON avec EXACTEMENT cette structure :

` + schema + `

IMPORTANT :
- Ta réponse doit contenir UNIQUEMENT le JSON valide, sans texte explicatif, sans bloc de code, sans formatage
- Réponds UNIQUEMENT en français

INSTRUCTIONS D'EXTRACTION :
- "title" : le titre du poste (sans le H/F)
- "company" : le nom de l'entreprise
- "location" : le lieu de travail
- "contractType" : le type de contrat (CDI, CDD, Stage, Alternance, Freelance)
- "skills" : toutes les compétences techniques mentionnées (langages, frameworks, outils, technologies)
- "salary" : l'information de salaire telle qu'écrite
- "experience" : l'expérience requise
- "education" : le niveau d'études requis
- "summary" : un résumé du poste en une ou deux phrases
- "responsibilities" : les principales missions du poste (liste)
- "benefits" : les avantages proposés (télétravail, tickets restaurant, mutuelle, RTT, primes...)

CHERCHE ATTENTIVEMENT dans les sections "missions" pour les responsabilités, "profil recherché" pour les compétences et l'expérience, "infos complémentaires" ou "avantages" pour les avantages.

NE LAISSE AUCUN CHAMP VIDE si l'information est disponible dans le texte.`

const (
	maxMetaChars   = 1500
	maxJSONLDChars = 3000
)

// BuildPrompt renders the instruction prompt for url from a condensed page.
func BuildPrompt(url string, c extract.Condensed) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nVoici le contenu de l'URL ")
	b.WriteString(url)
	b.WriteString(" :\n\nTitre de la page : ")
	b.WriteString(c.Title)

	if meta := renderMeta(c.Meta); meta != "" {
		b.WriteString("\n\nMétadonnées :\n")
		b.WriteString(meta)
	}
	if ld := renderJSONLD(c.JSONLD); ld != "" {
		b.WriteString("\n\nDonnées structurées (JSON-LD) :\n")
		b.WriteString(ld)
	}
	for _, sec := range []struct{ key, label string }{
		{extract.SectionMissions, "Section missions"},
		{extract.SectionProfile, "Section profil"},
		{extract.SectionBenefits, "Section avantages"},
	} {
		if text := c.Sections[sec.key]; text != "" {
			b.WriteString("\n\n")
			b.WriteString(sec.label)
			b.WriteString(" :\n")
			b.WriteString(text)
		}
	}
	b.WriteString("\n\nContenu :\n")
	b.WriteString(c.BodySample)
	b.WriteString("\n")
	return b.String()
}

func renderMeta(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		line := "- " + k + " : " + meta[k] + "\n"
		if b.Len()+len(line) > maxMetaChars {
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderJSONLD(objs []map[string]any) string {
	var parts []string
	total := 0
	for _, o := range objs {
		raw, err := json.Marshal(o)
		if err != nil {
			continue
		}
		if total+len(raw) > maxJSONLDChars {
			break
		}
		total += len(raw)
		parts = append(parts, string(raw))
	}
	return strings.Join(parts, "\n")
}
