package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCannedPosting_UsesPageTitle(t *testing.T) {
	out := cannedPosting("Voici le contenu de l'URL https://jobs.example/1 :\n\nTitre de la page : Data Engineer H/F\n")
	if !strings.HasPrefix(out, "```json\n") || !strings.HasSuffix(out, "\n```") {
		t.Fatalf("expected fenced answer, got %q", out)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(out, "```json\n"), "\n```")
	var rec map[string]any
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["title"] != "Data Engineer H/F" {
		t.Fatalf("title = %v", rec["title"])
	}
}
