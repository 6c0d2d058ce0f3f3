// Command llm-stub serves canned job-posting extractions over both the
// OpenAI-compatible and the Ollama chat APIs, for local runs and CI.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Prompt string `json:"prompt"`
}

func (r chatRequest) userText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	var b strings.Builder
	for _, m := range r.Messages {
		if m.Role == "user" || m.Role == "" {
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	models := splitEnv("MODEL_ID", "mistral")
	failing := map[string]bool{}
	for _, m := range splitEnv("FAIL_MODELS", "") {
		failing[m] = true
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, 0, len(models))
		for _, m := range models {
			data = append(data, map[string]any{"id": m, "object": "model"})
		}
		writeJSON(w, map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, 0, len(models))
		for _, m := range models {
			data = append(data, map[string]any{"name": m + ":latest", "model": m + ":latest"})
		}
		writeJSON(w, map[string]any{"models": data})
	})

	answer := func(w http.ResponseWriter, r *http.Request) (chatRequest, string, bool) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return req, "", false
		}
		if failing[strings.TrimSuffix(req.Model, ":latest")] {
			log.Info().Str("model", req.Model).Msg("simulating model failure")
			http.Error(w, `{"error":"model failed to load"}`, http.StatusInternalServerError)
			return req, "", false
		}
		content := cannedPosting(req.userText())
		log.Info().Str("model", req.Model).Str("path", r.URL.Path).Int("bytes", len(content)).Msg("served completion")
		return req, content, true
	}

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		req, content, ok := answer(w, r)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{
			"id":      "chatcmpl-stub",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		req, content, ok := answer(w, r)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{
			"model":      req.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
			"message":    map[string]any{"role": "assistant", "content": content},
			"done":       true,
		})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		req, content, ok := answer(w, r)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{
			"model":      req.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
			"response":   content,
			"done":       true,
		})
	})

	log.Info().Str("addr", addr).Strs("models", models).Msg("llm stub listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

// cannedPosting builds a fenced JSON answer from the page title in the
// prompt so that different URLs produce distinguishable records.
func cannedPosting(prompt string) string {
	title := "Développeur Go"
	for _, line := range strings.Split(prompt, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "Titre de la page :"); ok && strings.TrimSpace(v) != "" {
			title = strings.TrimSpace(v)
			break
		}
	}
	rec := map[string]any{
		"title":            title,
		"company":          "Acme",
		"location":         "Paris",
		"contractType":     "CDI",
		"skills":           []string{"Go", "Docker", "Kubernetes"},
		"salary":           "45 000 - 55 000 € par an",
		"experience":       "3 ans minimum",
		"education":        "Bac+5",
		"summary":          "Poste de développeur backend au sein d'une équipe produit.",
		"responsibilities": []string{"Concevoir des services", "Assurer la qualité du code"},
		"benefits":         []string{"Tickets restaurant", "Mutuelle"},
	}
	b, _ := json.MarshalIndent(rec, "", "  ")
	return "```json\n" + string(b) + "\n```"
}

func splitEnv(key, def string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		v = def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
