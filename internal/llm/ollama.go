package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaGenerator talks to an Ollama server through langchaingo. The bearer
// credential, when set, is attached to every request for servers that sit
// behind an authenticating proxy.
type OllamaGenerator struct {
	baseURL string
	http    *http.Client
	model   llms.Model
}

// NewOllamaGenerator builds a generator for baseURL (without the /api
// suffix). defaultModel is used when a Request leaves Model empty.
func NewOllamaGenerator(baseURL, defaultModel, apiKey string, hc *http.Client) (*OllamaGenerator, error) {
	if hc == nil {
		hc = &http.Client{}
	}
	if apiKey != "" {
		clone := *hc
		clone.Transport = &bearerTransport{token: apiKey, base: hc.Transport}
		hc = &clone
	}
	baseURL = strings.TrimRight(baseURL, "/")
	m, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(defaultModel),
		ollama.WithHTTPClient(hc),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &OllamaGenerator{baseURL: baseURL, http: hc, model: m}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, req.Prompt, opts...)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text}, nil
}

// ModelNames lists the models installed on the server via /api/tags.
func (g *OllamaGenerator) ModelNames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names, nil
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
