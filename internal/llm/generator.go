// Package llm defines the generation protocol used by the prompt-based
// extractor and its OpenAI-compatible and Ollama backends.
package llm

import (
	"context"
	"errors"
	"math"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// Request is a single-prompt generation call.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response carries the raw model text.
type Response struct {
	Text string
}

// Generator issues one generation request. Implementations honor ctx
// cancellation; the caller owns timeouts.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// ModelCatalog lists the model identifiers a backend can serve.
type ModelCatalog interface {
	ModelNames(ctx context.Context) ([]string, error)
}

// ErrNoChoices is returned when a backend answers without any completion.
var ErrNoChoices = errors.New("no choices in completion response")

// OpenAIGenerator speaks the OpenAI chat completion protocol through Client.
type OpenAIGenerator struct {
	Client Client
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: req.Prompt}},
		Temperature: minTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
		N:           1,
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrNoChoices
	}
	return Response{Text: resp.Choices[0].Message.Content}, nil
}

// ModelNames implements ModelCatalog when the client can list models.
func (g *OpenAIGenerator) ModelNames(ctx context.Context) ([]string, error) {
	lister, ok := g.Client.(ModelLister)
	if !ok {
		return nil, errors.New("backend does not support model listing")
	}
	list, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}

// minTemperature maps 0 to the smallest positive value: the request field
// is omitted when zero, which lets servers fall back to their own default.
func minTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
