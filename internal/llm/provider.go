package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal chat-completion surface of an OpenAI-compatible
// backend. Tests substitute fakes for it.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability that allows listing available models.
// Callers detect it with a type assertion.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}

// NewOpenAIProvider builds a provider for an OpenAI-compatible endpoint.
// baseURL should include the /v1 suffix; an empty apiKey is allowed for local
// servers that do not check credentials.
func NewOpenAIProvider(baseURL, apiKey string, opts ...func(*openai.ClientConfig)) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}
