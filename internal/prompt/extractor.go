package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/budget"
	"github.com/hyperifyio/jobextract/internal/extract"
	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/llm"
)

const (
	DefaultTimeout   = 2 * time.Minute
	DefaultMaxTokens = 8192
)

var errEmptyResponse = errors.New("empty response")

// Extractor asks each model in Models, in order, until one answers.
type Extractor struct {
	Generator   llm.Generator
	Models      []string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// ContextTokens overrides the per-model context estimate when > 0.
	ContextTokens int
}

// Result is the accepted model answer plus every attempt made to get it.
type Result struct {
	Text     string
	Model    string
	Attempts []failure.Attempt
}

// Extract builds the prompt for each candidate model and returns the first
// non-empty answer. When no model answers the error is a
// MODEL_RESPONSE_FAILED carrying all attempts.
func (e *Extractor) Extract(ctx context.Context, url string, c extract.Condensed) (Result, error) {
	if e.Generator == nil {
		return Result{}, failure.ModelResponse(nil, errors.New("no generator configured"))
	}
	models := candidates(e.Models)
	if len(models) == 0 {
		return Result{}, failure.ModelResponse(nil, errors.New("no models configured"))
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTokens := e.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var attempts []failure.Attempt
	var lastErr error
	for i, model := range models {
		prompt := e.promptFor(model, url, c, maxTokens)
		log.Debug().Str("stage", "prompt").Str("url", url).Str("model", model).Int("attempt", i+1).Int("prompt_len", len(prompt)).Msg("model request")

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		resp, err := e.Generator.Generate(attemptCtx, llm.Request{
			Model:       model,
			Prompt:      prompt,
			Temperature: e.Temperature,
			MaxTokens:   maxTokens,
		})
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()
		elapsed := time.Since(start)
		if err == nil && strings.TrimSpace(resp.Text) == "" {
			err = errEmptyResponse
		}
		if err != nil {
			if timedOut {
				err = fmt.Errorf("model %s timed out after %s: %w", model, timeout, err)
			} else {
				err = fmt.Errorf("model %s: %w", model, err)
			}
			attempts = append(attempts, failure.Attempt{Model: model, Elapsed: elapsed, Timeout: timedOut, Err: err.Error()})
			lastErr = err
			log.Warn().Str("stage", "prompt").Str("url", url).Str("model", model).Int("attempt", i+1).Dur("elapsed", elapsed).Bool("timeout", timedOut).Err(err).Msg("model attempt failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		attempts = append(attempts, failure.Attempt{Model: model, Elapsed: elapsed})
		log.Info().Str("stage", "prompt").Str("url", url).Str("model", model).Int("attempt", i+1).Dur("elapsed", elapsed).Int("response_len", len(resp.Text)).Msg("model answered")
		return Result{Text: resp.Text, Model: model, Attempts: attempts}, nil
	}
	return Result{Attempts: attempts}, failure.ModelResponse(attempts, lastErr)
}

// promptFor renders the prompt with the body sample cut so that prompt plus
// reserved output fits the model's context estimate. At most half the
// context is reserved for output.
func (e *Extractor) promptFor(model, url string, c extract.Condensed, maxTokens int) string {
	body := c.BodySample
	c.BodySample = ""
	overhead := budget.EstimateTokens(BuildPrompt(url, c))

	window := e.ContextTokens
	if window <= 0 {
		window = budget.ModelContextTokens(model)
	}
	reserved := maxTokens
	if reserved > window/2 {
		reserved = window / 2
	}
	avail := window - reserved - budget.HeadroomTokens(model) - overhead
	if e.ContextTokens > 0 {
		avail = window - reserved - overhead
	}
	if avail < 0 {
		avail = 0
	}
	c.BodySample = extract.Truncate(body, budget.CharsForTokens(avail))
	return BuildPrompt(url, c)
}

// candidates drops blanks and duplicates, keeping priority order.
func candidates(models []string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
