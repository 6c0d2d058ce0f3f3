// Package pipeline orchestrates one extraction request: fetch, structural
// extraction, an optional prompt-based fallback, parsing and persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/extract"
	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/fetch"
	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/prompt"
	"github.com/hyperifyio/jobextract/internal/sink"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

// Options select strategies for a single request.
type Options struct {
	UsePromptFallback  bool
	UseHeadlessBrowser bool
	// ForcePrompt skips the structural gate and always asks a model.
	ForcePrompt bool
}

// PromptExtractor asks a model for a raw answer about a condensed page.
type PromptExtractor interface {
	Extract(ctx context.Context, url string, c extract.Condensed) (prompt.Result, error)
}

// ResponseParser turns a raw model answer into a record.
type ResponseParser interface {
	Parse(ctx context.Context, url, model, raw string) (posting.JobPosting, error)
}

// Pipeline holds the collaborators of a request. Instances carry no
// per-request state and may serve concurrent calls.
type Pipeline struct {
	HTTP       fetch.Fetcher
	Browser    fetch.Fetcher
	Structural extract.Extractor
	Vocab      *vocab.Vocabulary
	Prompt     PromptExtractor
	Parser     ResponseParser
	// Sink is wrapped with sink.Logged; nil discards records.
	Sink       sink.Sink
	BodySample int
	Now        func() time.Time
	NewID      func() string
}

// ExtractJobPosting runs the pipeline for url.
//
// FETCH_FAILED, INSUFFICIENT_CONTENT and PARSE_FAILED return a nil record.
// MODEL_RESPONSE_FAILED returns the structural record together with the
// error; that partial record is not persisted.
func (p *Pipeline) ExtractJobPosting(ctx context.Context, url string, opts Options) (*posting.JobPosting, error) {
	start := time.Now()
	page, err := p.fetch(ctx, url, opts)
	if err != nil {
		log.Warn().Str("stage", "fetch").Str("url", url).Str("kind", string(failure.KindOf(err))).Err(err).Msg("fetch failed")
		return nil, err
	}
	log.Debug().Str("stage", "fetch").Str("url", url).Str("strategy", page.Strategy).Int("bytes", len(page.Content)).Dur("elapsed", time.Since(start)).Msg("page fetched")

	body := []byte(page.Content)
	rec := p.structural().Extract(body)
	gate := rec.GoodEnough()
	log.Debug().Str("stage", "structural").Str("url", url).Int("skills", len(rec.Skills)).Int("responsibilities", len(rec.Responsibilities)).Bool("good_enough", gate).Msg("structural extraction")

	if !opts.ForcePrompt && (gate || !opts.UsePromptFallback) {
		rec.Source = posting.SourceStructural
		p.finish(ctx, &rec, url)
		return &rec, nil
	}

	if p.Prompt == nil || p.Parser == nil {
		rec.Source = posting.SourceStructural
		p.stamp(&rec, url)
		return &rec, failure.ModelResponse(nil, errNoPromptExtractor)
	}
	c := extract.Condense(body, p.BodySample, p.vocab())
	res, err := p.Prompt.Extract(ctx, url, c)
	if err != nil {
		rec.Source = posting.SourceStructural
		p.stamp(&rec, url)
		log.Warn().Str("stage", "prompt").Str("url", url).Err(err).Msg("returning partial structural record")
		return &rec, err
	}

	parsed, err := p.Parser.Parse(ctx, url, res.Model, res.Text)
	if err != nil {
		return nil, err
	}
	if ld, ok := extract.JobPostingFromJSONLD(c.JSONLD); ok {
		extract.FillEmpty(&parsed, ld)
	}
	extract.FillEmpty(&parsed, rec)
	parsed.Source = posting.SourcePrompt
	p.finish(ctx, &parsed, url)
	log.Info().Str("url", url).Str("source", parsed.Source).Str("model", parsed.Model).Float64("confidence", parsed.Confidence).Dur("elapsed", time.Since(start)).Msg("extraction complete")
	return &parsed, nil
}

func (p *Pipeline) fetch(ctx context.Context, url string, opts Options) (fetch.Page, error) {
	f := p.HTTP
	if opts.UseHeadlessBrowser {
		f = p.Browser
	}
	if f == nil {
		return fetch.Page{}, failure.Fetch("no fetcher configured for the requested strategy", nil)
	}
	return f.Fetch(ctx, url)
}

// stamp assigns identity, url, time and the diagnostic score.
func (p *Pipeline) stamp(rec *posting.JobPosting, url string) {
	rec.URL = url
	rec.ID = p.newID()
	rec.AnalyzedAt = p.now().UTC()
	rec.Normalize()
	rec.Confidence = rec.Score()
}

func (p *Pipeline) finish(ctx context.Context, rec *posting.JobPosting, url string) {
	p.stamp(rec, url)
	if p.Sink != nil {
		_ = sink.Logged(p.Sink).Persist(ctx, *rec)
	}
}

func (p *Pipeline) structural() extract.Extractor {
	if p.Structural != nil {
		return p.Structural
	}
	return extract.StructuralExtractor{Vocab: p.vocab()}
}

func (p *Pipeline) vocab() *vocab.Vocabulary {
	if p.Vocab != nil {
		return p.Vocab
	}
	return vocab.Default()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return ulid.Make().String()
}
