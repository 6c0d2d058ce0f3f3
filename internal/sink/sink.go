// Package sink persists extracted job postings and archives raw model output.
// Persistence is fire-and-forget for the pipeline: wrap any Sink with Logged
// so failures are reported as PERSIST_FAILED in the log and never returned.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/posting"
)

// Sink stores a finished record.
type Sink interface {
	Persist(ctx context.Context, p posting.JobPosting) error
	Name() string
}

// RawArchive keeps raw model answers that did not parse as JSON.
type RawArchive interface {
	SaveRaw(ctx context.Context, url, model, text string) error
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

func (m Multi) Persist(ctx context.Context, p posting.JobPosting) error {
	var errs []error
	for _, s := range m {
		if err := s.Persist(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// MultiRaw archives to every target and joins their errors.
type MultiRaw []RawArchive

func (m MultiRaw) SaveRaw(ctx context.Context, url, model, text string) error {
	var errs []error
	for _, a := range m {
		if err := a.SaveRaw(ctx, url, model, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type logged struct{ inner Sink }

// Logged wraps s so that Persist never fails. Errors are logged as
// PERSIST_FAILED with the record id and url.
func Logged(s Sink) Sink { return logged{inner: s} }

func (l logged) Name() string { return l.inner.Name() }

func (l logged) Persist(ctx context.Context, p posting.JobPosting) error {
	if err := l.inner.Persist(ctx, p); err != nil {
		fe := failure.Persist(l.inner.Name(), err)
		log.Error().Str("stage", "persist").Str("sink", l.inner.Name()).Str("id", p.ID).Str("url", p.URL).Str("kind", string(fe.Kind)).Err(err).Msg("persist failed")
		return nil
	}
	log.Debug().Str("stage", "persist").Str("sink", l.inner.Name()).Str("id", p.ID).Msg("record persisted")
	return nil
}

// Discard drops every record.
type Discard struct{}

func (Discard) Name() string                                     { return "discard" }
func (Discard) Persist(context.Context, posting.JobPosting) error { return nil }

// FileName is the object name used by file-like sinks:
// job-analysis-<html|llm>-<id>.json.
func FileName(p posting.JobPosting) string {
	return "job-analysis-" + sourceTag(p.Source) + "-" + recordID(p) + ".json"
}

// RawFileName is the object name for an archived raw response.
func RawFileName() string {
	return "job-analysis-raw-" + ulid.Make().String() + ".txt"
}

func sourceTag(source string) string {
	switch source {
	case posting.SourceStructural:
		return "html"
	case posting.SourcePrompt:
		return "llm"
	}
	return "record"
}

func recordID(p posting.JobPosting) string {
	if p.ID != "" {
		return p.ID
	}
	return ulid.Make().String()
}
