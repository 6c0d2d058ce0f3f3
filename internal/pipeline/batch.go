package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/jobextract/internal/posting"
)

var errNoPromptExtractor = errors.New("prompt extraction not configured")

// Outcome is the result of one URL in a batch.
type Outcome struct {
	URL     string
	Posting *posting.JobPosting
	Err     error
}

// ExtractMany runs an independent pipeline per URL with at most concurrency
// in flight. One URL failing does not cancel the others. Outcomes keep the
// input order.
func (p *Pipeline) ExtractMany(ctx context.Context, urls []string, opts Options, concurrency int) []Outcome {
	out := make([]Outcome, len(urls))
	if concurrency <= 0 {
		concurrency = 1
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			rec, err := p.ExtractJobPosting(ctx, u, opts)
			out[i] = Outcome{URL: u, Posting: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
