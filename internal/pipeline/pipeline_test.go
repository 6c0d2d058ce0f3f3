package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/jobextract/internal/extract"
	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/fetch"
	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/prompt"
	"github.com/hyperifyio/jobextract/internal/respparse"
)

var filler = "<p>" + strings.Repeat("Notre équipe grandit et nous vous attendons. ", 40) + "</p>"

var structuredPage = `<html><head><title>Développeur Backend H/F - Acme Corp - CDI - Lyon 69</title></head><body>
<h1>Développeur Backend H/F - Acme Corp</h1>
<h2>Les missions du poste</h2>
<ul><li>Concevoir des APIs REST</li><li>Maintenir la plateforme Kafka</li></ul>
<h2>Le profil recherché</h2>
<p>Vous maîtrisez Java et PostgreSQL.</p>` + filler + `</body></html>`

var sparsePage = `<html><head><title>Offre</title>
<script type="application/ld+json">{"@type":"JobPosting","title":"Data Engineer","hiringOrganization":{"name":"Globex"},"jobLocation":{"address":{"addressLocality":"Nantes"}}}</script>
</head><body><div id="app">Postulez dès maintenant.</div>` + filler + `</body></html>`

type fakeFetcher struct {
	content string
	calls   int32
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (fetch.Page, error) {
	atomic.AddInt32(&f.calls, 1)
	return fetch.Page{URL: u, Content: f.content, Status: 200, Strategy: fetch.StrategyHTTP}, nil
}

type fakePrompt struct {
	text  string
	model string
	err   error
	calls int32
}

func (f *fakePrompt) Extract(_ context.Context, _ string, c extract.Condensed) (prompt.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return prompt.Result{}, f.err
	}
	return prompt.Result{Text: f.text, Model: f.model}, nil
}

type recordingSink struct {
	mu   sync.Mutex
	recs []posting.JobPosting
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Persist(_ context.Context, p posting.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, p)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newPipeline(content string, pr *fakePrompt, s *recordingSink) *Pipeline {
	return &Pipeline{
		HTTP:   &fakeFetcher{content: content},
		Prompt: pr,
		Parser: &respparse.Parser{},
		Sink:   s,
		Now:    func() time.Time { return fixedNow },
		NewID:  func() string { return "01TESTID" },
	}
}

func TestExtract_GatePassSkipsPrompt(t *testing.T) {
	pr := &fakePrompt{text: `{"title":"never"}`, model: "m"}
	s := &recordingSink{}
	rec, err := newPipeline(structuredPage, pr, s).ExtractJobPosting(context.Background(), "https://jobs.example/1", Options{UsePromptFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.calls != 0 {
		t.Fatalf("prompt extractor must not run when the structural record is good enough")
	}
	if rec.Source != posting.SourceStructural || rec.Title != "Développeur Backend" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ID != "01TESTID" || !rec.AnalyzedAt.Equal(fixedNow) || rec.URL != "https://jobs.example/1" || rec.Confidence <= 0 {
		t.Fatalf("record not stamped: %+v", rec)
	}
	if s.count() != 1 {
		t.Fatalf("expected one persisted record, got %d", s.count())
	}
}

func TestExtract_PromptFallback(t *testing.T) {
	pr := &fakePrompt{model: "mistral", text: "```json\n" + `{"title":"Data Engineer H/F","skills":["Python","Airflow"],"responsibilities":["Construire les pipelines"],"location":""}` + "\n```"}
	s := &recordingSink{}
	rec, err := newPipeline(sparsePage, pr, s).ExtractJobPosting(context.Background(), "https://jobs.example/2", Options{UsePromptFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.calls != 1 || rec.Source != posting.SourcePrompt || rec.Model != "mistral" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Title != "Data Engineer" || rec.Company != "Globex" || rec.Location != "Nantes" {
		t.Fatalf("JSON-LD did not fill empty fields: %+v", rec)
	}
	if s.count() != 1 || s.recs[0].Source != posting.SourcePrompt {
		t.Fatalf("prompt record not persisted")
	}
}

func TestExtract_FallbackDisabledReturnsStructural(t *testing.T) {
	pr := &fakePrompt{}
	rec, err := newPipeline(sparsePage, pr, &recordingSink{}).ExtractJobPosting(context.Background(), "https://jobs.example/3", Options{})
	if err != nil || rec == nil || rec.Source != posting.SourceStructural {
		t.Fatalf("expected structural record, got %+v %v", rec, err)
	}
	if pr.calls != 0 {
		t.Fatalf("prompt extractor must not run when disabled")
	}
}

func TestExtract_ForcePrompt(t *testing.T) {
	pr := &fakePrompt{model: "m", text: `{"title":"Forcé","skills":["Go"]}`}
	rec, err := newPipeline(structuredPage, pr, &recordingSink{}).ExtractJobPosting(context.Background(), "u", Options{ForcePrompt: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.calls != 1 || rec.Title != "Forcé" {
		t.Fatalf("force prompt ignored: %+v", rec)
	}
}

func TestExtract_ModelFailureReturnsPartial(t *testing.T) {
	pr := &fakePrompt{err: failure.ModelResponse([]failure.Attempt{{Model: "a"}, {Model: "b"}}, errors.New("refused"))}
	s := &recordingSink{}
	rec, err := newPipeline(sparsePage, pr, s).ExtractJobPosting(context.Background(), "https://jobs.example/4", Options{UsePromptFallback: true})
	if failure.KindOf(err) != failure.KindModelResponse {
		t.Fatalf("expected MODEL_RESPONSE_FAILED, got %v", err)
	}
	if rec == nil || rec.Source != posting.SourceStructural || rec.URL != "https://jobs.example/4" {
		t.Fatalf("partial structural record missing: %+v", rec)
	}
	if s.count() != 0 {
		t.Fatalf("partial record must not be persisted")
	}
}

func TestExtract_ParseFailureIsTerminal(t *testing.T) {
	pr := &fakePrompt{model: "m", text: "Désolé, je ne peux pas."}
	s := &recordingSink{}
	rec, err := newPipeline(sparsePage, pr, s).ExtractJobPosting(context.Background(), "u", Options{UsePromptFallback: true})
	if failure.KindOf(err) != failure.KindParse || rec != nil {
		t.Fatalf("expected PARSE_FAILED without record, got %+v %v", rec, err)
	}
	if s.count() != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestExtract_TinyBodyAbortsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Accès refusé pour ce client.</body></html>"))
	}))
	defer srv.Close()

	pr := &fakePrompt{}
	s := &recordingSink{}
	p := &Pipeline{HTTP: &fetch.HTTPFetcher{Timeout: time.Second}, Prompt: pr, Parser: &respparse.Parser{}, Sink: s}
	rec, err := p.ExtractJobPosting(context.Background(), srv.URL, Options{UsePromptFallback: true})
	if failure.KindOf(err) != failure.KindInsufficient || rec != nil {
		t.Fatalf("expected INSUFFICIENT_CONTENT, got %+v %v", rec, err)
	}
	if pr.calls != 0 || s.count() != 0 {
		t.Fatalf("no extractor or sink may run after a fetch failure")
	}
}

func TestExtract_BrowserNotConfigured(t *testing.T) {
	p := newPipeline(structuredPage, &fakePrompt{}, &recordingSink{})
	_, err := p.ExtractJobPosting(context.Background(), "https://jobs.example/5", Options{UseHeadlessBrowser: true})
	if failure.KindOf(err) != failure.KindFetch {
		t.Fatalf("expected FETCH_FAILED, got %v", err)
	}
}

func TestExtractMany_KeepsOrder(t *testing.T) {
	s := &recordingSink{}
	p := newPipeline(structuredPage, &fakePrompt{}, s)
	var urls []string
	for i := 0; i < 8; i++ {
		urls = append(urls, fmt.Sprintf("https://jobs.example/%d", i))
	}
	out := p.ExtractMany(context.Background(), urls, Options{}, 3)
	if len(out) != len(urls) {
		t.Fatalf("expected %d outcomes, got %d", len(urls), len(out))
	}
	for i, o := range out {
		if o.URL != urls[i] || o.Err != nil || o.Posting == nil || o.Posting.URL != urls[i] {
			t.Fatalf("outcome %d out of order or failed: %+v", i, o)
		}
	}
	if s.count() != len(urls) {
		t.Fatalf("expected %d persisted records, got %d", len(urls), s.count())
	}
}
