package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/jobextract/internal/extract"
	"github.com/hyperifyio/jobextract/internal/failure"
	"github.com/hyperifyio/jobextract/internal/fetch"
	"github.com/hyperifyio/jobextract/internal/llm"
	"github.com/hyperifyio/jobextract/internal/pipeline"
	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/prompt"
	"github.com/hyperifyio/jobextract/internal/report"
	"github.com/hyperifyio/jobextract/internal/respparse"
	"github.com/hyperifyio/jobextract/internal/sink"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

// ErrHardFailure is returned by Run when at least one URL ended with
// FETCH_FAILED, INSUFFICIENT_CONTENT or PARSE_FAILED. The CLI maps it to a
// non-zero exit code.
var ErrHardFailure = errors.New("one or more URLs could not be extracted")

type App struct {
	cfg       Config
	pipeline  *pipeline.Pipeline
	generator llm.Generator
	closers   []func() error
	out       io.Writer
}

// New wires every component from cfg. Sinks that need a connection are
// dialled here so misconfiguration fails before any URL is fetched.
func New(ctx context.Context, cfg Config) (*App, error) {
	v, err := vocab.Load(cfg.VocabFile)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	log.Info().Str("version", v.Version).Str("file", cfg.VocabFile).Msg("vocabulary loaded")

	a := &App{cfg: cfg, out: os.Stdout}

	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	a.generator = gen

	sinks, raw, err := a.buildSinks(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.SinkMaxAge > 0 && cfg.SinkDir != "" {
		if n, err := sink.PurgeByAge(cfg.SinkDir, cfg.SinkMaxAge); err != nil {
			log.Warn().Err(err).Str("dir", cfg.SinkDir).Msg("purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Str("dir", cfg.SinkDir).Msg("purged old records")
		}
	}

	a.pipeline = &pipeline.Pipeline{
		HTTP: &fetch.HTTPFetcher{
			UserAgent:       cfg.UserAgent,
			Timeout:         cfg.FetchTimeout,
			MinContentChars: cfg.FetchMinChars,
			MaxConcurrent:   cfg.Concurrency,
		},
		Browser: &fetch.BrowserFetcher{
			Bin:             cfg.BrowserBin,
			UserAgent:       cfg.UserAgent,
			WaitTimeout:     cfg.BrowserWait,
			RootSelector:    cfg.BrowserRootSelector,
			MinContentChars: cfg.FetchMinChars,
		},
		Structural: extract.StructuralExtractor{Vocab: v},
		Vocab:      v,
		Prompt: &prompt.Extractor{
			Generator:     gen,
			Models:        cfg.Models(),
			Timeout:       cfg.LLMTimeout,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			ContextTokens: cfg.LLMContextTokens,
		},
		Parser:     &respparse.Parser{Vocab: v, Raw: raw},
		Sink:       sinks,
		BodySample: cfg.BodySampleChars,
	}
	return a, nil
}

func newGenerator(cfg Config) (llm.Generator, error) {
	hc := newHighThroughputHTTPClient(0)
	switch cfg.LLMBackend {
	case BackendOllama:
		base := strings.TrimSuffix(strings.TrimRight(cfg.LLMBaseURL, "/"), "/v1")
		g, err := llm.NewOllamaGenerator(base, cfg.LLMModel, cfg.LLMAPIKey, hc)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		p := llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, func(c *openai.ClientConfig) {
			c.HTTPClient = hc
		})
		return &llm.OpenAIGenerator{Client: p}, nil
	}
}

// buildSinks returns the combined record sink and raw archive. The file
// sink is always present unless SinkDir is empty.
func (a *App) buildSinks(ctx context.Context) (sink.Sink, respparse.Archiver, error) {
	cfg := a.cfg
	var sinks sink.Multi
	var raws sink.MultiRaw
	if cfg.SinkDir != "" {
		sinks = append(sinks, &sink.FileSink{Dir: cfg.SinkDir, StrictPerms: cfg.SinkStrictPerms})
		raws = append(raws, &sink.FileRawArchive{Dir: cfg.SinkDir, StrictPerms: cfg.SinkStrictPerms})
	}
	if cfg.SinkSQLite != "" {
		s, err := sink.OpenSQLite(cfg.SinkSQLite)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		sinks = append(sinks, s)
	}
	if cfg.SinkS3Bucket != "" {
		client, err := sink.NewS3Client(ctx, sink.S3Config{
			Endpoint:  cfg.SinkS3Endpoint,
			Region:    cfg.SinkS3Region,
			Bucket:    cfg.SinkS3Bucket,
			AccessKey: cfg.SinkS3AccessKey,
			SecretKey: cfg.SinkS3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, &sink.S3Sink{Client: client, Bucket: cfg.SinkS3Bucket, Prefix: cfg.SinkS3Prefix})
		raws = append(raws, &sink.S3RawArchive{Client: client, Bucket: cfg.SinkS3Bucket, Prefix: cfg.SinkS3Prefix})
	}
	if cfg.SinkNATSURL != "" {
		s, err := sink.DialNATS(cfg.SinkNATSURL, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		if cfg.SinkNATSSubject != "" {
			s.Subject = cfg.SinkNATSSubject
		}
		a.closers = append(a.closers, func() error { s.Close(); return nil })
		sinks = append(sinks, s)
	}
	if cfg.SinkRedisAddr != "" {
		s := sink.NewRedisSink(cfg.SinkRedisAddr, cfg.SinkRedisPassword, cfg.SinkRedisDB, cfg.SinkRedisTTL)
		a.closers = append(a.closers, s.Close)
		sinks = append(sinks, s)
	}
	log.Debug().Int("sinks", len(sinks)).Int("raw_archives", len(raws)).Msg("sinks configured")

	var out sink.Sink = sink.Discard{}
	if len(sinks) > 0 {
		out = sinks
	}
	var raw respparse.Archiver
	if len(raws) > 0 {
		raw = raws
	}
	return out, raw, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// ErrorInfo is the machine-readable failure printed for a URL.
type ErrorInfo struct {
	Kind   failure.Kind `json:"kind"`
	Detail string       `json:"detail"`
	Models []string     `json:"models,omitempty"`
}

// Result is one entry of the CLI output.
type Result struct {
	URL     string              `json:"url"`
	Posting *posting.JobPosting `json:"posting,omitempty"`
	Error   *ErrorInfo          `json:"error,omitempty"`
}

// Run extracts every configured URL, writes the JSON results and optional
// Markdown/PDF renderings, and reports ErrHardFailure per the exit policy.
func (a *App) Run(ctx context.Context) error {
	opts := pipeline.Options{
		UsePromptFallback:  a.cfg.UsePrompt,
		UseHeadlessBrowser: a.cfg.UseBrowser,
		ForcePrompt:        a.cfg.ForcePrompt,
	}
	outcomes := a.pipeline.ExtractMany(ctx, a.cfg.URLs, opts, a.cfg.Concurrency)

	results := make([]Result, 0, len(outcomes))
	var postings []posting.JobPosting
	hard := false
	for _, o := range outcomes {
		r := Result{URL: o.URL, Posting: o.Posting}
		if o.Err != nil {
			r.Error = errorInfo(o.Err)
			if failure.Terminal(r.Error.Kind) || r.Error.Kind == "" {
				hard = true
			}
			log.Warn().Str("url", o.URL).Str("kind", string(r.Error.Kind)).Msg(summary(o.Err))
			logStack(o.URL, o.Err)
		}
		if o.Posting != nil {
			postings = append(postings, *o.Posting)
		}
		results = append(results, r)
	}

	if err := a.writeResults(results); err != nil {
		return err
	}
	if err := a.writeRenderings(postings); err != nil {
		return err
	}
	if hard {
		return ErrHardFailure
	}
	return nil
}

func errorInfo(err error) *ErrorInfo {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return &ErrorInfo{Kind: fe.Kind, Detail: fe.Error(), Models: fe.Models()}
	}
	return &ErrorInfo{Detail: err.Error()}
}

func summary(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Summary()
	}
	return err.Error()
}

// logStack emits the origin stack of a pipeline failure at debug level.
func logStack(url string, err error) {
	var fe *failure.Error
	if errors.As(err, &fe) && len(fe.StackTrace()) > 0 {
		log.Debug().Str("url", url).Str("kind", string(fe.Kind)).Bytes("stack", fe.StackTrace()).Msg("failure origin")
	}
}

func (a *App) writeResults(results []Result) error {
	w := a.out
	if a.cfg.OutputPath != "" && a.cfg.OutputPath != "-" {
		f, err := os.Create(a.cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

func (a *App) writeRenderings(postings []posting.JobPosting) error {
	for i, p := range postings {
		if a.cfg.MarkdownPath != "" {
			path := indexedPath(a.cfg.MarkdownPath, i, len(postings))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create markdown: %w", err)
			}
			err = report.WriteMarkdown(f, p)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write markdown: %w", err)
			}
		}
		if a.cfg.PDFPath != "" {
			if err := report.WritePDF(indexedPath(a.cfg.PDFPath, i, len(postings)), p); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
		}
	}
	return nil
}

// indexedPath returns path unchanged for a single record and inserts a
// 1-based index before the extension otherwise: job.md -> job-2.md.
func indexedPath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}

// CheckModels lists the backend's models and reports, for each configured
// candidate, whether it is installed. It fails when none is available.
func (a *App) CheckModels(ctx context.Context, w io.Writer) error {
	catalog, ok := a.generator.(llm.ModelCatalog)
	if !ok {
		return errors.New("backend does not support model listing")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	names, err := catalog.ModelNames(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	installed := make(map[string]bool, len(names))
	for _, n := range names {
		installed[n] = true
		installed[strings.TrimSuffix(n, ":latest")] = true
	}
	found := 0
	for _, m := range a.cfg.Models() {
		status := "missing"
		if installed[m] || installed[strings.TrimSuffix(m, ":latest")] {
			status = "available"
			found++
		}
		fmt.Fprintf(w, "%-32s %s\n", m, status)
	}
	fmt.Fprintf(w, "%d model(s) on %s backend at %s\n", len(names), a.cfg.LLMBackend, a.cfg.LLMBaseURL)
	if found == 0 {
		return errors.New("none of the configured models is available")
	}
	return nil
}
