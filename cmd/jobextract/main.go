package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("could not load .env")
	}
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	if opts.showVersion {
		fmt.Printf("jobextract %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	if opts.logJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if opts.cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	os.Exit(exitCode(run(opts.cfg)))
}

// exitCode maps run errors to the process exit policy: 2 when a URL ended
// with a terminal extraction failure, 1 for setup errors, 0 otherwise.
// Partial records with a model failure still exit 0.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrHardFailure):
		log.Error().Err(err).Msg("extraction failed")
		return 2
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}

func run(cfg app.Config) error {
	ctx := context.Background()
	if err := app.ValidateConfig(cfg); err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if cfg.CheckModels {
		return a.CheckModels(ctx, os.Stdout)
	}
	return a.Run(ctx)
}

type cliOptions struct {
	cfg         app.Config
	logJSON     bool
	showVersion bool
}

// binder registers flags and remembers how to copy each one into a Config,
// so that only flags given on the command line override file and env values.
type binder struct {
	fs    *flag.FlagSet
	apply map[string]func(*app.Config)
}

func (b *binder) str(name, def, usage string, set func(*app.Config, string)) {
	p := b.fs.String(name, def, usage)
	b.apply[name] = func(c *app.Config) { set(c, *p) }
}

func (b *binder) boolean(name string, def bool, usage string, set func(*app.Config, bool)) {
	p := b.fs.Bool(name, def, usage)
	b.apply[name] = func(c *app.Config) { set(c, *p) }
}

func (b *binder) integer(name string, def int, usage string, set func(*app.Config, int)) {
	p := b.fs.Int(name, def, usage)
	b.apply[name] = func(c *app.Config) { set(c, *p) }
}

func (b *binder) float(name string, def float64, usage string, set func(*app.Config, float64)) {
	p := b.fs.Float64(name, def, usage)
	b.apply[name] = func(c *app.Config) { set(c, *p) }
}

func (b *binder) duration(name string, def time.Duration, usage string, set func(*app.Config, time.Duration)) {
	p := b.fs.Duration(name, def, usage)
	b.apply[name] = func(c *app.Config) { set(c, *p) }
}

// parseFlags resolves configuration with precedence flags > env > file >
// defaults. Positional arguments are the URLs to extract.
func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	d := app.DefaultConfig()
	fs := flag.NewFlagSet("jobextract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: jobextract [flags] <url>...\n\n")
		fs.PrintDefaults()
	}
	b := &binder{fs: fs, apply: map[string]func(*app.Config){}}

	var opts cliOptions
	configPath := fs.String("config", os.Getenv("JOBEXTRACT_CONFIG"), "Path to YAML or JSON config file")
	fs.BoolVar(&opts.logJSON, "log.json", false, "Log raw JSON lines instead of console output")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	b.str("out", "", "Write JSON results to this file (default stdout)", func(c *app.Config, v string) { c.OutputPath = v })
	b.str("md", "", "Also render each record as Markdown to this path", func(c *app.Config, v string) { c.MarkdownPath = v })
	b.str("pdf", "", "Also render each record as PDF to this path", func(c *app.Config, v string) { c.PDFPath = v })

	b.boolean("prompt", d.UsePrompt, "Fall back to prompt-based extraction when structural extraction is insufficient", func(c *app.Config, v bool) { c.UsePrompt = v })
	b.boolean("browser", d.UseBrowser, "Render pages in a headless browser instead of a plain HTTP GET", func(c *app.Config, v bool) { c.UseBrowser = v })
	b.boolean("force-prompt", false, "Always use prompt-based extraction", func(c *app.Config, v bool) { c.ForcePrompt = v })
	b.boolean("check-models", false, "List backend models, report which configured models are available, and exit", func(c *app.Config, v bool) { c.CheckModels = v })
	b.boolean("v", false, "Verbose logging", func(c *app.Config, v bool) { c.Verbose = v })
	b.integer("concurrency", d.Concurrency, "Number of URLs processed in parallel", func(c *app.Config, v int) { c.Concurrency = v })

	b.str("llm.backend", d.LLMBackend, "Model backend: openai or ollama", func(c *app.Config, v string) { c.LLMBackend = v })
	b.str("llm.base", d.LLMBaseURL, "Model endpoint base URL", func(c *app.Config, v string) { c.LLMBaseURL = v })
	b.str("llm.model", "", "Primary model name", func(c *app.Config, v string) { c.LLMModel = v })
	b.str("llm.fallbacks", "", "Comma-separated fallback models, in priority order", func(c *app.Config, v string) { c.LLMFallbackModels = app.SplitList(v) })
	b.str("llm.key", "", "Bearer credential for the model endpoint", func(c *app.Config, v string) { c.LLMAPIKey = v })
	b.duration("llm.timeout", d.LLMTimeout, "Wall-clock limit per model attempt", func(c *app.Config, v time.Duration) { c.LLMTimeout = v })
	b.float("llm.temperature", d.LLMTemperature, "Sampling temperature", func(c *app.Config, v float64) { c.LLMTemperature = v })
	b.integer("llm.maxTokens", d.LLMMaxTokens, "Maximum tokens to generate", func(c *app.Config, v int) { c.LLMMaxTokens = v })
	b.integer("llm.contextTokens", 0, "Override the model context size estimate (0 uses built-in table)", func(c *app.Config, v int) { c.LLMContextTokens = v })

	b.duration("fetch.timeout", d.FetchTimeout, "HTTP fetch timeout", func(c *app.Config, v time.Duration) { c.FetchTimeout = v })
	b.integer("fetch.minChars", d.FetchMinChars, "Minimum page characters before INSUFFICIENT_CONTENT", func(c *app.Config, v int) { c.FetchMinChars = v })
	b.str("fetch.ua", "", "User-Agent override", func(c *app.Config, v string) { c.UserAgent = v })
	b.str("browser.bin", "", "Path to a Chromium binary (default: managed download)", func(c *app.Config, v string) { c.BrowserBin = v })
	b.duration("browser.wait", d.BrowserWait, "Headless browser render timeout", func(c *app.Config, v time.Duration) { c.BrowserWait = v })
	b.str("browser.root", d.BrowserRootSelector, "CSS selector that must appear before the page is read", func(c *app.Config, v string) { c.BrowserRootSelector = v })
	b.integer("body.sampleChars", d.BodySampleChars, "Body characters sent to the model at most", func(c *app.Config, v int) { c.BodySampleChars = v })
	b.str("vocab", "", "Vocabulary YAML overriding the built-in tables", func(c *app.Config, v string) { c.VocabFile = v })

	b.str("sink.dir", d.SinkDir, "Directory for saved records and raw responses (empty disables)", func(c *app.Config, v string) { c.SinkDir = v })
	b.boolean("sink.strictPerms", false, "Restrict sink permissions (0700 dirs, 0600 files)", func(c *app.Config, v bool) { c.SinkStrictPerms = v })
	b.duration("sink.maxAge", 0, "Purge saved files older than this at startup (0 disables)", func(c *app.Config, v time.Duration) { c.SinkMaxAge = v })
	b.str("sink.sqlite", "", "SQLite database path for records", func(c *app.Config, v string) { c.SinkSQLite = v })
	b.str("sink.s3.bucket", "", "S3 bucket for records and raw responses", func(c *app.Config, v string) { c.SinkS3Bucket = v })
	b.str("sink.s3.endpoint", "", "S3-compatible endpoint URL", func(c *app.Config, v string) { c.SinkS3Endpoint = v })
	b.str("sink.nats", "", "NATS URL to publish records to", func(c *app.Config, v string) { c.SinkNATSURL = v })
	b.str("sink.redis", "", "Redis address for latest record per URL", func(c *app.Config, v string) { c.SinkRedisAddr = v })

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	cfg := app.DefaultConfig()
	if strings.TrimSpace(*configPath) != "" {
		fc, err := app.LoadConfigFile(*configPath)
		if err != nil {
			return opts, fmt.Errorf("load config file: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return opts, err
		}
	}
	app.ApplyEnvOverrides(&cfg)
	fs.Visit(func(f *flag.Flag) {
		if set, ok := b.apply[f.Name]; ok {
			set(&cfg)
		}
	})
	cfg.URLs = fs.Args()
	opts.cfg = cfg
	return opts, nil
}
