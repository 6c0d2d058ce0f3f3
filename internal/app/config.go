package app

import (
	"strings"
	"time"
)

// Backend names accepted by LLMBackend.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Config holds runtime configuration for the application.
type Config struct {
	URLs []string

	// Outputs
	OutputPath   string
	MarkdownPath string
	PDFPath      string

	// LLM
	LLMBackend        string
	LLMBaseURL        string
	LLMModel          string
	LLMFallbackModels []string
	LLMAPIKey         string
	LLMTimeout        time.Duration
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMContextTokens  int

	// Behavior
	UsePrompt   bool
	UseBrowser  bool
	ForcePrompt bool
	CheckModels bool
	Concurrency int
	Verbose     bool

	// Fetch
	FetchTimeout        time.Duration
	FetchMinChars       int
	UserAgent           string
	BrowserBin          string
	BrowserWait         time.Duration
	BrowserRootSelector string
	BodySampleChars     int
	VocabFile           string

	// Sinks
	SinkDir           string
	SinkStrictPerms   bool
	SinkMaxAge        time.Duration
	SinkSQLite        string
	SinkS3Endpoint    string
	SinkS3Region      string
	SinkS3Bucket      string
	SinkS3Prefix      string
	SinkS3AccessKey   string
	SinkS3SecretKey   string
	SinkNATSURL       string
	SinkNATSSubject   string
	SinkRedisAddr     string
	SinkRedisPassword string
	SinkRedisDB       int
	SinkRedisTTL      time.Duration
}

// DefaultConfig returns the built-in defaults, the lowest precedence layer.
func DefaultConfig() Config {
	return Config{
		LLMBackend:          BackendOpenAI,
		LLMBaseURL:          "http://localhost:11434/v1",
		LLMTimeout:          2 * time.Minute,
		LLMMaxTokens:        8192,
		UsePrompt:           true,
		Concurrency:         1,
		FetchTimeout:        30 * time.Second,
		FetchMinChars:       1000,
		BrowserWait:         10 * time.Second,
		BrowserRootSelector: "body",
		BodySampleChars:     5000,
		SinkDir:             ".",
		SinkS3Region:        "us-east-1",
		SinkNATSSubject:     "jobs.extracted",
	}
}

// Models is the ordered candidate list: the primary model then fallbacks.
func (c Config) Models() []string {
	out := make([]string, 0, 1+len(c.LLMFallbackModels))
	if m := strings.TrimSpace(c.LLMModel); m != "" {
		out = append(out, m)
	}
	return append(out, c.LLMFallbackModels...)
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
