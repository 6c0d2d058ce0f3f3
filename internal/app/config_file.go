package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Durations are strings
// such as "2m" so that YAML and JSON read them the same way.
type FileConfig struct {
	Output   string `yaml:"output" json:"output"`
	Markdown string `yaml:"markdown" json:"markdown"`
	PDF      string `yaml:"pdf" json:"pdf"`

	LLM struct {
		Backend       string   `yaml:"backend" json:"backend"`
		BaseURL       string   `yaml:"base" json:"base"`
		Model         string   `yaml:"model" json:"model"`
		Fallbacks     []string `yaml:"fallbacks" json:"fallbacks"`
		APIKey        string   `yaml:"key" json:"key"`
		Timeout       string   `yaml:"timeout" json:"timeout"`
		Temperature   *float64 `yaml:"temperature" json:"temperature"`
		MaxTokens     int      `yaml:"maxTokens" json:"maxTokens"`
		ContextTokens int      `yaml:"contextTokens" json:"contextTokens"`
	} `yaml:"llm" json:"llm"`

	Prompt      *bool  `yaml:"prompt" json:"prompt"`
	Browser     *bool  `yaml:"browser" json:"browser"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	Verbose     bool   `yaml:"verbose" json:"verbose"`
	Vocab       string `yaml:"vocab" json:"vocab"`

	Fetch struct {
		Timeout         string `yaml:"timeout" json:"timeout"`
		MinChars        int    `yaml:"minChars" json:"minChars"`
		UserAgent       string `yaml:"userAgent" json:"userAgent"`
		BodySampleChars int    `yaml:"bodySampleChars" json:"bodySampleChars"`
		Browser         struct {
			Bin          string `yaml:"bin" json:"bin"`
			Wait         string `yaml:"wait" json:"wait"`
			RootSelector string `yaml:"rootSelector" json:"rootSelector"`
		} `yaml:"browser" json:"browser"`
	} `yaml:"fetch" json:"fetch"`

	Sink struct {
		Dir         string `yaml:"dir" json:"dir"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
		MaxAge      string `yaml:"maxAge" json:"maxAge"`
		SQLite      string `yaml:"sqlite" json:"sqlite"`
		S3          struct {
			Endpoint  string `yaml:"endpoint" json:"endpoint"`
			Region    string `yaml:"region" json:"region"`
			Bucket    string `yaml:"bucket" json:"bucket"`
			Prefix    string `yaml:"prefix" json:"prefix"`
			AccessKey string `yaml:"accessKey" json:"accessKey"`
			SecretKey string `yaml:"secretKey" json:"secretKey"`
		} `yaml:"s3" json:"s3"`
		NATS struct {
			URL     string `yaml:"url" json:"url"`
			Subject string `yaml:"subject" json:"subject"`
		} `yaml:"nats" json:"nats"`
		Redis struct {
			Addr     string `yaml:"addr" json:"addr"`
			Password string `yaml:"password" json:"password"`
			DB       int    `yaml:"db" json:"db"`
			TTL      string `yaml:"ttl" json:"ttl"`
		} `yaml:"redis" json:"redis"`
	} `yaml:"sink" json:"sink"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. It runs on top of
// DefaultConfig, before environment and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	var durErr error
	dur := func(dst *time.Duration, name, v string) {
		if strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			durErr = errors.Join(durErr, fmt.Errorf("config: %s: %w", name, err))
			return
		}
		*dst = d
	}

	str(&cfg.OutputPath, fc.Output)
	str(&cfg.MarkdownPath, fc.Markdown)
	str(&cfg.PDFPath, fc.PDF)

	str(&cfg.LLMBackend, fc.LLM.Backend)
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMModel, fc.LLM.Model)
	if len(fc.LLM.Fallbacks) > 0 {
		cfg.LLMFallbackModels = append([]string{}, fc.LLM.Fallbacks...)
	}
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)
	dur(&cfg.LLMTimeout, "llm.timeout", fc.LLM.Timeout)
	if fc.LLM.Temperature != nil {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	num(&cfg.LLMMaxTokens, fc.LLM.MaxTokens)
	num(&cfg.LLMContextTokens, fc.LLM.ContextTokens)

	if fc.Prompt != nil {
		cfg.UsePrompt = *fc.Prompt
	}
	if fc.Browser != nil {
		cfg.UseBrowser = *fc.Browser
	}
	num(&cfg.Concurrency, fc.Concurrency)
	if fc.Verbose {
		cfg.Verbose = true
	}
	str(&cfg.VocabFile, fc.Vocab)

	dur(&cfg.FetchTimeout, "fetch.timeout", fc.Fetch.Timeout)
	num(&cfg.FetchMinChars, fc.Fetch.MinChars)
	str(&cfg.UserAgent, fc.Fetch.UserAgent)
	num(&cfg.BodySampleChars, fc.Fetch.BodySampleChars)
	str(&cfg.BrowserBin, fc.Fetch.Browser.Bin)
	dur(&cfg.BrowserWait, "fetch.browser.wait", fc.Fetch.Browser.Wait)
	str(&cfg.BrowserRootSelector, fc.Fetch.Browser.RootSelector)

	str(&cfg.SinkDir, fc.Sink.Dir)
	if fc.Sink.StrictPerms {
		cfg.SinkStrictPerms = true
	}
	dur(&cfg.SinkMaxAge, "sink.maxAge", fc.Sink.MaxAge)
	str(&cfg.SinkSQLite, fc.Sink.SQLite)
	str(&cfg.SinkS3Endpoint, fc.Sink.S3.Endpoint)
	str(&cfg.SinkS3Region, fc.Sink.S3.Region)
	str(&cfg.SinkS3Bucket, fc.Sink.S3.Bucket)
	str(&cfg.SinkS3Prefix, fc.Sink.S3.Prefix)
	str(&cfg.SinkS3AccessKey, fc.Sink.S3.AccessKey)
	str(&cfg.SinkS3SecretKey, fc.Sink.S3.SecretKey)
	str(&cfg.SinkNATSURL, fc.Sink.NATS.URL)
	str(&cfg.SinkNATSSubject, fc.Sink.NATS.Subject)
	str(&cfg.SinkRedisAddr, fc.Sink.Redis.Addr)
	str(&cfg.SinkRedisPassword, fc.Sink.Redis.Password)
	num(&cfg.SinkRedisDB, fc.Sink.Redis.DB)
	dur(&cfg.SinkRedisTTL, "sink.redis.ttl", fc.Sink.Redis.TTL)
	return durErr
}

// ValidateConfig rejects settings that cannot produce a working pipeline.
func ValidateConfig(cfg Config) error {
	if len(cfg.URLs) == 0 && !cfg.CheckModels {
		return errors.New("config: at least one URL is required")
	}
	switch cfg.LLMBackend {
	case BackendOpenAI, BackendOllama:
	default:
		return fmt.Errorf("config: unknown llm backend %q (want %s or %s)", cfg.LLMBackend, BackendOpenAI, BackendOllama)
	}
	if (cfg.UsePrompt || cfg.ForcePrompt || cfg.CheckModels) && len(cfg.Models()) == 0 {
		return errors.New("config: llm.model is required when prompt extraction is enabled (or set LLM_MODEL)")
	}
	if cfg.LLMMaxTokens < 0 || cfg.LLMContextTokens < 0 || cfg.FetchMinChars < 0 ||
		cfg.Concurrency < 0 || cfg.BodySampleChars < 0 || cfg.SinkRedisDB < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.LLMTimeout < 0 || cfg.FetchTimeout < 0 || cfg.BrowserWait < 0 || cfg.SinkMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return fmt.Errorf("config: llm temperature %.2f out of range [0, 2]", cfg.LLMTemperature)
	}
	return nil
}
