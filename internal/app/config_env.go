package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return err
	}
	log.Debug().Strs("files", existing).Msg("environment files loaded")
	return nil
}

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file and before explicit flags.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-integer env value")
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid duration")
			}
		}
	}
	boolean := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	str(&cfg.LLMBackend, "LLM_BACKEND")
	str(&cfg.LLMBaseURL, "LLM_BASE_URL")
	str(&cfg.LLMModel, "LLM_MODEL")
	if v := os.Getenv("LLM_FALLBACK_MODELS"); strings.TrimSpace(v) != "" {
		cfg.LLMFallbackModels = SplitList(v)
	}
	str(&cfg.LLMAPIKey, "LLM_API_KEY")
	dur(&cfg.LLMTimeout, "LLM_TIMEOUT")
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLMTemperature = f
		}
	}
	num(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	num(&cfg.LLMContextTokens, "LLM_CONTEXT_TOKENS")

	dur(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	num(&cfg.FetchMinChars, "FETCH_MIN_CHARS")
	str(&cfg.UserAgent, "FETCH_USER_AGENT")
	str(&cfg.BrowserBin, "BROWSER_BIN")
	dur(&cfg.BrowserWait, "BROWSER_WAIT")
	str(&cfg.BrowserRootSelector, "BROWSER_ROOT_SELECTOR")
	num(&cfg.BodySampleChars, "BODY_SAMPLE_CHARS")
	str(&cfg.VocabFile, "VOCAB_FILE")
	boolean(&cfg.UsePrompt, "USE_PROMPT")
	boolean(&cfg.UseBrowser, "USE_BROWSER")
	num(&cfg.Concurrency, "CONCURRENCY")
	boolean(&cfg.Verbose, "VERBOSE")

	str(&cfg.SinkDir, "SINK_DIR")
	boolean(&cfg.SinkStrictPerms, "SINK_STRICT_PERMS")
	dur(&cfg.SinkMaxAge, "SINK_MAX_AGE")
	str(&cfg.SinkSQLite, "SINK_SQLITE")
	str(&cfg.SinkS3Endpoint, "SINK_S3_ENDPOINT")
	str(&cfg.SinkS3Region, "SINK_S3_REGION")
	str(&cfg.SinkS3Bucket, "SINK_S3_BUCKET")
	str(&cfg.SinkS3Prefix, "SINK_S3_PREFIX")
	str(&cfg.SinkS3AccessKey, "SINK_S3_ACCESS_KEY")
	str(&cfg.SinkS3SecretKey, "SINK_S3_SECRET_KEY")
	str(&cfg.SinkNATSURL, "SINK_NATS_URL")
	str(&cfg.SinkNATSSubject, "SINK_NATS_SUBJECT")
	str(&cfg.SinkRedisAddr, "SINK_REDIS_ADDR")
	str(&cfg.SinkRedisPassword, "SINK_REDIS_PASSWORD")
	num(&cfg.SinkRedisDB, "SINK_REDIS_DB")
	dur(&cfg.SinkRedisTTL, "SINK_REDIS_TTL")
}
