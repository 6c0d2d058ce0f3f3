// Package budget estimates prompt sizes so the page excerpt sent to a model
// leaves room for the requested completion.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic of ~4 characters per token. The
// result is at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string. Characters
// are counted as runes so accented French text is not over-counted.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// CharsForTokens is the inverse of EstimateTokensFromChars.
func CharsForTokens(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return tokens * 4
}

// ModelContextTokens returns an estimated context window for a model name.
// Ollama tags ("mistral:latest", "deepseek-r1:70b") are matched on their
// family. Unknown models fall back to a conservative default.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	family := name
	if i := strings.IndexByte(family, ':'); i >= 0 {
		family = family[:i]
	}
	if v, ok := knownModelMax[family]; ok {
		return v
	}
	for _, suffix := range []struct {
		s string
		n int
	}{{"128k", 128_000}, {"32k", 32_768}, {"16k", 16_384}} {
		if strings.HasSuffix(name, suffix.s) {
			return suffix.n
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return 8192
}

// HeadroomTokens is the safety margin kept free for tokenizer and framing
// differences: the larger of 5% of the context or 512 tokens.
func HeadroomTokens(modelName string) int {
	max := ModelContextTokens(modelName)
	dyn := int(math.Ceil(float64(max) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContextWithHeadroom returns the input tokens still available after
// reserving output and headroom and accounting for promptTokens. Never negative.
func RemainingContextWithHeadroom(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - reservedForOutput - HeadroomTokens(modelName) - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,
	"deepseek-r1":   131_072,
	"llama2":        4_096,
	"llama3":        8_192,
	"llama3.1":      128_000,
	"llama3.2":      128_000,
	"mistral":       32_768,
	"mixtral":       32_768,
	"qwen2.5":       32_768,
	"gemma2":        8_192,
}
