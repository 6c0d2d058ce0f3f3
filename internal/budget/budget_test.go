package budget

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{{0, 0}, {1, 1}, {4, 1}, {5, 2}, {400, 100}}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
	if got := EstimateTokens("éééé"); got != 1 {
		t.Fatalf("accented runes should count once: got %d", got)
	}
	if CharsForTokens(EstimateTokens(strings.Repeat("a", 400))) != 400 {
		t.Fatalf("CharsForTokens should invert the estimate")
	}
}

func TestModelContextTokens(t *testing.T) {
	cases := map[string]int{
		"":                8192,
		"gpt-4o":          128_000,
		"mistral:latest":  32_768,
		"llama2:latest":   4_096,
		"deepseek-r1:70b": 131_072,
		"custom-128k":     128_000,
		"something-else":  8192,
	}
	for name, want := range cases {
		if got := ModelContextTokens(name); got != want {
			t.Fatalf("ModelContextTokens(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestRemainingContextWithHeadroom(t *testing.T) {
	// llama2: 4096 context, 512 headroom floor
	if got := RemainingContextWithHeadroom("llama2", 1000, 500); got != 4096-1000-512-500 {
		t.Fatalf("remaining = %d", got)
	}
	if got := RemainingContextWithHeadroom("llama2", 8192, 0); got != 0 {
		t.Fatalf("remaining should clamp at 0, got %d", got)
	}
	if HeadroomTokens("gpt-4o") != 6400 {
		t.Fatalf("headroom gpt-4o = %d", HeadroomTokens("gpt-4o"))
	}
}
