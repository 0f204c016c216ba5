package reasoning

import (
	"testing"

	"github.com/llmsimlab/simcore/internal/generator"
)

func TestIsReasoningModel(t *testing.T) {
	cases := map[string]bool{
		"sim-reasoning-large": true,
		"deepseek-r1":         true,
		"o1-mini":             true,
		"sim-large":           false,
		"sim-embedding":       false,
	}
	for model, want := range cases {
		if got := IsReasoningModel(model); got != want {
			t.Errorf("IsReasoningModel(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestTokenCountWithinRange(t *testing.T) {
	for seed := int64(-100); seed < 100; seed++ {
		n := TokenCount(seed)
		if n < minThinkingTokens || n > maxThinkingTokens {
			t.Fatalf("seed %d: TokenCount=%d out of range [%d,%d]", seed, n, minThinkingTokens, maxThinkingTokens)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := generator.New()
	a := Generate(g, 42)
	b := Generate(g, 42)
	if len(a) != len(b) {
		t.Fatalf("expected same chunk count for same seed, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}
