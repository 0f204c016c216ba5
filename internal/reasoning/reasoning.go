// Package reasoning synthesizes a chain-of-thought preamble for
// reasoning-capable simulated models, streamed as reasoning_content
// deltas ahead of the final answer content. It is grounded on the
// teacher's translator/reasoning/deepseek_thinking.go, which extracts
// <think>...</think> spans from a real model's output; this package
// runs in reverse, generating that span instead of parsing it, and
// reuses the same <think> wrapping convention for non-streaming
// responses that want the thinking content inline.
package reasoning

import (
	"strings"

	"github.com/llmsimlab/simcore/internal/generator"
)

const (
	minThinkingTokens = 20
	maxThinkingTokens = 60
)

// IsReasoningModel reports whether model should receive a synthesized
// chain-of-thought, matching the teacher's substring-based model-name
// convention (e.g. deepseek-r1, o1, sim-reasoning-*).
func IsReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	for _, marker := range []string{"reasoning", "-r1", "o1", "o3", "think"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// TokenCount derives a reproducible chain-of-thought length in
// [minThinkingTokens, maxThinkingTokens] from a seed, so the same prompt
// always receives the same amount of simulated reasoning.
func TokenCount(seed int64) int {
	span := maxThinkingTokens - minThinkingTokens + 1
	n := seed % int64(span)
	if n < 0 {
		n += int64(span)
	}
	return minThinkingTokens + int(n)
}

// Generate produces the chain-of-thought chunks for a request, using the
// shared filler generator so the thinking span reads like prose rather
// than the eventual answer.
func Generate(g *generator.Generator, seed int64) []string {
	return g.GenerateChunks(seed^0x5eed, TokenCount(seed))
}

// WrapForInline formats thinking and answer as a single string using the
// <think>...</think> convention, for non-streaming responses.
func WrapForInline(thinking, answer string) string {
	return "<think>\n" + thinking + "\n</think>\n\n" + answer
}
