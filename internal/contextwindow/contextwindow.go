// Package contextwindow validates a request's prompt against the
// simulated model's context window, grounded on the teacher's
// internal/context/truncate.go and manager.go: a per-model token limit
// table, a reserve carved out for the response and tool definitions, and
// a priority-ordered truncation strategy that drops the oldest
// non-system messages first when a prompt would not otherwise fit.
package contextwindow

import (
	"github.com/llmsimlab/simcore/internal/estimator"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

// DefaultContextLength is used for any model absent from the limits
// table.
const DefaultContextLength = 8192

// Message is the minimal shape the validator needs from a chat message.
type Message struct {
	Role    string
	Content string
}

// Reserve carves out headroom for the response and tool definitions so a
// prompt that exactly fills the context window still leaves room for
// the model to answer.
type Reserve struct {
	ResponseTokens int
	ToolTokens     int
}

// Validator checks and, on request, truncates message lists against a
// per-model context window.
type Validator struct {
	limits    map[string]int
	reserve   Reserve
	estimator *estimator.Estimator
}

// New builds a Validator. limits maps model name to its context window
// size in tokens; models absent from the map use DefaultContextLength.
func New(limits map[string]int, reserve Reserve) *Validator {
	if limits == nil {
		limits = map[string]int{}
	}
	return &Validator{limits: limits, reserve: reserve, estimator: estimator.New()}
}

func (v *Validator) limitFor(model string) int {
	if n, ok := v.limits[model]; ok {
		return n
	}
	return DefaultContextLength
}

// Validate reports a context_length_exceeded error if promptTokens plus
// the configured reserve would exceed the model's window.
func (v *Validator) Validate(model string, promptTokens int) error {
	limit := v.limitFor(model)
	budget := limit - v.reserve.ResponseTokens - v.reserve.ToolTokens
	if promptTokens > budget {
		return simerrors.NewWithCode(
			simerrors.KindInvalidRequest,
			string(simerrors.KindContextLength),
			contextLengthMessage(promptTokens, limit),
		)
	}
	return nil
}

func contextLengthMessage(promptTokens, limit int) string {
	return "This model's maximum context length is " + itoa(limit) +
		" tokens. However, the messages resulted in " + itoa(promptTokens) +
		" tokens. Please reduce the length of the messages."
}

// Truncate drops the oldest non-system messages (after the first, which
// is always assumed to be the system prompt if present) until the
// remaining messages fit within the model's budget, or until only the
// system message and the final user message remain.
func (v *Validator) Truncate(model string, messages []Message) []Message {
	limit := v.limitFor(model)
	budget := limit - v.reserve.ResponseTokens - v.reserve.ToolTokens

	total := v.estimateAll(messages)
	if total <= budget {
		return messages
	}

	kept := make([]Message, len(messages))
	copy(kept, messages)

	systemIdx := -1
	if len(kept) > 0 && kept[0].Role == "system" {
		systemIdx = 0
	}

	for v.estimateAll(kept) > budget && len(kept) > 2 {
		// Drop the oldest droppable message: index 0 unless it is the
		// preserved system message, in which case drop index 1.
		dropAt := 0
		if systemIdx == 0 {
			dropAt = 1
		}
		if dropAt >= len(kept)-1 {
			break
		}
		kept = append(kept[:dropAt], kept[dropAt+1:]...)
		if systemIdx == 0 {
			systemIdx = 0
		}
	}

	return kept
}

func (v *Validator) estimateAll(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += v.estimator.EstimateText(m.Content)
	}
	return total
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
