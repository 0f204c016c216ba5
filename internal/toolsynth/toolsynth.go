// Package toolsynth synthesizes tool/function calls for simulated chat
// completions: resolving the tool_choice policy, deciding which and how
// many tools to "call", and splitting a call into the name-then-argument
// delta sequence a real streaming response would emit. It mirrors the
// teacher's translator/tools converter shape (ToolDefinition/ToolCall
// structs, a small stateless converter type) but generates calls instead
// of translating between provider wire formats.
package toolsynth

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/llmsimlab/simcore/internal/structured"
)

// ToolDefinition is the minimal shape needed from an OpenAI-style tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Call is a synthesized tool call.
type Call struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded
}

const maxParallelCalls = 3

// ResolveChoice decides which tools (if any) should be called for a
// given tool_choice value: "none" never calls, "auto" deterministically
// calls at least one tool whenever tools are declared, "required" calls
// at least one and fails if no tools were declared, and an object naming
// a specific function forces exactly that one.
func ResolveChoice(choice any, tools []ToolDefinition, rng *rand.Rand) ([]ToolDefinition, error) {
	switch v := choice.(type) {
	case string:
		switch v {
		case "none", "":
			return nil, nil
		case "required":
			if len(tools) == 0 {
				return nil, fmt.Errorf(`tool_choice is "required" but no tools were declared`)
			}
			return pickRandom(tools, rng), nil
		case "auto":
			fallthrough
		default:
			if len(tools) == 0 {
				return nil, nil
			}
			return pickRandom(tools, rng), nil
		}
	case map[string]any:
		if len(tools) == 0 {
			return nil, nil
		}
		fn, _ := v["function"].(map[string]any)
		name, _ := fn["name"].(string)
		for _, t := range tools {
			if t.Name == name {
				return []ToolDefinition{t}, nil
			}
		}
		return nil, nil
	default:
		if len(tools) == 0 {
			return nil, nil
		}
		return pickRandom(tools, rng), nil
	}
}

// pickRandom chooses between 1 and min(maxParallelCalls, len(tools))
// tools. Both "auto" and "required" call at least one tool by default
// (probability 1.0), so repeated runs with the same seed are
// deterministic rather than a coin flip on whether any tool fires.
func pickRandom(tools []ToolDefinition, rng *rand.Rand) []ToolDefinition {
	maxCalls := len(tools)
	if maxCalls > maxParallelCalls {
		maxCalls = maxParallelCalls
	}
	n := 1
	if maxCalls > 1 {
		n = 1 + rng.Intn(maxCalls)
	}

	shuffled := make([]ToolDefinition, len(tools))
	copy(shuffled, tools)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

// Synthesize builds synthesized Calls for the chosen tool definitions,
// generating arguments that conform to each tool's parameter schema.
func Synthesize(chosen []ToolDefinition, seed int64) []Call {
	rng := rand.New(rand.NewSource(seed))
	calls := make([]Call, 0, len(chosen))
	for i, t := range chosen {
		var args any
		if t.Parameters != nil {
			args = structured.Generate(t.Parameters, rng.Int63())
		} else {
			args = map[string]any{}
		}
		data, _ := json.Marshal(args)
		calls = append(calls, Call{
			ID:        fmt.Sprintf("call_%016x", rng.Uint64()),
			Name:      t.Name,
			Arguments: string(data),
		})
		_ = i
	}
	return calls
}

// DeltaKind distinguishes the phases of a streamed tool-call delta.
type DeltaKind int

const (
	DeltaName DeltaKind = iota
	DeltaArguments
)

// Delta is one streamed fragment of a tool call: the name arrives as a
// single delta, then the JSON argument string streamed in small chunks,
// matching how real providers split function-call deltas.
type Delta struct {
	Index     int
	ID        string
	Kind      DeltaKind
	Name      string
	Arguments string
}

// Stream splits call into a name delta followed by argument-string
// chunks of roughly chunkSize runes each, for emission one per ITL tick.
func Stream(index int, call Call, chunkSize int) []Delta {
	if chunkSize <= 0 {
		chunkSize = 6
	}
	deltas := []Delta{{Index: index, ID: call.ID, Kind: DeltaName, Name: call.Name}}

	runes := []rune(call.Arguments)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		deltas = append(deltas, Delta{Index: index, Kind: DeltaArguments, Arguments: string(runes[i:end])})
	}
	return deltas
}
