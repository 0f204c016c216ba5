package toolsynth

import (
	"encoding/json"
	"math/rand"
	"testing"
)

func sampleTools() []ToolDefinition {
	return []ToolDefinition{
		{Name: "get_weather", Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"city": map[string]any{"type": "string"}},
			"required":             []any{"city"},
			"additionalProperties": false,
		}},
		{Name: "get_time", Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"tz": map[string]any{"type": "string"}},
			"required":             []any{"tz"},
			"additionalProperties": false,
		}},
	}
}

func TestResolveChoiceNone(t *testing.T) {
	chosen, err := ResolveChoice("none", sampleTools(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chosen != nil {
		t.Fatalf("expected no tools for \"none\", got %v", chosen)
	}
}

func TestResolveChoiceRequiredAlwaysCalls(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		chosen, err := ResolveChoice("required", sampleTools(), rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: unexpected error: %v", seed, err)
		}
		if len(chosen) == 0 {
			t.Fatalf("seed %d: expected at least one call under \"required\"", seed)
		}
	}
}

func TestResolveChoiceRequiredWithNoToolsFails(t *testing.T) {
	_, err := ResolveChoice("required", nil, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected an error when tool_choice is \"required\" with no tools declared")
	}
}

func TestResolveChoiceAutoAlwaysCalls(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		chosen, err := ResolveChoice("auto", sampleTools(), rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: unexpected error: %v", seed, err)
		}
		if len(chosen) == 0 {
			t.Fatalf("seed %d: expected at least one call under \"auto\" (probability 1.0 by default)", seed)
		}
	}
}

func TestResolveChoiceSpecificFunction(t *testing.T) {
	choice := map[string]any{"function": map[string]any{"name": "get_time"}}
	chosen, err := ResolveChoice(choice, sampleTools(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chosen) != 1 || chosen[0].Name != "get_time" {
		t.Fatalf("expected exactly get_time, got %v", chosen)
	}
}

func TestSynthesizeProducesValidJSONArguments(t *testing.T) {
	calls := Synthesize(sampleTools(), 5)
	for _, c := range calls {
		if !json.Valid([]byte(c.Arguments)) {
			t.Fatalf("expected valid JSON arguments for %s, got %q", c.Name, c.Arguments)
		}
	}
}

func TestStreamEmitsNameBeforeArguments(t *testing.T) {
	call := Call{ID: "call_1", Name: "get_weather", Arguments: `{"city":"paris"}`}
	deltas := Stream(0, call, 4)
	if deltas[0].Kind != DeltaName || deltas[0].Name != "get_weather" {
		t.Fatalf("expected first delta to carry the name, got %+v", deltas[0])
	}
	for _, d := range deltas[1:] {
		if d.Kind != DeltaArguments {
			t.Fatalf("expected all subsequent deltas to be arguments, got %+v", d)
		}
	}
}
