package structured

import (
	"strings"
	"testing"
)

func validSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
		"required":             []any{"name", "age"},
		"additionalProperties": false,
	}
}

func TestValidateStrictAccepts(t *testing.T) {
	if err := ValidateStrict(validSchema()); err != nil {
		t.Fatalf("expected valid schema to pass, got %v", err)
	}
}

func TestValidateStrictRejectsNonObjectRoot(t *testing.T) {
	s := validSchema()
	s["type"] = "string"
	if err := ValidateStrict(s); err == nil {
		t.Fatal("expected rejection of non-object root")
	}
}

func TestValidateStrictRejectsMissingAdditionalProperties(t *testing.T) {
	s := validSchema()
	delete(s, "additionalProperties")
	if err := ValidateStrict(s); err == nil {
		t.Fatal("expected rejection of missing additionalProperties")
	}
}

func TestValidateStrictRejectsIncompleteRequired(t *testing.T) {
	s := validSchema()
	s["required"] = []any{"name"}
	if err := ValidateStrict(s); err == nil {
		t.Fatal("expected rejection of incomplete required list")
	}
}

func TestValidateStrictRejectsAnyOfAtRoot(t *testing.T) {
	s := validSchema()
	s["anyOf"] = []any{map[string]any{"type": "string"}}
	if err := ValidateStrict(s); err == nil {
		t.Fatal("expected rejection of root anyOf")
	}
}

func TestGenerateConformsToSchema(t *testing.T) {
	out := Generate(validSchema(), 7)
	obj, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", out)
	}
	if _, ok := obj["name"].(string); !ok {
		t.Fatalf("expected string name, got %+v", obj["name"])
	}
	if _, ok := obj["age"].(int); !ok {
		t.Fatalf("expected integer age, got %+v", obj["age"])
	}
}

func TestGenerateDeterministicForSameSeed(t *testing.T) {
	a := Generate(validSchema(), 99)
	b := Generate(validSchema(), 99)
	am := a.(map[string]any)
	bm := b.(map[string]any)
	if am["name"] != bm["name"] || am["age"] != bm["age"] {
		t.Fatalf("expected identical output for identical seed, got %+v vs %+v", am, bm)
	}
}

func TestGenerateIntegerRespectsMinMax(t *testing.T) {
	schema := map[string]any{"type": "integer", "minimum": 1, "maximum": 10}
	for seed := int64(0); seed < 50; seed++ {
		v, ok := Generate(schema, seed).(int)
		if !ok {
			t.Fatalf("expected int, got %T", Generate(schema, seed))
		}
		if v < 1 || v > 10 {
			t.Fatalf("seed %d: integer %d out of [1,10]", seed, v)
		}
	}
}

func TestGenerateNumberRespectsMinMax(t *testing.T) {
	schema := map[string]any{"type": "number", "minimum": 2.5, "maximum": 3.5}
	for seed := int64(0); seed < 50; seed++ {
		v, ok := Generate(schema, seed).(float64)
		if !ok {
			t.Fatalf("expected float64, got %T", Generate(schema, seed))
		}
		if v < 2.5 || v > 3.5 {
			t.Fatalf("seed %d: number %f out of [2.5,3.5]", seed, v)
		}
	}
}

func TestGenerateArrayRespectsMinMaxItems(t *testing.T) {
	schema := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "integer"},
		"minItems": 2,
		"maxItems": 4,
	}
	for seed := int64(0); seed < 50; seed++ {
		out, ok := Generate(schema, seed).([]any)
		if !ok {
			t.Fatalf("expected array, got %T", Generate(schema, seed))
		}
		if len(out) < 2 || len(out) > 4 {
			t.Fatalf("seed %d: array length %d out of [2,4]", seed, len(out))
		}
	}
}

func TestGenerateStringRespectsLengthBounds(t *testing.T) {
	schema := map[string]any{"type": "string", "minLength": 5, "maxLength": 8}
	for seed := int64(0); seed < 50; seed++ {
		v, ok := Generate(schema, seed).(string)
		if !ok {
			t.Fatalf("expected string, got %T", Generate(schema, seed))
		}
		if len(v) < 5 || len(v) > 8 {
			t.Fatalf("seed %d: string %q length %d out of [5,8]", seed, v, len(v))
		}
	}
}

func TestGenerateStringFormatEmail(t *testing.T) {
	schema := map[string]any{"type": "string", "format": "email"}
	v, ok := Generate(schema, 3).(string)
	if !ok {
		t.Fatalf("expected string, got %T", Generate(schema, 3))
	}
	if !strings.Contains(v, "@") {
		t.Fatalf("expected email-shaped value, got %q", v)
	}
}

func TestGenerateStringFormatUUID(t *testing.T) {
	schema := map[string]any{"type": "string", "format": "uuid"}
	v, ok := Generate(schema, 4).(string)
	if !ok {
		t.Fatalf("expected string, got %T", Generate(schema, 4))
	}
	if len(v) != 36 {
		t.Fatalf("expected 36-char uuid, got %q (%d)", v, len(v))
	}
}
