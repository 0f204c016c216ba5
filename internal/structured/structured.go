// Package structured implements the structured-output engine: strict
// JSON-schema validation matching the rules a real strict-mode API
// enforces, and recursive schema-conforming fake-data generation so a
// simulated completion can honor response_format/json_schema without
// ever consulting a real model.
package structured

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/llmsimlab/simcore/internal/generator"
)

// ValidateStrict enforces four structural rules strict mode requires of a
// JSON schema: the root must be an object, every object in the schema
// (recursively) must set additionalProperties:false, every object's
// required list must name all of its properties, and the root must not
// use anyOf. It receives only the schema, so it does not check the
// request's parallel_tool_calls setting.
func ValidateStrict(schema map[string]any) error {
	if t, _ := schema["type"].(string); t != "object" {
		return fmt.Errorf("strict schema: root type must be \"object\", got %q", t)
	}
	if _, ok := schema["anyOf"]; ok {
		return fmt.Errorf("strict schema: anyOf is not allowed at the root")
	}
	return validateObjectRecursive(schema, "$")
}

func validateObjectRecursive(schema map[string]any, path string) error {
	schemaType, _ := schema["type"].(string)
	if schemaType != "object" {
		return nil
	}

	additionalProps, has := schema["additionalProperties"]
	if !has {
		return fmt.Errorf("strict schema: %s missing additionalProperties:false", path)
	}
	if b, ok := additionalProps.(bool); !ok || b {
		return fmt.Errorf("strict schema: %s additionalProperties must be false", path)
	}

	props, _ := schema["properties"].(map[string]any)
	required, _ := schema["required"].([]any)
	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		if s, ok := r.(string); ok {
			requiredSet[s] = true
		}
	}
	for name := range props {
		if !requiredSet[name] {
			return fmt.Errorf("strict schema: %s.required must include property %q", path, name)
		}
	}

	// Recurse into nested object/array-of-object schemas.
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub, _ := props[name].(map[string]any)
		if sub == nil {
			continue
		}
		if subType, _ := sub["type"].(string); subType == "object" {
			if err := validateObjectRecursive(sub, path+"."+name); err != nil {
				return err
			}
		}
		if items, ok := sub["items"].(map[string]any); ok {
			if itemsType, _ := items["type"].(string); itemsType == "object" {
				if err := validateObjectRecursive(items, path+"."+name+"[]"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Generate produces a value conforming to schema, synthesizing filler
// content for strings via the generator package's word bank and seeded
// rng for reproducibility across retries of the same request.
func Generate(schema map[string]any, seed int64) any {
	rng := rand.New(rand.NewSource(seed))
	g := generator.New()
	return generateValue(schema, rng, g)
}

func generateValue(schema map[string]any, rng *rand.Rand, g *generator.Generator) any {
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		return enum[rng.Intn(len(enum))]
	}
	if c, ok := schema["const"]; ok {
		return c
	}

	schemaType, _ := schema["type"].(string)
	switch schemaType {
	case "object":
		return generateObject(schema, rng, g)
	case "array":
		return generateArray(schema, rng, g)
	case "string":
		return generateString(schema, rng, g)
	case "integer":
		lo, hi := numberRange(schema, 0, 1000)
		loI, hiI := int(lo), int(hi)
		if hiI < loI {
			hiI = loI
		}
		return loI + rng.Intn(hiI-loI+1)
	case "number":
		lo, hi := numberRange(schema, 0.0, 1.0)
		if hi < lo {
			hi = lo
		}
		return lo + rng.Float64()*(hi-lo)
	case "boolean":
		return rng.Intn(2) == 0
	default:
		return nil
	}
}

// numberRange resolves the [minimum, maximum] bounds for an integer/number
// schema, falling back to defMin/defMax when unset and nudging in from
// exclusiveMinimum/exclusiveMaximum when those are set instead.
func numberRange(schema map[string]any, defMin, defMax float64) (float64, float64) {
	min, max := defMin, defMax
	if f, ok := asFloat(schema["minimum"]); ok {
		min = f
	}
	if f, ok := asFloat(schema["maximum"]); ok {
		max = f
	}
	const epsilon = 1e-9
	if f, ok := asFloat(schema["exclusiveMinimum"]); ok {
		min = f + epsilon
	}
	if f, ok := asFloat(schema["exclusiveMaximum"]); ok {
		max = f - epsilon
	}
	return min, max
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// generateString honors format, falling back to a random word clamped to
// [minLength, maxLength].
func generateString(schema map[string]any, rng *rand.Rand, g *generator.Generator) string {
	if format, ok := schema["format"].(string); ok {
		if s, ok := formatValue(format, rng, g); ok {
			return s
		}
	}

	minLen := 1
	if f, ok := asFloat(schema["minLength"]); ok {
		minLen = int(f)
	}
	maxLen := minLen + 12
	if f, ok := asFloat(schema["maxLength"]); ok {
		if m := int(f); m < maxLen {
			maxLen = m
		}
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	targetLen := minLen
	if maxLen > minLen {
		targetLen += rng.Intn(maxLen - minLen + 1)
	}

	word := sanitizeToken(generator.GenerateText(g.GenerateChunks(rng.Int63(), 1+rng.Intn(3))))
	for len(word) < targetLen {
		word += sanitizeToken(generator.GenerateText(g.GenerateChunks(rng.Int63(), 1)))
	}
	if len(word) > targetLen {
		word = word[:targetLen]
	}
	return word
}

// formatValue produces a format-specific fake value; ok is false for an
// unrecognized format, so the caller falls back to a plain word.
func formatValue(format string, rng *rand.Rand, g *generator.Generator) (string, bool) {
	switch format {
	case "email":
		return fmt.Sprintf("%s@%s.example", randomToken(rng, g), randomToken(rng, g)), true
	case "uuid":
		return randomUUID(rng), true
	case "date-time":
		return randomDateTime(rng).Format(time.RFC3339), true
	case "date":
		return randomDateTime(rng).Format("2006-01-02"), true
	case "time":
		return randomDateTime(rng).Format("15:04:05"), true
	case "uri":
		return fmt.Sprintf("https://%s.example/%s", randomToken(rng, g), randomToken(rng, g)), true
	case "hostname":
		return fmt.Sprintf("%s.example.com", randomToken(rng, g)), true
	case "ipv4":
		return fmt.Sprintf("%d.%d.%d.%d", rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256)), true
	case "ipv6":
		return fmt.Sprintf("%x:%x:%x:%x:%x:%x:%x:%x",
			rng.Intn(65536), rng.Intn(65536), rng.Intn(65536), rng.Intn(65536),
			rng.Intn(65536), rng.Intn(65536), rng.Intn(65536), rng.Intn(65536)), true
	default:
		return "", false
	}
}

func sanitizeToken(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func randomToken(rng *rand.Rand, g *generator.Generator) string {
	token := sanitizeToken(generator.GenerateText(g.GenerateChunks(rng.Int63(), 1)))
	if token == "" {
		return "item"
	}
	return token
}

func randomUUID(rng *rand.Rand) string {
	b := make([]byte, 16)
	_, _ = rng.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func randomDateTime(rng *rand.Rand) time.Time {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	days := rng.Intn(5 * 365)
	secs := rng.Intn(86400)
	return base.Add(time.Duration(days)*24*time.Hour + time.Duration(secs)*time.Second)
}

func generateObject(schema map[string]any, rng *rand.Rand, g *generator.Generator) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	out := make(map[string]any, len(props))

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sub, _ := props[name].(map[string]any)
		if sub == nil {
			out[name] = nil
			continue
		}
		out[name] = generateValue(sub, rng, g)
	}
	return out
}

func generateArray(schema map[string]any, rng *rand.Rand, g *generator.Generator) []any {
	items, _ := schema["items"].(map[string]any)
	lo := 1
	if f, ok := asFloat(schema["minItems"]); ok {
		lo = int(f)
	}
	hi := lo + 3
	if f, ok := asFloat(schema["maxItems"]); ok && int(f) < hi {
		hi = int(f)
	}
	if hi < lo {
		hi = lo
	}
	n := lo + rng.Intn(hi-lo+1)
	out := make([]any, 0, n)
	if items == nil {
		return out
	}
	for i := 0; i < n; i++ {
		out = append(out, generateValue(items, rng, g))
	}
	return out
}
