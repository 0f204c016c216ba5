package contextwindow

import "testing"

func TestValidateWithinBudget(t *testing.T) {
	v := New(map[string]int{"sim-large": 100}, Reserve{ResponseTokens: 10})
	if err := v.Validate("sim-large", 50); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateOverBudget(t *testing.T) {
	v := New(map[string]int{"sim-large": 100}, Reserve{ResponseTokens: 10})
	err := v.Validate("sim-large", 95)
	if err == nil {
		t.Fatal("expected context_length_exceeded error")
	}
}

func TestUnknownModelUsesDefault(t *testing.T) {
	v := New(nil, Reserve{})
	if err := v.Validate("unknown-model", DefaultContextLength-1); err != nil {
		t.Fatalf("expected no error under default budget, got %v", err)
	}
	if err := v.Validate("unknown-model", DefaultContextLength+1); err == nil {
		t.Fatal("expected error over default budget")
	}
}

func TestTruncateDropsOldestKeepingSystem(t *testing.T) {
	v := New(map[string]int{"m": 12}, Reserve{})
	messages := []Message{
		{Role: "system", Content: "you are a helpful assistant"},
		{Role: "user", Content: "first message here padding padding"},
		{Role: "assistant", Content: "first reply padding padding padding"},
		{Role: "user", Content: "final question"},
	}
	out := v.Truncate("m", messages)
	if out[0].Role != "system" {
		t.Fatalf("expected system message preserved, got %+v", out[0])
	}
	if out[len(out)-1].Content != "final question" {
		t.Fatalf("expected final message preserved, got %+v", out[len(out)-1])
	}
	if len(out) >= len(messages) {
		t.Fatalf("expected truncation to shrink message list, got same/greater length %d", len(out))
	}
}
