package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/llmsimlab/simcore/internal/simerrors"
)

func drain(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestRunEmitsContentThenDone(t *testing.T) {
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c"},
		Timing:            Timing{TTFTMs: 1, ITLMs: 1},
		PerTokenTimeout:   time.Second,
		InjectAfterChunks: -1,
	}
	events := drain(Run(context.Background(), p))

	contentCount := 0
	for _, e := range events {
		if e.Kind == EventContent {
			contentCount++
		}
	}
	if contentCount != 3 {
		t.Fatalf("expected 3 content events, got %d", contentCount)
	}
	if events[len(events)-1].Kind != EventDone {
		t.Fatalf("expected final event to be EventDone, got %v", events[len(events)-1].Kind)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c", "d", "e"},
		Timing:            Timing{TTFTMs: 10, ITLMs: 50},
		InjectAfterChunks: -1,
	}
	ch := Run(ctx, p)
	cancel()

	done := make(chan struct{})
	go func() {
		drain(ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate promptly after cancellation")
	}
}

func TestRunInjectsErrorMidStream(t *testing.T) {
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c"},
		Timing:            Timing{TTFTMs: 1, ITLMs: 1},
		PerTokenTimeout:   time.Second,
		InjectAfterChunks: 1,
		InjectError:       simerrors.New(simerrors.KindServerError, "simulated failure"),
	}
	events := drain(Run(context.Background(), p))

	contentCount := 0
	sawError := false
	for _, e := range events {
		if e.Kind == EventContent {
			contentCount++
		}
		if e.Kind == EventError {
			sawError = true
		}
	}
	if contentCount != 1 {
		t.Fatalf("expected exactly 1 content event before injected failure, got %d", contentCount)
	}
	if !sawError {
		t.Fatal("expected an injected error event")
	}
	if events[len(events)-1].Kind != EventError {
		t.Fatalf("expected stream to end on the error, got %v", events[len(events)-1].Kind)
	}
}

func TestRunCancellationEmitsTerminalError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c", "d", "e"},
		Timing:            Timing{TTFTMs: 10, ITLMs: 50},
		InjectAfterChunks: -1,
	}
	ch := Run(ctx, p)
	cancel()
	events := drain(ch)

	if len(events) == 0 || events[len(events)-1].Kind != EventError {
		t.Fatalf("expected a terminal EventError after cancellation, got %+v", events)
	}
	if events[len(events)-1].Err.Kind != simerrors.KindCancelled {
		t.Fatalf("expected KindCancelled, got %v", events[len(events)-1].Err.Kind)
	}
}

func TestRunTotalTimeoutEmitsTimeoutError(t *testing.T) {
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		Timing:            Timing{TTFTMs: 1, ITLMs: 20},
		TotalTimeout:      30 * time.Millisecond,
		PerTokenTimeout:   time.Second,
		InjectAfterChunks: -1,
	}
	events := drain(Run(context.Background(), p))

	if len(events) == 0 || events[len(events)-1].Kind != EventError {
		t.Fatalf("expected a terminal EventError after total timeout, got %+v", events)
	}
	if events[len(events)-1].Err.Kind != simerrors.KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", events[len(events)-1].Err.Kind)
	}
}

func TestRunZeroPerTokenTimeoutFailsAtFirstInterTokenWait(t *testing.T) {
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a", "b", "c"},
		Timing:            Timing{TTFTMs: 1, ITLMs: 5},
		PerTokenTimeout:   0,
		InjectAfterChunks: -1,
	}
	events := drain(Run(context.Background(), p))

	contentCount := 0
	for _, e := range events {
		if e.Kind == EventContent {
			contentCount++
		}
	}
	if contentCount != 1 {
		t.Fatalf("expected exactly 1 content event before the zero-tolerance per-token timeout fires, got %d", contentCount)
	}
	last := events[len(events)-1]
	if last.Kind != EventError || last.Err.Kind != simerrors.KindTimeout {
		t.Fatalf("expected stream to fail with KindTimeout, got %+v", last)
	}
}

func TestRunEmitsKeepAlive(t *testing.T) {
	p := Params{
		Seed:              1,
		ContentChunks:     []string{"a"},
		Timing:            Timing{TTFTMs: 80, ITLMs: 1},
		KeepAliveInterval: 10 * time.Millisecond,
		InjectAfterChunks: -1,
	}
	events := drain(Run(context.Background(), p))

	sawKeepAlive := false
	for _, e := range events {
		if e.Kind == EventKeepAlive {
			sawKeepAlive = true
		}
	}
	if !sawKeepAlive {
		t.Fatal("expected at least one keep-alive event during the TTFT wait")
	}
}
