package audit

import (
	"errors"
	"testing"
	"time"
)

func TestLogTrimsAtCapacity(t *testing.T) {
	l := New(Config{Enabled: true, MaxEntries: 10, LogRequests: true, LogResponses: true, LogErrors: true})
	for i := 0; i < 15; i++ {
		l.Log(Entry{Model: "sim-large", StatusCode: 200})
	}
	if got := l.GetStats().TotalEntries; got > 10 {
		t.Fatalf("expected at most 10 entries, got %d", got)
	}
}

func TestLogResponseRespectsErrorFilter(t *testing.T) {
	l := New(Config{Enabled: true, MaxEntries: 100, LogErrors: false, LogResponses: true})
	l.LogResponse("sim-large", "key1", "/v1/chat/completions", "POST", 500, 10*time.Millisecond, 0, 0, 10, 5, false, false, errors.New("boom"))
	if l.GetStats().TotalEntries != 0 {
		t.Fatal("expected error response to be skipped when LogErrors is false")
	}
}

func TestGetEntriesFilterByModel(t *testing.T) {
	l := New(Config{Enabled: true, MaxEntries: 100, LogResponses: true})
	l.LogResponse("sim-large", "key1", "/v1/chat/completions", "POST", 200, time.Millisecond, 0, 0, 10, 5, false, false, nil)
	l.LogResponse("sim-small", "key1", "/v1/chat/completions", "POST", 200, time.Millisecond, 1, 0, 10, 5, false, false, nil)

	entries := l.GetEntries(Filter{Model: "sim-small"})
	if len(entries) != 1 || entries[0].Model != "sim-small" {
		t.Fatalf("expected 1 sim-small entry, got %+v", entries)
	}
}

func TestDisabledLoggerNeverLogs(t *testing.T) {
	l := New(Config{Enabled: false})
	l.Log(Entry{Model: "sim-large"})
	if l.GetStats().TotalEntries != 0 {
		t.Fatal("expected disabled logger to record nothing")
	}
}
