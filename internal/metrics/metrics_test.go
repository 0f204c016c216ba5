package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordRequestAccumulates(t *testing.T) {
	reg := New("test", prometheus.NewRegistry())
	reg.RecordRequest("/v1/chat/completions", "sim-large", 50*time.Millisecond, 100, 50, false)
	reg.RecordRequest("/v1/chat/completions", "sim-large", 80*time.Millisecond, 10, 5, true)

	snap := reg.Snapshot()
	if snap.TotalRequests != 2 {
		t.Fatalf("expected 2 total requests, got %d", snap.TotalRequests)
	}
	if snap.TotalSuccess != 1 || snap.TotalFailed != 1 {
		t.Fatalf("expected 1 success / 1 failed, got %d/%d", snap.TotalSuccess, snap.TotalFailed)
	}
	ms, ok := snap.ModelStats["sim-large"]
	if !ok {
		t.Fatal("expected sim-large model stats present")
	}
	if ms.Requests != 2 || ms.PromptTokens != 110 || ms.CompletionTokens != 55 {
		t.Fatalf("unexpected model stats: %+v", ms)
	}
}

func TestSnapshotEmptyRegistry(t *testing.T) {
	reg := New("test", prometheus.NewRegistry())
	snap := reg.Snapshot()
	if snap.TotalRequests != 0 || snap.P50LatencyMs != 0 {
		t.Fatalf("expected zero-value snapshot, got %+v", snap)
	}
}

func TestPercentilesOrdering(t *testing.T) {
	p50, p90, p99 := percentiles([]float64{0.1, 0.5, 0.2, 0.9, 0.3, 0.4, 0.8, 0.7, 0.6, 1.0})
	if !(p50 <= p90 && p90 <= p99) {
		t.Fatalf("expected p50<=p90<=p99, got %f/%f/%f", p50, p90, p99)
	}
}
