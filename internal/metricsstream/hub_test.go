package metricsstream

import (
	"testing"

	"github.com/llmsimlab/simcore/internal/metrics"
)

func TestClientFiltersUnionAccumulates(t *testing.T) {
	f := defaultFilters()
	f.union(subscribeFilters{Model: "gpt-4"})
	f.union(subscribeFilters{Model: "gpt-3.5"})
	if !f.models["gpt-4"] || !f.models["gpt-3.5"] {
		t.Fatalf("expected both models in the union, got %+v", f.models)
	}
}

func TestClientFiltersUnionNarrowsInterval(t *testing.T) {
	f := defaultFilters()
	f.union(subscribeFilters{Interval: 2})
	if f.interval.Seconds() != 2 {
		t.Fatalf("expected interval to update to 2s, got %v", f.interval)
	}
}

func TestApplyFiltersSubsetsModelStats(t *testing.T) {
	snap := metrics.Snapshot{
		ModelStats: map[string]metrics.ModelMetric{
			"gpt-4":   {Requests: 5},
			"gpt-3.5": {Requests: 9},
		},
	}
	f := defaultFilters()
	f.union(subscribeFilters{Model: "gpt-4"})

	out := applyFilters(snap, f)
	stats, ok := out["model_stats"].(map[string]metrics.ModelMetric)
	if !ok {
		t.Fatalf("expected model_stats map, got %T", out["model_stats"])
	}
	if len(stats) != 1 || stats["gpt-4"].Requests != 5 {
		t.Fatalf("expected only gpt-4 in filtered stats, got %+v", stats)
	}
}

func TestApplyFiltersNarrowsByMetricType(t *testing.T) {
	snap := metrics.Snapshot{RPM: 10, P50LatencyMs: 20}
	f := defaultFilters()
	f.union(subscribeFilters{MetricType: "latency"})

	out := applyFilters(snap, f)
	if _, ok := out["rpm"]; ok {
		t.Fatalf("expected throughput fields excluded when metric_type=latency, got %+v", out)
	}
	if _, ok := out["p50_latency_ms"]; !ok {
		t.Fatalf("expected latency fields present, got %+v", out)
	}
}

func TestComputeDeltasAgainstPrevious(t *testing.T) {
	prev := metrics.Snapshot{TotalRequests: 10, TotalTokens: 100}
	cur := metrics.Snapshot{TotalRequests: 15, TotalTokens: 140}

	d := computeDeltas(&prev, &cur)
	if d.TotalRequests != 5 || d.TotalTokens != 40 {
		t.Fatalf("expected deltas {5,40,...}, got %+v", d)
	}
}

func TestComputeDeltasNilPrevious(t *testing.T) {
	cur := metrics.Snapshot{TotalRequests: 15}
	d := computeDeltas(nil, &cur)
	if d.TotalRequests != 0 {
		t.Fatalf("expected zero deltas with no previous snapshot, got %+v", d)
	}
}
