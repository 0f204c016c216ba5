// Package metrics implements the multi-dimensional metrics surface:
// sliding-window throughput and latency, per-model request and token
// counts (no cost is computed), and
// streaming lifecycle tracking (TTFT, tokens/sec). It exports the same
// figures two ways: as real Prometheus collectors for scraping, and as an
// in-memory snapshot for the dashboard WebSocket fan-out
// (internal/metricsstream).
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	secondsWindow  = 60
	latencyRingCap = 1000
	ttftRingCap    = 1000
)

// Registry holds every collector and the in-memory sliding-window state
// behind the dashboard snapshot. One Registry is created per server.
type Registry struct {
	namespace string

	requestsTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	ttftSeconds    *prometheus.HistogramVec
	activeStreams  prometheus.Gauge

	mu            sync.Mutex
	startedAt     time.Time
	perSecondReq  [secondsWindow]int64
	perSecondTok  [secondsWindow]int64
	latencyRing   [latencyRingCap]float64
	latencyCount  int
	latencyCursor int
	ttftRing      [ttftRingCap]float64
	ttftCount     int
	ttftCursor    int
	models        map[string]*modelStats
	totalRequests int64
	totalSuccess  int64
	totalFailed   int64
	totalTokens   int64
}

type modelStats struct {
	requests     int64
	promptToks   int64
	completeToks int64
}

// New builds a Registry and registers its collectors with reg (pass
// prometheus.NewRegistry() or prometheus.DefaultRegisterer's registry).
func New(namespace string, reg prometheus.Registerer) *Registry {
	if namespace == "" {
		namespace = "simcore"
	}
	factory := promauto.With(reg)
	return &Registry{
		namespace: namespace,
		startedAt: time.Now(),
		models:    make(map[string]*modelStats),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total simulated API requests.",
		}, []string{"endpoint", "model"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total simulated API errors.",
		}, []string{"endpoint", "model", "kind"}),

		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total tokens accounted, by direction.",
		}, []string{"model", "direction"}),

		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "End-to-end request latency.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint", "model"}),

		ttftSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ttft_seconds",
			Help:      "Time to first streamed token.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"model"}),

		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Currently open streaming responses.",
		}),
	}
}

// RecordRequest records a completed (non-streaming or full-stream)
// request: its latency, token accounting, and success/failure outcome.
func (r *Registry) RecordRequest(endpoint, model string, latency time.Duration, promptTokens, completionTokens int, failed bool) {
	r.requestsTotal.WithLabelValues(endpoint, model).Inc()
	r.requestLatency.WithLabelValues(endpoint, model).Observe(latency.Seconds())
	r.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	r.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))

	r.mu.Lock()
	defer r.mu.Unlock()

	sec := int(time.Since(r.startedAt).Seconds()) % secondsWindow
	r.perSecondReq[sec]++
	r.perSecondTok[sec] += int64(promptTokens + completionTokens)

	r.latencyRing[r.latencyCursor] = latency.Seconds()
	r.latencyCursor = (r.latencyCursor + 1) % latencyRingCap
	if r.latencyCount < latencyRingCap {
		r.latencyCount++
	}

	r.totalRequests++
	r.totalTokens += int64(promptTokens + completionTokens)
	if failed {
		r.totalFailed++
	} else {
		r.totalSuccess++
	}

	ms, ok := r.models[model]
	if !ok {
		ms = &modelStats{}
		r.models[model] = ms
	}
	ms.requests++
	ms.promptToks += int64(promptTokens)
	ms.completeToks += int64(completionTokens)
}

// RecordError increments the error counter for a synthesized failure.
func (r *Registry) RecordError(endpoint, model, kind string) {
	r.errorsTotal.WithLabelValues(endpoint, model, kind).Inc()
}

// RecordTTFT records a stream's time-to-first-token.
func (r *Registry) RecordTTFT(model string, ttft time.Duration) {
	r.ttftSeconds.WithLabelValues(model).Observe(ttft.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttftRing[r.ttftCursor] = ttft.Seconds()
	r.ttftCursor = (r.ttftCursor + 1) % ttftRingCap
	if r.ttftCount < ttftRingCap {
		r.ttftCount++
	}
}

// StreamOpened/StreamClosed track the active-streams gauge.
func (r *Registry) StreamOpened() { r.activeStreams.Inc() }
func (r *Registry) StreamClosed() { r.activeStreams.Dec() }

// Snapshot is the dashboard-facing view of current metrics state.
type Snapshot struct {
	RPM           float64                `json:"rpm"`
	TPM           float64                `json:"tpm"`
	TPS           float64                `json:"tps"`
	TotalRequests int64                  `json:"total_requests"`
	TotalTokens   int64                  `json:"total_tokens"`
	TotalSuccess  int64                  `json:"total_success"`
	TotalFailed   int64                  `json:"total_failed"`
	SuccessRate   float64                `json:"success_rate"`
	P50LatencyMs  float64                `json:"p50_latency_ms"`
	P90LatencyMs  float64                `json:"p90_latency_ms"`
	P99LatencyMs  float64                `json:"p99_latency_ms"`
	AvgTTFTMs     float64                `json:"avg_ttft_ms"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	ModelStats    map[string]ModelMetric `json:"model_stats"`
	Timestamp     time.Time              `json:"timestamp"`
}

// ModelMetric is per-model request and token volume. It carries no cost
// figure.
type ModelMetric struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Snapshot computes a point-in-time view from the sliding windows.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reqSum, tokSum int64
	for i := 0; i < secondsWindow; i++ {
		reqSum += r.perSecondReq[i]
		tokSum += r.perSecondTok[i]
	}
	rpm := float64(reqSum) / secondsWindow * 60
	tpm := float64(tokSum) / secondsWindow * 60
	tps := float64(tokSum) / secondsWindow

	p50, p90, p99 := percentiles(r.latencyRing[:r.latencyCount])

	var ttftSum float64
	for i := 0; i < r.ttftCount; i++ {
		ttftSum += r.ttftRing[i]
	}
	avgTTFT := 0.0
	if r.ttftCount > 0 {
		avgTTFT = ttftSum / float64(r.ttftCount)
	}

	models := make(map[string]ModelMetric, len(r.models))
	for name, ms := range r.models {
		models[name] = ModelMetric{
			Requests:         ms.requests,
			PromptTokens:     ms.promptToks,
			CompletionTokens: ms.completeToks,
		}
	}

	successRate := 0.0
	if r.totalRequests > 0 {
		successRate = float64(r.totalSuccess) / float64(r.totalRequests)
	}

	return Snapshot{
		RPM:           rpm,
		TPM:           tpm,
		TPS:           tps,
		TotalRequests: r.totalRequests,
		TotalTokens:   r.totalTokens,
		TotalSuccess:  r.totalSuccess,
		TotalFailed:   r.totalFailed,
		SuccessRate:   successRate,
		P50LatencyMs:  p50 * 1000,
		P90LatencyMs:  p90 * 1000,
		P99LatencyMs:  p99 * 1000,
		AvgTTFTMs:     avgTTFT * 1000,
		UptimeSeconds: time.Since(r.startedAt).Seconds(),
		ModelStats:    models,
		Timestamp:     time.Now(),
	}
}

// percentiles computes p50/p90/p99 from an unsorted sample, copying it
// first so the caller's ring buffer ordering is left untouched.
func percentiles(samples []float64) (p50, p90, p99 float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	pick := func(pct float64) float64 {
		idx := int(pct * float64(len(sorted)-1))
		return sorted[idx]
	}
	return pick(0.50), pick(0.90), pick(0.99)
}
