// Package audit records a bounded, in-memory log of simulated API
// requests and responses for debugging and compliance inspection. It
// never persists to disk: entries age out by count (ring-style
// trimming) and by retention window, matching the specification's
// process-local-state design.
package audit

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// LogLevel indicates the severity/detail level of an audit entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelDebug   LogLevel = "debug"
)

// Entry represents a single audit log entry for one simulated request.
type Entry struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Level         LogLevel          `json:"level"`
	Model         string            `json:"model"`
	APIKeyID      string            `json:"api_key_id,omitempty"`
	Endpoint      string            `json:"endpoint"`
	Method        string            `json:"method"`
	StatusCode    int               `json:"status_code"`
	Latency       time.Duration     `json:"latency_ms"`
	WorkerID      int               `json:"worker_id"`
	CachedTokens  int               `json:"cached_tokens,omitempty"`
	PromptTokens  int64             `json:"prompt_tokens,omitempty"`
	OutputTokens  int64             `json:"output_tokens,omitempty"`
	Error         string            `json:"error,omitempty"`
	ClientIP      string            `json:"client_ip,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	Streaming     bool              `json:"streaming"`
	Cached        bool              `json:"cached"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Config configures audit logging behavior.
type Config struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	MaxEntries     int  `yaml:"max-entries" json:"max_entries"`
	RetentionHours int  `yaml:"retention-hours" json:"retention_hours"`
	LogRequests    bool `yaml:"log-requests" json:"log_requests"`
	LogResponses   bool `yaml:"log-responses" json:"log_responses"`
	LogErrors      bool `yaml:"log-errors" json:"log_errors"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		MaxEntries:     2000,
		RetentionHours: 24,
		LogRequests:    true,
		LogResponses:   true,
		LogErrors:      true,
	}
}

// Logger manages a bounded, in-memory audit log.
type Logger struct {
	mu      sync.RWMutex
	entries []Entry
	config  Config
	idGen   uint64
}

// New creates a Logger and starts its background retention sweep.
func New(cfg Config) *Logger {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 2000
	}
	l := &Logger{
		entries: make([]Entry, 0, cfg.MaxEntries),
		config:  cfg,
	}
	go l.cleanupLoop()
	return l
}

// IsEnabled returns whether audit logging is enabled.
func (l *Logger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// Log adds a new audit entry, trimming the oldest 10% when the log is at
// capacity.
func (l *Logger) Log(entry Entry) {
	if !l.IsEnabled() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.idGen++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.ID = generateID(l.idGen, entry.Timestamp)

	if entry.Level == "" {
		switch {
		case entry.Error != "":
			entry.Level = LogLevelError
		case entry.StatusCode >= 400:
			entry.Level = LogLevelWarning
		default:
			entry.Level = LogLevelInfo
		}
	}

	if len(l.entries) >= l.config.MaxEntries {
		removeCount := l.config.MaxEntries / 10
		if removeCount < 1 {
			removeCount = 1
		}
		l.entries = l.entries[removeCount:]
	}

	l.entries = append(l.entries, entry)
}

// LogRequest logs an inbound API request before routing.
func (l *Logger) LogRequest(req *http.Request, model, apiKeyID string) {
	if !l.IsEnabled() || !l.config.LogRequests {
		return
	}
	l.Log(Entry{
		Timestamp: time.Now(),
		Level:     LogLevelInfo,
		Model:     model,
		APIKeyID:  apiKeyID,
		Endpoint:  req.URL.Path,
		Method:    req.Method,
		ClientIP:  clientIP(req),
		UserAgent: req.UserAgent(),
		RequestID: req.Header.Get("X-Request-ID"),
	})
}

// LogResponse logs the outcome of a completed simulated request,
// including which worker handled it and how much of its prompt was
// served from the simulated KV cache.
func (l *Logger) LogResponse(
	model, apiKeyID, endpoint, method string,
	statusCode int, latency time.Duration,
	workerID, cachedTokens int, promptTokens, outputTokens int64,
	streaming, cached bool, err error,
) {
	if !l.IsEnabled() {
		return
	}
	if statusCode >= 400 && !l.config.LogErrors {
		return
	}
	if statusCode < 400 && !l.config.LogResponses {
		return
	}

	entry := Entry{
		Timestamp:    time.Now(),
		Model:        model,
		APIKeyID:     apiKeyID,
		Endpoint:     endpoint,
		Method:       method,
		StatusCode:   statusCode,
		Latency:      latency,
		WorkerID:     workerID,
		CachedTokens: cachedTokens,
		PromptTokens: promptTokens,
		OutputTokens: outputTokens,
		Streaming:    streaming,
		Cached:       cached,
	}
	if err != nil {
		entry.Error = err.Error()
		entry.Level = LogLevelError
	}
	l.Log(entry)
}

// Filter specifies filtering criteria for audit entries.
type Filter struct {
	Level        LogLevel  `json:"level,omitempty"`
	Model        string    `json:"model,omitempty"`
	APIKeyID     string    `json:"api_key_id,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Until        time.Time `json:"until,omitempty"`
	ErrorsOnly   bool      `json:"errors_only,omitempty"`
	MinLatencyMs int64     `json:"min_latency_ms,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// GetEntries returns audit entries newest-first, honoring filter.
func (l *Logger) GetEntries(filter Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Entry, 0)
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		switch {
		case filter.Level != "" && e.Level != filter.Level:
			continue
		case filter.Model != "" && e.Model != filter.Model:
			continue
		case filter.APIKeyID != "" && e.APIKeyID != filter.APIKeyID:
			continue
		case !filter.Since.IsZero() && e.Timestamp.Before(filter.Since):
			continue
		case !filter.Until.IsZero() && e.Timestamp.After(filter.Until):
			continue
		case filter.ErrorsOnly && e.Error == "":
			continue
		case filter.MinLatencyMs > 0 && e.Latency.Milliseconds() < filter.MinLatencyMs:
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result
}

// Stats contains aggregate audit statistics.
type Stats struct {
	TotalEntries int              `json:"total_entries"`
	ErrorCount   int              `json:"error_count"`
	TotalTokens  int64            `json:"total_tokens"`
	AvgLatencyMs int64            `json:"avg_latency_ms"`
	OldestEntry  time.Time        `json:"oldest_entry,omitempty"`
	NewestEntry  time.Time        `json:"newest_entry,omitempty"`
	ModelCounts  map[string]int   `json:"model_counts"`
	StatusCounts map[int]int      `json:"status_counts"`
	LevelCounts  map[LogLevel]int `json:"level_counts"`
}

// GetStats returns aggregate statistics over the current log.
func (l *Logger) GetStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(l.entries),
		ModelCounts:  make(map[string]int),
		StatusCounts: make(map[int]int),
		LevelCounts:  make(map[LogLevel]int),
	}

	var totalLatency time.Duration
	for _, e := range l.entries {
		stats.ModelCounts[e.Model]++
		stats.StatusCounts[e.StatusCode]++
		stats.LevelCounts[e.Level]++
		stats.TotalTokens += e.PromptTokens + e.OutputTokens
		if e.Error != "" {
			stats.ErrorCount++
		}
		totalLatency += e.Latency
	}

	if len(l.entries) > 0 {
		stats.AvgLatencyMs = totalLatency.Milliseconds() / int64(len(l.entries))
		stats.OldestEntry = l.entries[0].Timestamp
		stats.NewestEntry = l.entries[len(l.entries)-1].Timestamp
	}
	return stats
}

// Clear removes all audit entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, l.config.MaxEntries)
}

// Export serializes the current log as JSON.
func (l *Logger) Export() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return json.Marshal(l.entries)
}

func (l *Logger) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.cleanup()
	}
}

func (l *Logger) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.RetentionHours <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(l.config.RetentionHours) * time.Hour)
	kept := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

func generateID(seq uint64, t time.Time) string {
	return t.Format("20060102150405") + "-" + uintToBase36(seq)
}

func uintToBase36(n uint64) string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	result := make([]byte, 0, 8)
	for n > 0 {
		result = append(result, chars[n%36])
		n /= 36
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return string(result)
}

func clientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return req.RemoteAddr
}
