// Package config provides configuration management for the simulation server.
// It handles loading and parsing YAML configuration, and provides structured
// access to every tunable of the simulation core: timing, rate limiting,
// KV-cache routing, prompt caching, streaming timeouts, and safety features.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration struct for the simulation server.
type Config struct {
	// Host is the bind address for the HTTP server.
	Host string `yaml:"host" json:"host"`

	// Port is the bind port for the HTTP server.
	Port int `yaml:"port" json:"port"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug" json:"debug"`

	// Simulation configures response timing.
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Auth configures API key enforcement.
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// RateLimit configures the per-key dual token-bucket limiter.
	RateLimit RateLimitConfig `yaml:"rate-limit" json:"rate_limit"`

	// KVCache configures the smart router and simulated worker pool.
	KVCache KVCacheConfig `yaml:"kv-cache" json:"kv_cache"`

	// PromptCache configures the prompt fingerprint cache.
	PromptCache PromptCacheConfig `yaml:"prompt-cache" json:"prompt_cache"`

	// Streaming configures SSE timeouts and keep-alive.
	Streaming StreamingConfig `yaml:"streaming" json:"streaming"`

	// Safety configures context validation, moderation, and jailbreak detection.
	Safety SafetyConfig `yaml:"safety" json:"safety"`

	// ErrorInjection configures synthetic fault injection.
	ErrorInjection ErrorInjectionConfig `yaml:"error-injection" json:"error_injection"`

	// Audit configures the bounded audit log.
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Observability configures metrics export.
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SimulationConfig controls the timing model used by the streaming engine.
type SimulationConfig struct {
	ResponseDelayMs int     `yaml:"response-delay-ms" json:"response_delay_ms"`
	RandomDelay     bool    `yaml:"random-delay" json:"random_delay"`
	MaxVarianceMs   int     `yaml:"max-variance-ms" json:"max_variance_ms"`
	TTFTMs          int     `yaml:"ttft-ms" json:"ttft_ms"`
	TTFTVariancePct float64 `yaml:"ttft-variance-pct" json:"ttft_variance_pct"`
	ITLMs           int     `yaml:"itl-ms" json:"itl_ms"`
	ITLVariancePct  float64 `yaml:"itl-variance-pct" json:"itl_variance_pct"`
}

// AuthConfig controls bearer-key enforcement.
type AuthConfig struct {
	RequireAPIKey bool     `yaml:"require-api-key" json:"require_api_key"`
	APIKeys       []string `yaml:"api-keys" json:"api_keys"`
}

// RateLimitConfig controls the dual token-bucket rate limiter.
type RateLimitConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Tier       string `yaml:"tier" json:"tier"`
	OverrideRPM int   `yaml:"rpm,omitempty" json:"rpm,omitempty"`
	OverrideTPM int   `yaml:"tpm,omitempty" json:"tpm,omitempty"`
}

// KVCacheConfig controls the radix index / worker pool / smart router.
type KVCacheConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	BlockSize     int     `yaml:"block-size" json:"block_size"`
	NumWorkers    int     `yaml:"num-workers" json:"num_workers"`
	OverlapWeight float64 `yaml:"overlap-weight" json:"overlap_weight"`
	DecodeWeight  float64 `yaml:"decode-weight" json:"decode_weight"`
	LoadWeight    float64 `yaml:"load-weight" json:"load_weight"`
	CostPrefill   float64 `yaml:"cost-prefill" json:"cost_prefill"`
	CostDecode    float64 `yaml:"cost-decode" json:"cost_decode"`
	CostLoad      float64 `yaml:"cost-load" json:"cost_load"`
}

// PromptCacheConfig controls the fingerprint -> cached-token-count cache.
type PromptCacheConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	TTLSeconds       int  `yaml:"ttl-seconds" json:"ttl_seconds"`
	MinTokensForCache int `yaml:"min-tokens-for-cache" json:"min_tokens_for_cache"`
	MaxEntries       int  `yaml:"max-entries" json:"max_entries"`
}

// StreamingConfig controls SSE lifecycle timeouts and keep-alive.
type StreamingConfig struct {
	TotalTimeoutSeconds     int  `yaml:"total-timeout-seconds" json:"total_timeout_seconds"`
	PerTokenTimeoutSeconds  int  `yaml:"per-token-timeout-seconds" json:"per_token_timeout_seconds"`
	KeepAliveEnabled        bool `yaml:"keepalive-enabled" json:"keepalive_enabled"`
	KeepAliveIntervalSeconds int `yaml:"keepalive-interval-seconds" json:"keepalive_interval_seconds"`
}

// SafetyConfig controls context validation, moderation, and jailbreak detection.
type SafetyConfig struct {
	EnableContextValidation bool `yaml:"enable-context-validation" json:"enable_context_validation"`
	EnableModeration        bool `yaml:"enable-moderation" json:"enable_moderation"`
	EnableSafetyFeatures    bool `yaml:"enable-safety-features" json:"enable_safety_features"`
	EnableJailbreakDetection bool `yaml:"enable-jailbreak-detection" json:"enable_jailbreak_detection"`
	PrependSafetyMessage    bool `yaml:"prepend-safety-message" json:"prepend_safety_message"`
}

// ErrorInjectionConfig controls synthetic fault injection for chaos testing.
type ErrorInjectionConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Rate    float64  `yaml:"rate" json:"rate"`
	Types   []string `yaml:"types" json:"types"`
}

// AuditConfig controls the bounded audit log.
type AuditConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	MaxEntries     int  `yaml:"max-entries" json:"max_entries"`
	RetentionHours int  `yaml:"retention-hours" json:"retention_hours"`
}

// ObservabilityConfig controls metrics export.
type ObservabilityConfig struct {
	MetricsEnabled   bool   `yaml:"metrics-enabled" json:"metrics_enabled"`
	PrometheusPath   string `yaml:"prometheus-path" json:"prometheus_path"`
	BroadcastTickMs  int    `yaml:"broadcast-tick-ms" json:"broadcast_tick_ms"`
}

// Default returns the built-in configuration, matching the defaults named
// throughout the specification (TTFT/ITL, 300s/30s timeouts, 4 workers,
// block size 16, 1024-token cache floor, 10000-entry cache cap).
func Default() *Config {
	return &Config{
		Host:  "0.0.0.0",
		Port:  8080,
		Debug: false,
		Simulation: SimulationConfig{
			ResponseDelayMs: 0,
			RandomDelay:     true,
			MaxVarianceMs:   100,
			TTFTMs:          200,
			TTFTVariancePct: 0.3,
			ITLMs:           20,
			ITLVariancePct:  0.3,
		},
		Auth: AuthConfig{RequireAPIKey: false},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Tier:    "tier-1",
		},
		KVCache: KVCacheConfig{
			Enabled:       true,
			BlockSize:     16,
			NumWorkers:    4,
			OverlapWeight: 1.0,
			DecodeWeight:  1.0,
			LoadWeight:    1.0,
			CostPrefill:   1.0,
			CostDecode:    2.0,
			CostLoad:      50.0,
		},
		PromptCache: PromptCacheConfig{
			Enabled:           true,
			TTLSeconds:        300,
			MinTokensForCache: 1024,
			MaxEntries:        10000,
		},
		Streaming: StreamingConfig{
			TotalTimeoutSeconds:      300,
			PerTokenTimeoutSeconds:   30,
			KeepAliveEnabled:         true,
			KeepAliveIntervalSeconds: 15,
		},
		Safety: SafetyConfig{
			EnableContextValidation: true,
		},
		ErrorInjection: ErrorInjectionConfig{},
		Audit: AuditConfig{
			Enabled:        true,
			MaxEntries:     2000,
			RetentionHours: 24,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled:  true,
			PrometheusPath:  "/metrics/prometheus",
			BroadcastTickMs: 500,
		},
	}
}

// Load reads and parses a YAML configuration file, filling any unset fields
// from Default(). A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
