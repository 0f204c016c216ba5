// Package logging provides logging utilities for the simulation server.
// This file provides an optional high-performance Zap logger that can coexist
// with the existing logrus logger, used for the hot per-request completion
// path where logrus's reflection-based field handling shows up in profiles.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	zapLogger  *zap.Logger
	zapSugar   *zap.SugaredLogger
	zapEnabled bool
	zapOnce    sync.Once
	zapMu      sync.RWMutex
)

// ZapConfig configures the Zap logger.
type ZapConfig struct {
	// Development enables development mode (more verbose, human-readable output).
	Development bool
	// Level sets the minimum log level.
	Level zapcore.Level
	// OutputPaths are the paths to write logs to (e.g., "stdout", "/var/log/app.log").
	OutputPaths []string
	// ErrorOutputPaths are the paths to write error logs to.
	ErrorOutputPaths []string
	// EnableCaller adds caller information to log entries.
	EnableCaller bool
	// EnableStacktrace adds stack trace on error logs.
	EnableStacktrace bool
}

// DefaultZapConfig returns sensible defaults for Zap logging.
func DefaultZapConfig(debug bool) ZapConfig {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	return ZapConfig{
		Development:      debug,
		Level:            level,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: !debug,
	}
}

// InitZapLogger initializes the Zap logger with the given configuration.
// This can be called multiple times safely; initialization happens only once.
// Returns nil if initialization succeeds, otherwise returns the error.
func InitZapLogger(cfg ZapConfig) error {
	var initErr error
	zapOnce.Do(func() {
		var zapCfg zap.Config

		if cfg.Development {
			zapCfg = zap.NewDevelopmentConfig()
			zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		} else {
			zapCfg = zap.NewProductionConfig()
			zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level)

		if len(cfg.OutputPaths) > 0 {
			zapCfg.OutputPaths = cfg.OutputPaths
		}
		if len(cfg.ErrorOutputPaths) > 0 {
			zapCfg.ErrorOutputPaths = cfg.ErrorOutputPaths
		}

		zapCfg.DisableCaller = !cfg.EnableCaller
		zapCfg.DisableStacktrace = !cfg.EnableStacktrace

		var err error
		zapLogger, err = zapCfg.Build()
		if err != nil {
			initErr = err
			return
		}

		zapSugar = zapLogger.Sugar()
		zapEnabled = true
	})
	return initErr
}

// InitZapLoggerSimple initializes Zap with simple debug flag.
func InitZapLoggerSimple(debug bool) error {
	return InitZapLogger(DefaultZapConfig(debug))
}

// ZapEnabled returns true if Zap logger has been initialized.
func ZapEnabled() bool {
	zapMu.RLock()
	defer zapMu.RUnlock()
	return zapEnabled
}

// Zap returns the Zap logger instance.
// Returns nil if Zap has not been initialized.
func Zap() *zap.Logger {
	zapMu.RLock()
	defer zapMu.RUnlock()
	if !zapEnabled {
		return nil
	}
	return zapLogger
}

// Sugar returns the Zap sugared logger instance.
// Returns nil if Zap has not been initialized.
func Sugar() *zap.SugaredLogger {
	zapMu.RLock()
	defer zapMu.RUnlock()
	if !zapEnabled {
		return nil
	}
	return zapSugar
}

// ZapSync flushes any buffered log entries.
// Should be called before program exit.
func ZapSync() error {
	zapMu.RLock()
	defer zapMu.RUnlock()
	if !zapEnabled || zapLogger == nil {
		return nil
	}
	return zapLogger.Sync()
}

// ZapError wraps err as a zap error field.
func ZapError(err error) zap.Field {
	return zap.Error(err)
}

// ZapBool creates an arbitrary bool field (used for the "cached" flag
// on completion audit records).
func ZapBool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

// ZapModel creates a model field for structured logging.
func ZapModel(model string) zap.Field {
	return zap.String("model", model)
}

// ZapEndpoint creates an endpoint field for structured logging, tagging
// a log line with which HTTP surface (chat/completions/embeddings/...)
// produced it.
func ZapEndpoint(endpoint string) zap.Field {
	return zap.String("endpoint", endpoint)
}

// ZapWorker creates a worker_id field identifying which simulated
// worker a routed request landed on.
func ZapWorker(workerID int) zap.Field {
	return zap.Int("worker_id", workerID)
}

// ZapDurationMs creates a duration_ms field for structured logging.
func ZapDurationMs(durationMs float64) zap.Field {
	return zap.Float64("duration_ms", durationMs)
}

// ZapTokens creates a tokens field for structured logging.
func ZapTokens(tokens int64) zap.Field {
	return zap.Int64("tokens", tokens)
}

// ZapErrorKind tags a log line with the simerrors.Kind string (e.g.
// "timeout_error", "cancelled", "rate_limit_exceeded") of a failed request,
// so failures can be filtered by category without parsing the message.
func ZapErrorKind(kind string) zap.Field {
	return zap.String("error_kind", kind)
}

func init() {
	// Check if ZAP_ENABLED environment variable is set
	if os.Getenv("ZAP_ENABLED") == "true" {
		debug := os.Getenv("DEBUG") == "true"
		_ = InitZapLoggerSimple(debug)
	}
}
