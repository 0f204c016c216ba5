// Package logging provides logging utilities for the simulation server.
// The primary logger is logrus, configured with structured fields and
// optional file rotation via lumberjack; Zap (zap_logger.go) is available
// as an optional high-performance logger for hot paths that coexists
// with it.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures the primary logrus logger.
type Config struct {
	// Debug sets the log level to Debug; otherwise Info.
	Debug bool

	// JSONFormat emits structured JSON lines instead of text.
	JSONFormat bool

	// FilePath, if set, additionally writes logs to a rotated file.
	FilePath string

	// MaxSizeMB is the max size of a log file before rotation.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain.
	MaxBackups int

	// MaxAgeDays is the max age of a rotated file before deletion.
	MaxAgeDays int
}

// DefaultConfig returns sensible logging defaults.
func DefaultConfig(debug bool) Config {
	return Config{
		Debug:      debug,
		JSONFormat: !debug,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// Init configures the global logrus logger per cfg. Safe to call once at
// startup; subsequent calls reconfigure the same global logger.
func Init(cfg Config) {
	if cfg.JSONFormat {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	log.SetOutput(io.MultiWriter(writers...))
}

// WithRequest returns a logger entry pre-populated with request-scoped
// fields, matching the structured-field convention used across handlers.
func WithRequest(requestID, model, endpoint string) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": requestID,
		"model":      model,
		"endpoint":   endpoint,
	})
}
