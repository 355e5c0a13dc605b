// Package logger provides structured logging for policyrag
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with policyrag-specific event helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "policyrag").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Component returns a logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogDocumentLoaded logs one ingested document
func (l *Logger) LogDocumentLoaded(source, title, version string) {
	l.zlog.Debug().
		Str("event", "document_loaded").
		Str("source", source).
		Str("title", title).
		Str("version", version).
		Msg("Loaded document into vector store")
}

// LogRecordSkipped logs a malformed ingestion record
func (l *Logger) LogRecordSkipped(source string, err error) {
	l.zlog.Warn().
		Str("event", "record_skipped").
		Str("source", source).
		Err(err).
		Msg("Skipping malformed document")
}

// LogIngest logs the outcome of an ingestion pass
func (l *Logger) LogIngest(dir string, loaded, skipped int, duration time.Duration) {
	l.zlog.Info().
		Str("event", "ingest_complete").
		Str("dir", dir).
		Int("loaded", loaded).
		Int("skipped", skipped).
		Dur("duration_ms", duration).
		Msg("Loaded documents into vector store")
}

// LogQuery logs a processed question
func (l *Logger) LogQuery(question string, sources int, confidence float64, conflict bool, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Error().
			Str("event", "query").
			Str("question", question).
			Dur("duration_ms", duration).
			Err(err).
			Msg("Query failed")
		return
	}
	l.zlog.Info().
		Str("event", "query").
		Str("question", question).
		Int("sources", sources).
		Float64("confidence", confidence).
		Bool("conflict", conflict).
		Dur("duration_ms", duration).
		Msg("Query processed")
}

// LogRequest logs an HTTP request
func (l *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Info()
	if status >= 500 {
		event = l.zlog.Error()
	}
	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("HTTP request completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(addr string, documents int) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Int("documents", documents).
		Msg("policyrag server starting")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("policyrag server shutting down")
}
