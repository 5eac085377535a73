// Package logging wires zerolog to the console and to
// <state-dir>/logs/civitas.log so failures stay inspectable after the
// process exits.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger owns the log file handle alongside the zerolog instance.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New creates (or reuses) the log file under stateDir and returns a logger
// writing to both stderr and the file.
func New(stateDir string, debug bool) (*Logger, error) {
	logDir := filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "civitas.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log := zerolog.New(io.MultiWriter(console, f)).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: log, file: f}, nil
}

// Discard returns a logger that drops everything (used by tests).
func Discard() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
