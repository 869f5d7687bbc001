package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FormatJSON selects raw JSON console output instead of the human-readable writer.
const FormatJSON = "json"

// Logger is the global zerolog logger instance.
//
//nolint:gochecknoglobals // Logger is intentionally global for application-wide structured logging
var Logger zerolog.Logger

// logFileHandle tracks the current log file for cleanup.
//
//nolint:gochecknoglobals // Tracks the global logger's file handle for proper cleanup
var logFileHandle *os.File

// logMu protects concurrent access to logFileHandle and Logger.
//
//nolint:gochecknoglobals // Guards the global logger state
var logMu sync.RWMutex

// InitLogger replaces the global Logger using lc.
//
// console receives human-readable output (or JSON when lc.Format is "json").
// A nil console disables console output, which the TUI uses so log lines do
// not corrupt the screen. When lc.File is set the file receives JSON lines in
// append mode. With neither, logs are discarded.
func InitLogger(lc LoggingConfig, console io.Writer) error {
	logMu.Lock()
	defer logMu.Unlock()

	lvl, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		lvl = zerolog.InfoLevel
	}

	closeLogFileLocked()

	var writers []io.Writer
	if console != nil {
		if lc.Format == FormatJSON {
			writers = append(writers, console)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
		}
	}

	if lc.File != "" {
		if mkErr := os.MkdirAll(filepath.Dir(lc.File), 0750); mkErr != nil {
			return fmt.Errorf("creating log directory: %w", mkErr)
		}
		logFile, fileErr := os.OpenFile(lc.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if fileErr != nil {
			return fmt.Errorf("opening log file %s: %w", lc.File, fileErr)
		}
		logFileHandle = logFile
		writers = append(writers, logFile)
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	Logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()

	return nil
}

// SetLogLevel sets the global Logger's level, falling back to info when level is invalid.
func SetLogLevel(level string) {
	logMu.Lock()
	defer logMu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	Logger = Logger.Level(lvl)
}

// CloseLogFile closes the current log file handle, if any, and resets the Logger
// to console-only so subsequent logs are not written to a closed file.
func CloseLogFile() {
	logMu.Lock()
	defer logMu.Unlock()
	closeLogFileLocked()
}

// closeLogFileLocked must be called with logMu held.
func closeLogFileLocked() {
	if logFileHandle == nil {
		return
	}
	_ = logFileHandle.Close()
	logFileHandle = nil

	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(Logger.GetLevel()).
		With().
		Timestamp().
		Caller().
		Logger()
}

// GetLogger returns the global logger instance.
func GetLogger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return Logger
}

//nolint:gochecknoinits // package-level logger must be usable before configuration is loaded
func init() {
	_ = InitLogger(LoggingConfig{Level: "info"}, os.Stderr)
}
