// Package logger configures charmbracelet/log for mailtype's commands and
// packages. Logs go to stderr by default; stdout is kept for command output
// and the serve protocol.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu        sync.RWMutex
	output    io.Writer = os.Stderr
	formatter           = log.TextFormatter
	logFile   *os.File
)

// Setup applies the logging configuration globally. file may be empty for
// stderr. Calling Setup again closes a previously opened log file.
func Setup(level, format, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid logging level %q: %w", level, err)
	}

	var f log.Formatter
	switch format {
	case "", "text":
		f = log.TextFormatter
	case "json":
		f = log.JSONFormatter
	case "logfmt":
		f = log.LogfmtFormatter
	default:
		return fmt.Errorf("invalid logging format %q", format)
	}

	var w io.Writer = os.Stderr
	var opened *os.File
	if file != "" {
		opened, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w = opened
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = opened
	output = w
	formatter = f

	log.SetLevel(lvl)
	log.SetFormatter(f)
	log.SetOutput(w)
	return nil
}

// SetOutput redirects every logger created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log.SetOutput(w)
}

// New creates a charm logger with the given prefix that respects the global
// level, format and output.
func New(prefix string) *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.NewWithOptions(output, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       formatter,
		Level:           log.GetLevel(),
	})
}

// Close closes the log file opened by Setup, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = os.Stderr
	log.SetOutput(os.Stderr)
	return err
}
