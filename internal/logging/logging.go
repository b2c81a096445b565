// Package logging builds the charmbracelet logger countdown writes to.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/five82/countdown/internal/config"
)

// ParseLevel maps a config level name to a log.Level. Blank means info.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", name)
	}
}

// New returns a logger writing to w.
func New(w io.Writer, level log.Level) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "countdown",
	})
	return logger
}

// OpenFile returns a logger appending to the file in cfg, creating parent
// directories as needed. The returned closer closes the file.
func OpenFile(cfg config.LogConfig) (*log.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	path, err := config.ExpandPath(cfg.File)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve log file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := New(file, level)
	logger.SetFormatter(log.LogfmtFormatter)
	return logger, file, nil
}

// Stderr returns a logger for the one-shot commands.
func Stderr(cfg config.LogConfig) (*log.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return New(os.Stderr, level), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
