package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// DefaultLogPath is where debug logs go when no log file is configured.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "timemaster", "timemaster.log")
}

// NewLogger builds the process logger from cfg. The TUI owns the terminal,
// so output goes to cfg.LogFile or is discarded. At debug level an empty
// LogFile falls back to DefaultLogPath.
//
// The returned close function must be called on exit.
func NewLogger(cfg Config) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	path := cfg.LogFile
	if path == "" && level == log.DebugLevel {
		path = DefaultLogPath()
	}

	var out io.Writer = io.Discard
	closeFn := func() error { return nil }

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closeFn = f, f.Close
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.StampMilli,
		Prefix:          "timemaster",
	})
	return logger, closeFn, nil
}
