// Package logging installs a charmbracelet/log logger as the default slog
// handler so that library packages can keep logging through log/slog.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at level ("debug",
// "info", "warn" or "error"; anything else means warn).
// verbosity raises the level: 1 means info, 2 or more
// means debug.
func New(w io.Writer, level string, verbosity int) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "ksubst",
	})

	lvl := parseLevel(level)

	switch {
	case verbosity >= 2:
		lvl = log.DebugLevel
	case verbosity == 1 && lvl > log.InfoLevel:
		lvl = log.InfoLevel
	}

	logger.SetLevel(lvl)

	return logger
}

// Setup builds a logger with New and makes it the slog
// default.
func Setup(w io.Writer, level string, verbosity int) *log.Logger {
	logger := New(w, level, verbosity)
	slog.SetDefault(slog.New(logger))

	return logger
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
