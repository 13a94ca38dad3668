// Package pkglog centralizes the daemon's structured logging conventions
// around charmbracelet/log, the logging library already pulled in by the
// teacher's dependency graph. The daemon and the plugin manager take a
// *log.Logger built here rather than reaching for the standard library's
// log package directly; the command engine and PTY readers do no logging.
package pkglog

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New builds a logger writing to w (os.Stderr when nil) with the level
// named by levelName ("debug", "info", "warn", "error", or "off"),
// prefixed with component.
func New(w io.Writer, levelName, component string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          component,
	})
	logger.SetLevel(ParseLevel(levelName))
	return logger
}

// ParseLevel maps a config string to a log.Level, defaulting to Info for
// anything unrecognized. "off" maps to a level above Error so nothing is
// emitted.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel
	case "info", "":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "off", "none", "silent":
		return log.FatalLevel + 1
	default:
		return log.InfoLevel
	}
}
