// Package logging configures the process-wide logger for addressinfo.
package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// ParseLevel parses a log level string into a logrus level
func ParseLevel(s string) (log.Level, error) {
	switch s {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.ErrorLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warning, or error)", s)
	}
}

// Setup configures the global logger. Diagnostic output goes to w so it never
// mixes with rendered report output on stdout.
func Setup(level log.Level, w io.Writer) {
	log.SetLevel(level)
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}
