package logutil

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "tgpost", ReportTimestamp: true, Level: log.InfoLevel})

// SetVerbose adjusts the global logging level.
func SetVerbose(enable bool) {
	if enable {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// SetOutput redirects log output, e.g. to the command's stderr.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Debug logs a structured debug message.
func Debug(msg string, keyvals ...any) {
	logger.Debug(msg, keyvals...)
}

// Debugf logs a debug message when verbose logging is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Redact masks a secret for display, keeping only enough to recognise it.
func Redact(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:3] + "..." + secret[len(secret)-4:]
}

// Scrub replaces every occurrence of secret in s with its redacted form.
func Scrub(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, Redact(secret))
}
