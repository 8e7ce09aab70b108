// Package logging builds the slog loggers used across the module.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// redactedKeys are attribute keys whose values never belong in logs. An
// onboarding token authenticates the whole session, and step payloads
// carry PII.
var redactedKeys = map[string]bool{
	"token":     true,
	"form_data": true,
}

// New creates the application logger at the given level. It writes to
// stderr so stdout stays free for wizard output, normalizes the "error"
// key to "err", and masks credential attributes.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: rewriteAttr,
	}))
}

func rewriteAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	if redactedKeys[a.Key] {
		a.Value = slog.StringValue("[redacted]")
	}
	return a
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
