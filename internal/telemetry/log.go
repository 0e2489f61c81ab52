package telemetry

import (
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger used across the service. Debug output is
// only enabled outside production.
func NewLogger(service string, production bool) *slog.Logger {
	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}
