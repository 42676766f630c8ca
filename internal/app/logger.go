package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. The pretty text handler
// is the default; LOG_FORMAT=json switches to JSON for log shippers.
// Every line carries the service attribute so worker and API logs can be
// told apart in a shared stream.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "dealerdesk"))
}
