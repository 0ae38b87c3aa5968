package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the log
// shipper (out of scope here) can index request_id and actor fields.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
