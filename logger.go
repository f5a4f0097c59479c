package packetsock

import "log/slog"

// Logger receives key/value structured log records. *slog.Logger satisfies
// it; connections, hubs, routers and servers default to slog.Default().
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards every record.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

func defaultLogger() Logger {
	return slog.Default()
}
