package logging

import "log/slog"

// BusLogger adapts *slog.Logger to the events.Logger interface.
type BusLogger struct {
	logger *slog.Logger
}

// NewBusLogger wraps logger; nil selects slog.Default().
func NewBusLogger(logger *slog.Logger) *BusLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusLogger{logger: logger.With("component", "events")}
}

func (l *BusLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *BusLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *BusLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}
