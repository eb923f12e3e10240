package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope used for the OTel log bridge.
const ServiceName = "race-director"

// swapped in tests
var osStdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	fanout *Fanout

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system. Text output goes to file, or to
// stdout when file is nil. If provider is nil, OTel logging is disabled;
// otherwise records are bridged under the ServiceName scope. Extra sinks
// (for example Graylog) sit between the text output and the bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...Sink) {
	lvl := parseLevel(level)
	m.logProvider = provider

	text := Sink{Name: "file", Handler: slog.NewTextHandler(file, handlerOptions(lvl))}
	if file == nil {
		text = Sink{Name: "stdout", Handler: slog.NewTextHandler(osStdout, handlerOptions(lvl))}
	}

	sinks := append([]Sink{text}, extra...)
	if provider != nil {
		sinks = append(sinks, Sink{
			Name:    "otel",
			Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)),
		})
	}

	m.fanout = NewFanout(sinks...)
	m.logger = slog.New(m.fanout)
	m.logger.Info("Logging initialized", "level", level, "sinks", m.fanout.Names())
}

// Sinks lists the configured sinks; nil before Setup.
func (m *SlogManager) Sinks() []string {
	if m.fanout == nil {
		return nil
	}
	return m.fanout.Names()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// LogFilePath builds the log file path for a session started at sessionStart.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
