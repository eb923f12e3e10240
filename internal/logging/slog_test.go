package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type memExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memExporter) Shutdown(context.Context) error   { return nil }
func (e *memExporter) ForceFlush(context.Context) error { return nil }

func (e *memExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.records))
	for i, r := range e.records {
		out[i] = r.Body().AsString()
	}
	return out
}

func jsonSink(name string, buf *bytes.Buffer, lvl slog.Level) Sink {
	return Sink{Name: name, Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: lvl})}
}

func TestSetup_Sinks(t *testing.T) {
	var file, graylog bytes.Buffer

	tests := []struct {
		name     string
		file     *bytes.Buffer
		provider *sdklog.LoggerProvider
		extra    []Sink
		want     []string
	}{
		{"stdout only", nil, nil, nil, []string{"stdout"}},
		{"file only", &file, nil, nil, []string{"file"}},
		{"graylog and otel", &file, sdklog.NewLoggerProvider(), []Sink{jsonSink("graylog", &graylog, slog.LevelInfo)},
			[]string{"file", "graylog", "otel"}},
		{"nil extra dropped", &file, nil, []Sink{{Name: "graylog"}}, []string{"file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			orig := osStdout
			osStdout = &stdout
			t.Cleanup(func() { osStdout = orig })

			m := NewSlogManager()
			if tt.file == nil {
				m.Setup(nil, "info", tt.provider, tt.extra...)
			} else {
				m.Setup(tt.file, "info", tt.provider, tt.extra...)
			}
			assert.Equal(t, tt.want, m.Sinks())
		})
	}
}

func TestSetup_StdoutWithoutFile(t *testing.T) {
	var stdout bytes.Buffer
	orig := osStdout
	osStdout = &stdout
	t.Cleanup(func() { osStdout = orig })

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("grid formed", "racers", 8)

	assert.Contains(t, stdout.String(), "grid formed")
	assert.Contains(t, stdout.String(), "racers=8")
}

func TestSetup_GraylogSinkHasItsOwnLevel(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, jsonSink("graylog", &graylog, slog.LevelDebug))

	m.Logger().Debug("rubber band applied", "speed", 1.1)
	m.Logger().Info("lead change", "total", 2)

	assert.NotContains(t, file.String(), "rubber band applied")
	assert.Contains(t, file.String(), "lead change")
	assert.Contains(t, graylog.String(), `"msg":"rubber band applied"`)
	assert.Contains(t, graylog.String(), `"total":2`)
}

func TestSetup_RaceContextReachesEverySink(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, jsonSink("graylog", &graylog, slog.LevelInfo))

	snap := func() (float64, string, bool) { return 42.5, "final_lap", true }
	logger := slog.New(NewContextHandler(m.Logger().Handler(), RaceContext(snap))).
		With("component", "director")
	logger.Info("dramatic moment", "moment", "photo_finish")

	assert.Contains(t, file.String(), "race_time=42.5")
	assert.Contains(t, file.String(), "phase=final_lap")
	assert.Contains(t, file.String(), "component=director")
	assert.Contains(t, graylog.String(), `"race_time":42.5`)
	assert.Contains(t, graylog.String(), `"moment":"photo_finish"`)
}

func TestSetup_OTelBridgeUsesServiceScope(t *testing.T) {
	exp := &memExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", provider)
	m.Logger().Info("race finished", "finishers", 4)
	require.NoError(t, m.Flush(context.Background()))

	assert.Contains(t, exp.bodies(), "race finished")
	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.NotEmpty(t, exp.records)
	assert.Equal(t, ServiceName, exp.records[0].InstrumentationScope().Name)
}

func TestSlogManager_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.Nil(t, m.Sinks())
	assert.NoError(t, m.Flush(context.Background()))
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("connection refused")
}

func TestFanout_FailingSinkIsNamed(t *testing.T) {
	var file bytes.Buffer
	f := NewFanout(Sink{Name: "graylog", Handler: failingHandler{}}, jsonSink("file", &file, slog.LevelInfo))

	err := f.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "racer wrecked", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graylog sink: connection refused")
	assert.Contains(t, file.String(), "racer wrecked")
}

func TestFanout_NamesAndDerivedHandlers(t *testing.T) {
	var a, b bytes.Buffer
	f := NewFanout(Sink{Handler: slog.NewTextHandler(&a, nil)}, Sink{}, Sink{Name: "graylog", Handler: slog.NewTextHandler(&b, nil)})
	assert.Equal(t, []string{"sink0", "graylog"}, f.Names())

	derived := f.WithAttrs([]slog.Attr{slog.String("race", "r1")}).WithGroup("lap")
	assert.Equal(t, []string{"sink0", "graylog"}, derived.(*Fanout).Names())
	slog.New(derived).Info("lap time", "seconds", 61.2)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "race=r1")
		assert.Contains(t, out, "lap.seconds=61.2")
	}
	assert.Same(t, f, f.WithGroup(""))
	assert.False(t, NewFanout().Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)
	assert.Equal(t,
		filepath.Join("logs", "racedirector.20260212_213836.log"),
		LogFilePath("logs", "racedirector", start))
}
