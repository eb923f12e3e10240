package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHandler_RaceContext(t *testing.T) {
	var buf bytes.Buffer
	active := false
	snap := func() (float64, string, bool) { return 12.5, "mid_race", active }

	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewContextHandler(inner, RaceContext(snap)))

	logger.Info("before start")
	assert.NotContains(t, buf.String(), "race_time")

	active = true
	logger.Info("lead change")
	assert.Contains(t, buf.String(), "race_time=12.5")
	assert.Contains(t, buf.String(), "phase=mid_race")
}

func TestContextHandler_WithAttrsKeepsProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := func() []slog.Attr { return []slog.Attr{slog.Int("tick", 7)} }

	h := NewContextHandler(slog.NewTextHandler(&buf, nil), provider)
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "director")})).WithGroup("g")
	logger.Info("tick", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "component=director")
	assert.Contains(t, out, "g.tick=7")
	assert.Contains(t, out, "g.k=v")
	assert.Equal(t, h, h.WithGroup(""))
}

func TestBusLogger(t *testing.T) {
	var buf bytes.Buffer
	bl := NewBusLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	bl.Debug("handling message", "kind", "lead_change")
	bl.Info("subscribed", "subscriber", "recorder")
	bl.Error("message failed", "error", "boom")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "kind=lead_change")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "component=events")

	var _ interface {
		Debug(msg string, keysAndValues ...any)
		Info(msg string, keysAndValues ...any)
		Error(msg string, keysAndValues ...any)
	} = NewBusLogger(nil)
}
