package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Sink is one named destination of the race log: the log file, Graylog or
// the OTel bridge.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// Fanout hands each record to every sink whose level admits it.
// A failing sink is reported by name and the remaining sinks still receive
// the record.
type Fanout struct {
	sinks []Sink
}

// NewFanout drops sinks without a handler and names unnamed ones by index.
func NewFanout(sinks ...Sink) *Fanout {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler == nil {
			continue
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("sink%d", len(kept))
		}
		kept = append(kept, s)
	}
	return &Fanout{sinks: kept}
}

// Names lists the sinks in delivery order.
func (f *Fanout) Names() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name
	}
	return names
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f.sinks, func(s Sink) bool {
		return s.Handler.Enabled(ctx, level)
	})
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]Sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = Sink{Name: s.Name, Handler: fn(s.Handler)}
	}
	return &Fanout{sinks: sinks}
}
