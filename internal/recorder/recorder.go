// Package recorder persists director messages to a storage backend and an
// optional metrics sink.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/internal/influx"
	"github.com/midnightgrind/racedirector/internal/storage"
)

// DefaultQueueSize is the subscriber queue used by Attach when size <= 0.
const DefaultQueueSize = 1024

// PointWriter receives metric points. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the recorder.
type Dependencies struct {
	Storage storage.Backend
	Metrics PointWriter // optional
	Logger  *slog.Logger
	// Now stamps race start times; time.Now when nil.
	Now func() time.Time
}

// Recorder forwards the messages of one race at a time.
type Recorder struct {
	deps Dependencies
	log  *slog.Logger

	mu     sync.Mutex
	race   influx.Race
	active bool
	sub    *events.Subscription

	recorded int
}

// New creates a recorder. Call Attach to start receiving messages.
func New(deps Dependencies) *Recorder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Recorder{
		deps: deps,
		log:  deps.Logger.With("component", "recorder"),
	}
}

// Attach subscribes the recorder to bus with a blocking queue so no message is lost.
func (r *Recorder) Attach(bus *events.Bus, queueSize int) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	sub := bus.Subscribe(r.Handle,
		events.Named("recorder"),
		events.Buffered(queueSize),
		events.Blocking(),
	)

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
}

// Detach unsubscribes and waits for queued messages to be written.
func (r *Recorder) Detach() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	sub.Unsubscribe()
}

// Handle writes one message. Messages outside a race are ignored.
func (r *Recorder) Handle(msg events.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	switch m := msg.(type) {
	case events.RaceStarted:
		meta := m.Meta
		if meta.StartedAt.IsZero() {
			meta.StartedAt = r.deps.Now()
		}
		if err := r.deps.Storage.StartRace(meta); err != nil {
			return fmt.Errorf("start race: %w", err)
		}
		r.race = influx.Race{ID: meta.ID, StartedAt: meta.StartedAt}
		r.active = true
		r.recorded = 0
		r.log.Info("Recording race", "race_id", meta.ID, "racers", len(meta.Racers))

	case events.DramaticMoment:
		if !r.active {
			return nil
		}
		if err := r.deps.Storage.RecordEvent(m.Event); err != nil {
			errs = append(errs, fmt.Errorf("record event: %w", err))
		} else {
			r.recorded++
		}

	case events.TensionChanged:
		if !r.active {
			return nil
		}
		if tr, ok := r.deps.Storage.(storage.TensionRecorder); ok {
			if err := tr.RecordTension(m.RaceTime, m.To, m.Score); err != nil {
				errs = append(errs, fmt.Errorf("record tension: %w", err))
			}
		}

	case events.RaceFinished:
		if !r.active {
			return nil
		}
		if err := r.deps.Storage.EndRace(m.Result); err != nil {
			errs = append(errs, fmt.Errorf("end race: %w", err))
		}
		attrs := []any{"race_id", r.race.ID, "events", r.recorded}
		if ex, ok := r.deps.Storage.(storage.Exporter); ok && ex.ExportedFilePath() != "" {
			attrs = append(attrs, "path", ex.ExportedFilePath())
		}
		r.log.Info("Race recorded", attrs...)
		r.active = false
		errs = append(errs, r.writePoint(msg))
		return errors.Join(errs...)

	default:
		if !r.active {
			return nil
		}
	}

	errs = append(errs, r.writePoint(msg))
	return errors.Join(errs...)
}

func (r *Recorder) writePoint(msg events.Message) error {
	if r.deps.Metrics == nil {
		return nil
	}
	if err := r.deps.Metrics.WritePoint(influx.PointFor(r.race, msg)); err != nil {
		return fmt.Errorf("write %s point: %w", msg.Kind(), err)
	}
	return nil
}

// Active reports whether a race is being recorded.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
