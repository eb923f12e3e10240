// Package director is the race pacing and direction core.
//
// A Director consumes per-racer telemetry from an external race simulation
// once per tick and produces performance modifiers, a race phase, a tension
// score, a log of dramatic moments and final race statistics. All methods are
// safe for concurrent use; the design assumes a single writer (the race loop)
// and any number of readers. Messages are published on the event bus after the
// director's lock is released, so handlers may call back into the director.
package director

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/midnightgrind/racedirector/internal/behavior"
	"github.com/midnightgrind/racedirector/internal/drama"
	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/internal/logging"
	"github.com/midnightgrind/racedirector/internal/phase"
	"github.com/midnightgrind/racedirector/internal/registry"
	"github.com/midnightgrind/racedirector/internal/rubberband"
	"github.com/midnightgrind/racedirector/internal/stats"
	"github.com/midnightgrind/racedirector/internal/tension"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// ErrRegistrationFull is returned by RegisterRacer when the field is full.
var ErrRegistrationFull = registry.ErrRegistrationFull

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the logger. Records are stamped with the race clock and
// phase while a race is running.
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		d.baseLog = l
	}
}

// WithDifficultyPresets replaces the preset table used by SetDifficultyPreset.
func WithDifficultyPresets(presets []core.AIDifficultyConfig) Option {
	return func(d *Director) {
		d.presets = make([]core.AIDifficultyConfig, len(presets))
		for i, p := range presets {
			d.presets[i] = p.Clamp()
		}
	}
}

// WithMaxRacers bounds the number of registered racers.
func WithMaxRacers(n int) Option {
	return func(d *Director) {
		d.maxRacers = n
	}
}

// WithBus publishes messages on an existing bus instead of a private one.
func WithBus(b *events.Bus) Option {
	return func(d *Director) {
		d.bus = b
	}
}

// Director owns every race component and orchestrates the tick.
type Director struct {
	mu sync.RWMutex

	baseLog *slog.Logger
	log     *slog.Logger
	bus     *events.Bus
	ownsBus bool

	maxRacers int
	presets   []core.AIDifficultyConfig

	registry *registry.Registry
	phase    *phase.Tracker
	tension  *tension.Engine
	rubber   *rubberband.Controller
	behavior *behavior.Classifier
	drama    *drama.Detector
	stats    *stats.Aggregator

	style      core.DirectorStyle
	rubberBand core.RubberBandConfig
	baseDrama  core.DramaConfig
	dramaCfg   core.DramaConfig // baseDrama with style side effects applied
	pacing     core.PacingConfig
	difficulty core.AIDifficultyConfig

	totalLaps   int
	trackLength float64

	raceID   string
	active   bool
	ended    bool
	raceTime float64
	progress float64
	gaps     gap.Result
	state    core.DirectorState
	result   core.RaceResult

	// read by the log context provider without taking mu
	clock     atomic.Uint64
	phaseName atomic.Value
	running   atomic.Bool
}

// New creates a director with default configuration and Balanced style.
func New(opts ...Option) (*Director, error) {
	d := &Director{
		presets:    core.DefaultDifficultyPresets(),
		phase:      phase.New(),
		tension:    tension.New(),
		rubber:     rubberband.New(nil),
		behavior:   behavior.New(),
		drama:      drama.New(),
		stats:      stats.New(),
		style:      core.StyleBalanced,
		rubberBand: core.DefaultRubberBandConfig(),
		baseDrama:  core.DefaultDramaConfig(),
		pacing:     core.DefaultPacingConfig(),
		difficulty: core.DefaultAIDifficulty(),
		totalLaps:  1,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.registry = registry.New(d.maxRacers)
	d.dramaCfg = applyStyle(d.baseDrama, d.style)
	d.phaseName.Store(core.PhasePreRace.String())

	base := d.baseLog
	if base == nil {
		base = slog.Default()
	}
	d.log = slog.New(logging.NewContextHandler(base.Handler(), logging.RaceContext(d.snapshot))).
		With("component", "director")

	if d.bus == nil {
		bus, err := events.New(logging.NewBusLogger(base))
		if err != nil {
			return nil, err
		}
		d.bus = bus
		d.ownsBus = true
	}
	return d, nil
}

// Close releases the private event bus. A bus passed with WithBus is left
// to its owner.
func (d *Director) Close() {
	if d.ownsBus {
		d.bus.Close()
	}
}

// Events returns the bus the director publishes on.
func (d *Director) Events() *events.Bus {
	return d.bus
}

func (d *Director) snapshot() (float64, string, bool) {
	name, _ := d.phaseName.Load().(string)
	return math.Float64frombits(d.clock.Load()), name, d.running.Load()
}

func (d *Director) publish(msgs []events.Message) {
	if len(msgs) > 0 {
		d.bus.Publish(msgs...)
	}
}

// raceLength is the whole race distance used to convert progress to distance.
func (d *Director) raceLength() float64 {
	return float64(d.totalLaps) * d.trackLength
}

// applyStyle layers the style's drama side effects over the configured flags.
func applyStyle(c core.DramaConfig, s core.DirectorStyle) core.DramaConfig {
	switch s {
	case core.StyleAuthentic, core.StyleSimulation:
		c.EnableDramaticMoments = false
	case core.StyleDramatic:
		c.EnableRivalrySystem = true
		c.EnableUnderdogBonus = true
	}
	return c
}

// InitializeRace clears all per-race state and sets the race length.
// Non-positive values fall back to one lap of unit length.
func (d *Director) InitializeRace(totalLaps int, trackLength float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
	if totalLaps < 1 {
		totalLaps = 1
	}
	if !(trackLength > 0) || math.IsInf(trackLength, 0) {
		trackLength = 1
	}
	d.totalLaps = totalLaps
	d.trackLength = trackLength
	d.log.Info("race initialized", "laps", totalLaps, "track_length", trackLength)
}

// StartRace moves the race from PreRace to Start. It is a no-op when a race
// is running or has ended; call ResetRace or InitializeRace first.
func (d *Director) StartRace() {
	d.mu.Lock()
	if d.active || d.ended {
		d.mu.Unlock()
		return
	}
	if d.trackLength <= 0 {
		d.trackLength = 1
	}

	d.registry.Start()
	d.active = true
	d.raceTime = 0
	d.raceID = uuid.NewString()

	var msgs []events.Message
	from := d.phase.Phase()
	if d.phase.Start() {
		msgs = append(msgs, events.PhaseChanged{From: from, To: core.PhaseStart})
	}
	if leader, ok := d.registry.Leader(); ok {
		d.drama.SeedLeader(leader.ID)
	}

	meta := core.RaceMeta{
		ID:          d.raceID,
		TotalLaps:   d.totalLaps,
		TrackLength: d.trackLength,
		Style:       d.style,
		Difficulty:  d.difficulty.Name,
		Racers:      d.registry.All(),
	}
	msgs = append([]events.Message{events.RaceStarted{Meta: meta}}, msgs...)

	d.syncContext()
	d.refreshStateLocked()
	d.log.Info("race started", "race_id", d.raceID, "racers", d.registry.Len(), "style", d.style.String())
	d.mu.Unlock()

	d.publish(msgs)
}

// EndRace finalizes statistics and returns the result. Repeated calls return
// the same result without publishing again.
func (d *Director) EndRace() core.RaceResult {
	d.mu.Lock()
	msgs := d.endLocked()
	res := d.result
	d.mu.Unlock()

	d.publish(msgs)
	return copyResult(res)
}

func (d *Director) endLocked() []events.Message {
	if !d.active {
		return nil
	}

	var msgs []events.Message
	from := d.phase.Phase()
	if d.phase.Finish() {
		msgs = append(msgs, events.PhaseChanged{RaceTime: d.raceTime, From: from, To: core.PhaseFinished})
	}

	var finishTimes []float64
	for _, id := range d.registry.FinishOrder() {
		if r, ok := d.registry.Get(id); ok {
			finishTimes = append(finishTimes, r.FinishTime)
		}
	}

	d.result = core.RaceResult{
		Statistics:  d.stats.Finalize(d.raceTime, finishTimes),
		FinishOrder: d.registry.FinishOrder(),
		Racers:      d.registry.All(),
		Events:      d.drama.Events(),
	}
	d.active = false
	d.ended = true
	d.refreshStateLocked()

	d.log.Info("race finished",
		"race_id", d.raceID,
		"race_time", d.raceTime,
		"finishers", len(d.result.FinishOrder),
		"lead_changes", d.result.Statistics.TotalLeadChanges,
		"moments", d.result.Statistics.TotalDramaticMoments,
	)
	d.syncContext()

	return append(msgs, events.RaceFinished{Result: copyResult(d.result)})
}

// ResetRace clears all per-race state. Configuration is kept.
func (d *Director) ResetRace() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.log.Info("race reset")
}

func (d *Director) resetLocked() {
	d.registry.Reset()
	d.phase.Reset()
	d.tension.Reset()
	d.rubber.Reset()
	d.behavior.Reset()
	d.drama.Reset()
	d.stats.Reset()

	d.raceID = ""
	d.active = false
	d.ended = false
	d.raceTime = 0
	d.progress = 0
	d.gaps = gap.Result{}
	d.result = core.RaceResult{}
	d.state = core.DirectorState{}
	d.syncContext()
}

// IsRaceActive reports whether a race has started and not yet ended.
func (d *Director) IsRaceActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

func (d *Director) syncContext() {
	d.clock.Store(math.Float64bits(d.raceTime))
	d.phaseName.Store(d.phase.Phase().String())
	d.running.Store(d.active)
}

func copyResult(r core.RaceResult) core.RaceResult {
	out := r
	out.FinishOrder = append([]core.RacerID(nil), r.FinishOrder...)
	out.Racers = append([]core.RacerState(nil), r.Racers...)
	out.Events = append([]core.RaceEvent(nil), r.Events...)
	return out
}
