// Package registry owns the set of racers taking part in a race.
//
// The registry is a plain data store: it is not safe for concurrent use and
// relies on its owner to serialize access. Every read returns a copy.
package registry

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// DefaultMaxRacers bounds the field when no explicit limit is configured.
const DefaultMaxRacers = 32

// ErrRegistrationFull is returned when the configured racer limit is reached.
var ErrRegistrationFull = errors.New("registry: maximum racer count reached")

type entry struct {
	state core.RacerState
	// seq orders racers that report the same position; the most recent
	// report sorts last.
	seq uint64
}

// Registry holds racer records keyed by id.
type Registry struct {
	maxRacers   int
	racers      map[core.RacerID]*entry
	finishOrder []core.RacerID
	playerID    core.RacerID
	seq         uint64
}

// New creates an empty registry. maxRacers <= 0 selects DefaultMaxRacers.
func New(maxRacers int) *Registry {
	if maxRacers <= 0 {
		maxRacers = DefaultMaxRacers
	}
	return &Registry{
		maxRacers: maxRacers,
		racers:    make(map[core.RacerID]*entry),
	}
}

// Reset removes every racer and the finish order.
func (r *Registry) Reset() {
	r.racers = make(map[core.RacerID]*entry)
	r.finishOrder = nil
	r.playerID = core.InvalidRacerID
	r.seq = 0
}

// Len returns the number of registered racers.
func (r *Registry) Len() int {
	return len(r.racers)
}

// MaxRacers returns the configured capacity.
func (r *Registry) MaxRacers() int {
	return r.maxRacers
}

// Register adds a racer and returns its id. The latest player registered
// becomes the player racer.
func (r *Registry) Register(name string, isPlayer bool, startPosition int, profile core.RacerProfile) (core.RacerID, error) {
	if len(r.racers) >= r.maxRacers {
		return core.InvalidRacerID, ErrRegistrationFull
	}

	id := uuid.New()
	r.seq++
	r.racers[id] = &entry{
		state: core.NewRacerState(id, name, isPlayer, startPosition, profile),
		seq:   r.seq,
	}
	if isPlayer {
		r.playerID = id
	}
	return id, nil
}

// Unregister removes a racer and returns its last state.
func (r *Registry) Unregister(id core.RacerID) (core.RacerState, bool) {
	e, ok := r.racers[id]
	if !ok {
		return core.RacerState{}, false
	}
	delete(r.racers, id)
	if id == r.playerID {
		r.playerID = core.InvalidRacerID
	}
	return e.state, true
}

// Start puts every racer back on the grid: active, lap 1, no progress.
func (r *Registry) Start() {
	for _, e := range r.racers {
		if e.state.Finished || e.state.Wrecked {
			continue
		}
		e.state.Active = true
		e.state.Lap = 1
		e.state.Progress = 0
	}
}

// UpdateState records a telemetry report. It returns the position held
// before the report. Reports for unknown or retired racers are ignored.
func (r *Registry) UpdateState(id core.RacerID, position int, speed, progress float64) (int, bool) {
	e, ok := r.racers[id]
	if !ok || !e.state.Racing() {
		return 0, false
	}

	s := &e.state
	old := s.Position

	r.seq++
	e.seq = r.seq

	s.Position = position
	s.Speed = speed
	s.Progress = clampProgress(progress)
	if speed > s.MaxSpeed {
		s.MaxSpeed = speed
	}

	if old != position {
		s.PositionChanges++
		if position < s.BestPosition {
			s.BestPosition = position
		}
		if position > s.WorstPosition {
			s.WorstPosition = position
		}
	}
	return old, true
}

// SetLap records the racer's current lap.
func (r *Registry) SetLap(id core.RacerID, lap int) bool {
	e, ok := r.racers[id]
	if !ok || !e.state.Racing() {
		return false
	}
	e.state.Lap = lap
	return true
}

// SetFinished marks the racer finished. Only the first call takes effect.
func (r *Registry) SetFinished(id core.RacerID, finishTime float64) bool {
	e, ok := r.racers[id]
	if !ok || e.state.Finished || e.state.Wrecked {
		return false
	}
	e.state.Finished = true
	e.state.Active = false
	e.state.FinishTime = finishTime
	r.finishOrder = append(r.finishOrder, id)
	return true
}

// SetWrecked retires the racer. Only the first call takes effect.
func (r *Registry) SetWrecked(id core.RacerID) bool {
	e, ok := r.racers[id]
	if !ok || e.state.Finished || e.state.Wrecked {
		return false
	}
	e.state.Wrecked = true
	e.state.Active = false
	e.state.TimesWrecked++
	return true
}

// Mutate applies fn to the stored racer record.
func (r *Registry) Mutate(id core.RacerID, fn func(*core.RacerState)) bool {
	e, ok := r.racers[id]
	if !ok {
		return false
	}
	fn(&e.state)
	return true
}

// Each calls fn for every racer in position order.
func (r *Registry) Each(fn func(*core.RacerState)) {
	for _, e := range r.sorted() {
		fn(&e.state)
	}
}

// Get returns a copy of the racer's state.
func (r *Registry) Get(id core.RacerID) (core.RacerState, bool) {
	e, ok := r.racers[id]
	if !ok {
		return core.RacerState{}, false
	}
	return e.state, true
}

// All returns every racer sorted by position.
func (r *Registry) All() []core.RacerState {
	sorted := r.sorted()
	out := make([]core.RacerState, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.state)
	}
	return out
}

// Racing returns the racers still in the race, sorted by position.
func (r *Registry) Racing() []core.RacerState {
	sorted := r.sorted()
	out := make([]core.RacerState, 0, len(sorted))
	for _, e := range sorted {
		if e.state.Racing() {
			out = append(out, e.state)
		}
	}
	return out
}

// PlayerID returns the player's id, or InvalidRacerID.
func (r *Registry) PlayerID() core.RacerID {
	return r.playerID
}

// Player returns the player's state.
func (r *Registry) Player() (core.RacerState, bool) {
	return r.Get(r.playerID)
}

// Leader returns the racing racer holding position 1.
func (r *Registry) Leader() (core.RacerState, bool) {
	for _, e := range r.sorted() {
		if !e.state.Racing() {
			continue
		}
		if e.state.Position == 1 {
			return e.state, true
		}
		return core.RacerState{}, false
	}
	return core.RacerState{}, false
}

// FinishOrder returns the ids of finished racers in finishing order.
func (r *Registry) FinishOrder() []core.RacerID {
	out := make([]core.RacerID, len(r.finishOrder))
	copy(out, r.finishOrder)
	return out
}

func (r *Registry) sorted() []*entry {
	out := make([]*entry, 0, len(r.racers))
	for _, e := range r.racers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].state.Position != out[j].state.Position {
			return out[i].state.Position < out[j].state.Position
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func clampProgress(p float64) float64 {
	if p < 0 || p != p {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
