// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// ErrNoRace is returned when an event arrives outside StartRace/EndRace.
var ErrNoRace = errors.New("memory: no race in progress")

// TensionRecord is one tension level change.
type TensionRecord struct {
	RaceTime float64
	Level    core.TensionLevel
	Score    float64
}

// Backend keeps the current race in memory and exports it to JSON on EndRace
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	meta    *core.RaceMeta
	events  []core.RaceEvent
	tension []TensionRecord

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, now: time.Now}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRace begins recording a new race
func (b *Backend) StartRace(meta core.RaceMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := meta
	m.Racers = append([]core.RacerState(nil), meta.Racers...)
	b.meta = &m
	b.events = nil
	b.tension = nil
	return nil
}

// RecordEvent appends an event to the current race
func (b *Backend) RecordEvent(e core.RaceEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.meta == nil {
		return ErrNoRace
	}
	b.events = append(b.events, e)
	return nil
}

// RecordTension appends a tension level change to the current race
func (b *Backend) RecordTension(raceTime float64, level core.TensionLevel, score float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.meta == nil {
		return ErrNoRace
	}
	b.tension = append(b.tension, TensionRecord{RaceTime: raceTime, Level: level, Score: score})
	return nil
}

// EndRace finalizes and exports the race
func (b *Backend) EndRace(result core.RaceResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.meta == nil {
		return ErrNoRace
	}
	if err := b.exportJSON(result); err != nil {
		return err
	}
	b.meta = nil
	return nil
}

// Events returns a copy of the events recorded for the current race.
func (b *Backend) Events() []core.RaceEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.RaceEvent(nil), b.events...)
}

// Tension returns a copy of the tension history of the current race.
func (b *Backend) Tension() []TensionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]TensionRecord(nil), b.tension...)
}

// ExportedFilePath returns the path of the last export, empty before the first.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
