// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// ErrUnknownStorage is returned by NewBackend for an unsupported storage type.
var ErrUnknownStorage = errors.New("unknown storage type")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Race management
	StartRace(meta core.RaceMeta) error
	EndRace(result core.RaceResult) error

	// Event recording
	RecordEvent(e core.RaceEvent) error
}

// TensionRecorder is an optional interface for backends that keep the
// tension history of a race.
type TensionRecorder interface {
	RecordTension(raceTime float64, level core.TensionLevel, score float64) error
}

// Exporter is an optional interface for backends that write a file per race.
type Exporter interface {
	ExportedFilePath() string
}
