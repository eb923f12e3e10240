// Package gormstorage implements the storage.Backend interface on GORM,
// backed by PostgreSQL or SQLite.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/midnightgrind/racedirector/internal/database"
	"github.com/midnightgrind/racedirector/internal/model"
	"github.com/midnightgrind/racedirector/internal/model/convert"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// ErrNoRace is returned when an event arrives outside StartRace/EndRace.
var ErrNoRace = errors.New("gormstorage: no race in progress")

// Dependencies holds all dependencies for the GORM storage backend.
// Either DB or Manager must be set; a Manager is connected and set up by Init.
type Dependencies struct {
	DB          *gorm.DB
	Manager     *database.Manager
	Logger      zerolog.Logger
	ServiceName string
	// Now stamps race end times; time.Now when nil.
	Now func() time.Time
}

// Backend implements storage.Backend on GORM.
type Backend struct {
	deps Dependencies
	db   *gorm.DB

	mu     sync.Mutex
	raceID string
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.ServiceName == "" {
		deps.ServiceName = "race-director"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Backend{deps: deps, db: deps.DB}
}

// Init connects when needed and migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		if b.deps.Manager == nil {
			return database.ErrNotConnected
		}
		if err := b.deps.Manager.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if err := b.deps.Manager.Setup(b.deps.ServiceName); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		b.db = b.deps.Manager.DB
		return nil
	}
	return database.Migrate(b.db)
}

// Close closes the connection when it is owned through a Manager.
func (b *Backend) Close() error {
	if b.deps.Manager != nil {
		return b.deps.Manager.Close()
	}
	return nil
}

// StartRace stores the race and its registered racers.
func (b *Backend) StartRace(meta core.RaceMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	race := convert.CoreToRace(meta)
	racers := make([]model.RacerResult, len(meta.Racers))
	for i, r := range meta.Racers {
		racers[i] = convert.CoreToRacerResult(meta.ID, r, 0)
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&race).Error; err != nil {
			return err
		}
		if len(racers) > 0 {
			return tx.Create(&racers).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("start race %s: %w", meta.ID, err)
	}

	b.raceID = meta.ID
	b.deps.Logger.Debug().Str("race", meta.ID).Int("racers", len(racers)).Msg("Race stored")
	return nil
}

// RecordEvent appends an event log entry to the current race.
func (b *Backend) RecordEvent(e core.RaceEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.raceID == "" {
		return ErrNoRace
	}
	row := convert.CoreToRaceEvent(b.raceID, e)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("record event %d: %w", e.ID, err)
	}
	return nil
}

// RecordTension stores a tension level change of the current race.
func (b *Backend) RecordTension(raceTime float64, level core.TensionLevel, score float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.raceID == "" {
		return ErrNoRace
	}
	row := model.TensionSample{RaceID: b.raceID, RaceTime: raceTime, Level: level.String(), Score: score}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("record tension: %w", err)
	}
	return nil
}

// EndRace stores the final statistics and racer outcomes.
func (b *Backend) EndRace(result core.RaceResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.raceID == "" {
		return ErrNoRace
	}
	raceID := b.raceID

	var race model.Race
	if err := b.db.First(&race, "id = ?", raceID).Error; err != nil {
		return fmt.Errorf("load race %s: %w", raceID, err)
	}
	if err := convert.ApplyResult(&race, result, b.deps.Now()); err != nil {
		return err
	}

	positions := convert.FinishPositions(result.FinishOrder)
	racers := make([]model.RacerResult, len(result.Racers))
	for i, r := range result.Racers {
		racers[i] = convert.CoreToRacerResult(raceID, r, positions[r.ID])
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&race).Error; err != nil {
			return err
		}
		if len(racers) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "race_id"}, {Name: "racer_id"}},
			DoUpdates: clause.AssignmentColumns(racerResultColumns),
		}).Create(&racers).Error
	})
	if err != nil {
		return fmt.Errorf("end race %s: %w", raceID, err)
	}

	b.raceID = ""
	b.deps.Logger.Info().Str("race", raceID).Int("finishers", len(result.FinishOrder)).Msg("Race result stored")
	return nil
}

var racerResultColumns = []string{
	"name", "is_player", "starting_position", "position", "finish_position", "finished",
	"finish_time", "wrecked", "best_position", "worst_position", "position_changes",
	"takedowns", "times_wrecked", "max_speed", "skill_rating", "aggression", "rival",
}

// Race loads a stored race with its racers and events.
func (b *Backend) Race(id string) (model.Race, error) {
	var race model.Race
	err := b.db.
		Preload("Racers", func(db *gorm.DB) *gorm.DB { return db.Order("starting_position") }).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		First(&race, "id = ?", id).Error
	if err != nil {
		return race, fmt.Errorf("load race %s: %w", id, err)
	}
	return race, nil
}
