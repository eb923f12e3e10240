// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/midnightgrind/racedirector/internal/model"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// idString renders a racer id, empty for the invalid id.
func idString(id core.RacerID) string {
	if id == core.InvalidRacerID {
		return ""
	}
	return id.String()
}

// CoreToRace converts race metadata to a GORM model.Race without racers.
func CoreToRace(meta core.RaceMeta) model.Race {
	return model.Race{
		ID:          meta.ID,
		StartedAt:   meta.StartedAt,
		TotalLaps:   meta.TotalLaps,
		TrackLength: meta.TrackLength,
		Style:       meta.Style.String(),
		Difficulty:  meta.Difficulty,
		Statistics:  datatypes.JSON("{}"),
		FinishOrder: datatypes.JSON("[]"),
	}
}

// CoreToRacerResult converts a racer snapshot to a GORM model.RacerResult.
// finishPosition is zero for racers that did not finish.
func CoreToRacerResult(raceID string, r core.RacerState, finishPosition int) model.RacerResult {
	return model.RacerResult{
		RaceID:           raceID,
		RacerID:          idString(r.ID),
		Name:             r.Name,
		IsPlayer:         r.IsPlayer,
		StartingPosition: r.StartingPosition,
		Position:         r.Position,
		FinishPosition:   finishPosition,
		Finished:         r.Finished,
		FinishTime:       r.FinishTime,
		Wrecked:          r.Wrecked,
		BestPosition:     r.BestPosition,
		WorstPosition:    r.WorstPosition,
		PositionChanges:  r.PositionChanges,
		Takedowns:        r.Takedowns,
		TimesWrecked:     r.TimesWrecked,
		MaxSpeed:         r.MaxSpeed,
		SkillRating:      r.SkillRating,
		Aggression:       r.Aggression,
		Rival:            r.Rival,
	}
}

// CoreToRaceEvent converts an event log entry to a GORM model.RaceEvent.
func CoreToRaceEvent(raceID string, e core.RaceEvent) model.RaceEvent {
	return model.RaceEvent{
		RaceID:      raceID,
		Seq:         e.ID,
		Moment:      e.Moment.String(),
		Timestamp:   e.Timestamp,
		PrimaryID:   idString(e.PrimaryID),
		SecondaryID: idString(e.SecondaryID),
		Lap:         e.Lap,
		Intensity:   e.Intensity,
		Description: e.Description,
	}
}

// ApplyResult fills the final columns of race from res.
func ApplyResult(race *model.Race, res core.RaceResult, endedAt time.Time) error {
	stats, err := json.Marshal(res.Statistics)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	order := make([]string, len(res.FinishOrder))
	for i, id := range res.FinishOrder {
		order[i] = id.String()
	}
	finish, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal finish order: %w", err)
	}

	race.EndedAt = &endedAt
	race.RaceTime = res.Statistics.RaceTime
	race.Statistics = datatypes.JSON(stats)
	race.FinishOrder = datatypes.JSON(finish)
	return nil
}

// FinishPositions maps racer ids to their 1-based finishing position.
func FinishPositions(order []core.RacerID) map[core.RacerID]int {
	out := make(map[core.RacerID]int, len(order))
	for i, id := range order {
		out[id] = i + 1
	}
	return out
}
