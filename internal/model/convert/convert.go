package convert

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/midnightgrind/racedirector/internal/model"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// parseID parses a stored racer id. Empty and malformed values map to the
// invalid id.
func parseID(s string) core.RacerID {
	if s == "" {
		return core.InvalidRacerID
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return core.InvalidRacerID
	}
	return id
}

// RaceEventToCore converts a GORM RaceEvent to a core.RaceEvent.
func RaceEventToCore(e model.RaceEvent) core.RaceEvent {
	return core.RaceEvent{
		ID:          e.Seq,
		Moment:      core.ParseDramaticMoment(e.Moment),
		Timestamp:   e.Timestamp,
		PrimaryID:   parseID(e.PrimaryID),
		SecondaryID: parseID(e.SecondaryID),
		Lap:         e.Lap,
		Intensity:   e.Intensity,
		Description: e.Description,
	}
}

// RaceStatisticsToCore decodes the statistics column of a race.
func RaceStatisticsToCore(r model.Race) (core.RaceStatistics, error) {
	var s core.RaceStatistics
	if len(r.Statistics) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(r.Statistics, &s); err != nil {
		return s, fmt.Errorf("decode statistics of race %s: %w", r.ID, err)
	}
	return s, nil
}

// FinishOrderToCore decodes the finish order column of a race.
func FinishOrderToCore(r model.Race) ([]core.RacerID, error) {
	if len(r.FinishOrder) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(r.FinishOrder, &raw); err != nil {
		return nil, fmt.Errorf("decode finish order of race %s: %w", r.ID, err)
	}
	out := make([]core.RacerID, len(raw))
	for i, s := range raw {
		out[i] = parseID(s)
	}
	return out, nil
}
