// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// RaceExport is the root JSON structure of an exported race
type RaceExport struct {
	ID          string         `json:"id"`
	StartedAt   time.Time      `json:"startedAt"`
	EndedAt     time.Time      `json:"endedAt"`
	TotalLaps   int            `json:"totalLaps"`
	TrackLength float64        `json:"trackLength"`
	Style       string         `json:"style"`
	Difficulty  string         `json:"difficulty"`
	Statistics  StatisticsJSON `json:"statistics"`
	FinishOrder []string       `json:"finishOrder"`
	Racers      []RacerJSON    `json:"racers"`
	Events      []EventJSON    `json:"events"`
	Tension     [][]any        `json:"tension"` // [raceTime, level, score]
}

// StatisticsJSON mirrors core.RaceStatistics
type StatisticsJSON struct {
	TotalRacers          int     `json:"totalRacers"`
	FinishedRacers       int     `json:"finishedRacers"`
	WreckedRacers        int     `json:"wreckedRacers"`
	ActiveRacers         int     `json:"activeRacers"`
	TotalLeadChanges     int     `json:"totalLeadChanges"`
	TotalPositionChanges int     `json:"totalPositionChanges"`
	TotalTakedowns       int     `json:"totalTakedowns"`
	TotalNearMisses      int     `json:"totalNearMisses"`
	TotalDramaticMoments int     `json:"totalDramaticMoments"`
	AverageSpeed         float64 `json:"averageSpeed"`
	FastestLap           float64 `json:"fastestLap,omitempty"`
	SlowestLap           float64 `json:"slowestLap,omitempty"`
	ClosestGap           float64 `json:"closestGap,omitempty"`
	WinningMargin        float64 `json:"winningMargin"`
	RaceTime             float64 `json:"raceTime"`
}

// RacerJSON is a racer's final state
type RacerJSON struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	IsPlayer         int     `json:"isPlayer"`
	StartingPosition int     `json:"startingPosition"`
	Position         int     `json:"position"`
	FinishPosition   int     `json:"finishPosition,omitempty"`
	FinishTime       float64 `json:"finishTime,omitempty"`
	Wrecked          bool    `json:"wrecked,omitempty"`
	BestPosition     int     `json:"bestPosition"`
	WorstPosition    int     `json:"worstPosition"`
	PositionChanges  int     `json:"positionChanges"`
	Takedowns        int     `json:"takedowns"`
	MaxSpeed         float64 `json:"maxSpeed"`
}

// EventJSON is an event log entry
type EventJSON struct {
	ID          uint64  `json:"id"`
	Moment      string  `json:"moment"`
	Timestamp   float64 `json:"timestamp"`
	Primary     string  `json:"primary,omitempty"`
	Secondary   string  `json:"secondary,omitempty"`
	Lap         int     `json:"lap"`
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description"`
}

// exportJSON writes the race to a (gzipped) JSON file
func (b *Backend) exportJSON(result core.RaceResult) error {
	export := b.buildExport(result)

	timestamp := b.meta.StartedAt.Format("20060102_150405")
	filename := fmt.Sprintf("race_%s_%s.json", timestamp, b.meta.ID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(result core.RaceResult) RaceExport {
	s := result.Statistics
	export := RaceExport{
		ID:          b.meta.ID,
		StartedAt:   b.meta.StartedAt,
		EndedAt:     b.now(),
		TotalLaps:   b.meta.TotalLaps,
		TrackLength: b.meta.TrackLength,
		Style:       b.meta.Style.String(),
		Difficulty:  b.meta.Difficulty,
		Statistics: StatisticsJSON{
			TotalRacers:          s.TotalRacers,
			FinishedRacers:       s.FinishedRacers,
			WreckedRacers:        s.WreckedRacers,
			ActiveRacers:         s.ActiveRacers,
			TotalLeadChanges:     s.TotalLeadChanges,
			TotalPositionChanges: s.TotalPositionChanges,
			TotalTakedowns:       s.TotalTakedowns,
			TotalNearMisses:      s.TotalNearMisses,
			TotalDramaticMoments: s.TotalDramaticMoments,
			AverageSpeed:         s.AverageSpeed,
			FastestLap:           s.FastestLap,
			SlowestLap:           s.SlowestLap,
			ClosestGap:           s.ClosestGap,
			WinningMargin:        s.WinningMargin,
			RaceTime:             s.RaceTime,
		},
		FinishOrder: make([]string, 0, len(result.FinishOrder)),
		Racers:      make([]RacerJSON, 0, len(result.Racers)),
		Events:      make([]EventJSON, 0),
		Tension:     make([][]any, 0, len(b.tension)),
	}

	finishPos := make(map[core.RacerID]int, len(result.FinishOrder))
	for i, id := range result.FinishOrder {
		export.FinishOrder = append(export.FinishOrder, id.String())
		finishPos[id] = i + 1
	}

	for _, r := range result.Racers {
		export.Racers = append(export.Racers, RacerJSON{
			ID:               r.ID.String(),
			Name:             r.Name,
			IsPlayer:         boolToInt(r.IsPlayer),
			StartingPosition: r.StartingPosition,
			Position:         r.Position,
			FinishPosition:   finishPos[r.ID],
			FinishTime:       r.FinishTime,
			Wrecked:          r.Wrecked,
			BestPosition:     r.BestPosition,
			WorstPosition:    r.WorstPosition,
			PositionChanges:  r.PositionChanges,
			Takedowns:        r.Takedowns,
			MaxSpeed:         r.MaxSpeed,
		})
	}

	// prefer the director's log; fall back to what was streamed in
	events := result.Events
	if len(events) == 0 {
		events = b.events
	}
	for _, e := range events {
		export.Events = append(export.Events, EventJSON{
			ID:          e.ID,
			Moment:      e.Moment.String(),
			Timestamp:   e.Timestamp,
			Primary:     idString(e.PrimaryID),
			Secondary:   idString(e.SecondaryID),
			Lap:         e.Lap,
			Intensity:   e.Intensity,
			Description: e.Description,
		})
	}

	for _, t := range b.tension {
		export.Tension = append(export.Tension, []any{t.RaceTime, t.Level.String(), t.Score})
	}

	return export
}

func writeJSON(path string, data RaceExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data RaceExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

func idString(id core.RacerID) string {
	if id == core.InvalidRacerID {
		return ""
	}
	return id.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
