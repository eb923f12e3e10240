// pkg/core/race.go
package core

import "time"

// DirectorState is a read-only snapshot recomputed every tick.
type DirectorState struct {
	Phase               RacePhase
	TensionLevel        TensionLevel
	TensionScore        float64
	CurrentMoment       DramaticMoment
	LeadChanges         int
	AverageGap          float64
	ClosestGap          float64
	RaceProgress        float64
	RaceTime            float64
	PlayerPerformance   float64
	LeaderID            RacerID
	IsCloseRace         bool
	PhotoFinishPossible bool
}

// RaceStatistics aggregates counters and extrema over one race.
// FastestLap and SlowestLap are zero until LapsRecorded > 0;
// ClosestGap is zero until HasClosestGap is set.
type RaceStatistics struct {
	TotalRacers          int
	ActiveRacers         int
	FinishedRacers       int
	WreckedRacers        int
	TotalLeadChanges     int
	TotalPositionChanges int
	TotalTakedowns       int
	TotalNearMisses      int
	TotalDramaticMoments int

	AverageSpeed  float64
	FastestLap    float64
	SlowestLap    float64
	LapsRecorded  int
	ClosestGap    float64
	HasClosestGap bool
	WinningMargin float64
	RaceTime      float64
}

// RaceMeta describes a race at the moment it starts.
type RaceMeta struct {
	ID          string
	TotalLaps   int
	TrackLength float64
	Style       DirectorStyle
	Difficulty  string
	StartedAt   time.Time
	Racers      []RacerState
}

// RaceResult is produced once when a race ends.
type RaceResult struct {
	Statistics  RaceStatistics
	FinishOrder []RacerID
	Racers      []RacerState
	Events      []RaceEvent
}
