// pkg/core/events.go
package core

// RaceEvent is an immutable entry in the race's dramatic event log.
// Timestamp is race time in seconds.
type RaceEvent struct {
	ID          uint64
	Moment      DramaticMoment
	Timestamp   float64
	PrimaryID   RacerID
	SecondaryID RacerID
	Lap         int
	Intensity   float64
	Description string
}
