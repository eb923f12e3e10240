// Package stats accumulates race statistics incrementally.
package stats

import "github.com/midnightgrind/racedirector/pkg/core"

// Aggregator keeps running counters and extrema for one race.
// Racer accounting always satisfies finished + wrecked + active == total.
type Aggregator struct {
	s          core.RaceStatistics
	speedSum   float64
	speedCount int
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Reset zeroes every counter.
func (a *Aggregator) Reset() {
	*a = Aggregator{}
}

// RacerRegistered counts a new active racer.
func (a *Aggregator) RacerRegistered() {
	a.s.TotalRacers++
	a.s.ActiveRacers++
}

// RacerUnregistered removes r from whichever bucket it was counted in.
func (a *Aggregator) RacerUnregistered(r core.RacerState) {
	a.s.TotalRacers--
	switch {
	case r.Finished:
		a.s.FinishedRacers--
	case r.Wrecked:
		a.s.WreckedRacers--
	default:
		a.s.ActiveRacers--
	}
}

// RacerFinished moves one racer from active to finished.
func (a *Aggregator) RacerFinished() {
	a.s.ActiveRacers--
	a.s.FinishedRacers++
}

// RacerWrecked moves one racer from active to wrecked.
func (a *Aggregator) RacerWrecked() {
	a.s.ActiveRacers--
	a.s.WreckedRacers++
}

func (a *Aggregator) LeadChange()           { a.s.TotalLeadChanges++ }
func (a *Aggregator) PositionChanges(n int) { a.s.TotalPositionChanges += n }
func (a *Aggregator) Takedown()             { a.s.TotalTakedowns++ }
func (a *Aggregator) NearMiss()             { a.s.TotalNearMisses++ }
func (a *Aggregator) DramaticMoment()       { a.s.TotalDramaticMoments++ }

// Lap records a completed lap time. Non-positive times are ignored.
func (a *Aggregator) Lap(seconds float64) {
	if seconds <= 0 {
		return
	}
	if a.s.LapsRecorded == 0 || seconds < a.s.FastestLap {
		a.s.FastestLap = seconds
	}
	if a.s.LapsRecorded == 0 || seconds > a.s.SlowestLap {
		a.s.SlowestLap = seconds
	}
	a.s.LapsRecorded++
}

// Gap records the closest consecutive gap seen this tick.
func (a *Aggregator) Gap(closest float64) {
	if !a.s.HasClosestGap || closest < a.s.ClosestGap {
		a.s.ClosestGap = closest
		a.s.HasClosestGap = true
	}
}

// Speed adds a speed sample to the race average.
func (a *Aggregator) Speed(v float64) {
	a.speedSum += v
	a.speedCount++
}

// Snapshot returns the statistics so far.
func (a *Aggregator) Snapshot() core.RaceStatistics {
	s := a.s
	if a.speedCount > 0 {
		s.AverageSpeed = a.speedSum / float64(a.speedCount)
	}
	return s
}

// Finalize sets the race time and the winning margin, the gap in seconds
// between the first two finishers.
func (a *Aggregator) Finalize(raceTime float64, finishTimes []float64) core.RaceStatistics {
	a.s.RaceTime = raceTime
	if len(finishTimes) >= 2 {
		a.s.WinningMargin = finishTimes[1] - finishTimes[0]
	}
	return a.Snapshot()
}
