// Package gap derives inter-racer distances from reported progress.
package gap

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// None marks a missing neighbour (no car ahead of the leader, none behind the last car).
const None = -1.0

// Racer holds the gaps of one racer, in distance units.
type Racer struct {
	ID       core.RacerID
	Position int
	Distance float64
	ToLeader float64
	ToAhead  float64
	ToBehind float64
}

// Result is the output of one gap computation.
type Result struct {
	Racers       []Racer
	LeaderID     core.RacerID
	AverageGap   float64
	ClosestGap   float64
	LeaderMargin float64
	// Consecutive is the number of consecutive gaps measured.
	Consecutive int
}

// HasGaps reports whether at least two racers were measured.
func (r Result) HasGaps() bool {
	return r.Consecutive > 0
}

// Lookup returns the gaps for id.
func (r Result) Lookup(id core.RacerID) (Racer, bool) {
	for _, g := range r.Racers {
		if g.ID == id {
			return g, true
		}
	}
	return Racer{}, false
}

// Compute measures racers that are already sorted by position (ties by
// report order). raceLength converts progress into distance.
// Negative gaps from an inconsistent feed are treated as side by side.
func Compute(racers []core.RacerState, raceLength float64) Result {
	res := Result{
		Racers:       make([]Racer, len(racers)),
		LeaderMargin: None,
	}
	if len(racers) == 0 {
		return res
	}
	res.LeaderID = racers[0].ID

	gaps := make([]float64, 0, len(racers))
	leaderDist := racers[0].Progress * raceLength

	for i, r := range racers {
		dist := r.Progress * raceLength
		g := Racer{
			ID:       r.ID,
			Position: r.Position,
			Distance: dist,
			ToLeader: nonNegative(leaderDist - dist),
			ToAhead:  None,
			ToBehind: None,
		}
		if i > 0 {
			g.ToAhead = nonNegative(racers[i-1].Progress*raceLength - dist)
			gaps = append(gaps, g.ToAhead)
		}
		if i < len(racers)-1 {
			g.ToBehind = nonNegative(dist - racers[i+1].Progress*raceLength)
		}
		res.Racers[i] = g
	}

	if len(gaps) > 0 {
		res.Consecutive = len(gaps)
		res.AverageGap = stat.Mean(gaps, nil)
		res.ClosestGap = floats.Min(gaps)
		res.LeaderMargin = gaps[0]
	}
	return res
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
