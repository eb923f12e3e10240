// Package phase tracks the race phase state machine.
package phase

import (
	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// Input is the race situation the tracker evaluates each tick.
type Input struct {
	RaceTime       float64
	Progress       float64 // overall race progress per PacingConfig.Aggregate
	LeaderProgress float64
	LeaderLap      int
	TotalLaps      int
	TopTwoGap      float64 // gap.None when fewer than two racers
}

// Tracker owns the current phase. Phases never move backwards; only Reset
// returns to PreRace.
type Tracker struct {
	phase core.RacePhase
}

// New returns a tracker in PreRace.
func New() *Tracker {
	return &Tracker{phase: core.PhasePreRace}
}

// Phase returns the current phase.
func (t *Tracker) Phase() core.RacePhase {
	return t.phase
}

// Reset returns to PreRace.
func (t *Tracker) Reset() {
	t.phase = core.PhasePreRace
}

// Start moves PreRace to Start.
func (t *Tracker) Start() bool {
	return t.set(core.PhaseStart)
}

// Finish forces Finished.
func (t *Tracker) Finish() bool {
	return t.set(core.PhaseFinished)
}

// Advance applies the transition rules and reports whether the phase changed.
// Several transitions in one tick collapse into a single change.
func (t *Tracker) Advance(in Input, pacing core.PacingConfig, drama core.DramaConfig) bool {
	if t.phase == core.PhasePreRace || t.phase == core.PhaseFinished {
		return false
	}

	next := t.phase

	if next == core.PhaseStart && (in.Progress > 0 || in.RaceTime >= pacing.StartChaosWindow) {
		next = core.PhaseEarlyRace
	}

	if next >= core.PhaseEarlyRace && next < core.PhaseLateRace {
		switch {
		case in.Progress >= pacing.MidRacePercent:
			next = core.PhaseLateRace
		case in.Progress >= pacing.EarlyRacePercent:
			next = core.PhaseMidRace
		}
	}

	// the final lap only counts once the race is past LateRacePercent
	if next >= core.PhaseEarlyRace && next < core.PhaseFinalLap &&
		in.TotalLaps > 0 && in.LeaderLap >= in.TotalLaps &&
		in.Progress >= pacing.LateRacePercent {
		next = core.PhaseFinalLap
	}

	if next == core.PhaseFinalLap &&
		in.TopTwoGap != gap.None && in.TopTwoGap < drama.PhotoFinishWindow &&
		in.LeaderProgress >= pacing.FinishZonePercent {
		next = core.PhasePhotoFinish
	}

	return t.set(next)
}

func (t *Tracker) set(p core.RacePhase) bool {
	if p <= t.phase {
		return false
	}
	t.phase = p
	return true
}
