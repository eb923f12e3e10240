// Package tension turns race closeness and lead changes into a tension score.
package tension

import "github.com/midnightgrind/racedirector/pkg/core"

// DecayRate is how fast the score relaxes toward the baseline, per second,
// while no stimulus is building.
const DecayRate = 0.1

// NearMissBump is added to the score for every reported near miss.
const NearMissBump = 0.05

// level thresholds for Mild, Moderate, Intense and Extreme
var thresholds = [...]float64{0.2, 0.4, 0.6, 0.8}

// Input is the race situation fed to the engine each tick.
type Input struct {
	AverageGap  float64
	ClosestGap  float64
	HasGaps     bool
	LeadChanges int // lead changes observed this tick
	Phase       core.RacePhase
}

// Engine accumulates the tension score.
type Engine struct {
	score     float64
	level     core.TensionLevel
	closeness float64
}

// New returns a calm engine.
func New() *Engine {
	return &Engine{}
}

// Reset returns to a calm, zero score.
func (e *Engine) Reset() {
	*e = Engine{}
}

// Score returns the current score in [0,1].
func (e *Engine) Score() float64 {
	return e.score
}

// Level returns the current tension level.
func (e *Engine) Level() core.TensionLevel {
	return e.level
}

// Update advances the score by dt seconds and reports whether the level changed.
//
// Closeness builds continuously, each lead change adds an immediate spike,
// and decay only applies on ticks where neither a lead change happened nor
// closeness increased.
func (e *Engine) Update(dt float64, in Input, drama core.DramaConfig, pacing core.PacingConfig) bool {
	if dt < 0 {
		dt = 0
	}

	c := Closeness(in, drama)
	intensity := 1.0
	if in.Phase == core.PhaseFinalLap || in.Phase == core.PhasePhotoFinish {
		intensity = pacing.FinalLapIntensity
	}

	rate := drama.TensionBuildupRate
	score := e.score + dt*rate*c*intensity
	score += rate * drama.LeadChangeWeight * float64(in.LeadChanges) * intensity

	if in.LeadChanges == 0 && c <= e.closeness {
		decay := dt * DecayRate
		if decay > 1 {
			decay = 1
		}
		score -= decay * (score - drama.TensionBaseline)
	}

	e.closeness = c
	return e.setScore(score)
}

// Bump adds amount directly to the score and reports whether the level changed.
func (e *Engine) Bump(amount float64) bool {
	return e.setScore(e.score + amount)
}

func (e *Engine) setScore(score float64) bool {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	e.score = score

	lvl := LevelFor(score)
	if lvl == e.level {
		return false
	}
	e.level = lvl
	return true
}

// Closeness maps the average gap to (0,1]; zero without at least two racers.
func Closeness(in Input, drama core.DramaConfig) float64 {
	if !in.HasGaps || drama.CloseRaceThreshold <= 0 {
		return 0
	}
	return drama.CloseRaceThreshold / (drama.CloseRaceThreshold + in.AverageGap)
}

// LevelFor is the monotone step function from score to level.
func LevelFor(score float64) core.TensionLevel {
	lvl := core.TensionCalm
	for i, th := range thresholds {
		if score >= th {
			lvl = core.TensionLevel(i + 1)
		}
	}
	return lvl
}

// IsCloseRace reports whether the closest gap is under the close-race threshold.
func IsCloseRace(in Input, drama core.DramaConfig) bool {
	return in.HasGaps && in.ClosestGap < drama.CloseRaceThreshold
}

// PhotoFinishPossible reports whether the finish could be decided by a photo.
func PhotoFinishPossible(in Input, drama core.DramaConfig) bool {
	if in.Phase != core.PhaseFinalLap && in.Phase != core.PhasePhotoFinish {
		return false
	}
	return in.HasGaps && in.ClosestGap < drama.PhotoFinishWindow
}
