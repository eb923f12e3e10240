// Package behavior recommends a discrete driving behavior for AI racers.
package behavior

import (
	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/pkg/core"
)

const (
	// MistakeSecondsPerSeverity converts a mistake severity to its duration.
	MistakeSecondsPerSeverity = 4.0
	// RecoveryDuration is how long Recovery lasts after a mistake.
	RecoveryDuration = 2.0

	AggressiveThreshold = 0.7
	DefensiveThreshold  = 0.3
	BlockingThreshold   = 0.7

	// RivalAggressionBonus is added to a rival's aggression when deciding
	// whether to hunt or block.
	RivalAggressionBonus = 0.3
)

// HuntingThreshold is the effective aggression needed to hunt the car ahead.
func HuntingThreshold(style core.DirectorStyle) float64 {
	switch style {
	case core.StyleArcade:
		return 0.3
	case core.StyleDramatic:
		return 0.4
	case core.StyleAuthentic:
		return 0.6
	case core.StyleSimulation:
		return 0.7
	default:
		return 0.5
	}
}

// Input is the per-racer situation for one classification.
type Input struct {
	Racer      core.RacerState
	Gaps       gap.Racer
	Adjustment core.PositionAdjustment
	Style      core.DirectorStyle
	// Proximity is the battle distance for hunting and blocking.
	Proximity float64
}

type timer struct {
	mistake  float64
	recovery float64
}

// Classifier tracks forced mistakes and the last gap to the car ahead, and
// classifies racers each tick.
type Classifier struct {
	timers map[core.RacerID]*timer
	ahead  map[core.RacerID]float64
}

// New returns an empty classifier.
func New() *Classifier {
	return &Classifier{
		timers: make(map[core.RacerID]*timer),
		ahead:  make(map[core.RacerID]float64),
	}
}

// Reset drops all pending mistakes and gap history.
func (c *Classifier) Reset() {
	c.timers = make(map[core.RacerID]*timer)
	c.ahead = make(map[core.RacerID]float64)
}

// Forget drops the pending mistake and gap history of one racer.
func (c *Classifier) Forget(id core.RacerID) {
	delete(c.timers, id)
	delete(c.ahead, id)
}

// RequestMistake forces r into Mistake for severity*MistakeSecondsPerSeverity
// seconds. Players and retired racers are ignored.
func (c *Classifier) RequestMistake(r core.RacerState, severity float64) bool {
	if r.IsPlayer || !r.Racing() {
		return false
	}
	if severity < 0 || severity != severity {
		severity = 0
	}
	if severity > 1 {
		severity = 1
	}
	c.timers[r.ID] = &timer{mistake: severity * MistakeSecondsPerSeverity}
	return true
}

// InMistake reports whether id has a pending mistake or recovery.
func (c *Classifier) InMistake(id core.RacerID) bool {
	_, ok := c.timers[id]
	return ok
}

// Classify advances the racer's timers by dt and returns its behavior.
func (c *Classifier) Classify(dt float64, in Input) core.BehaviorState {
	r := in.Racer
	if r.IsPlayer || !r.Racing() {
		c.Forget(r.ID)
		return core.BehaviorNormal
	}

	closing := c.closing(r.ID, in.Gaps.ToAhead)

	if state, ok := c.advance(dt, r.ID); ok {
		return state
	}

	switch in.Adjustment {
	case core.AdjustmentSpeedBoost:
		return core.BehaviorCatchUp
	case core.AdjustmentSpeedReduction:
		return core.BehaviorSlowDown
	}

	effective := r.Aggression
	if r.Rival {
		effective += RivalAggressionBonus
	}
	if closing && within(in.Gaps.ToAhead, in.Proximity) && effective >= HuntingThreshold(in.Style) {
		return core.BehaviorHunting
	}
	if within(in.Gaps.ToBehind, in.Proximity) && effective >= BlockingThreshold {
		return core.BehaviorBlocking
	}

	switch {
	case r.Aggression >= AggressiveThreshold:
		return core.BehaviorAggressive
	case r.Aggression <= DefensiveThreshold:
		return core.BehaviorDefensive
	default:
		return core.BehaviorNormal
	}
}

// advance runs the mistake then recovery timers. ok is false once both expired.
func (c *Classifier) advance(dt float64, id core.RacerID) (core.BehaviorState, bool) {
	t, ok := c.timers[id]
	if !ok {
		return core.BehaviorNormal, false
	}

	if t.mistake > 0 {
		t.mistake -= dt
		if t.mistake > 0 {
			return core.BehaviorMistake, true
		}
		// carry the overshoot into the recovery window
		t.recovery = RecoveryDuration + t.mistake
		t.mistake = 0
		if t.recovery > 0 {
			return core.BehaviorRecovery, true
		}
	} else if t.recovery > 0 {
		t.recovery -= dt
		if t.recovery > 0 {
			return core.BehaviorRecovery, true
		}
	}

	delete(c.timers, id)
	return core.BehaviorNormal, false
}

// closing records toAhead and reports whether it shrank since the last tick.
func (c *Classifier) closing(id core.RacerID, toAhead float64) bool {
	prev, seen := c.ahead[id]
	if toAhead == gap.None {
		delete(c.ahead, id)
		return false
	}
	c.ahead[id] = toAhead
	return seen && toAhead < prev
}

func within(d, proximity float64) bool {
	return d != gap.None && d <= proximity
}
