// pkg/core/types.go
package core

import "github.com/google/uuid"

// RacerID identifies a registered racer for the lifetime of the registry.
type RacerID = uuid.UUID

// InvalidRacerID is returned when a racer could not be registered.
var InvalidRacerID = uuid.Nil

// DirectorStyle selects how much the director intervenes in a race.
type DirectorStyle uint8

const (
	StyleAuthentic DirectorStyle = iota
	StyleCompetitive
	StyleDramatic
	StyleArcade
	StyleSimulation
	StyleBalanced
)

func (s DirectorStyle) String() string {
	switch s {
	case StyleAuthentic:
		return "authentic"
	case StyleCompetitive:
		return "competitive"
	case StyleDramatic:
		return "dramatic"
	case StyleArcade:
		return "arcade"
	case StyleSimulation:
		return "simulation"
	case StyleBalanced:
		return "balanced"
	default:
		return "unknown"
	}
}

// Intervenes reports whether rubber-banding is allowed under the style.
func (s DirectorStyle) Intervenes() bool {
	return s != StyleAuthentic && s != StyleSimulation
}

// ParseDirectorStyle converts a config string to a DirectorStyle.
// Unknown names fall back to StyleBalanced.
func ParseDirectorStyle(name string) DirectorStyle {
	for s := StyleAuthentic; s <= StyleBalanced; s++ {
		if s.String() == name {
			return s
		}
	}
	return StyleBalanced
}

// RacePhase is the coarse stage of a race. Phases only move forward.
type RacePhase uint8

const (
	PhasePreRace RacePhase = iota
	PhaseStart
	PhaseEarlyRace
	PhaseMidRace
	PhaseLateRace
	PhaseFinalLap
	PhasePhotoFinish
	PhaseFinished
)

func (p RacePhase) String() string {
	switch p {
	case PhasePreRace:
		return "pre_race"
	case PhaseStart:
		return "start"
	case PhaseEarlyRace:
		return "early_race"
	case PhaseMidRace:
		return "mid_race"
	case PhaseLateRace:
		return "late_race"
	case PhaseFinalLap:
		return "final_lap"
	case PhasePhotoFinish:
		return "photo_finish"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// DramaticMoment classifies a narratively significant race event.
type DramaticMoment uint8

const (
	MomentNone DramaticMoment = iota
	MomentCloseRace
	MomentComeback
	MomentLeadChange
	MomentPhotoFinish
	MomentUnderdog
	MomentDominance
	MomentRivalry
	MomentWreckAvoidance
	MomentPerfectLap
	MomentTakedown
)

func (m DramaticMoment) String() string {
	switch m {
	case MomentNone:
		return "none"
	case MomentCloseRace:
		return "close_race"
	case MomentComeback:
		return "comeback"
	case MomentLeadChange:
		return "lead_change"
	case MomentPhotoFinish:
		return "photo_finish"
	case MomentUnderdog:
		return "underdog"
	case MomentDominance:
		return "dominance"
	case MomentRivalry:
		return "rivalry"
	case MomentWreckAvoidance:
		return "wreck_avoidance"
	case MomentPerfectLap:
		return "perfect_lap"
	case MomentTakedown:
		return "takedown"
	default:
		return "unknown"
	}
}

// ParseDramaticMoment converts a stored name back to a DramaticMoment.
// Unknown names map to MomentNone.
func ParseDramaticMoment(name string) DramaticMoment {
	for m := MomentNone; m <= MomentTakedown; m++ {
		if m.String() == name {
			return m
		}
	}
	return MomentNone
}

// RubberBandLevel scales the strength of rubber-banding.
type RubberBandLevel uint8

const (
	RubberBandNone RubberBandLevel = iota
	RubberBandVeryLight
	RubberBandLight
	RubberBandModerate
	RubberBandStrong
	RubberBandVeryStrong
)

// Multiplier returns the strength multiplier for the level.
func (l RubberBandLevel) Multiplier() float64 {
	switch l {
	case RubberBandVeryLight:
		return 0.25
	case RubberBandLight:
		return 0.5
	case RubberBandModerate:
		return 1.0
	case RubberBandStrong:
		return 1.5
	case RubberBandVeryStrong:
		return 2.0
	default:
		return 0
	}
}

func (l RubberBandLevel) String() string {
	switch l {
	case RubberBandNone:
		return "none"
	case RubberBandVeryLight:
		return "very_light"
	case RubberBandLight:
		return "light"
	case RubberBandModerate:
		return "moderate"
	case RubberBandStrong:
		return "strong"
	case RubberBandVeryStrong:
		return "very_strong"
	default:
		return "unknown"
	}
}

// ParseRubberBandLevel converts a config string to a RubberBandLevel.
// Unknown names fall back to RubberBandModerate.
func ParseRubberBandLevel(name string) RubberBandLevel {
	for l := RubberBandNone; l <= RubberBandVeryStrong; l++ {
		if l.String() == name {
			return l
		}
	}
	return RubberBandModerate
}

// BehaviorState is the AI behavior recommended to a racer's controller.
type BehaviorState uint8

const (
	BehaviorNormal BehaviorState = iota
	BehaviorAggressive
	BehaviorDefensive
	BehaviorHunting
	BehaviorBlocking
	BehaviorCatchUp
	BehaviorSlowDown
	BehaviorMistake
	BehaviorRecovery
)

func (b BehaviorState) String() string {
	switch b {
	case BehaviorNormal:
		return "normal"
	case BehaviorAggressive:
		return "aggressive"
	case BehaviorDefensive:
		return "defensive"
	case BehaviorHunting:
		return "hunting"
	case BehaviorBlocking:
		return "blocking"
	case BehaviorCatchUp:
		return "catch_up"
	case BehaviorSlowDown:
		return "slow_down"
	case BehaviorMistake:
		return "mistake"
	case BehaviorRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// PositionAdjustment is the kind of rubber-band adjustment currently applied.
type PositionAdjustment uint8

const (
	AdjustmentNone PositionAdjustment = iota
	AdjustmentSpeedBoost
	AdjustmentSpeedReduction
)

func (a PositionAdjustment) String() string {
	switch a {
	case AdjustmentSpeedBoost:
		return "speed_boost"
	case AdjustmentSpeedReduction:
		return "speed_reduction"
	default:
		return "none"
	}
}

// TensionLevel is the discrete step function of the tension score.
type TensionLevel uint8

const (
	TensionCalm TensionLevel = iota
	TensionMild
	TensionModerate
	TensionIntense
	TensionExtreme
)

func (t TensionLevel) String() string {
	switch t {
	case TensionCalm:
		return "calm"
	case TensionMild:
		return "mild"
	case TensionModerate:
		return "moderate"
	case TensionIntense:
		return "intense"
	case TensionExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}
