package events

import "github.com/midnightgrind/racedirector/pkg/core"

// Kind identifies a message type.
type Kind uint8

const (
	KindRaceStarted Kind = iota
	KindPhaseChanged
	KindDramaticMoment
	KindLeadChange
	KindPositionChange
	KindTensionChanged
	KindRubberBandApplied
	KindRacerFinished
	KindRaceFinished
)

func (k Kind) String() string {
	switch k {
	case KindRaceStarted:
		return "race_started"
	case KindPhaseChanged:
		return "phase_changed"
	case KindDramaticMoment:
		return "dramatic_moment"
	case KindLeadChange:
		return "lead_change"
	case KindPositionChange:
		return "position_change"
	case KindTensionChanged:
		return "tension_changed"
	case KindRubberBandApplied:
		return "rubber_band_applied"
	case KindRacerFinished:
		return "racer_finished"
	case KindRaceFinished:
		return "race_finished"
	default:
		return "unknown"
	}
}

// Message is anything published on the bus.
type Message interface {
	Kind() Kind
}

// RaceStarted is published once by StartRace.
type RaceStarted struct {
	Meta core.RaceMeta
}

type PhaseChanged struct {
	RaceTime float64
	From, To core.RacePhase
}

type DramaticMoment struct {
	Event core.RaceEvent
}

type LeadChange struct {
	RaceTime float64
	Previous core.RacerID
	Current  core.RacerID
	// Total is the number of lead changes so far, this one included.
	Total int
}

type PositionChange struct {
	RaceTime float64
	Racer    core.RacerID
	From, To int
}

type TensionChanged struct {
	RaceTime float64
	From, To core.TensionLevel
	Score    float64
}

type RubberBandApplied struct {
	RaceTime   float64
	Racer      core.RacerID
	Speed      float64
	Handling   float64
	Nitro      float64
	Adjustment core.PositionAdjustment
}

type RacerFinished struct {
	RaceTime   float64
	Racer      core.RacerID
	Position   int
	FinishTime float64
}

// RaceFinished carries the final result and is published once per race.
type RaceFinished struct {
	Result core.RaceResult
}

func (RaceStarted) Kind() Kind       { return KindRaceStarted }
func (PhaseChanged) Kind() Kind      { return KindPhaseChanged }
func (DramaticMoment) Kind() Kind    { return KindDramaticMoment }
func (LeadChange) Kind() Kind        { return KindLeadChange }
func (PositionChange) Kind() Kind    { return KindPositionChange }
func (TensionChanged) Kind() Kind    { return KindTensionChanged }
func (RubberBandApplied) Kind() Kind { return KindRubberBandApplied }
func (RacerFinished) Kind() Kind     { return KindRacerFinished }
func (RaceFinished) Kind() Kind      { return KindRaceFinished }
