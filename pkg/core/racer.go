// pkg/core/racer.go
package core

// RacerState is the director's view of one racer.
// Values handed out by the director are copies.
type RacerState struct {
	ID       RacerID
	Name     string
	IsPlayer bool
	Active   bool

	// per tick
	Position         int
	StartingPosition int
	Lap              int
	Progress         float64 // fraction of the whole race distance, 0..1
	DistanceToLeader float64
	DistanceToAhead  float64
	DistanceToBehind float64
	Speed            float64
	MaxSpeed         float64

	SpeedModifier         float64
	HandlingModifier      float64
	NitroRechargeModifier float64
	Behavior              BehaviorState
	Adjustment            PositionAdjustment

	// accumulators
	BestPosition    int
	WorstPosition   int
	PositionChanges int
	Takedowns       int
	TimesWrecked    int

	// tunables
	SkillRating       float64
	Aggression        float64
	PerformanceRating float64
	Rival             bool

	// terminal
	Finished   bool
	FinishTime float64
	Wrecked    bool
}

// Racing reports whether the racer still takes part in the race.
func (r RacerState) Racing() bool {
	return r.Active && !r.Finished && !r.Wrecked
}

// RacerProfile holds the tunables assigned at registration.
type RacerProfile struct {
	SkillRating       float64
	Aggression        float64
	PerformanceRating float64
}

// NewRacerState returns a racer in its pre-race state.
func NewRacerState(id RacerID, name string, isPlayer bool, startPosition int, p RacerProfile) RacerState {
	return RacerState{
		ID:                    id,
		Name:                  name,
		IsPlayer:              isPlayer,
		Active:                true,
		Position:              startPosition,
		StartingPosition:      startPosition,
		BestPosition:          startPosition,
		WorstPosition:         startPosition,
		Lap:                   1,
		SpeedModifier:         1.0,
		HandlingModifier:      1.0,
		NitroRechargeModifier: 1.0,
		SkillRating:           clamp01(p.SkillRating),
		Aggression:            clamp01(p.Aggression),
		PerformanceRating:     p.PerformanceRating,
	}
}
