package rubberband

import "github.com/midnightgrind/racedirector/pkg/core"

// Field identifies the racers a policy may pick targets from.
// Either id may be core.InvalidRacerID.
type Field struct {
	Player core.RacerID
	Leader core.RacerID
}

// TargetPolicy picks the racer whose distance a racer is banded towards.
type TargetPolicy interface {
	Target(r core.RacerState, f Field) (core.RacerID, bool)
}

// PolicyFunc adapts a plain function to TargetPolicy.
type PolicyFunc func(r core.RacerState, f Field) (core.RacerID, bool)

// Target implements TargetPolicy.
func (fn PolicyFunc) Target(r core.RacerState, f Field) (core.RacerID, bool) {
	return fn(r, f)
}

// PlayerFocused bands AI racers towards the player and the player towards
// the leader. Without a racing player, AI racers target the leader.
type PlayerFocused struct{}

// Target implements TargetPolicy.
func (PlayerFocused) Target(r core.RacerState, f Field) (core.RacerID, bool) {
	if !r.IsPlayer && f.Player != core.InvalidRacerID && f.Player != r.ID {
		return f.Player, true
	}
	return leaderTarget(r, f)
}

// LeaderFocused bands every racer towards the leader.
type LeaderFocused struct{}

// Target implements TargetPolicy.
func (LeaderFocused) Target(r core.RacerState, f Field) (core.RacerID, bool) {
	return leaderTarget(r, f)
}

func leaderTarget(r core.RacerState, f Field) (core.RacerID, bool) {
	if f.Leader == core.InvalidRacerID || f.Leader == r.ID {
		return core.InvalidRacerID, false
	}
	return f.Leader, true
}
