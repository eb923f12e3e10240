package rubberband

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/pkg/core"
)

const raceLength = 1000.0

type racer struct {
	player   bool
	progress float64
	speed    float64
}

// field builds an input with racers already sorted by position.
func field(t *testing.T, cfg core.RubberBandConfig, style core.DirectorStyle, rs ...racer) Input {
	t.Helper()
	in := Input{Style: style, Config: cfg, Tension: core.TensionCalm}
	for i, r := range rs {
		st := core.NewRacerState(uuid.New(), "r", r.player, i+1, core.RacerProfile{})
		st.Progress = r.progress
		st.Speed = r.speed
		if r.player {
			in.Field.Player = st.ID
		}
		in.Racers = append(in.Racers, st)
	}
	in.Field.Leader = in.Racers[0].ID
	in.Gaps = gap.Compute(in.Racers, raceLength)
	return in
}

func flatConfig() core.RubberBandConfig {
	cfg := core.DefaultRubberBandConfig()
	cfg.ScaleWithPosition = false
	return cfg
}

func TestUpdate_BoostsAIBehindPlayer(t *testing.T) {
	c := New(nil)
	in := field(t, flatConfig(), core.StyleBalanced,
		racer{player: true, progress: 0.5, speed: 50},
		racer{progress: 0.3, speed: 50},
	)

	mods := c.Update(0.1, in)
	require.Len(t, mods, 2)

	assert.Equal(t, Neutral(in.Racers[0].ID), mods[0], "leading player has no target")
	assert.InDelta(t, 1.10, mods[1].Speed, 1e-9)
	assert.InDelta(t, 1.05, mods[1].Handling, 1e-9)
	assert.InDelta(t, 1.20, mods[1].Nitro, 1e-9)
	assert.Equal(t, core.AdjustmentSpeedBoost, mods[1].Adjustment)
	assert.True(t, mods[1].Applied())
}

func TestUpdate_ReducesAIAheadOfPlayer(t *testing.T) {
	c := New(nil)
	in := field(t, flatConfig(), core.StyleCompetitive,
		racer{progress: 0.5, speed: 50},
		racer{player: true, progress: 0.3, speed: 50},
	)

	mods := c.Update(0.1, in)
	assert.InDelta(t, 0.95, mods[0].Speed, 1e-9)
	assert.Equal(t, 1.0, mods[0].Handling)
	assert.Equal(t, core.AdjustmentSpeedReduction, mods[0].Adjustment)

	assert.InDelta(t, 1.10, mods[1].Speed, 1e-9, "player is banded towards the leader")
}

func TestUpdate_RampsWithinRampDistance(t *testing.T) {
	c := New(nil)
	cfg := flatConfig()
	// ramp distance = max(2s * 100, 100) = 200, excess = 150 - 100 = 50
	in := field(t, cfg, core.StyleBalanced,
		racer{player: true, progress: 0.45, speed: 100},
		racer{progress: 0.30, speed: 100},
	)
	mods := c.Update(0.1, in)
	assert.InDelta(t, 1+0.25*cfg.MaxSpeedBoost, mods[1].Speed, 1e-9)
}

func TestUpdate_StrengthDecaysOverCooldown(t *testing.T) {
	c := New(nil)
	cfg := flatConfig()
	in := field(t, cfg, core.StyleBalanced,
		racer{player: true, progress: 0.5, speed: 50},
		racer{progress: 0.3, speed: 50},
	)
	mods := c.Update(0.1, in)
	require.InDelta(t, 1.10, mods[1].Speed, 1e-9)

	// the AI is now within the activation distance
	in.Racers[1].Progress = 0.45
	in.Gaps = gap.Compute(in.Racers, raceLength)

	mods = c.Update(1, in)
	assert.InDelta(t, 1+cfg.MaxSpeedBoost*2/3, mods[1].Speed, 1e-9, "no snap back to 1.0")

	mods = c.Update(1, in)
	assert.InDelta(t, 1+cfg.MaxSpeedBoost/3, mods[1].Speed, 1e-9)

	mods = c.Update(1, in)
	assert.Equal(t, 1.0, mods[1].Speed)
	assert.Equal(t, core.AdjustmentNone, mods[1].Adjustment)
}

func TestUpdate_AuthenticAndSimulationNeverIntervene(t *testing.T) {
	for _, style := range []core.DirectorStyle{core.StyleAuthentic, core.StyleSimulation} {
		c := New(nil)
		in := field(t, core.DefaultRubberBandConfig(), style,
			racer{progress: 0.9, speed: 80},
			racer{player: true, progress: 0.5, speed: 80},
			racer{progress: 0.1, speed: 80},
		)
		for i := 0; i < 10; i++ {
			for _, m := range c.Update(0.5, in) {
				assert.Equal(t, Neutral(m.ID), m, style.String())
			}
		}
	}
}

func TestUpdate_AffectsFlags(t *testing.T) {
	cfg := flatConfig()
	cfg.AffectsAI = false
	c := New(nil)
	in := field(t, cfg, core.StyleBalanced,
		racer{progress: 0.5, speed: 50},
		racer{player: true, progress: 0.3, speed: 50},
	)
	mods := c.Update(0.1, in)
	assert.False(t, mods[0].Applied())
	assert.True(t, mods[1].Applied())

	cfg.AffectsAI, cfg.AffectsPlayer = true, false
	in.Config = cfg
	mods = c.Update(0.1, in)
	assert.True(t, mods[0].Applied())
	assert.False(t, mods[1].Applied())
}

func TestUpdate_LevelAndStyleScaling(t *testing.T) {
	cfg := flatConfig()
	cfg.MaxSpeedBoost = 0.4
	build := func(style core.DirectorStyle, level core.RubberBandLevel) Input {
		cfg.Level = level
		// excess 25 over a 100 ramp: raw boost 0.25 * 0.4 = 0.1
		return field(t, cfg, style,
			racer{player: true, progress: 0.5, speed: 10},
			racer{progress: 0.375, speed: 10},
		)
	}

	boost := func(in Input) float64 {
		return New(nil).Update(0.1, in)[1].Boost
	}

	assert.InDelta(t, 0.1, boost(build(core.StyleBalanced, core.RubberBandModerate)), 1e-9)
	assert.InDelta(t, 0.05, boost(build(core.StyleBalanced, core.RubberBandLight)), 1e-9)
	assert.InDelta(t, 0.0, boost(build(core.StyleBalanced, core.RubberBandNone)), 1e-9)
	assert.InDelta(t, 0.15, boost(build(core.StyleArcade, core.RubberBandModerate)), 1e-9)

	dramatic := build(core.StyleDramatic, core.RubberBandModerate)
	assert.InDelta(t, 0.1, boost(dramatic), 1e-9)
	dramatic.Tension = core.TensionIntense
	assert.InDelta(t, 0.125, boost(dramatic), 1e-9)
}

func TestUpdate_ScaleWithPositionDampensFrontRunners(t *testing.T) {
	cfg := core.DefaultRubberBandConfig()
	in := field(t, cfg, core.StyleBalanced,
		racer{progress: 0.8, speed: 10},
		racer{progress: 0.6, speed: 10},
		racer{player: true, progress: 0.4, speed: 10},
	)
	mods := New(LeaderFocused{}).Update(0.1, in)
	// P2 is 200 behind the leader: full boost dampened to 0.75
	assert.InDelta(t, 1+0.75*cfg.MaxSpeedBoost, mods[1].Speed, 1e-9)
	assert.InDelta(t, 1+cfg.MaxSpeedBoost, mods[2].Speed, 1e-9)
}

func TestUpdate_ModifiersStayInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	styles := []core.DirectorStyle{core.StyleCompetitive, core.StyleDramatic, core.StyleArcade, core.StyleBalanced}
	c := New(nil)

	for i := 0; i < 200; i++ {
		cfg := core.RubberBandConfig{
			Level:                core.RubberBandLevel(rng.Intn(6)),
			MaxSpeedBoost:        rng.Float64() * 0.5,
			MaxSpeedReduction:    rng.Float64() * 0.5,
			ActivationDistance:   rng.Float64() * 200,
			CooldownTime:         rng.Float64() * 5,
			RampUpTime:           rng.Float64() * 5,
			HandlingBoost:        rng.Float64() * 0.5,
			NitrousRechargeBonus: rng.Float64(),
			AffectsPlayer:        true,
			AffectsAI:            true,
			ScaleWithPosition:    rng.Intn(2) == 0,
		}.Clamp()

		rs := make([]racer, 4)
		for j := range rs {
			rs[j] = racer{progress: 1 - float64(j)*rng.Float64()*0.2, speed: rng.Float64() * 100}
		}
		rs[rng.Intn(4)].player = true

		in := field(t, cfg, styles[rng.Intn(len(styles))], rs...)
		in.Tension = core.TensionLevel(rng.Intn(5))

		for _, m := range c.Update(rng.Float64(), in) {
			assert.GreaterOrEqual(t, m.Speed, 1-cfg.MaxSpeedReduction-1e-12)
			assert.LessOrEqual(t, m.Speed, 1+cfg.MaxSpeedBoost+1e-12)
			assert.GreaterOrEqual(t, m.Handling, 1.0)
			assert.LessOrEqual(t, m.Handling, 1+cfg.HandlingBoost+1e-12)
			assert.GreaterOrEqual(t, m.Nitro, 1.0)
			assert.LessOrEqual(t, m.Nitro, 1+cfg.NitrousRechargeBonus+1e-12)
		}
	}
}

func TestModifiers_RegatesWithoutAdvancing(t *testing.T) {
	c := New(nil)
	in := field(t, flatConfig(), core.StyleBalanced,
		racer{player: true, progress: 0.5, speed: 50},
		racer{progress: 0.3, speed: 50},
	)
	c.Update(0.1, in)

	// repeated reads leave the band where Update put it
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.10, c.Modifiers(in)[1].Speed, 1e-9)
	}

	tight := in
	tight.Config.MaxSpeedBoost = 0.02
	m := c.Modifiers(tight)[1]
	assert.InDelta(t, 1.02, m.Speed, 1e-9)
	assert.InDelta(t, 1+tight.Config.HandlingBoost, m.Handling, 1e-9)

	off := in
	off.Style = core.StyleAuthentic
	assert.Equal(t, Neutral(in.Racers[1].ID), c.Modifiers(off)[1])

	unknown := field(t, flatConfig(), core.StyleBalanced, racer{progress: 0.5, speed: 50}, racer{progress: 0.1, speed: 50})
	assert.False(t, c.Modifiers(unknown)[1].Applied(), "racers without band state stay neutral")
}

func TestPolicies(t *testing.T) {
	player := core.NewRacerState(uuid.New(), "p", true, 2, core.RacerProfile{})
	ai := core.NewRacerState(uuid.New(), "a", false, 3, core.RacerProfile{})
	leader := uuid.New()
	f := Field{Player: player.ID, Leader: leader}

	id, ok := PlayerFocused{}.Target(ai, f)
	assert.True(t, ok)
	assert.Equal(t, player.ID, id)

	id, ok = PlayerFocused{}.Target(player, f)
	assert.True(t, ok)
	assert.Equal(t, leader, id)

	id, ok = PlayerFocused{}.Target(ai, Field{Leader: leader})
	assert.True(t, ok)
	assert.Equal(t, leader, id, "falls back to the leader without a player")

	id, ok = LeaderFocused{}.Target(ai, f)
	assert.True(t, ok)
	assert.Equal(t, leader, id)

	_, ok = LeaderFocused{}.Target(core.RacerState{ID: leader}, f)
	assert.False(t, ok)

	never := PolicyFunc(func(core.RacerState, Field) (core.RacerID, bool) { return core.InvalidRacerID, false })
	c := New(never)
	in := field(t, flatConfig(), core.StyleArcade,
		racer{player: true, progress: 0.9, speed: 50},
		racer{progress: 0.1, speed: 50},
	)
	for _, m := range c.Update(0.1, in) {
		assert.False(t, m.Applied())
	}
}
