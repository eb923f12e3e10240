package core

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseDirectorStyle(t *testing.T) {
	for s := StyleAuthentic; s <= StyleBalanced; s++ {
		assert.Equal(t, s, ParseDirectorStyle(s.String()))
	}
	assert.Equal(t, StyleBalanced, ParseDirectorStyle("cinematic"))
	assert.Equal(t, "unknown", DirectorStyle(42).String())
}

func TestDirectorStyle_Intervenes(t *testing.T) {
	assert.False(t, StyleAuthentic.Intervenes())
	assert.False(t, StyleSimulation.Intervenes())
	assert.True(t, StyleArcade.Intervenes())
	assert.True(t, StyleBalanced.Intervenes())
}

func TestParseDramaticMoment(t *testing.T) {
	for m := MomentNone; m <= MomentTakedown; m++ {
		assert.Equal(t, m, ParseDramaticMoment(m.String()))
	}
	assert.Equal(t, MomentNone, ParseDramaticMoment("explosion"))
}

func TestRubberBandLevel(t *testing.T) {
	assert.Equal(t, 0.0, RubberBandNone.Multiplier())
	assert.Equal(t, 1.0, RubberBandModerate.Multiplier())
	assert.Equal(t, 2.0, RubberBandVeryStrong.Multiplier())

	for l := RubberBandNone; l <= RubberBandVeryStrong; l++ {
		assert.Equal(t, l, ParseRubberBandLevel(l.String()))
	}
	assert.Equal(t, RubberBandModerate, ParseRubberBandLevel("extreme"))
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "final_lap", PhaseFinalLap.String())
	assert.Equal(t, "catch_up", BehaviorCatchUp.String())
	assert.Equal(t, "speed_reduction", AdjustmentSpeedReduction.String())
	assert.Equal(t, "extreme", TensionExtreme.String())
	assert.Equal(t, "unknown", RacePhase(99).String())
}

func TestNewRacerState(t *testing.T) {
	id := uuid.New()
	r := NewRacerState(id, "Vex", false, 3, RacerProfile{SkillRating: 1.4, Aggression: -0.2, PerformanceRating: 1.05})

	assert.Equal(t, id, r.ID)
	assert.True(t, r.Active)
	assert.Equal(t, 3, r.Position)
	assert.Equal(t, 3, r.BestPosition)
	assert.Equal(t, 3, r.WorstPosition)
	assert.Equal(t, 1, r.Lap)
	assert.Equal(t, 1.0, r.SpeedModifier)
	assert.Equal(t, 1.0, r.SkillRating)
	assert.Equal(t, 0.0, r.Aggression)
	assert.Equal(t, 1.05, r.PerformanceRating)
	assert.True(t, r.Racing())

	r.Wrecked = true
	assert.False(t, r.Racing())
}

func TestRubberBandConfig_Clamp(t *testing.T) {
	c := RubberBandConfig{Level: 200, MaxSpeedBoost: 2, MaxSpeedReduction: -1, CooldownTime: math.NaN()}.Clamp()
	assert.Equal(t, RubberBandVeryStrong, c.Level)
	assert.Equal(t, 0.5, c.MaxSpeedBoost)
	assert.Equal(t, 0.0, c.MaxSpeedReduction)
	assert.Equal(t, 0.0, c.CooldownTime)

	assert.Equal(t, DefaultRubberBandConfig(), DefaultRubberBandConfig().Clamp())
}

func TestDramaConfig_Clamp(t *testing.T) {
	c := DramaConfig{ComebackThreshold: 0, DominanceFactor: 0.5, UnderdogSkill: 3}.Clamp()
	assert.Equal(t, 1, c.ComebackThreshold)
	assert.Equal(t, 1.0, c.DominanceFactor)
	assert.Equal(t, 1.0, c.UnderdogSkill)

	assert.Equal(t, DefaultDramaConfig(), DefaultDramaConfig().Clamp())
}

func TestPacingConfig_ClampOrdersBoundaries(t *testing.T) {
	c := PacingConfig{EarlyRacePercent: 0.6, MidRacePercent: 0.3, LateRacePercent: 0.2, FinishZonePercent: 1.5, Aggregate: 9}.Clamp()
	assert.Equal(t, 0.6, c.EarlyRacePercent)
	assert.Equal(t, 0.6, c.MidRacePercent)
	assert.Equal(t, 0.6, c.LateRacePercent)
	assert.Equal(t, 1.0, c.FinishZonePercent)
	assert.Equal(t, 1.0, c.FinalLapIntensity)
	assert.Equal(t, AggregateLeader, c.Aggregate)

	assert.Equal(t, DefaultPacingConfig(), DefaultPacingConfig().Clamp())
}

func TestDefaultDifficultyPresets(t *testing.T) {
	presets := DefaultDifficultyPresets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
		assert.Equal(t, p, p.Clamp(), p.Name)
	}
	assert.Equal(t, []string{"Easy", "Normal", "Hard", "Expert", "Legendary"}, names)

	// easier presets lean on the rubber band harder
	for i := 1; i < len(presets); i++ {
		assert.Less(t, presets[i].RubberBandLevel, presets[i-1].RubberBandLevel)
		assert.GreaterOrEqual(t, presets[i].SpeedMultiplier, presets[i-1].SpeedMultiplier)
	}
}
