package tension

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/midnightgrind/racedirector/pkg/core"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  core.TensionLevel
	}{
		{0, core.TensionCalm},
		{0.19, core.TensionCalm},
		{0.2, core.TensionMild},
		{0.45, core.TensionModerate},
		{0.6, core.TensionIntense},
		{0.8, core.TensionExtreme},
		{1, core.TensionExtreme},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LevelFor(c.score), "score %.2f", c.score)
	}
}

func TestUpdate_NoRacersDecaysToBaseline(t *testing.T) {
	e := New()
	e.Bump(0.5)
	drama := core.DefaultDramaConfig()

	for i := 0; i < 600; i++ {
		e.Update(0.1, Input{}, drama, core.DefaultPacingConfig())
	}
	assert.InDelta(t, drama.TensionBaseline, e.Score(), 0.01)
	assert.Equal(t, core.TensionCalm, e.Level())
}

func TestUpdate_LeadChangeSpikes(t *testing.T) {
	drama := core.DefaultDramaConfig()
	pacing := core.DefaultPacingConfig()

	quiet := New()
	quiet.Update(0.016, Input{AverageGap: 50, HasGaps: true}, drama, pacing)

	spiked := New()
	spiked.Update(0.016, Input{AverageGap: 50, HasGaps: true, LeadChanges: 1}, drama, pacing)

	assert.Greater(t, spiked.Score(), quiet.Score()+0.1)
}

func TestUpdate_MonotonicUnderShrinkingGapsAndLeadChanges(t *testing.T) {
	drama := core.DefaultDramaConfig()
	pacing := core.DefaultPacingConfig()
	e := New()

	gap := 400.0
	prev := e.Level()
	prevScore := e.Score()
	for i := 0; i < 200; i++ {
		gap *= 0.97
		e.Update(0.5, Input{AverageGap: gap, ClosestGap: gap, HasGaps: true, LeadChanges: 1, Phase: core.PhaseMidRace}, drama, pacing)
		assert.GreaterOrEqual(t, e.Level(), prev, "tick %d", i)
		assert.GreaterOrEqual(t, e.Score(), prevScore, "tick %d", i)
		prev = e.Level()
		prevScore = e.Score()
	}
	assert.Equal(t, core.TensionExtreme, e.Level())
}

func TestUpdate_MonotonicWithShrinkingGapsOnly(t *testing.T) {
	drama := core.DefaultDramaConfig()
	pacing := core.DefaultPacingConfig()
	e := New()

	prev := e.Level()
	for gap := 300.0; gap > 1; gap -= 5 {
		e.Update(0.25, Input{AverageGap: gap, ClosestGap: gap, HasGaps: true, Phase: core.PhaseMidRace}, drama, pacing)
		assert.GreaterOrEqual(t, e.Level(), prev)
		prev = e.Level()
	}
}

func TestUpdate_LevelChangeReportedOnce(t *testing.T) {
	e := New()
	assert.True(t, e.Bump(0.25))
	assert.False(t, e.Bump(0.05))
	assert.Equal(t, core.TensionMild, e.Level())
}

func TestUpdate_SteadyRaceSettles(t *testing.T) {
	drama := core.DefaultDramaConfig()
	pacing := core.DefaultPacingConfig()
	e := New()

	for i := 0; i < 2000; i++ {
		e.Update(0.1, Input{AverageGap: drama.CloseRaceThreshold, HasGaps: true, Phase: core.PhaseMidRace}, drama, pacing)
	}
	// closeness 0.5 settles at rate*0.5/DecayRate
	assert.InDelta(t, drama.TensionBuildupRate*0.5/DecayRate, e.Score(), 0.02)
}

func TestCloseRaceAndPhotoFinishFlags(t *testing.T) {
	drama := core.DefaultDramaConfig()

	in := Input{ClosestGap: 5, HasGaps: true, Phase: core.PhaseMidRace}
	assert.True(t, IsCloseRace(in, drama))
	assert.False(t, PhotoFinishPossible(in, drama))

	in.Phase = core.PhaseFinalLap
	assert.True(t, PhotoFinishPossible(in, drama))

	in.ClosestGap = drama.PhotoFinishWindow + 1
	assert.False(t, PhotoFinishPossible(in, drama))

	assert.False(t, IsCloseRace(Input{}, drama))
}
