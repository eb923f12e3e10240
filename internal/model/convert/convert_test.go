package convert

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightgrind/racedirector/internal/model"
	"github.com/midnightgrind/racedirector/pkg/core"
)

func TestCoreToRace(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := CoreToRace(core.RaceMeta{
		ID: "race-1", TotalLaps: 3, TrackLength: 1200, Style: core.StyleDramatic,
		Difficulty: "Hard", StartedAt: started,
	})

	assert.Equal(t, "race-1", r.ID)
	assert.Equal(t, started, r.StartedAt)
	assert.Equal(t, "dramatic", r.Style)
	assert.Equal(t, "Hard", r.Difficulty)
	assert.Nil(t, r.EndedAt)
	assert.JSONEq(t, "{}", string(r.Statistics))
	assert.JSONEq(t, "[]", string(r.FinishOrder))
}

func TestCoreToRacerResult(t *testing.T) {
	id := uuid.New()
	r := core.NewRacerState(id, "Nova", true, 3, core.RacerProfile{SkillRating: 0.7, Aggression: 0.4})
	r.Finished = true
	r.FinishTime = 182.4
	r.MaxSpeed = 91

	got := CoreToRacerResult("race-1", r, 2)
	assert.Equal(t, id.String(), got.RacerID)
	assert.Equal(t, "race-1", got.RaceID)
	assert.True(t, got.IsPlayer)
	assert.Equal(t, 3, got.StartingPosition)
	assert.Equal(t, 2, got.FinishPosition)
	assert.Equal(t, 182.4, got.FinishTime)
	assert.Equal(t, 91.0, got.MaxSpeed)
	assert.Equal(t, 0.7, got.SkillRating)
}

func TestRaceEventRoundTrip(t *testing.T) {
	ev := core.RaceEvent{
		ID: 7, Moment: core.MomentComeback, Timestamp: 42.5, PrimaryID: uuid.New(),
		Lap: 2, Intensity: 0.8, Description: "climbs",
	}

	m := CoreToRaceEvent("race-1", ev)
	assert.Equal(t, "comeback", m.Moment)
	assert.Equal(t, "", m.SecondaryID)
	assert.Equal(t, uint64(7), m.Seq)

	if diff := cmp.Diff(ev, RaceEventToCore(m)); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestRaceEventToCore_BadIDs(t *testing.T) {
	got := RaceEventToCore(model.RaceEvent{Moment: "bogus", PrimaryID: "not-a-uuid"})
	assert.Equal(t, core.MomentNone, got.Moment)
	assert.Equal(t, core.InvalidRacerID, got.PrimaryID)
}

func TestApplyResult(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	race := CoreToRace(core.RaceMeta{ID: "race-1"})
	res := core.RaceResult{
		Statistics:  core.RaceStatistics{TotalRacers: 2, FinishedRacers: 2, RaceTime: 95.5, WinningMargin: 0.3},
		FinishOrder: []core.RacerID{a, b},
	}
	ended := time.Date(2026, 3, 1, 12, 2, 0, 0, time.UTC)

	require.NoError(t, ApplyResult(&race, res, ended))
	require.NotNil(t, race.EndedAt)
	assert.Equal(t, ended, *race.EndedAt)
	assert.Equal(t, 95.5, race.RaceTime)

	stats, err := RaceStatisticsToCore(race)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Statistics, stats); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}

	order, err := FinishOrderToCore(race)
	require.NoError(t, err)
	assert.Equal(t, []core.RacerID{a, b}, order)
}

func TestDecodeErrors(t *testing.T) {
	_, err := RaceStatisticsToCore(model.Race{ID: "x", Statistics: []byte("{")})
	assert.Error(t, err)
	_, err = FinishOrderToCore(model.Race{ID: "x", FinishOrder: []byte("{}")})
	assert.Error(t, err)

	s, err := RaceStatisticsToCore(model.Race{})
	require.NoError(t, err)
	assert.Equal(t, core.RaceStatistics{}, s)
}

func TestFinishPositions(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	pos := FinishPositions([]core.RacerID{b, a})
	assert.Equal(t, 1, pos[b])
	assert.Equal(t, 2, pos[a])
	assert.Equal(t, 0, pos[uuid.New()])
}
