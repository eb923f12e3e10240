package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/pkg/core"
)

func testMeta() (core.RaceMeta, core.RacerState) {
	r := core.NewRacerState(uuid.New(), "Nova", false, 1, core.RacerProfile{SkillRating: 0.7, Aggression: 0.4, PerformanceRating: 1})
	return core.RaceMeta{
		ID:          uuid.NewString(),
		TotalLaps:   2,
		TrackLength: 1500,
		Style:       core.StyleArcade,
		Difficulty:  "Normal",
		StartedAt:   time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC),
		Racers:      []core.RacerState{r},
	}, r
}

func readExport(t *testing.T, path string, compressed bool) RaceExport {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var export RaceExport
	if compressed {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		require.NoError(t, json.NewDecoder(gz).Decode(&export))
	} else {
		require.NoError(t, json.NewDecoder(f).Decode(&export))
	}
	return export
}

func TestBackend_ExportJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.Init())
	assert.Empty(t, b.ExportedFilePath())

	meta, r := testMeta()
	require.NoError(t, b.StartRace(meta))
	require.NoError(t, b.RecordEvent(core.RaceEvent{ID: 1, Moment: core.MomentDominance, Timestamp: 80, PrimaryID: r.ID, Lap: 2, Intensity: 0.5}))
	require.NoError(t, b.RecordTension(10, core.TensionModerate, 0.45))
	assert.Len(t, b.Events(), 1)
	assert.Len(t, b.Tension(), 1)

	r.Finished, r.FinishTime = true, 95.5
	require.NoError(t, b.EndRace(core.RaceResult{
		Statistics:  core.RaceStatistics{TotalRacers: 1, FinishedRacers: 1, RaceTime: 95.5},
		FinishOrder: []core.RacerID{r.ID},
		Racers:      []core.RacerState{r},
	}))

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "race_20260501_183000_"+meta.ID+".json"), path)

	export := readExport(t, path, false)
	assert.Equal(t, meta.ID, export.ID)
	assert.Equal(t, "arcade", export.Style)
	assert.Equal(t, []string{r.ID.String()}, export.FinishOrder)
	require.Len(t, export.Racers, 1)
	assert.Equal(t, 1, export.Racers[0].FinishPosition)
	assert.InDelta(t, 95.5, export.Racers[0].FinishTime, 1e-9)

	// streamed events are used when the result carries no log
	require.Len(t, export.Events, 1)
	assert.Equal(t, "dominance", export.Events[0].Moment)
	assert.Empty(t, export.Events[0].Secondary)

	require.Len(t, export.Tension, 1)
	assert.Equal(t, "moderate", export.Tension[0][1])

	assert.ErrorIs(t, b.RecordEvent(core.RaceEvent{}), ErrNoRace)
	assert.NoError(t, b.Close())
}

func TestBackend_ExportGzip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "races")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	meta, r := testMeta()
	require.NoError(t, b.StartRace(meta))
	require.NoError(t, b.EndRace(core.RaceResult{
		Racers: []core.RacerState{r},
		Events: []core.RaceEvent{{ID: 7, Moment: core.MomentCloseRace, Timestamp: 30}},
	}))

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	export := readExport(t, path, true)
	require.Len(t, export.Events, 1)
	assert.Equal(t, uint64(7), export.Events[0].ID)
	assert.Empty(t, export.FinishOrder)
	assert.Equal(t, 0, export.Racers[0].FinishPosition)
}

func TestBackend_NoRace(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	assert.ErrorIs(t, b.RecordEvent(core.RaceEvent{}), ErrNoRace)
	assert.ErrorIs(t, b.RecordTension(0, core.TensionCalm, 0), ErrNoRace)
	assert.ErrorIs(t, b.EndRace(core.RaceResult{}), ErrNoRace)
}

func TestBackend_StartResetsHistory(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	meta, _ := testMeta()

	require.NoError(t, b.StartRace(meta))
	require.NoError(t, b.RecordEvent(core.RaceEvent{ID: 1}))
	require.NoError(t, b.StartRace(meta))
	assert.Empty(t, b.Events())
}
