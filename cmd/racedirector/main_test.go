package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/pkg/core"
)

const twoRacerFeed = "../../internal/feed/testdata/two_racers.jsonl"

func setupConfigDir(t *testing.T, extra string) (cfgDir, workDir string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	workDir = t.TempDir()
	cfgDir = t.TempDir()
	body := fmt.Sprintf(`{
		"logsDir": %q,
		"storage": { "type": "memory", "memory": { "outputDir": %q, "compressOutput": false } },
		"db": { "sqlitePath": %q }%s
	}`, filepath.Join(workDir, "logs"), filepath.Join(workDir, "races"), filepath.Join(workDir, "races.db"), extra)
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, config.FileName), []byte(body), 0644))
	return cfgDir, workDir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPresets_Table(t *testing.T) {
	cfgDir, workDir := setupConfigDir(t, "")

	out, err := run(t, "", "presets", "--config-dir", cfgDir)
	require.NoError(t, err)

	for _, name := range []string{"Easy", "Normal", "Hard", "Expert", "Legendary"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "very_strong")

	logs, err := os.ReadDir(filepath.Join(workDir, "logs"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestPresets_JSONFromConfig(t *testing.T) {
	cfgDir, _ := setupConfigDir(t, `,
		"difficultyPresets": [
			{ "name": "Rookie", "speedMultiplier": 0.8, "rubberBand": "strong" },
			{ "name": "Pro", "speedMultiplier": 1.2, "rubberBand": "none" }
		]`)

	out, err := run(t, "", "presets", "--json", "--config-dir", cfgDir)
	require.NoError(t, err)

	var presets []core.AIDifficultyConfig
	require.NoError(t, json.Unmarshal([]byte(out), &presets))
	require.Len(t, presets, 2)
	assert.Equal(t, "Rookie", presets[0].Name)
	assert.Equal(t, core.RubberBandStrong, presets[0].RubberBandLevel)
	assert.Equal(t, core.RubberBandNone, presets[1].RubberBandLevel)
}

func TestReplay_MemoryExport(t *testing.T) {
	cfgDir, workDir := setupConfigDir(t, "")

	out, err := run(t, "", "replay", twoRacerFeed, "--config-dir", cfgDir)
	require.NoError(t, err)

	assert.Contains(t, out, "26 ticks")
	assert.Contains(t, out, "Ace")
	assert.Contains(t, out, "Blaze")
	assert.Contains(t, out, "Exported:")

	exports, err := filepath.Glob(filepath.Join(workDir, "races", "race_*.json"))
	require.NoError(t, err)
	assert.Len(t, exports, 1)
}

func TestReplay_Stdin(t *testing.T) {
	cfgDir, _ := setupConfigDir(t, "")
	feed, err := os.ReadFile(twoRacerFeed)
	require.NoError(t, err)

	out, err := run(t, string(feed), "replay", "-", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed")
}

func TestReplay_SQLite(t *testing.T) {
	cfgDir, workDir := setupConfigDir(t, "")

	_, err := run(t, "", "replay", twoRacerFeed, "--storage", "sqlite", "--config-dir", cfgDir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(workDir, "races.db"))
	assert.NoError(t, err)
}

func TestReplay_Errors(t *testing.T) {
	cfgDir, _ := setupConfigDir(t, "")

	_, err := run(t, "", "replay", "does-not-exist.jsonl", "--config-dir", cfgDir)
	assert.ErrorContains(t, err, "opening feed")

	_, err = run(t, "", "replay", twoRacerFeed, "--storage", "websocket", "--config-dir", cfgDir)
	assert.ErrorContains(t, err, "unknown storage type")

	_, err = run(t, `{"t":"state","ref":"nobody"}`, "replay", "-", "--config-dir", cfgDir)
	assert.ErrorContains(t, err, "unknown racer ref")

	_, err = run(t, "", "replay", "--config-dir", cfgDir)
	assert.Error(t, err)
}

func TestSetup_MissingConfigUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := run(t, "", "presets", "--config-dir", dir, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "Normal")
	assert.Equal(t, "debug", viper.GetString("logLevel"))
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, "debug", zerologLevel("DEBUG").String())
	assert.Equal(t, "warn", zerologLevel("warn").String())
	assert.Equal(t, "info", zerologLevel("").String())
	assert.Equal(t, "info", zerologLevel("loud").String())
}
