package main

import (
	"fmt"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/pkg/director"
)

// newDirector builds a director from the loaded config, publishing on bus.
// The difficulty preset is applied last so its rubber-band level wins.
func (a *app) newDirector(bus *events.Bus) (*director.Director, error) {
	cfg := config.GetDirectorConfig()
	presets, err := config.GetDifficultyPresets()
	if err != nil {
		return nil, err
	}

	d, err := director.New(
		director.WithLogger(a.logger),
		director.WithBus(bus),
		director.WithMaxRacers(cfg.MaxRacers),
		director.WithDifficultyPresets(presets),
	)
	if err != nil {
		return nil, fmt.Errorf("creating director: %w", err)
	}

	d.SetDramaConfig(cfg.Drama)
	d.SetDirectorStyle(cfg.Style)
	d.SetPacingConfig(cfg.Pacing)
	d.SetRubberBandConfig(cfg.RubberBand)
	if cfg.Difficulty != "" && !d.SetDifficultyPresetNamed(cfg.Difficulty) {
		a.logger.Warn("Unknown difficulty preset, keeping default", "difficulty", cfg.Difficulty)
	}
	return d, nil
}
