package director

import (
	"strings"

	"github.com/midnightgrind/racedirector/internal/rubberband"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// SetDirectorStyle switches the intervention style. Authentic and Simulation
// disable rubber-banding and dramatic moments; Dramatic enables rivalry and
// underdog moments.
func (d *Director) SetDirectorStyle(style core.DirectorStyle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if style > core.StyleBalanced {
		style = core.StyleBalanced
	}
	d.style = style
	d.dramaCfg = applyStyle(d.baseDrama, style)
	d.regateLocked()
	d.log.Info("director style set", "style", style.String())
}

// SetRubberBandConfig stores a clamped copy of c. Current modifiers are
// re-bounded at once.
func (d *Director) SetRubberBandConfig(c core.RubberBandConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rubberBand = c.Clamp()
	d.regateLocked()
}

// SetDramaConfig stores a clamped copy of c. Style side effects still apply.
func (d *Director) SetDramaConfig(c core.DramaConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseDrama = c.Clamp()
	d.dramaCfg = applyStyle(d.baseDrama, d.style)
}

// SetPacingConfig stores a clamped copy of c.
func (d *Director) SetPacingConfig(c core.PacingConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pacing = c.Clamp()
}

// SetAIDifficulty stores a clamped copy of c and adopts its rubber-band
// level. Racers registered earlier keep their profile.
func (d *Director) SetAIDifficulty(c core.AIDifficultyConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setDifficulty(c)
}

func (d *Director) setDifficulty(c core.AIDifficultyConfig) {
	d.difficulty = c.Clamp()
	d.rubberBand.Level = d.difficulty.RubberBandLevel
	d.regateLocked()
	d.log.Info("ai difficulty set", "difficulty", d.difficulty.Name, "rubber_band", d.difficulty.RubberBandLevel.String())
}

// SetDifficultyPreset selects preset level from the preset table, 0 being
// the easiest. It reports false for an out-of-range level.
func (d *Director) SetDifficultyPreset(level int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if level < 0 || level >= len(d.presets) {
		return false
	}
	d.setDifficulty(d.presets[level])
	return true
}

// SetDifficultyPresetNamed selects a preset by case-insensitive name.
func (d *Director) SetDifficultyPresetNamed(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.presets {
		if strings.EqualFold(p.Name, name) {
			d.setDifficulty(p)
			return true
		}
	}
	return false
}

// SetTargetPolicy swaps the racer the rubber band measures against.
// nil restores the player-focused default.
func (d *Director) SetTargetPolicy(p rubberband.TargetPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rubber.SetPolicy(p)
}

// GetDirectorStyle returns the active style.
func (d *Director) GetDirectorStyle() core.DirectorStyle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.style
}

// GetRubberBandConfig returns the clamped rubber-band config in effect.
func (d *Director) GetRubberBandConfig() core.RubberBandConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rubberBand
}

// GetDramaConfig returns the drama config in effect, style side effects included.
func (d *Director) GetDramaConfig() core.DramaConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dramaCfg
}

// GetPacingConfig returns the clamped pacing config.
func (d *Director) GetPacingConfig() core.PacingConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pacing
}

// GetAIDifficulty returns the difficulty applied to newly registered AI racers.
func (d *Director) GetAIDifficulty() core.AIDifficultyConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.difficulty
}

// GetDifficultyPresets returns a copy of the preset table.
func (d *Director) GetDifficultyPresets() []core.AIDifficultyConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]core.AIDifficultyConfig(nil), d.presets...)
}

// GetDirectorState returns the snapshot computed by the last tick.
func (d *Director) GetDirectorState() core.DirectorState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// GetRaceStatistics returns the statistics so far, or the final ones once
// the race has ended.
func (d *Director) GetRaceStatistics() core.RaceStatistics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ended {
		return d.result.Statistics
	}
	s := d.stats.Snapshot()
	s.RaceTime = d.raceTime
	return s
}

// GetFinishOrder returns the ids of finished racers, winner first.
func (d *Director) GetFinishOrder() []core.RacerID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registry.FinishOrder()
}

// GetDramaticEvents returns the event log in insertion order.
func (d *Director) GetDramaticEvents() []core.RaceEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.drama.Events()
}

// GetAllRacerStates returns every racer sorted by position.
func (d *Director) GetAllRacerStates() []core.RacerState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registry.All()
}

// GetRacerState returns a copy of the racer; ok is false for unknown ids.
func (d *Director) GetRacerState(id core.RacerID) (core.RacerState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registry.Get(id)
}

// GetPlayerState returns the player racer, if one is registered.
func (d *Director) GetPlayerState() (core.RacerState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registry.Player()
}

// GetLeaderState returns the racing racer in position 1.
func (d *Director) GetLeaderState() (core.RacerState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registry.Leader()
}

// GetCurrentPhase returns the race phase.
func (d *Director) GetCurrentPhase() core.RacePhase {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phase.Phase()
}

// GetTensionLevel returns the discrete tension level.
func (d *Director) GetTensionLevel() core.TensionLevel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tension.Level()
}

// GetTensionScore returns the tension score in [0,1].
func (d *Director) GetTensionScore() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tension.Score()
}

// GetLeadChanges returns the number of lead changes this race.
func (d *Director) GetLeadChanges() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.drama.LeadChanges()
}

// GetSpeedModifier returns the racer's speed multiplier; 1.0 for unknown ids.
func (d *Director) GetSpeedModifier(id core.RacerID) float64 {
	r, ok := d.GetRacerState(id)
	if !ok {
		return 1
	}
	return r.SpeedModifier
}

// GetHandlingModifier returns the racer's handling multiplier; 1.0 for unknown ids.
func (d *Director) GetHandlingModifier(id core.RacerID) float64 {
	r, ok := d.GetRacerState(id)
	if !ok {
		return 1
	}
	return r.HandlingModifier
}

// GetNitroRechargeModifier returns the racer's nitro recharge multiplier;
// 1.0 for unknown ids.
func (d *Director) GetNitroRechargeModifier(id core.RacerID) float64 {
	r, ok := d.GetRacerState(id)
	if !ok {
		return 1
	}
	return r.NitroRechargeModifier
}

// GetRecommendedBehavior returns the racer's behavior; Normal for unknown ids.
func (d *Director) GetRecommendedBehavior(id core.RacerID) core.BehaviorState {
	r, ok := d.GetRacerState(id)
	if !ok {
		return core.BehaviorNormal
	}
	return r.Behavior
}
