// pkg/core/config.go
package core

import "math"

// RubberBandConfig tunes the catch-up / slow-down mechanics.
// Boost, reduction, handling and nitro values are fractions relative to 1.0.
type RubberBandConfig struct {
	Level                RubberBandLevel `json:"level" mapstructure:"level"`
	MaxSpeedBoost        float64         `json:"maxSpeedBoost" mapstructure:"maxSpeedBoost"`
	MaxSpeedReduction    float64         `json:"maxSpeedReduction" mapstructure:"maxSpeedReduction"`
	ActivationDistance   float64         `json:"activationDistance" mapstructure:"activationDistance"`
	CooldownTime         float64         `json:"cooldownTime" mapstructure:"cooldownTime"`
	RampUpTime           float64         `json:"rampUpTime" mapstructure:"rampUpTime"`
	HandlingBoost        float64         `json:"handlingBoost" mapstructure:"handlingBoost"`
	NitrousRechargeBonus float64         `json:"nitrousRechargeBonus" mapstructure:"nitrousRechargeBonus"`
	AffectsPlayer        bool            `json:"affectsPlayer" mapstructure:"affectsPlayer"`
	AffectsAI            bool            `json:"affectsAI" mapstructure:"affectsAI"`
	ScaleWithPosition    bool            `json:"scaleWithPosition" mapstructure:"scaleWithPosition"`
}

// DefaultRubberBandConfig returns the moderate rubber-band tuning.
func DefaultRubberBandConfig() RubberBandConfig {
	return RubberBandConfig{
		Level:                RubberBandModerate,
		MaxSpeedBoost:        0.10,
		MaxSpeedReduction:    0.05,
		ActivationDistance:   100,
		CooldownTime:         3,
		RampUpTime:           2,
		HandlingBoost:        0.05,
		NitrousRechargeBonus: 0.20,
		AffectsPlayer:        true,
		AffectsAI:            true,
		ScaleWithPosition:    true,
	}
}

// Clamp returns a copy with every numeric field inside its documented range.
func (c RubberBandConfig) Clamp() RubberBandConfig {
	if c.Level > RubberBandVeryStrong {
		c.Level = RubberBandVeryStrong
	}
	c.MaxSpeedBoost = clamp(c.MaxSpeedBoost, 0, 0.5)
	c.MaxSpeedReduction = clamp(c.MaxSpeedReduction, 0, 0.5)
	c.ActivationDistance = clamp(c.ActivationDistance, 0, math.MaxFloat32)
	c.CooldownTime = clamp(c.CooldownTime, 0, 60)
	c.RampUpTime = clamp(c.RampUpTime, 0, 60)
	c.HandlingBoost = clamp(c.HandlingBoost, 0, 0.5)
	c.NitrousRechargeBonus = clamp(c.NitrousRechargeBonus, 0, 1)
	return c
}

// DramaConfig tunes tension and dramatic moment detection.
// Gap thresholds use the same distance unit as the track length.
type DramaConfig struct {
	CloseRaceThreshold    float64 `json:"closeRaceThreshold" mapstructure:"closeRaceThreshold"`
	PhotoFinishWindow     float64 `json:"photoFinishWindow" mapstructure:"photoFinishWindow"`
	PhotoFinishTimeWindow float64 `json:"photoFinishTimeWindow" mapstructure:"photoFinishTimeWindow"`
	ComebackThreshold     int     `json:"comebackThreshold" mapstructure:"comebackThreshold"`
	ComebackWindow        float64 `json:"comebackWindow" mapstructure:"comebackWindow"`
	CloseRaceSustain      float64 `json:"closeRaceSustain" mapstructure:"closeRaceSustain"`
	DominanceFactor       float64 `json:"dominanceFactor" mapstructure:"dominanceFactor"`
	UnderdogSkill         float64 `json:"underdogSkill" mapstructure:"underdogSkill"`
	LeadChangeWeight      float64 `json:"leadChangeWeight" mapstructure:"leadChangeWeight"`
	TensionBuildupRate    float64 `json:"tensionBuildupRate" mapstructure:"tensionBuildupRate"`
	TensionBaseline       float64 `json:"tensionBaseline" mapstructure:"tensionBaseline"`
	MinDramaCooldown      float64 `json:"minDramaCooldown" mapstructure:"minDramaCooldown"`

	EnableDramaticMoments   bool `json:"enableDramaticMoments" mapstructure:"enableDramaticMoments"`
	EnableRivalrySystem     bool `json:"enableRivalrySystem" mapstructure:"enableRivalrySystem"`
	EnableUnderdogBonus     bool `json:"enableUnderdogBonus" mapstructure:"enableUnderdogBonus"`
	EnableNearMissMoments   bool `json:"enableNearMissMoments" mapstructure:"enableNearMissMoments"`
	EnablePerfectLapMoments bool `json:"enablePerfectLapMoments" mapstructure:"enablePerfectLapMoments"`
}

// DefaultDramaConfig returns the stock drama tuning.
func DefaultDramaConfig() DramaConfig {
	return DramaConfig{
		CloseRaceThreshold:      30,
		PhotoFinishWindow:       10,
		PhotoFinishTimeWindow:   0.5,
		ComebackThreshold:       5,
		ComebackWindow:          15,
		CloseRaceSustain:        3,
		DominanceFactor:         3,
		UnderdogSkill:           0.4,
		LeadChangeWeight:        1.5,
		TensionBuildupRate:      0.1,
		TensionBaseline:         0,
		MinDramaCooldown:        10,
		EnableDramaticMoments:   true,
		EnableRivalrySystem:     true,
		EnableUnderdogBonus:     true,
		EnableNearMissMoments:   true,
		EnablePerfectLapMoments: true,
	}
}

// Clamp returns a copy with every numeric field inside its documented range.
func (c DramaConfig) Clamp() DramaConfig {
	c.CloseRaceThreshold = clamp(c.CloseRaceThreshold, 0, math.MaxFloat32)
	c.PhotoFinishWindow = clamp(c.PhotoFinishWindow, 0, math.MaxFloat32)
	c.PhotoFinishTimeWindow = clamp(c.PhotoFinishTimeWindow, 0, 10)
	if c.ComebackThreshold < 1 {
		c.ComebackThreshold = 1
	}
	c.ComebackWindow = clamp(c.ComebackWindow, 0, 600)
	c.CloseRaceSustain = clamp(c.CloseRaceSustain, 0, 600)
	c.DominanceFactor = clamp(c.DominanceFactor, 1, 100)
	c.UnderdogSkill = clamp01(c.UnderdogSkill)
	c.LeadChangeWeight = clamp(c.LeadChangeWeight, 0, 10)
	c.TensionBuildupRate = clamp(c.TensionBuildupRate, 0, 10)
	c.TensionBaseline = clamp01(c.TensionBaseline)
	c.MinDramaCooldown = clamp(c.MinDramaCooldown, 0, 600)
	return c
}

// ProgressAggregate selects how overall race progress is derived.
type ProgressAggregate uint8

const (
	// AggregateLeader uses the leader's reported progress.
	AggregateLeader ProgressAggregate = iota
	// AggregateFieldMean averages the progress of every racing racer.
	AggregateFieldMean
)

// PacingConfig tunes phase boundaries. Percent fields are fractions of the race.
type PacingConfig struct {
	EarlyRacePercent  float64           `json:"earlyRacePercent" mapstructure:"earlyRacePercent"`
	MidRacePercent    float64           `json:"midRacePercent" mapstructure:"midRacePercent"`
	LateRacePercent   float64           `json:"lateRacePercent" mapstructure:"lateRacePercent"`
	FinishZonePercent float64           `json:"finishZonePercent" mapstructure:"finishZonePercent"`
	FinalLapIntensity float64           `json:"finalLapIntensity" mapstructure:"finalLapIntensity"`
	StartChaosWindow  float64           `json:"startChaosWindow" mapstructure:"startChaosWindow"`
	Aggregate         ProgressAggregate `json:"aggregate" mapstructure:"aggregate"`
}

// DefaultPacingConfig returns the stock pacing tuning.
func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		EarlyRacePercent:  0.25,
		MidRacePercent:    0.50,
		LateRacePercent:   0.75,
		FinishZonePercent: 0.90,
		FinalLapIntensity: 1.3,
		StartChaosWindow:  10,
		Aggregate:         AggregateLeader,
	}
}

// Clamp returns a copy with percent fields in [0,1] and in ascending order.
func (c PacingConfig) Clamp() PacingConfig {
	c.EarlyRacePercent = clamp01(c.EarlyRacePercent)
	c.MidRacePercent = clamp(c.MidRacePercent, c.EarlyRacePercent, 1)
	c.LateRacePercent = clamp(c.LateRacePercent, c.MidRacePercent, 1)
	c.FinishZonePercent = clamp(c.FinishZonePercent, c.LateRacePercent, 1)
	c.FinalLapIntensity = clamp(c.FinalLapIntensity, 1, 3)
	c.StartChaosWindow = clamp(c.StartChaosWindow, 0, 120)
	if c.Aggregate > AggregateFieldMean {
		c.Aggregate = AggregateLeader
	}
	return c
}

// AIDifficultyConfig describes how capable AI racers are.
type AIDifficultyConfig struct {
	Name                 string          `json:"name" mapstructure:"name"`
	SpeedMultiplier      float64         `json:"speedMultiplier" mapstructure:"speedMultiplier"`
	ReactionTime         float64         `json:"reactionTime" mapstructure:"reactionTime"`
	MistakeFrequency     float64         `json:"mistakeFrequency" mapstructure:"mistakeFrequency"`
	AggressionBase       float64         `json:"aggressionBase" mapstructure:"aggressionBase"`
	RacingLineOptimality float64         `json:"racingLineOptimality" mapstructure:"racingLineOptimality"`
	NitroUsageEfficiency float64         `json:"nitroUsageEfficiency" mapstructure:"nitroUsageEfficiency"`
	DriftProficiency     float64         `json:"driftProficiency" mapstructure:"driftProficiency"`
	TrafficAvoidance     float64         `json:"trafficAvoidance" mapstructure:"trafficAvoidance"`
	RecoverySpeed        float64         `json:"recoverySpeed" mapstructure:"recoverySpeed"`
	RubberBandLevel      RubberBandLevel `json:"rubberBandLevel" mapstructure:"rubberBandLevel"`
	BattleProximity      float64         `json:"battleProximity" mapstructure:"battleProximity"`
}

// DefaultAIDifficulty returns the "Normal" difficulty.
func DefaultAIDifficulty() AIDifficultyConfig {
	return AIDifficultyConfig{
		Name:                 "Normal",
		SpeedMultiplier:      0.95,
		ReactionTime:         0.35,
		MistakeFrequency:     0.1,
		AggressionBase:       0.5,
		RacingLineOptimality: 0.75,
		NitroUsageEfficiency: 0.7,
		DriftProficiency:     0.7,
		TrafficAvoidance:     0.75,
		RecoverySpeed:        0.75,
		RubberBandLevel:      RubberBandModerate,
		BattleProximity:      25,
	}
}

// Clamp returns a copy with every numeric field inside its documented range.
func (c AIDifficultyConfig) Clamp() AIDifficultyConfig {
	c.SpeedMultiplier = clamp(c.SpeedMultiplier, 0.5, 1.5)
	c.ReactionTime = clamp(c.ReactionTime, 0, 2)
	c.MistakeFrequency = clamp01(c.MistakeFrequency)
	c.AggressionBase = clamp01(c.AggressionBase)
	c.RacingLineOptimality = clamp01(c.RacingLineOptimality)
	c.NitroUsageEfficiency = clamp01(c.NitroUsageEfficiency)
	c.DriftProficiency = clamp01(c.DriftProficiency)
	c.TrafficAvoidance = clamp01(c.TrafficAvoidance)
	c.RecoverySpeed = clamp01(c.RecoverySpeed)
	if c.RubberBandLevel > RubberBandVeryStrong {
		c.RubberBandLevel = RubberBandVeryStrong
	}
	c.BattleProximity = clamp(c.BattleProximity, 0, math.MaxFloat32)
	return c
}

// DefaultDifficultyPresets returns the built-in preset table, easiest first.
func DefaultDifficultyPresets() []AIDifficultyConfig {
	return []AIDifficultyConfig{
		{Name: "Easy", SpeedMultiplier: 0.85, ReactionTime: 0.5, MistakeFrequency: 0.2, AggressionBase: 0.3,
			RacingLineOptimality: 0.6, NitroUsageEfficiency: 0.5, DriftProficiency: 0.5, TrafficAvoidance: 0.6,
			RecoverySpeed: 0.6, RubberBandLevel: RubberBandVeryStrong, BattleProximity: 25},
		DefaultAIDifficulty(),
		{Name: "Hard", SpeedMultiplier: 1.0, ReactionTime: 0.25, MistakeFrequency: 0.05, AggressionBase: 0.65,
			RacingLineOptimality: 0.85, NitroUsageEfficiency: 0.85, DriftProficiency: 0.85, TrafficAvoidance: 0.85,
			RecoverySpeed: 0.85, RubberBandLevel: RubberBandLight, BattleProximity: 25},
		{Name: "Expert", SpeedMultiplier: 1.05, ReactionTime: 0.15, MistakeFrequency: 0.02, AggressionBase: 0.75,
			RacingLineOptimality: 0.95, NitroUsageEfficiency: 0.95, DriftProficiency: 0.95, TrafficAvoidance: 0.95,
			RecoverySpeed: 0.95, RubberBandLevel: RubberBandVeryLight, BattleProximity: 25},
		{Name: "Legendary", SpeedMultiplier: 1.1, ReactionTime: 0.1, MistakeFrequency: 0, AggressionBase: 0.85,
			RacingLineOptimality: 1.0, NitroUsageEfficiency: 1.0, DriftProficiency: 1.0, TrafficAvoidance: 1.0,
			RecoverySpeed: 1.0, RubberBandLevel: RubberBandNone, BattleProximity: 25},
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
