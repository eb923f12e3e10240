// Package rubberband computes per-racer catch-up and slow-down modifiers.
package rubberband

import (
	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/pkg/core"
)

const (
	// ArcadeAmplification scales strengths under StyleArcade.
	ArcadeAmplification = 1.5
	// DramaticAmplification scales strengths under StyleDramatic once
	// tension is at least TensionIntense.
	DramaticAmplification = 1.25

	epsilon = 1e-9
)

// Input is everything the controller needs for one tick.
type Input struct {
	// Racers are the racing racers sorted by position.
	Racers  []core.RacerState
	Gaps    gap.Result
	Field   Field
	Style   core.DirectorStyle
	Tension core.TensionLevel
	Config  core.RubberBandConfig
}

// Modifier is the outcome for one racer.
type Modifier struct {
	ID         core.RacerID
	Speed      float64
	Handling   float64
	Nitro      float64
	Boost      float64
	Reduction  float64
	Adjustment core.PositionAdjustment
}

// Neutral returns the no-intervention modifier for id.
func Neutral(id core.RacerID) Modifier {
	return Modifier{ID: id, Speed: 1, Handling: 1, Nitro: 1}
}

// Applied reports whether any modifier differs from 1.0.
func (m Modifier) Applied() bool {
	return m.Speed != 1 || m.Handling != 1 || m.Nitro != 1
}

// band is the per-racer strength memory used for the cooldown.
type band struct {
	boost, reduction         float64
	boostPeak, reductionPeak float64
}

// Controller keeps band state between ticks.
type Controller struct {
	policy TargetPolicy
	bands  map[core.RacerID]*band
}

// New returns a controller using policy; nil selects PlayerFocused.
func New(policy TargetPolicy) *Controller {
	if policy == nil {
		policy = PlayerFocused{}
	}
	return &Controller{
		policy: policy,
		bands:  make(map[core.RacerID]*band),
	}
}

// SetPolicy swaps the target policy; nil selects PlayerFocused.
func (c *Controller) SetPolicy(policy TargetPolicy) {
	if policy == nil {
		policy = PlayerFocused{}
	}
	c.policy = policy
}

// Reset drops all band state.
func (c *Controller) Reset() {
	c.bands = make(map[core.RacerID]*band)
}

// Forget drops the band state of one racer.
func (c *Controller) Forget(id core.RacerID) {
	delete(c.bands, id)
}

// Update advances every band by dt and returns one modifier per input racer,
// in input order.
func (c *Controller) Update(dt float64, in Input) []Modifier {
	if !in.Style.Intervenes() {
		c.Reset()
		return c.Modifiers(in)
	}
	for _, r := range in.Racers {
		c.step(dt, c.bandFor(r.ID), r, in)
	}
	return c.Modifiers(in)
}

// Modifiers derives one modifier per input racer from the current band
// state without advancing it. Style gating and the bounds of in.Config
// apply, so it re-gates stored strengths after a configuration change.
func (c *Controller) Modifiers(in Input) []Modifier {
	out := make([]Modifier, len(in.Racers))
	if !in.Style.Intervenes() {
		for i, r := range in.Racers {
			out[i] = Neutral(r.ID)
		}
		return out
	}

	cfg := in.Config
	styleFactor := 1.0
	switch in.Style {
	case core.StyleArcade:
		styleFactor = ArcadeAmplification
	case core.StyleDramatic:
		if in.Tension >= core.TensionIntense {
			styleFactor = DramaticAmplification
		}
	}
	level := cfg.Level.Multiplier()

	for i, r := range in.Racers {
		b, ok := c.bands[r.ID]
		if !ok || (r.IsPlayer && !cfg.AffectsPlayer) || (!r.IsPlayer && !cfg.AffectsAI) {
			out[i] = Neutral(r.ID)
			continue
		}

		factor := level * styleFactor
		if cfg.ScaleWithPosition && len(in.Racers) > 1 {
			factor *= 0.5 + 0.5*float64(i)/float64(len(in.Racers)-1)
		}
		out[i] = modifier(r.ID, b.boost*factor, b.reduction*factor, cfg)
	}
	return out
}

// step moves the raw strengths of one band towards this tick's target.
func (c *Controller) step(dt float64, b *band, r core.RacerState, in Input) {
	cfg := in.Config

	delta, ok := c.delta(r, in)
	switch {
	case ok && delta > cfg.ActivationDistance:
		b.boost = ramp(delta, r.Speed, cfg) * cfg.MaxSpeedBoost
		b.boostPeak = b.boost
		decay(dt, &b.reduction, b.reductionPeak, cfg.CooldownTime)
	case ok && -delta > cfg.ActivationDistance:
		b.reduction = ramp(-delta, r.Speed, cfg) * cfg.MaxSpeedReduction
		b.reductionPeak = b.reduction
		decay(dt, &b.boost, b.boostPeak, cfg.CooldownTime)
	default:
		decay(dt, &b.boost, b.boostPeak, cfg.CooldownTime)
		decay(dt, &b.reduction, b.reductionPeak, cfg.CooldownTime)
	}
}

// delta is the target's distance minus the racer's; positive when behind.
func (c *Controller) delta(r core.RacerState, in Input) (float64, bool) {
	targetID, ok := c.policy.Target(r, in.Field)
	if !ok {
		return 0, false
	}
	target, ok := in.Gaps.Lookup(targetID)
	if !ok {
		return 0, false
	}
	self, ok := in.Gaps.Lookup(r.ID)
	if !ok {
		return 0, false
	}
	return target.Distance - self.Distance, true
}

func (c *Controller) bandFor(id core.RacerID) *band {
	b, ok := c.bands[id]
	if !ok {
		b = &band{}
		c.bands[id] = b
	}
	return b
}

// ramp maps the excess over the activation distance to [0,1].
func ramp(excess, speed float64, cfg core.RubberBandConfig) float64 {
	rampDist := cfg.RampUpTime * speed
	if rampDist < cfg.ActivationDistance {
		rampDist = cfg.ActivationDistance
	}
	if rampDist <= 0 {
		return 1
	}
	return clamp((excess-cfg.ActivationDistance)/rampDist, 0, 1)
}

// decay lowers v linearly from peak to zero over cooldown seconds.
func decay(dt float64, v *float64, peak, cooldown float64) {
	if *v <= 0 {
		*v = 0
		return
	}
	if cooldown <= 0 {
		*v = 0
		return
	}
	*v -= dt * peak / cooldown
	if *v < epsilon {
		*v = 0
	}
}

func modifier(id core.RacerID, boost, reduction float64, cfg core.RubberBandConfig) Modifier {
	boost = clamp(boost, 0, cfg.MaxSpeedBoost)
	reduction = clamp(reduction, 0, cfg.MaxSpeedReduction)

	m := Modifier{
		ID:        id,
		Speed:     clamp(1+boost-reduction, 1-cfg.MaxSpeedReduction, 1+cfg.MaxSpeedBoost),
		Handling:  1,
		Nitro:     1,
		Boost:     boost,
		Reduction: reduction,
	}
	if cfg.MaxSpeedBoost > 0 {
		frac := boost / cfg.MaxSpeedBoost
		m.Handling = 1 + frac*cfg.HandlingBoost
		m.Nitro = 1 + frac*cfg.NitrousRechargeBonus
	}
	switch {
	case boost > reduction:
		m.Adjustment = core.AdjustmentSpeedBoost
	case reduction > boost:
		m.Adjustment = core.AdjustmentSpeedReduction
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
