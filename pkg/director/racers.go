package director

import (
	"math"

	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/internal/tension"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// playerProfile is used for the human racer; AI racers derive theirs from
// the active difficulty.
var playerProfile = core.RacerProfile{SkillRating: 0.5, Aggression: 0.5, PerformanceRating: 1}

// RegisterRacer adds a racer to the field. It returns InvalidRacerID and
// ErrRegistrationFull when the field is full.
func (d *Director) RegisterRacer(name string, isPlayer bool, startPosition int) (core.RacerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	profile := playerProfile
	if !isPlayer {
		profile = core.RacerProfile{
			SkillRating:       d.difficulty.RacingLineOptimality,
			Aggression:        d.difficulty.AggressionBase,
			PerformanceRating: d.difficulty.SpeedMultiplier,
		}
	}

	id, err := d.registry.Register(name, isPlayer, startPosition, profile)
	if err != nil {
		d.log.Warn("racer registration rejected", "name", name, "error", err)
		return core.InvalidRacerID, err
	}
	d.stats.RacerRegistered()
	d.log.Debug("racer registered", "racer", id, "name", name, "player", isPlayer, "start", startPosition)
	return id, nil
}

// UnregisterRacer removes a racer and every bit of per-racer state.
func (d *Director) UnregisterRacer(id core.RacerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.registry.Unregister(id)
	if !ok {
		return
	}
	d.rubber.Forget(id)
	d.behavior.Forget(id)
	d.drama.Forget(id)
	d.stats.RacerUnregistered(r)
	d.log.Debug("racer unregistered", "racer", id, "name", r.Name)
}

// UpdateRacerState records the simulation's view of a racer. progress is the
// fraction of the whole race distance and is clamped to [0,1].
func (d *Director) UpdateRacerState(id core.RacerID, position int, speed, progress float64) {
	d.mu.Lock()
	old, ok := d.registry.UpdateState(id, position, speed, progress)
	if !ok || old == position || !d.active {
		d.mu.Unlock()
		return
	}
	d.stats.PositionChanges(1)
	msg := events.PositionChange{RaceTime: d.raceTime, Racer: id, From: old, To: position}
	d.mu.Unlock()

	d.publish([]events.Message{msg})
}

// SetRacerLap records the racer's current lap.
func (d *Director) SetRacerLap(id core.RacerID, lap int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.SetLap(id, lap)
}

// SetRacerFinished marks a racer as finished. A non-positive finishTime
// stamps the current race time. Only the first call per racer has effect.
func (d *Director) SetRacerFinished(id core.RacerID, finishTime float64) {
	d.mu.Lock()

	if !(finishTime > 0) || math.IsInf(finishTime, 0) {
		finishTime = d.raceTime
	}

	var previous core.RacerState
	if order := d.registry.FinishOrder(); len(order) > 0 {
		previous, _ = d.registry.Get(order[len(order)-1])
	}
	if !d.registry.SetFinished(id, finishTime) {
		d.mu.Unlock()
		return
	}
	d.neutralize(id)
	d.behavior.Forget(id)
	d.rubber.Forget(id)
	d.stats.RacerFinished()

	r, _ := d.registry.Get(id)
	if d.drama.RecordFinish(r, previous, d.dramaCfg) {
		d.log.Debug("photo finish seeded", "racer", id, "previous", previous.ID)
	}
	msg := events.RacerFinished{
		RaceTime:   d.raceTime,
		Racer:      id,
		Position:   len(d.registry.FinishOrder()),
		FinishTime: finishTime,
	}
	d.log.Info("racer finished", "racer", id, "name", r.Name, "position", msg.Position, "finish_time", finishTime)
	d.mu.Unlock()

	d.publish([]events.Message{msg})
}

// SetRacerWrecked retires a racer. Only the first call per racer has effect.
func (d *Director) SetRacerWrecked(id core.RacerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.registry.SetWrecked(id) {
		return
	}
	d.neutralize(id)
	d.behavior.Forget(id)
	d.rubber.Forget(id)
	d.stats.RacerWrecked()
	d.log.Info("racer wrecked", "racer", id)
}

// neutralize drops every modifier from a retired racer.
func (d *Director) neutralize(id core.RacerID) {
	d.registry.Mutate(id, func(r *core.RacerState) {
		r.SpeedModifier = 1
		r.HandlingModifier = 1
		r.NitroRechargeModifier = 1
		r.Behavior = core.BehaviorNormal
		r.Adjustment = core.AdjustmentNone
	})
}

// RequestMistake forces an AI racer into a mistake lasting in proportion to
// severity (0..1). The racer's behavior switches immediately.
func (d *Director) RequestMistake(id core.RacerID, severity float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.registry.Get(id)
	if !ok || !d.behavior.RequestMistake(r, severity) {
		return
	}
	if d.behavior.InMistake(id) && severity > 0 {
		d.registry.Mutate(id, func(r *core.RacerState) { r.Behavior = core.BehaviorMistake })
	}
	d.log.Debug("mistake requested", "racer", id, "severity", severity)
}

// SetRacerAggression sets the racer's aggression, clamped to [0,1].
func (d *Director) SetRacerAggression(id core.RacerID, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.Mutate(id, func(r *core.RacerState) { r.Aggression = clamp01(value) })
}

// SetRacerSkill sets the racer's skill rating, clamped to [0,1].
func (d *Director) SetRacerSkill(id core.RacerID, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.Mutate(id, func(r *core.RacerState) { r.SkillRating = clamp01(value) })
}

// DesignateRival flags or unflags a racer as a rival.
func (d *Director) DesignateRival(id core.RacerID, rival bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry.Mutate(id, func(r *core.RacerState) { r.Rival = rival })
}

// RecordTakedown logs attacker taking down victim.
func (d *Director) RecordTakedown(attacker, victim core.RacerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}
	a, ok := d.registry.Get(attacker)
	if !ok {
		return
	}
	v, ok := d.registry.Get(victim)
	if !ok {
		return
	}
	d.registry.Mutate(attacker, func(r *core.RacerState) { r.Takedowns++ })
	d.stats.Takedown()
	ev := d.drama.RecordTakedown(d.raceTime, a, v, d.dramaCfg)
	d.log.Debug("takedown", "event", ev.ID, "attacker", attacker, "victim", victim)
}

// RecordNearMiss logs a near miss and nudges the tension up.
func (d *Director) RecordNearMiss(id core.RacerID) {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	r, ok := d.registry.Get(id)
	if !ok {
		d.mu.Unlock()
		return
	}
	d.stats.NearMiss()
	ev := d.drama.RecordNearMiss(d.raceTime, r, d.dramaCfg)
	d.log.Debug("near miss", "event", ev.ID, "racer", id)

	var msgs []events.Message
	from := d.tension.Level()
	if d.tension.Bump(tension.NearMissBump) {
		msgs = append(msgs, events.TensionChanged{
			RaceTime: d.raceTime, From: from, To: d.tension.Level(), Score: d.tension.Score(),
		})
	}
	d.state.TensionLevel = d.tension.Level()
	d.state.TensionScore = d.tension.Score()
	d.mu.Unlock()

	d.publish(msgs)
}

// RecordPerfectLap logs a perfect lap. The lap time also counts towards the
// fastest and slowest lap statistics.
func (d *Director) RecordPerfectLap(id core.RacerID, lapTime float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}
	r, ok := d.registry.Get(id)
	if !ok {
		return
	}
	d.stats.Lap(lapTime)
	ev := d.drama.RecordPerfectLap(d.raceTime, r, lapTime, d.dramaCfg)
	d.log.Debug("perfect lap", "event", ev.ID, "racer", id, "lap_time", lapTime)
}

// RecordLapTime feeds a completed lap time into the lap statistics.
func (d *Director) RecordLapTime(id core.RacerID, lapTime float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}
	if _, ok := d.registry.Get(id); !ok {
		return
	}
	d.stats.Lap(lapTime)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
