package director

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/midnightgrind/racedirector/internal/behavior"
	"github.com/midnightgrind/racedirector/internal/drama"
	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/internal/phase"
	"github.com/midnightgrind/racedirector/internal/rubberband"
	"github.com/midnightgrind/racedirector/internal/tension"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// Update advances the race by dt seconds. It is a no-op while no race is
// running or when dt is negative or not finite.
func (d *Director) Update(dt float64) {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}

	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	msgs := d.tick(dt)
	d.mu.Unlock()

	d.publish(msgs)
}

func (d *Director) tick(dt float64) []events.Message {
	var msgs []events.Message
	d.raceTime += dt

	racing := d.registry.Racing()

	// gaps
	d.gaps = gap.Compute(racing, d.raceLength())
	for _, g := range d.gaps.Racers {
		d.registry.Mutate(g.ID, func(r *core.RacerState) {
			r.DistanceToLeader = g.ToLeader
			r.DistanceToAhead = orZero(g.ToAhead)
			r.DistanceToBehind = orZero(g.ToBehind)
		})
	}

	// leader tracking
	leaderID := core.InvalidRacerID
	if l, ok := d.registry.Leader(); ok {
		leaderID = l.ID
	}
	leadChanges := 0
	if lc, ok := d.drama.TrackLeader(leaderID); ok {
		leadChanges = 1
		d.stats.LeadChange()
		msgs = append(msgs, events.LeadChange{
			RaceTime: d.raceTime,
			Previous: lc.Previous,
			Current:  lc.Current,
			Total:    d.drama.LeadChanges(),
		})
		d.log.Info("lead change", "previous", lc.Previous, "current", lc.Current, "total", d.drama.LeadChanges())
	}

	// phase
	d.progress = d.overallProgress(racing)
	pin := phase.Input{
		RaceTime:  d.raceTime,
		Progress:  d.progress,
		TotalLaps: d.totalLaps,
		TopTwoGap: d.gaps.LeaderMargin,
	}
	if len(racing) > 0 {
		pin.LeaderProgress = racing[0].Progress
		pin.LeaderLap = racing[0].Lap
	}
	fromPhase := d.phase.Phase()
	if d.phase.Advance(pin, d.pacing, d.dramaCfg) {
		msgs = append(msgs, events.PhaseChanged{RaceTime: d.raceTime, From: fromPhase, To: d.phase.Phase()})
		d.log.Info("phase changed", "from", fromPhase.String(), "to", d.phase.Phase().String())
	}
	currentPhase := d.phase.Phase()

	// tension
	tin := tension.Input{
		AverageGap:  d.gaps.AverageGap,
		ClosestGap:  d.gaps.ClosestGap,
		HasGaps:     d.gaps.HasGaps(),
		LeadChanges: leadChanges,
		Phase:       currentPhase,
	}
	fromLevel := d.tension.Level()
	if d.tension.Update(dt, tin, d.dramaCfg, d.pacing) {
		msgs = append(msgs, events.TensionChanged{
			RaceTime: d.raceTime, From: fromLevel, To: d.tension.Level(), Score: d.tension.Score(),
		})
		d.log.Debug("tension changed", "from", fromLevel.String(), "to", d.tension.Level().String(), "score", d.tension.Score())
	}

	// rubber band
	mods := d.rubber.Update(dt, d.rubberInput(racing, leaderID))
	for _, m := range mods {
		d.setModifiers(m)
		if m.Applied() {
			msgs = append(msgs, events.RubberBandApplied{
				RaceTime:   d.raceTime,
				Racer:      m.ID,
				Speed:      m.Speed,
				Handling:   m.Handling,
				Nitro:      m.Nitro,
				Adjustment: m.Adjustment,
			})
		}
	}

	// behavior
	for i, r := range racing {
		b := d.behavior.Classify(dt, behavior.Input{
			Racer:      r,
			Gaps:       d.gaps.Racers[i],
			Adjustment: mods[i].Adjustment,
			Style:      d.style,
			Proximity:  d.difficulty.BattleProximity,
		})
		d.registry.Mutate(r.ID, func(s *core.RacerState) { s.Behavior = b })
	}

	// drama
	ev, ok := d.drama.Evaluate(drama.Input{
		Now:         d.raceTime,
		Phase:       currentPhase,
		Racers:      racing,
		Gaps:        d.gaps,
		Progress:    d.progress,
		IsCloseRace: tension.IsCloseRace(tin, d.dramaCfg),
		Config:      d.dramaCfg,
		Pacing:      d.pacing,
	})
	if ok {
		d.stats.DramaticMoment()
		msgs = append(msgs, events.DramaticMoment{Event: ev})
		d.log.Info("dramatic moment", "moment", ev.Moment.String(), "event", ev.ID, "description", ev.Description)
	}

	// statistics
	if currentPhase > core.PhaseStart && d.gaps.HasGaps() {
		d.stats.Gap(d.gaps.ClosestGap)
	}
	for _, r := range racing {
		d.stats.Speed(r.Speed)
	}

	d.refreshStateLocked()
	d.syncContext()

	if d.registry.Len() > 0 && len(d.registry.Racing()) == 0 {
		d.log.Info("every racer has finished or retired")
		msgs = append(msgs, d.endLocked()...)
	}
	return msgs
}

func (d *Director) rubberInput(racing []core.RacerState, leaderID core.RacerID) rubberband.Input {
	field := rubberband.Field{Leader: leaderID}
	if p, ok := d.registry.Player(); ok && p.Racing() {
		field.Player = p.ID
	}
	return rubberband.Input{
		Racers:  racing,
		Gaps:    d.gaps,
		Field:   field,
		Style:   d.style,
		Tension: d.tension.Level(),
		Config:  d.rubberBand,
	}
}

func (d *Director) setModifiers(m rubberband.Modifier) {
	d.registry.Mutate(m.ID, func(r *core.RacerState) {
		r.SpeedModifier = m.Speed
		r.HandlingModifier = m.Handling
		r.NitroRechargeModifier = m.Nitro
		r.Adjustment = m.Adjustment
	})
}

// regateLocked re-derives every racing racer's modifiers from the stored band
// strengths after a style or rubber-band change. Styles that do not
// intervene drop the band state as well.
func (d *Director) regateLocked() {
	if !d.style.Intervenes() {
		d.rubber.Reset()
	}
	racing := d.registry.Racing()
	leaderID := core.InvalidRacerID
	if l, ok := d.registry.Leader(); ok {
		leaderID = l.ID
	}
	for _, m := range d.rubber.Modifiers(d.rubberInput(racing, leaderID)) {
		d.setModifiers(m)
	}
}

// overallProgress aggregates race progress per the pacing config. With no
// racer left on track the last value is kept.
func (d *Director) overallProgress(racing []core.RacerState) float64 {
	if len(racing) == 0 {
		return d.progress
	}
	if d.pacing.Aggregate == core.AggregateFieldMean {
		p := make([]float64, len(racing))
		for i, r := range racing {
			p[i] = r.Progress
		}
		return stat.Mean(p, nil)
	}
	return racing[0].Progress
}

// refreshStateLocked recomputes the published director state.
func (d *Director) refreshStateLocked() {
	tin := tension.Input{
		AverageGap: d.gaps.AverageGap,
		ClosestGap: d.gaps.ClosestGap,
		HasGaps:    d.gaps.HasGaps(),
		Phase:      d.phase.Phase(),
	}
	d.state = core.DirectorState{
		Phase:               d.phase.Phase(),
		TensionLevel:        d.tension.Level(),
		TensionScore:        d.tension.Score(),
		CurrentMoment:       d.drama.Current(),
		LeadChanges:         d.drama.LeadChanges(),
		AverageGap:          d.gaps.AverageGap,
		ClosestGap:          d.gaps.ClosestGap,
		RaceProgress:        d.progress,
		RaceTime:            d.raceTime,
		PlayerPerformance:   d.playerPerformance(),
		LeaderID:            d.drama.Leader(),
		IsCloseRace:         tension.IsCloseRace(tin, d.dramaCfg),
		PhotoFinishPossible: tension.PhotoFinishPossible(tin, d.dramaCfg),
	}
}

// playerPerformance maps the player's position to [0,1], 1 being the lead.
func (d *Director) playerPerformance() float64 {
	p, ok := d.registry.Player()
	if !ok {
		return 0
	}
	n := d.registry.Len()
	if n <= 1 {
		return 1
	}
	return clamp01(1 - float64(p.Position-1)/float64(n-1))
}

func orZero(v float64) float64 {
	if v == gap.None {
		return 0
	}
	return v
}
