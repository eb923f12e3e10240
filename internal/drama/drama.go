// Package drama detects narratively significant moments during a race.
//
// The detector keeps the race's event log. Moments found while scanning the
// race state are rate limited by DramaConfig.MinDramaCooldown; events reported
// from outside (takedowns, near misses, perfect laps) are logged immediately
// and may seed a moment for the next scan.
package drama

import (
	"fmt"

	"github.com/midnightgrind/racedirector/internal/gap"
	"github.com/midnightgrind/racedirector/pkg/core"
)

var intensity = map[core.DramaticMoment]float64{
	core.MomentPhotoFinish:    1.0,
	core.MomentComeback:       0.8,
	core.MomentLeadChange:     0.7,
	core.MomentUnderdog:       0.7,
	core.MomentCloseRace:      0.6,
	core.MomentRivalry:        0.6,
	core.MomentWreckAvoidance: 0.5,
	core.MomentPerfectLap:     0.5,
	core.MomentTakedown:       0.6,
	core.MomentDominance:      0.4,
}

// Input is the race state scanned by Evaluate.
type Input struct {
	Now   float64
	Phase core.RacePhase
	// Racers are the racing racers sorted by position.
	Racers      []core.RacerState
	Gaps        gap.Result
	Progress    float64
	IsCloseRace bool
	Config      core.DramaConfig
	Pacing      core.PacingConfig
}

// LeadChange describes a change of leader between two ticks.
type LeadChange struct {
	Previous core.RacerID
	Current  core.RacerID
}

type candidate struct {
	moment      core.DramaticMoment
	primary     core.RacerID
	secondary   core.RacerID
	lap         int
	description string
}

type sample struct {
	at       float64
	position int
}

// Detector tracks the leader, scans for moments and owns the event log.
type Detector struct {
	nextID uint64
	events []core.RaceEvent

	leader      core.RacerID
	leadChanges int
	change      *LeadChange

	fired     bool
	lastDrama float64
	current   core.DramaticMoment
	moments   int

	closeActive bool
	closeSince  float64

	history map[core.RacerID][]sample
	seeds   []candidate
}

// New returns an empty detector.
func New() *Detector {
	return &Detector{history: make(map[core.RacerID][]sample)}
}

// Reset clears the log, counters and timers.
func (d *Detector) Reset() {
	*d = Detector{history: make(map[core.RacerID][]sample)}
}

// SeedLeader sets the leader a later change is compared against.
func (d *Detector) SeedLeader(id core.RacerID) {
	d.leader = id
}

// Leader returns the last tracked leader.
func (d *Detector) Leader() core.RacerID {
	return d.leader
}

// LeadChanges returns the number of lead changes observed.
func (d *Detector) LeadChanges() int {
	return d.leadChanges
}

// Moments returns the number of moments fired by Evaluate.
func (d *Detector) Moments() int {
	return d.moments
}

// Current returns the moment currently in effect.
func (d *Detector) Current() core.DramaticMoment {
	return d.current
}

// Events returns a copy of the event log.
func (d *Detector) Events() []core.RaceEvent {
	out := make([]core.RaceEvent, len(d.events))
	copy(out, d.events)
	return out
}

// TrackLeader compares id with the previous leader. A change is counted only
// when both are known and differ. An unknown id keeps the previous leader.
func (d *Detector) TrackLeader(id core.RacerID) (LeadChange, bool) {
	d.change = nil
	if id == core.InvalidRacerID {
		return LeadChange{}, false
	}
	prev := d.leader
	d.leader = id
	if prev == core.InvalidRacerID || prev == id {
		return LeadChange{}, false
	}
	d.leadChanges++
	d.change = &LeadChange{Previous: prev, Current: id}
	return *d.change, true
}

// Forget drops per-racer history for id.
func (d *Detector) Forget(id core.RacerID) {
	delete(d.history, id)
}

// Evaluate scans the race and fires at most one moment.
func (d *Detector) Evaluate(in Input) (core.RaceEvent, bool) {
	cfg := in.Config
	defer func() {
		d.seeds = d.seeds[:0]
		d.change = nil
	}()

	d.record(in)

	if in.IsCloseRace {
		if !d.closeActive {
			d.closeActive = true
			d.closeSince = in.Now
		}
	} else {
		d.closeActive = false
	}

	cooling := d.fired && in.Now-d.lastDrama < cfg.MinDramaCooldown
	if !cooling {
		d.current = core.MomentNone
	}
	if !cfg.EnableDramaticMoments || cooling {
		return core.RaceEvent{}, false
	}

	c, ok := d.pick(in)
	if !ok {
		return core.RaceEvent{}, false
	}

	switch c.moment {
	case core.MomentComeback:
		delete(d.history, c.primary)
	case core.MomentCloseRace:
		d.closeSince = in.Now
	}

	d.fired = true
	d.lastDrama = in.Now
	d.current = c.moment
	d.moments++
	return d.append(in.Now, c), true
}

// pick returns the highest priority candidate.
func (d *Detector) pick(in Input) (candidate, bool) {
	cfg := in.Config
	var first, second core.RacerState
	if len(in.Racers) > 0 {
		first = in.Racers[0]
	}
	if len(in.Racers) > 1 {
		second = in.Racers[1]
	}

	if in.Phase == core.PhasePhotoFinish && in.Gaps.HasGaps() && in.Gaps.LeaderMargin < cfg.PhotoFinishWindow {
		return candidate{
			moment: core.MomentPhotoFinish, primary: first.ID, secondary: second.ID, lap: first.Lap,
			description: fmt.Sprintf("%s and %s are side by side at the line", first.Name, second.Name),
		}, true
	}
	if c, ok := d.seeded(core.MomentPhotoFinish); ok {
		return c, true
	}

	if c, ok := d.comeback(in); ok {
		return c, true
	}

	if d.change != nil {
		r := byID(in.Racers, d.change.Current)
		return candidate{
			moment: core.MomentLeadChange, primary: d.change.Current, secondary: d.change.Previous, lap: r.Lap,
			description: fmt.Sprintf("%s takes the lead", r.Name),
		}, true
	}

	if d.closeActive && in.Now-d.closeSince >= cfg.CloseRaceSustain && len(in.Racers) > 1 {
		return candidate{
			moment: core.MomentCloseRace, primary: first.ID, secondary: second.ID, lap: first.Lap,
			description: "the field is running nose to tail",
		}, true
	}

	if in.Progress >= in.Pacing.MidRacePercent && in.Gaps.Consecutive >= 2 && in.Gaps.AverageGap > 0 &&
		first.Position == 1 && in.Gaps.LeaderMargin > cfg.DominanceFactor*in.Gaps.AverageGap {
		return candidate{
			moment: core.MomentDominance, primary: first.ID, secondary: second.ID, lap: first.Lap,
			description: fmt.Sprintf("%s is pulling away", first.Name),
		}, true
	}

	if cfg.EnableUnderdogBonus && in.Phase >= core.PhaseLateRace && in.Phase < core.PhaseFinished &&
		len(in.Racers) > 1 && first.Position == 1 && first.SkillRating <= cfg.UnderdogSkill {
		return candidate{
			moment: core.MomentUnderdog, primary: first.ID, secondary: second.ID, lap: first.Lap,
			description: fmt.Sprintf("underdog %s is leading late", first.Name),
		}, true
	}

	for _, m := range []core.DramaticMoment{core.MomentRivalry, core.MomentWreckAvoidance, core.MomentPerfectLap} {
		if c, ok := d.seeded(m); ok {
			return c, true
		}
	}
	return candidate{}, false
}

// comeback finds the racer with the largest gain inside the window.
func (d *Detector) comeback(in Input) (candidate, bool) {
	var best candidate
	bestGain := 0
	for _, r := range in.Racers {
		worst := r.Position
		for _, s := range d.history[r.ID] {
			if s.position > worst {
				worst = s.position
			}
		}
		gain := worst - r.Position
		if gain >= in.Config.ComebackThreshold && gain > bestGain {
			bestGain = gain
			best = candidate{
				moment: core.MomentComeback, primary: r.ID, lap: r.Lap,
				description: fmt.Sprintf("%s has climbed %d places", r.Name, gain),
			}
		}
	}
	return best, bestGain > 0
}

// record appends this tick's positions and trims samples outside the window.
func (d *Detector) record(in Input) {
	cutoff := in.Now - in.Config.ComebackWindow
	for _, r := range in.Racers {
		h := d.history[r.ID]
		i := 0
		for i < len(h) && h[i].at < cutoff {
			i++
		}
		h = append(h[i:], sample{at: in.Now, position: r.Position})
		d.history[r.ID] = h
	}
}

func (d *Detector) seeded(m core.DramaticMoment) (candidate, bool) {
	for _, c := range d.seeds {
		if c.moment == m {
			return c, true
		}
	}
	return candidate{}, false
}

func (d *Detector) seed(c candidate) {
	d.seeds = append(d.seeds, c)
}

func (d *Detector) append(now float64, c candidate) core.RaceEvent {
	d.nextID++
	ev := core.RaceEvent{
		ID:          d.nextID,
		Moment:      c.moment,
		Timestamp:   now,
		PrimaryID:   c.primary,
		SecondaryID: c.secondary,
		Lap:         c.lap,
		Intensity:   intensity[c.moment],
		Description: c.description,
	}
	d.events = append(d.events, ev)
	return ev
}

// RecordTakedown logs a takedown and seeds a rivalry when a rival is involved.
func (d *Detector) RecordTakedown(now float64, attacker, victim core.RacerState, cfg core.DramaConfig) core.RaceEvent {
	if cfg.EnableRivalrySystem && (attacker.Rival || victim.Rival) {
		d.seed(candidate{
			moment: core.MomentRivalry, primary: attacker.ID, secondary: victim.ID, lap: attacker.Lap,
			description: fmt.Sprintf("the rivalry between %s and %s boils over", attacker.Name, victim.Name),
		})
	}
	return d.append(now, candidate{
		moment: core.MomentTakedown, primary: attacker.ID, secondary: victim.ID, lap: attacker.Lap,
		description: fmt.Sprintf("%s takes down %s", attacker.Name, victim.Name),
	})
}

// RecordNearMiss logs a near miss and seeds a wreck avoidance moment.
func (d *Detector) RecordNearMiss(now float64, r core.RacerState, cfg core.DramaConfig) core.RaceEvent {
	c := candidate{
		moment: core.MomentWreckAvoidance, primary: r.ID, lap: r.Lap,
		description: fmt.Sprintf("%s narrowly avoids a wreck", r.Name),
	}
	if cfg.EnableNearMissMoments {
		d.seed(c)
	}
	return d.append(now, c)
}

// RecordPerfectLap logs a perfect lap and seeds a perfect lap moment.
func (d *Detector) RecordPerfectLap(now float64, r core.RacerState, lapTime float64, cfg core.DramaConfig) core.RaceEvent {
	c := candidate{
		moment: core.MomentPerfectLap, primary: r.ID, lap: r.Lap,
		description: fmt.Sprintf("%s sets a perfect lap of %.3fs", r.Name, lapTime),
	}
	if cfg.EnablePerfectLapMoments {
		d.seed(c)
	}
	return d.append(now, c)
}

// RecordFinish seeds a photo finish when r crossed the line within
// PhotoFinishTimeWindow of the previous finisher.
func (d *Detector) RecordFinish(r, previous core.RacerState, cfg core.DramaConfig) bool {
	if !previous.Finished || r.FinishTime-previous.FinishTime > cfg.PhotoFinishTimeWindow {
		return false
	}
	d.seed(candidate{
		moment: core.MomentPhotoFinish, primary: previous.ID, secondary: r.ID, lap: r.Lap,
		description: fmt.Sprintf("%s beats %s by %.3fs", previous.Name, r.Name, r.FinishTime-previous.FinishTime),
	})
	return true
}

func byID(racers []core.RacerState, id core.RacerID) core.RacerState {
	for _, r := range racers {
		if r.ID == id {
			return r
		}
	}
	return core.RacerState{ID: id}
}
