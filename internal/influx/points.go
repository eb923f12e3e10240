package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/pkg/core"
)

// Race is the context stamped on every point of one race.
// Race time is placed on the wall clock relative to StartedAt.
type Race struct {
	ID        string
	StartedAt time.Time
}

func (r Race) at(raceTime float64) time.Time {
	return r.StartedAt.Add(time.Duration(raceTime * float64(time.Second)))
}

func (r Race) tags(extra map[string]string) map[string]string {
	tags := map[string]string{"race": r.ID}
	for k, v := range extra {
		tags[k] = v
	}
	return tags
}

// PointFor converts a director message to a point.
// It returns nil for messages that are not recorded as metrics.
func PointFor(race Race, msg events.Message) *influxdb2_write.Point {
	switch m := msg.(type) {
	case events.TensionChanged:
		return influxdb2_write.NewPoint("tension",
			race.tags(map[string]string{"level": m.To.String()}),
			map[string]any{"score": m.Score, "level_index": int(m.To)},
			race.at(m.RaceTime))

	case events.PhaseChanged:
		return influxdb2_write.NewPoint("phase",
			race.tags(map[string]string{"from": m.From.String(), "to": m.To.String()}),
			map[string]any{"phase_index": int(m.To)},
			race.at(m.RaceTime))

	case events.LeadChange:
		return influxdb2_write.NewPoint("lead_change",
			race.tags(map[string]string{"leader": racerTag(m.Current)}),
			map[string]any{"total": m.Total, "previous": racerTag(m.Previous)},
			race.at(m.RaceTime))

	case events.RubberBandApplied:
		return influxdb2_write.NewPoint("rubber_band",
			race.tags(map[string]string{"racer": racerTag(m.Racer), "adjustment": m.Adjustment.String()}),
			map[string]any{"speed": m.Speed, "handling": m.Handling, "nitro": m.Nitro},
			race.at(m.RaceTime))

	case events.DramaticMoment:
		return influxdb2_write.NewPoint("dramatic_moment",
			race.tags(map[string]string{"moment": m.Event.Moment.String()}),
			map[string]any{
				"intensity": m.Event.Intensity,
				"lap":       m.Event.Lap,
				"primary":   racerTag(m.Event.PrimaryID),
				"seq":       int64(m.Event.ID),
			},
			race.at(m.Event.Timestamp))

	case events.RacerFinished:
		return influxdb2_write.NewPoint("racer_finished",
			race.tags(map[string]string{"racer": racerTag(m.Racer)}),
			map[string]any{"position": m.Position, "finish_time": m.FinishTime},
			race.at(m.RaceTime))

	case events.RaceFinished:
		s := m.Result.Statistics
		return influxdb2_write.NewPoint("race_summary",
			race.tags(nil),
			map[string]any{
				"racers":           s.TotalRacers,
				"finished":         s.FinishedRacers,
				"wrecked":          s.WreckedRacers,
				"lead_changes":     s.TotalLeadChanges,
				"position_changes": s.TotalPositionChanges,
				"takedowns":        s.TotalTakedowns,
				"near_misses":      s.TotalNearMisses,
				"dramatic_moments": s.TotalDramaticMoments,
				"average_speed":    s.AverageSpeed,
				"winning_margin":   s.WinningMargin,
				"race_time":        s.RaceTime,
			},
			race.at(s.RaceTime))
	}
	return nil
}

func racerTag(id core.RacerID) string {
	if id == core.InvalidRacerID {
		return "none"
	}
	return id.String()
}
