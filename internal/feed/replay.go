package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// Director is the part of the director a feed drives.
type Director interface {
	InitializeRace(totalLaps int, trackLength float64)
	RegisterRacer(name string, isPlayer bool, startPosition int) (core.RacerID, error)
	UnregisterRacer(id core.RacerID)
	StartRace()
	EndRace() core.RaceResult
	IsRaceActive() bool
	Update(dt float64)

	UpdateRacerState(id core.RacerID, position int, speed, progress float64)
	SetRacerLap(id core.RacerID, lap int)
	SetRacerFinished(id core.RacerID, finishTime float64)
	SetRacerWrecked(id core.RacerID)
	RecordLapTime(id core.RacerID, lapTime float64)
	RecordPerfectLap(id core.RacerID, lapTime float64)
	RecordNearMiss(id core.RacerID)
	RecordTakedown(attacker, victim core.RacerID)
	RequestMistake(id core.RacerID, severity float64)
	DesignateRival(id core.RacerID, rival bool)
	SetRacerAggression(id core.RacerID, value float64)
	SetRacerSkill(id core.RacerID, value float64)
	SetDirectorStyle(style core.DirectorStyle)
	SetDifficultyPresetNamed(name string) bool
}

// ErrUnknownRacer is returned for a record referring to an unregistered Ref.
var ErrUnknownRacer = errors.New("unknown racer ref")

// ErrUnknownType is returned for an unsupported record type.
var ErrUnknownType = errors.New("unknown record type")

// Summary describes a finished replay.
type Summary struct {
	Records int
	Ticks   int
	// RaceTime is the sum of all tick deltas.
	RaceTime float64
	Ended    bool
	Result   core.RaceResult
}

// Options configures a Replayer.
type Options struct {
	Logger *slog.Logger
	// Realtime sleeps for each tick's dt, scaled by Speed.
	Realtime bool
	Speed    float64
	// EndOnEOF ends a race still active when the feed runs out.
	EndOnEOF bool
}

type recordHandler func(rec Record) error

// Replayer drives a director from a feed.
type Replayer struct {
	d    Director
	opts Options
	log  *slog.Logger

	ids      map[string]core.RacerID
	handlers map[string]recordHandler
	summary  Summary
}

// NewReplayer creates a replayer for d.
func NewReplayer(d Director, opts Options) *Replayer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	r := &Replayer{
		d:    d,
		opts: opts,
		log:  opts.Logger.With("component", "feed"),
		ids:  make(map[string]core.RacerID),
	}
	r.registerHandlers()
	return r
}

// Replay replays r into d with default options and ends the race at EOF.
func Replay(ctx context.Context, d Director, r io.Reader) (Summary, error) {
	return NewReplayer(d, Options{EndOnEOF: true}).Run(ctx, r)
}

// Run reads every record from src and applies it.
func (r *Replayer) Run(ctx context.Context, src io.Reader) (Summary, error) {
	reader := NewReader(src)
	for {
		if err := ctx.Err(); err != nil {
			return r.summary, err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.summary, err
		}

		if err := r.apply(ctx, rec); err != nil {
			return r.summary, &LineError{Line: reader.Line(), Err: err}
		}
		r.summary.Records++
	}

	if r.opts.EndOnEOF && r.d.IsRaceActive() {
		r.log.Info("feed ended with race active, ending race")
		r.finish()
	}
	r.log.Info("replay complete", "records", r.summary.Records, "ticks", r.summary.Ticks, "race_time", r.summary.RaceTime)
	return r.summary, nil
}

// ID returns the director id registered for ref.
func (r *Replayer) ID(ref string) (core.RacerID, bool) {
	id, ok := r.ids[ref]
	return id, ok
}

func (r *Replayer) apply(ctx context.Context, rec Record) error {
	if rec.Type == TypeTick {
		return r.tick(ctx, rec.DT)
	}
	h, ok := r.handlers[rec.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, rec.Type)
	}
	return h(rec)
}

func (r *Replayer) tick(ctx context.Context, dt float64) error {
	if r.opts.Realtime && dt > 0 {
		timer := time.NewTimer(time.Duration(dt / r.opts.Speed * float64(time.Second)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	wasActive := r.d.IsRaceActive()
	r.d.Update(dt)
	r.summary.Ticks++
	if dt > 0 {
		r.summary.RaceTime += dt
	}
	if wasActive && !r.d.IsRaceActive() {
		r.finish()
	}
	return nil
}

// finish collects the result. EndRace is idempotent once the race ended.
func (r *Replayer) finish() {
	r.summary.Result = r.d.EndRace()
	r.summary.Ended = true
}

func (r *Replayer) racer(ref string) (core.RacerID, error) {
	id, ok := r.ids[ref]
	if !ok {
		return core.InvalidRacerID, fmt.Errorf("%w: %q", ErrUnknownRacer, ref)
	}
	return id, nil
}

// withRacer adapts a per-racer action to a record handler.
func (r *Replayer) withRacer(fn func(id core.RacerID, rec Record)) recordHandler {
	return func(rec Record) error {
		id, err := r.racer(rec.Ref)
		if err != nil {
			return err
		}
		fn(id, rec)
		return nil
	}
}

func (r *Replayer) registerHandlers() {
	d := r.d
	r.handlers = map[string]recordHandler{
		// init drops every registered racer
		TypeInit: func(rec Record) error {
			d.InitializeRace(rec.Laps, rec.Length)
			clear(r.ids)
			r.summary = Summary{Records: r.summary.Records}
			return nil
		},
		TypeRegister: func(rec Record) error {
			if rec.Ref == "" {
				return errors.New("register without ref")
			}
			if _, dup := r.ids[rec.Ref]; dup {
				return fmt.Errorf("racer ref %q registered twice", rec.Ref)
			}
			name := rec.Name
			if name == "" {
				name = rec.Ref
			}
			id, err := d.RegisterRacer(name, rec.Player, rec.Start)
			if err != nil {
				return fmt.Errorf("register %q: %w", rec.Ref, err)
			}
			r.ids[rec.Ref] = id
			return nil
		},
		TypeUnregister: func(rec Record) error {
			id, err := r.racer(rec.Ref)
			if err != nil {
				return err
			}
			d.UnregisterRacer(id)
			delete(r.ids, rec.Ref)
			return nil
		},
		TypeStart: func(Record) error {
			d.StartRace()
			return nil
		},
		TypeEnd: func(Record) error {
			r.finish()
			return nil
		},
		TypeTakedown: func(rec Record) error {
			attacker, err := r.racer(rec.Ref)
			if err != nil {
				return err
			}
			victim, err := r.racer(rec.Victim)
			if err != nil {
				return err
			}
			d.RecordTakedown(attacker, victim)
			return nil
		},
		TypeStyle: func(rec Record) error {
			d.SetDirectorStyle(core.ParseDirectorStyle(rec.Style))
			return nil
		},
		TypeDifficulty: func(rec Record) error {
			if !d.SetDifficultyPresetNamed(rec.Level) {
				return fmt.Errorf("unknown difficulty %q", rec.Level)
			}
			return nil
		},
		TypeState: r.withRacer(func(id core.RacerID, rec Record) {
			d.UpdateRacerState(id, rec.Position, rec.Speed, rec.Progress)
		}),
		TypeLap: r.withRacer(func(id core.RacerID, rec Record) {
			d.SetRacerLap(id, rec.Lap)
		}),
		TypeLapTime: r.withRacer(func(id core.RacerID, rec Record) {
			d.RecordLapTime(id, rec.Time)
		}),
		TypePerfectLap: r.withRacer(func(id core.RacerID, rec Record) {
			d.RecordPerfectLap(id, rec.Time)
		}),
		TypeNearMiss: r.withRacer(func(id core.RacerID, _ Record) {
			d.RecordNearMiss(id)
		}),
		TypeMistake: r.withRacer(func(id core.RacerID, rec Record) {
			d.RequestMistake(id, rec.Severity)
		}),
		TypeRival: r.withRacer(func(id core.RacerID, rec Record) {
			d.DesignateRival(id, rec.Rival)
		}),
		TypeAggression: r.withRacer(func(id core.RacerID, rec Record) {
			d.SetRacerAggression(id, rec.Value)
		}),
		TypeSkill: r.withRacer(func(id core.RacerID, rec Record) {
			d.SetRacerSkill(id, rec.Value)
		}),
		TypeWreck: r.withRacer(func(id core.RacerID, _ Record) {
			d.SetRacerWrecked(id)
		}),
		TypeFinish: r.withRacer(func(id core.RacerID, rec Record) {
			d.SetRacerFinished(id, rec.Time)
		}),
	}
}
