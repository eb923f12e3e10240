package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/internal/events"
	"github.com/midnightgrind/racedirector/internal/feed"
	"github.com/midnightgrind/racedirector/internal/influx"
	"github.com/midnightgrind/racedirector/internal/logging"
	"github.com/midnightgrind/racedirector/internal/recorder"
	"github.com/midnightgrind/racedirector/internal/storage"
	"github.com/midnightgrind/racedirector/pkg/core"
	"github.com/midnightgrind/racedirector/pkg/director"
)

type replayOptions struct {
	realtime    bool
	speed       float64
	storageType string
	noInflux    bool
	queueSize   int
}

func newReplayCmd(a *app) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <feed.jsonl|->",
		Short: "Drive the director from a recorded telemetry feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runReplay(ctx, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "sleep for each tick instead of replaying as fast as possible")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "playback speed factor with --realtime")
	cmd.Flags().StringVar(&opts.storageType, "storage", "", "override storage.type (memory, sqlite, postgres)")
	cmd.Flags().BoolVar(&opts.noInflux, "no-influx", false, "do not write metrics to InfluxDB")
	cmd.Flags().IntVar(&opts.queueSize, "queue", recorder.DefaultQueueSize, "recorder queue size")
	return cmd
}

func (a *app) runReplay(ctx context.Context, path string, opts *replayOptions) (err error) {
	src, err := a.openFeed(path)
	if err != nil {
		return err
	}
	defer src.Close()

	storageCfg := config.GetStorageConfig()
	if opts.storageType != "" {
		storageCfg.Type = opts.storageType
	}
	backend, err := storage.NewBackend(storageCfg, a.zlog.With().Str("component", "storage").Logger())
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	defer func() { err = errors.Join(err, backend.Close()) }()
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)

	var metrics recorder.PointWriter
	if !opts.noInflux {
		mgr := influx.NewManager(config.GetInfluxConfig(), a.zlog.With().Str("component", "influx").Logger())
		switch connErr := mgr.Connect(ctx); {
		case errors.Is(connErr, influx.ErrDisabled):
		case connErr != nil:
			a.logger.Warn("InfluxDB unavailable", "error", connErr)
		default:
			metrics = mgr
			defer func() { err = errors.Join(err, mgr.Close()) }()
		}
	}

	bus, err := events.New(logging.NewBusLogger(a.logger))
	if err != nil {
		return fmt.Errorf("creating event bus: %w", err)
	}
	defer bus.Close()

	rec := recorder.New(recorder.Dependencies{
		Storage: backend,
		Metrics: metrics,
		Logger:  a.logger,
	})
	rec.Attach(bus, opts.queueSize)

	d, err := a.newDirector(bus)
	if err != nil {
		rec.Detach()
		return err
	}
	defer d.Close()

	summary, runErr := feed.NewReplayer(d, feed.Options{
		Logger:   a.logger,
		Realtime: opts.realtime,
		Speed:    opts.speed,
		EndOnEOF: true,
	}).Run(ctx, src)

	// drain before the backend closes
	rec.Detach()
	if runErr != nil {
		return runErr
	}

	printSummary(a.out, d, summary)
	if ex, ok := backend.(storage.Exporter); ok && ex.ExportedFilePath() != "" {
		fmt.Fprintln(a.out, "Exported:", ex.ExportedFilePath())
	}
	return nil
}

func (a *app) openFeed(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(a.in), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feed: %w", err)
	}
	return f, nil
}

func printSummary(out io.Writer, d *director.Director, s feed.Summary) {
	stats := s.Result.Statistics
	if !s.Ended {
		stats = d.GetRaceStatistics()
	}

	fmt.Fprintf(out, "Replayed %d records, %d ticks, %.2fs race time\n", s.Records, s.Ticks, s.RaceTime)
	fmt.Fprintf(out, "Lead changes: %d  Position changes: %d  Dramatic moments: %d  Winning margin: %.3fs\n",
		stats.TotalLeadChanges, stats.TotalPositionChanges, stats.TotalDramaticMoments, stats.WinningMargin)

	names := make(map[core.RacerID]core.RacerState, len(s.Result.Racers))
	for _, r := range s.Result.Racers {
		names[r.ID] = r
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tRACER\tTIME\tBEST\tWORST\tTAKEDOWNS")
	for i, id := range s.Result.FinishOrder {
		r := names[id]
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%d\t%d\t%d\n", i+1, r.Name, r.FinishTime, r.BestPosition, r.WorstPosition, r.Takedowns)
	}
	tw.Flush()

	for _, e := range s.Result.Events {
		fmt.Fprintf(out, "  %7.2fs  lap %d  %-16s %s\n", e.Timestamp, e.Lap, e.Moment, e.Description)
	}
}
