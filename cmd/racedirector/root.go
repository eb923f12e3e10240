package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/internal/logging"
	intOtel "github.com/midnightgrind/racedirector/internal/otel"
)

const appName = "racedirector"

// app holds process-wide state shared by the subcommands.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configDir string
	logLevel  string

	sessionStart time.Time
	slogManager  *logging.SlogManager
	logger       *slog.Logger
	zlog         zerolog.Logger
	otelProvider *intOtel.Provider
	logFilePath  string
	closers      []io.Closer
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, sessionStart: time.Now()}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Race pacing and drama director",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(context.Background())
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory containing "+config.FileName)
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newReplayCmd(a),
		newPresetsCmd(a),
	)
	return cmd
}

// setup loads the config and wires logging: a text log file, optional
// Graylog and the optional OTel log bridge.
func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	viper.Reset()
	cfgErr := config.Load(a.configDir)
	if a.logLevel != "" {
		viper.Set("logLevel", a.logLevel)
	}
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	var logFile io.Writer = a.errOut
	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
		a.logFilePath = logging.LogFilePath(logsDir, appName, a.sessionStart)
		f, err := os.OpenFile(a.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.closers = append(a.closers, f)
		logFile = f
	}

	var extra []logging.Sink
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGraylogHandler(gl.Address, level)
		if err != nil {
			fmt.Fprintln(a.errOut, "graylog disabled:", err)
		} else {
			extra = append(extra, logging.Sink{Name: "graylog", Handler: h})
			a.closers = append(a.closers, closer)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		p, err := intOtel.New(ctx, intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintln(a.errOut, "otel disabled:", err)
		} else {
			a.otelProvider = p
			otelLogProvider = p.LoggerProvider()
		}
	}

	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(logFile, level, otelLogProvider, extra...)
	a.logger = a.slogManager.Logger()

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	a.zlog = zerolog.New(zerolog.ConsoleWriter{
		Out:        logFile,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(zerologLevel(level)).With().Timestamp().Logger()

	if cfgErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", cfgErr, "dir", a.configDir)
	} else {
		a.logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.slogManager != nil {
		errs = append(errs, a.slogManager.Flush(ctx))
	}
	if a.otelProvider != nil {
		errs = append(errs, a.otelProvider.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func zerologLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
