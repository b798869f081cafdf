package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daybook/internal/commands"
	"github.com/colonyops/daybook/internal/core/config"
	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/eventbus"
	"github.com/colonyops/daybook/internal/core/logging"
	"github.com/colonyops/daybook/internal/data/db"
	"github.com/colonyops/daybook/internal/data/stores"
	"github.com/colonyops/daybook/internal/planner"
	"github.com/colonyops/daybook/internal/profiler"
	"github.com/colonyops/daybook/pkg/logutils"
	"github.com/colonyops/daybook/pkg/randid"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// busBufferSize bounds the events a single command can queue before the
// dispatcher catches up.
const busBufferSize = 1024

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// openDatabase opens the store, moving a corrupted file aside once and
// starting over with an empty database.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil || !stores.IsCorruptionError(err) {
		return database, err
	}

	backup, rerr := stores.RecoverFromCorruption(cfg.DataDir, time.Now())
	if rerr != nil {
		return nil, fmt.Errorf("%w (recovery failed: %v)", err, rerr)
	}
	log.Warn().Err(err).Str("backup", backup).Msg("database was corrupted, starting with an empty one")

	return db.Open(cfg.DataDir, opts)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		daybookApp = &planner.App{}
		database   *db.DB
		bus        *eventbus.EventBus
		busCancel  context.CancelFunc
		prof       *profiler.Server
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "daybook",
		Usage:     "Plan your day in time blocks",
		UsageText: "daybook [global options] command [command options]",
		Description: `Daybook divides each day into time blocks and fits your tasks into them.

Define blocks once with 'daybook block add', track work with 'daybook task add',
then run 'daybook plan' to split outstanding work into chunks and place them
where they fit best. 'daybook day' shows the result.

A day runs from day.start (04:00 by default) to the same time the next
morning, so late-night work belongs to the day it started on.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("DAYBOOK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/daybook.log)",
				Sources:     cli.EnvVars("DAYBOOK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DAYBOOK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("DAYBOOK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "enable pprof HTTP endpoint on specified port (e.g., 6060)",
				Sources:     cli.EnvVars("DAYBOOK_PROFILER_PORT"),
				Destination: &flags.ProfilerPort,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/daybook.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = commands.DefaultLogFile(flags.DataDir)
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile, logging.ContextHook{})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			if flags.ProfilerPort > 0 {
				prof = profiler.New(flags.ProfilerPort, log.Logger)
				if err := prof.Start(ctx); err != nil {
					return ctx, err
				}
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			database, err = openDatabase(cfg)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			bus = eventbus.New(busBufferSize)
			eventbus.RegisterDebugLogger(bus, log.Logger)

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			go bus.Start(busCtx)

			svcLogger := logging.Component(log.Logger, "daybook")
			deps := planner.Deps{
				Tasks:  stores.NewTaskStore(database, svcLogger),
				Blocks: stores.NewBlockStore(database, svcLogger),
				Chunks: stores.NewChunkStore(database, svcLogger),
				Runs:   stores.NewRunStore(database),
				Bus:    bus,
				IDs:    randid.New(rand.Uint64(), rand.Uint64()),
				Colors: day.NewRandomColors(rand.Uint64()),
				Log:    svcLogger,
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*daybookApp = *planner.NewApp(deps, cfg, database)

			if cfg.Recurrence.CatchUp() {
				if _, err := daybookApp.Recurrence.CatchUp(ctx); err != nil {
					log.Warn().Err(err).Msg("recurring task catch-up failed")
				}
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Stop the dispatcher, then deliver anything still queued
			if busCancel != nil {
				busCancel()
			}
			if bus != nil {
				bus.Drain()
			}

			if prof != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = prof.Shutdown(shutdownCtx)
				cancel()
			}

			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewDayCmd(flags, daybookApp).Register(app)
	app = commands.NewPlanCmd(flags, daybookApp).Register(app)
	app = commands.NewBlockCmd(flags, daybookApp).Register(app)
	app = commands.NewTaskCmd(flags, daybookApp).Register(app)
	app = commands.NewChunkCmd(flags, daybookApp).Register(app)
	app = commands.NewRecurCmd(flags, daybookApp).Register(app)
	app = commands.NewHistoryCmd(flags, daybookApp).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
